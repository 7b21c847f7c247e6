package sigdrift

import (
	"fmt"
	"os"
	"strings"

	"github.com/jward/sigdrift/internal/suggest"
)

// ApplySuggestion rewrites the suggestion's file in place, replacing every
// occurrence of the old code with the new. The file's permissions are
// preserved. It fails without touching the file when the old code is no
// longer present, which usually means the file changed since the
// suggestion was generated.
func ApplySuggestion(s suggest.Suggestion) error {
	info, err := os.Stat(s.File)
	if err != nil {
		return fmt.Errorf("sigdrift: apply to %s: %w", s.File, err)
	}
	data, err := os.ReadFile(s.File)
	if err != nil {
		return fmt.Errorf("sigdrift: apply to %s: %w", s.File, err)
	}
	content := string(data)
	if !strings.Contains(content, s.OldCode) {
		return fmt.Errorf("sigdrift: apply to %s: old code %q not found", s.File, s.OldCode)
	}
	updated := strings.ReplaceAll(content, s.OldCode, s.NewCode)
	if err := os.WriteFile(s.File, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("sigdrift: apply to %s: %w", s.File, err)
	}
	return nil
}
