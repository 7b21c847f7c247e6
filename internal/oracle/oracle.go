// Package oracle is the boundary to the code-transformation capability:
// given a signature diff and one usage line, propose the rewritten line.
// The reference backend is a chat model behind any OpenAI-compatible API
// (Ollama's /v1 endpoint included), but callers only see a pure
// Rewrite(request) -> line function that may fail or time out.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/sigdrift/internal/sigdiff"
)

// Request carries everything the oracle needs to rewrite one usage line.
type Request struct {
	Function     string
	OldSignature string
	NewSignature string
	Diff         sigdiff.Diff
	UsageLine    string
}

// Oracle proposes a replacement for a single call-site line. Implementations
// must honor ctx cancellation; errors are recovered by the caller with a
// same-line fallback, never surfaced to the end user.
type Oracle interface {
	Rewrite(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Rewrite(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// BuildPrompt renders the rewrite instruction for a chat model.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A function signature has changed:\n\n")
	fmt.Fprintf(&b, "Original: function %s(%s)\n", req.Function, req.OldSignature)
	fmt.Fprintf(&b, "New: function %s(%s)\n\n", req.Function, req.NewSignature)
	fmt.Fprintf(&b, "Detailed changes:\n")
	fmt.Fprintf(&b, "- Added parameters: %s\n", formatParams(req.Diff.Added))
	fmt.Fprintf(&b, "- Removed parameters: %s\n", formatParams(req.Diff.Removed))
	fmt.Fprintf(&b, "- Changed defaults: %s\n", formatDefaultChanges(req.Diff.ChangedDefaults))
	fmt.Fprintf(&b, "- Parameters reordered: %t\n\n", req.Diff.Reordered)
	fmt.Fprintf(&b, "Current usage:\n```\n%s\n```\n\n", req.UsageLine)
	b.WriteString("Update this usage to match the new function signature. Consider:\n")
	b.WriteString("1. If parameters were added with defaults, they may be omitted in the call\n")
	b.WriteString("2. If parameters were removed, remove them from the call\n")
	b.WriteString("3. If parameter order changed, ensure arguments are in the correct position\n")
	b.WriteString("4. If default values changed, update only if the call explicitly specified the old default\n\n")
	b.WriteString("Provide ONLY the updated code line with no explanations.")
	return b.String()
}

func formatParams(params []sigdiff.Param) string {
	if len(params) == 0 {
		return "none"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		if p.Default != nil {
			parts[i] = p.Name + "=" + *p.Default
		} else {
			parts[i] = p.Name
		}
	}
	return strings.Join(parts, ", ")
}

func formatDefaultChanges(changes []sigdiff.DefaultChange) string {
	if len(changes) == 0 {
		return "none"
	}
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = fmt.Sprintf("%s: %s -> %s", c.Name, defaultText(c.OldDefault), defaultText(c.NewDefault))
	}
	return strings.Join(parts, "; ")
}

func defaultText(d *string) string {
	if d == nil {
		return "none"
	}
	return *d
}

// languageTags are fence info strings the model tends to emit.
var languageTags = []string{"python", "javascript", "typescript", "html", "css"}

// CleanResponse strips markdown fences and language tags from model output,
// leaving the bare code line.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "```") {
		parts := strings.Split(s, "```")
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			// Fenced block: the code is the first fenced segment.
			s = parts[1]
			for _, tag := range languageTags {
				if strings.HasPrefix(s, tag) {
					lines := strings.Split(s, "\n")
					s = strings.Join(lines[1:], "\n")
					break
				}
			}
		} else {
			// Stray fence markers around a bare line.
			s = strings.ReplaceAll(s, "```", "")
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
