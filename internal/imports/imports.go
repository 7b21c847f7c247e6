// Package imports answers whether a file textually imports a function name,
// where that import lives, and what the import line looks like after a
// rename. Matching is lexical, aimed at "import x" and
// "from module import a, b as c" clauses.
package imports

import (
	"os"
	"regexp"
	"strings"
)

var importClausePatterns = []*regexp.Regexp{
	regexp.MustCompile(`from\s+[a-zA-Z0-9_.]+\s+import\s+([^#\n]+)`),
	regexp.MustCompile(`import\s+([^#\n]+)`),
}

// Resolver resolves import references against files on disk. The zero value
// reads through os.ReadFile.
type Resolver struct {
	// ReadFile overrides file access, for tests. Nil means os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

func (r *Resolver) read(path string) ([]byte, bool) {
	readFile := r.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(path)
	if err != nil {
		// Unreadable files simply have no imports; the caller treats the
		// answer as "not imported" rather than failing the suggestion pass.
		return nil, false
	}
	return data, true
}

// IsImported reports whether path contains an import clause naming name,
// either directly or as an "as" alias target.
func (r *Resolver) IsImported(path, name string) bool {
	data, ok := r.read(path)
	if !ok {
		return false
	}
	return importsName(string(data), name)
}

// importsName reports whether text contains an import clause whose elements
// include name exactly, or alias something to it. Clause elements are
// compared whole, so a prefix-named sibling like foo_bar never matches foo.
func importsName(text, name string) bool {
	for _, pattern := range importClausePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			for _, part := range strings.Split(m[1], ",") {
				part = strings.TrimSpace(part)
				if part == name || strings.HasSuffix(part, " as "+name) {
					return true
				}
			}
		}
	}
	return false
}

// LocateImportLine returns the 1-based line number of the import statement
// for name, defaulting to 1 when no line matches.
func (r *Resolver) LocateImportLine(path, name string) int {
	data, ok := r.read(path)
	if !ok {
		return 1
	}
	for i, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "import") {
			continue
		}
		if importsName(line, name) {
			return i + 1
		}
	}
	return 1
}

// ImportLine returns the trimmed text of the import statement for name, or
// "" when none exists.
func (r *Resolver) ImportLine(path, name string) string {
	data, ok := r.read(path)
	if !ok {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "import") {
			continue
		}
		if importsName(line, name) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// RenderUpdatedImport rewrites the import line for oldName so it names
// newName instead. In a "from module import a, b, c" clause only the exact
// matching element is replaced and the rest of the clause is preserved
// verbatim; other import shapes fall back to plain text replacement.
func (r *Resolver) RenderUpdatedImport(path, oldName, newName string) string {
	oldLine := r.ImportLine(path, oldName)
	if oldLine == "" {
		return ""
	}

	if strings.Contains(oldLine, "from ") && strings.Contains(oldLine, "import ") {
		head, clause, _ := strings.Cut(oldLine, "import ")
		parts := strings.Split(clause, ",")
		for i, part := range parts {
			if strings.TrimSpace(part) == oldName {
				parts[i] = newName
			} else {
				parts[i] = strings.TrimSpace(part)
			}
		}
		return head + "import " + strings.Join(parts, ", ")
	}
	return strings.ReplaceAll(oldLine, oldName, newName)
}
