package extract

import (
	"regexp"
	"strings"
)

// pyDefPattern matches "def name(params):" with an optional return
// annotation. (?s) lets the parameter list span lines; the lazy group stops
// at the first closing paren, so a default containing ")" cuts the list
// short. Accepted lexical limitation.
var pyDefPattern = regexp.MustCompile(`(?s)def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\((.*?)\)(?:\s*->.*?)?:`)

// Python extracts "def name(params):" blocks. Body extraction is an
// indentation heuristic: every following line that is blank or starts with
// whitespace belongs to the body, and the first non-indented, non-blank
// line ends it. Nested defs therefore surface as their own definitions and
// also appear inside the enclosing body.
type Python struct{}

// NewPython returns the lexical Python extractor.
func NewPython() *Python { return &Python{} }

func (*Python) Extract(src []byte) ([]Function, error) {
	content := string(src)
	var funcs []Function
	for _, m := range pyDefPattern.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		params := strings.TrimSpace(content[m[4]:m[5]])
		body := indentedBody(content[m[1]:])

		code := "def " + name + "(" + params + "):"
		if body != "" {
			code += "\n" + body
		}
		funcs = append(funcs, Function{Name: name, Params: params, Code: code})
	}
	return funcs, nil
}

// indentedBody collects lines after the signature until the first
// non-blank line at column zero.
func indentedBody(rest string) string {
	rest = strings.TrimPrefix(rest, "\n")
	var body []string
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			body = append(body, line)
			continue
		}
		break
	}
	// Trailing blank lines belong to whatever follows, not the function.
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	return strings.Join(body, "\n")
}

func (*Python) IsDefinitionLine(line, name string) bool {
	return strings.Contains(line, "def "+name)
}
