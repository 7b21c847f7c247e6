// Package extract turns file text into function definitions. Extraction
// strategies are lexical by default (regular expressions tuned per
// language, not a parser) and the Extractor contract keeps them swappable:
// a syntax-tree extractor (treesitter.go) and a user-script extractor
// (script.go) plug in behind the same interface.
package extract

import (
	"regexp"
	"sync"
)

// Function is one extracted definition: the declared name, the raw
// parameter-list text (unparsed, exactly as written between the parens),
// and the source span of the definition.
type Function struct {
	Name   string
	Params string
	Code   string
}

// Extractor produces the function definitions found in file text.
//
// IsDefinitionLine reports whether a single line is itself a definition of
// name; the usage pass needs it to avoid recording a definition as a call
// site of itself.
type Extractor interface {
	Extract(src []byte) ([]Function, error)
	IsDefinitionLine(line, name string) bool
}

// controlKeywords are call-like tokens the lexical patterns cannot tell
// apart from function definitions.
var controlKeywords = map[string]bool{
	"if":     true,
	"for":    true,
	"while":  true,
	"switch": true,
}

// Defaults returns the built-in extension→Extractor registry.
func Defaults() map[string]Extractor {
	py := NewPython()
	js := NewJavaScript()
	return map[string]Extractor{
		".py": py,
		".js": js,
		".ts": js,
	}
}

var (
	callMu    sync.Mutex
	callCache = map[string]*regexp.Regexp{}
)

// CallPattern returns the compiled word-boundary call matcher for name,
// matching "name(" with optional whitespace before the paren. Compiled
// patterns are cached: the usage pass evaluates every known name against
// every line, and recompiling per line would dominate the scan.
func CallPattern(name string) *regexp.Regexp {
	callMu.Lock()
	defer callMu.Unlock()
	if re, ok := callCache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	callCache[name] = re
	return re
}

// HasCall reports whether line contains a call-like occurrence of name.
func HasCall(line, name string) bool {
	return CallPattern(name).MatchString(line)
}
