package extract

import (
	"regexp"
	"strings"
	"sync"
)

// The three declaration shapes recognized in JS/TS source. The method
// pattern cannot distinguish "name(args) {" from "if (cond) {", which is
// what the control-keyword denylist is for. Its parameter group is bound
// to a single line without nested parens; letting it span lines makes a
// call followed by a later "{" look like one giant method.
var (
	jsFuncPattern   = regexp.MustCompile(`(?s)function\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\((.*?)\)`)
	jsMethodPattern = regexp.MustCompile(`(?:async\s+)?([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\(([^()\n]*)\)\s*\{`)
	jsArrowPattern  = regexp.MustCompile(`(?s)const\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*=\s*(?:async\s+)?\((.*?)\)\s*=>`)
)

// JavaScript extracts function declarations, method shorthand, and
// const-arrow assignments from JS/TS source. Only the matched declaration
// text is captured as the code span; brace-matched bodies are out of scope
// for the lexical contract.
type JavaScript struct {
	mu      sync.Mutex
	defLine map[string]*regexp.Regexp
}

// NewJavaScript returns the lexical JavaScript/TypeScript extractor.
func NewJavaScript() *JavaScript {
	return &JavaScript{defLine: map[string]*regexp.Regexp{}}
}

func (*JavaScript) Extract(src []byte) ([]Function, error) {
	content := string(src)
	var funcs []Function
	seen := map[string]int{} // name → index in funcs, later patterns overwrite
	for _, pattern := range []*regexp.Regexp{jsFuncPattern, jsMethodPattern, jsArrowPattern} {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if controlKeywords[name] {
				continue
			}
			fn := Function{Name: name, Params: strings.TrimSpace(m[2]), Code: m[0]}
			if i, ok := seen[name]; ok {
				funcs[i] = fn
				continue
			}
			seen[name] = len(funcs)
			funcs = append(funcs, fn)
		}
	}
	return funcs, nil
}

func (j *JavaScript) IsDefinitionLine(line, name string) bool {
	j.mu.Lock()
	re, ok := j.defLine[name]
	if !ok {
		re = regexp.MustCompile(`(function|const)\s+` + regexp.QuoteMeta(name))
		j.defLine[name] = re
	}
	j.mu.Unlock()
	return re.MatchString(line)
}
