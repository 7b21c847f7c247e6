package extract

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Script is an Extractor backed by a user-supplied Risor script, for
// languages the built-in strategies do not cover. The script runs once per
// file with two globals:
//
//	src   the file text (string)
//	emit  emit(name, params, code) records one definition
//
// The script decides how to find definitions; control keywords are still
// filtered host-side so a sloppy script cannot register "if" as a function.
type Script struct {
	source string

	mu      sync.Mutex
	defLine map[string]*regexp.Regexp
}

// NewScript wraps risor source as an Extractor.
func NewScript(source string) *Script {
	return &Script{source: source, defLine: map[string]*regexp.Regexp{}}
}

func (s *Script) Extract(src []byte) ([]Function, error) {
	var funcs []Function

	emit := object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("emit", 3, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("emit: name must be a string, got %s", args[0].Type())
		}
		params, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("emit: params must be a string, got %s", args[1].Type())
		}
		code, ok := args[2].(*object.String)
		if !ok {
			return object.Errorf("emit: code must be a string, got %s", args[2].Type())
		}
		if controlKeywords[name.Value()] {
			return object.Nil
		}
		funcs = append(funcs, Function{
			Name:   name.Value(),
			Params: params.Value(),
			Code:   code.Value(),
		})
		return object.Nil
	})

	_, err := risor.Eval(context.Background(), s.source,
		risor.WithGlobal("src", string(src)),
		risor.WithGlobal("emit", emit),
	)
	if err != nil {
		return nil, fmt.Errorf("extract: script: %w", err)
	}
	return funcs, nil
}

// IsDefinitionLine uses a permissive def/function/const check since the
// script's language is unknown to the host.
func (s *Script) IsDefinitionLine(line, name string) bool {
	s.mu.Lock()
	re, ok := s.defLine[name]
	if !ok {
		re = regexp.MustCompile(`\b(def|function|func|const)\s+` + regexp.QuoteMeta(name))
		s.defLine[name] = re
	}
	s.mu.Unlock()
	return re.MatchString(line)
}
