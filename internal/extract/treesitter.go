package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// tsPyQuery captures every function definition with its name and parameter
// list, nested definitions included.
const tsPyQuery = `(function_definition
  name: (identifier) @name
  parameters: (parameters) @params) @fn`

// TreeSitterPython is a syntax-tree Python extractor behind the same
// Extractor contract as the lexical strategies. Unlike the lexical scanner
// it understands real scoping, so parameter defaults containing ")" or
// multi-line strings that merely look like defs do not confuse it.
// IsDefinitionLine stays lexical: the usage pass works line-by-line and has
// no tree to consult.
type TreeSitterPython struct {
	lexical *Python
}

// NewTreeSitterPython returns the tree-sitter backed Python extractor.
func NewTreeSitterPython() *TreeSitterPython {
	return &TreeSitterPython{lexical: NewPython()}
}

func (e *TreeSitterPython) Extract(src []byte) ([]Function, error) {
	lang := python.GetLanguage()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: parse python: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(tsPyQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("extract: compile query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, tree.RootNode())

	var funcs []Function
	for {
		match, found := cursor.NextMatch()
		if !found {
			break
		}
		match = cursor.FilterPredicates(match, src)

		var fn Function
		for _, capture := range match.Captures {
			text := capture.Node.Content(src)
			switch q.CaptureNameForId(capture.Index) {
			case "name":
				fn.Name = text
			case "params":
				// The parameters node includes the surrounding parens;
				// the contract wants only the raw list between them.
				fn.Params = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "("), ")"))
			case "fn":
				fn.Code = text
			}
		}
		if fn.Name != "" {
			funcs = append(funcs, fn)
		}
	}
	return funcs, nil
}

func (e *TreeSitterPython) IsDefinitionLine(line, name string) bool {
	return e.lexical.IsDefinitionLine(line, name)
}
