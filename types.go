package sigdrift

import (
	"github.com/jward/sigdrift/internal/extract"
	"github.com/jward/sigdrift/internal/index"
	"github.com/jward/sigdrift/internal/oracle"
	"github.com/jward/sigdrift/internal/rename"
	"github.com/jward/sigdrift/internal/sigdiff"
	"github.com/jward/sigdrift/internal/suggest"
)

// Public type aliases for internal types used in the Engine API. These are
// Go type aliases (=), identical to the internal types at compile time.

type Definition = index.Definition
type Usage = index.Usage
type Snapshot = index.Snapshot

type Param = sigdiff.Param
type ParameterDiff = sigdiff.Diff
type DefaultChange = sigdiff.DefaultChange

type RenameCandidate = rename.Candidate

type Suggestion = suggest.Suggestion
type ChangedFunction = suggest.ChangedFunction
type ChangeType = suggest.ChangeType

const (
	ChangeRename          = suggest.ChangeRename
	ChangeImportUpdate    = suggest.ChangeImportUpdate
	ChangeSignatureUpdate = suggest.ChangeSignatureUpdate
)

type Extractor = extract.Extractor
type ExtractedFunction = extract.Function

type Oracle = oracle.Oracle
type OracleFunc = oracle.Func
type OracleRequest = oracle.Request

// NewOracleClient returns an Oracle backed by an OpenAI-compatible chat
// completion endpoint, such as a local Ollama server.
func NewOracleClient(baseURL, apiKey, model string) Oracle {
	return oracle.NewClient(baseURL, apiKey, model)
}
