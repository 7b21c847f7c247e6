package sigdrift

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/sigdrift/internal/extract"
	"github.com/jward/sigdrift/internal/imports"
	"github.com/jward/sigdrift/internal/index"
	"github.com/jward/sigdrift/internal/oracle"
	"github.com/jward/sigdrift/internal/store"
	"github.com/jward/sigdrift/internal/suggest"
)

// defaultExcludes keeps dependency trees and build artifacts out of scans.
var defaultExcludes = []string{
	".git/",
	".sigdrift/",
	"venv/",
	".venv/",
	"node_modules/",
	"__pycache__/",
	"dist/",
	"build/",
	".tox/",
}

// Engine orchestrates the sigdrift pipeline: scanning, the symbol index,
// change detection, and suggestion generation.
type Engine struct {
	store      *store.Store
	idx        *index.Index
	extractors map[string]extract.Extractor
	oracle     oracle.Oracle
	excludes   *ignore.GitIgnore
	log        *slog.Logger

	oracleTimeout     time.Duration
	oracleConcurrency int

	// writeMu serializes index writers: full scans hold it end to end,
	// re-scans only around their final merge. Snapshots never need it.
	writeMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithOracle sets the rewrite oracle used for signature-change suggestions.
// Without one, those suggestions propose the unchanged original line.
func WithOracle(o oracle.Oracle) Option {
	return func(e *Engine) {
		e.oracle = o
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithExtractor registers or replaces the extraction strategy for a file
// extension (".py", ".rb", ...).
func WithExtractor(ext string, x extract.Extractor) Option {
	return func(e *Engine) {
		e.extractors[strings.ToLower(ext)] = x
	}
}

// WithTreeSitterPython swaps the lexical Python strategy for the
// syntax-tree one.
func WithTreeSitterPython() Option {
	return func(e *Engine) {
		e.extractors[".py"] = extract.NewTreeSitterPython()
	}
}

// WithScriptExtractor registers a Risor-script extraction strategy for a
// file extension.
func WithScriptExtractor(ext, source string) Option {
	return func(e *Engine) {
		e.extractors[strings.ToLower(ext)] = extract.NewScript(source)
	}
}

// WithExcludes appends gitignore-style exclusion rules to the defaults.
func WithExcludes(rules ...string) Option {
	return func(e *Engine) {
		e.excludes = ignore.CompileIgnoreLines(append(append([]string{}, defaultExcludes...), rules...)...)
	}
}

// WithOracleTimeout bounds each individual oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.oracleTimeout = d
	}
}

// WithOracleConcurrency caps in-flight oracle calls per detection request.
func WithOracleConcurrency(n int) Option {
	return func(e *Engine) {
		e.oracleConcurrency = n
	}
}

// New creates an Engine backed by a SQLite database at dbPath. A previously
// persisted index is loaded so detection can run without a fresh scan.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sigdrift: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("sigdrift: migrate: %w", err)
	}

	e := &Engine{
		store:      s,
		idx:        index.New(),
		extractors: extract.Defaults(),
		excludes:   ignore.CompileIgnoreLines(defaultExcludes...),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	snap, err := s.LoadSnapshot()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("sigdrift: load persisted index: %w", err)
	}
	if len(snap.Definitions) > 0 || len(snap.Usages) > 0 {
		e.idx.Replace(snap)
	}

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Snapshot returns a deep copy of the current index state.
func (e *Engine) Snapshot() Snapshot {
	return e.idx.Snapshot()
}

// Reset clears the in-memory index and the persisted snapshot.
func (e *Engine) Reset() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.idx.Reset()
	if err := e.store.SaveSnapshot(e.idx.Snapshot()); err != nil {
		return fmt.Errorf("sigdrift: reset: %w", err)
	}
	return nil
}

// LastScan reports the root and time of the most recent persisted scan.
func (e *Engine) LastScan() (root string, at time.Time, ok bool, err error) {
	return e.store.LastScan()
}

// extractorFor returns the extraction strategy for path's extension.
func (e *Engine) extractorFor(path string) (extract.Extractor, bool) {
	x, ok := e.extractors[strings.ToLower(filepath.Ext(path))]
	return x, ok
}

// generator builds the suggestion generator with the Engine's settings.
func (e *Engine) generator() *suggest.Generator {
	return &suggest.Generator{
		Oracle:      e.oracle,
		Imports:     &imports.Resolver{},
		Timeout:     e.oracleTimeout,
		Concurrency: e.oracleConcurrency,
		Log:         e.log,
	}
}
