package sigdrift

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/sigdrift/internal/extract"
	"github.com/jward/sigdrift/internal/index"
)

// DefaultPatterns are the include globs used when Scan receives none.
var DefaultPatterns = []string{"**/*.py", "**/*.js", "**/*.ts"}

// FileError is a per-file failure carrying the offending path. Scan
// collects these and keeps going; they never abort the pass.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// MarshalJSON renders the wrapped error as text for API consumers.
func (e *FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{Path: e.Path, Error: e.Err.Error()})
}

// ScanResult is the outcome of a full directory scan.
type ScanResult struct {
	Definitions map[string]index.Definition `json:"definitions"`
	Usages      map[string][]index.Usage    `json:"usages"`
	Files       int                         `json:"files"`
	Failures    []*FileError                `json:"failures,omitempty"`
}

// Scan performs a full rebuild: the index is cleared and repopulated from
// every file under root matching the include patterns (DefaultPatterns when
// nil), excluding dependency and build directories.
//
// Definitions are collected from all files first, then a second pass
// records usages, matching every known name against every line. Running the
// usage pass after all definitions exist makes Scan independent of file
// order and idempotent: scanning an unchanged tree twice yields identical
// results. Per-file read or extraction failures are collected on the result
// and do not stop the scan.
//
// Scan holds the Engine's writer lock end to end, so concurrent detection
// requests see either the old index or the new one, never a mix.
func (e *Engine) Scan(ctx context.Context, root string, patterns []string) (*ScanResult, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	result := &ScanResult{
		Definitions: map[string]index.Definition{},
		Usages:      map[string][]index.Usage{},
	}

	files, err := e.collectFiles(root, patterns)
	if err != nil {
		return nil, fmt.Errorf("sigdrift: walk %s: %w", root, err)
	}

	// Pass 1: definitions. Contents are kept for the usage pass so each
	// file is read once.
	contents := make(map[string][]byte, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			result.Failures = append(result.Failures, &FileError{Path: path, Err: err})
			continue
		}
		contents[path] = data

		x, _ := e.extractorFor(path)
		funcs, err := x.Extract(data)
		if err != nil {
			result.Failures = append(result.Failures, &FileError{Path: path, Err: err})
			continue
		}
		for _, fn := range funcs {
			result.Definitions[fn.Name] = index.Definition{
				Name:      fn.Name,
				File:      path,
				Code:      fn.Code,
				Signature: fn.Params,
			}
		}
	}

	// Pass 2: usages. Every line is checked against every known name; this
	// is O(total lines × known names) and is the first scaling limit of
	// the lexical design.
	names := make([]string, 0, len(result.Definitions))
	for name := range result.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, ok := contents[path]
		if !ok {
			continue
		}
		x, _ := e.extractorFor(path)
		for i, line := range strings.Split(string(data), "\n") {
			for _, name := range names {
				if !extract.HasCall(line, name) || x.IsDefinitionLine(line, name) {
					continue
				}
				result.Usages[name] = append(result.Usages[name], index.Usage{
					File: path,
					Line: i + 1,
					Code: strings.TrimSpace(line),
				})
			}
		}
	}
	result.Files = len(contents)

	snap := index.Snapshot{Definitions: result.Definitions, Usages: result.Usages}
	e.idx.Replace(snap)
	if err := e.store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("sigdrift: persist scan: %w", err)
	}
	if err := e.store.RecordScan(root, result.Files); err != nil {
		return nil, fmt.Errorf("sigdrift: record scan: %w", err)
	}

	e.log.Info("scan complete",
		"root", root,
		"files", result.Files,
		"definitions", len(result.Definitions),
		"failures", len(result.Failures),
	)
	return result, nil
}

// collectFiles walks root and returns the matching file paths in walk
// (lexical) order.
func (e *Engine) collectFiles(root string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && e.excludes.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if e.excludes.MatchesPath(rel) {
			return nil
		}
		if _, ok := e.extractorFor(path); !ok {
			return nil
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	return files, err
}
