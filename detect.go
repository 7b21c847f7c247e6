package sigdrift

import (
	"context"
	"fmt"
	"sort"

	"github.com/jward/sigdrift/internal/index"
	"github.com/jward/sigdrift/internal/rename"
	"github.com/jward/sigdrift/internal/sigdiff"
	"github.com/jward/sigdrift/internal/suggest"
)

// DetectResult reports everything a single file edit changed: which
// signatures drifted, which functions look renamed, and the per-call-site
// edits proposed for the rest of the tree.
type DetectResult struct {
	UpdateSuggestions []suggest.Suggestion        `json:"update_suggestions"`
	ChangedFunctions  []suggest.ChangedFunction   `json:"changed_functions"`
	RenamedFunctions  []rename.Candidate          `json:"renamed_functions"`
	Definitions       map[string]index.Definition `json:"definitions"`
	Usages            map[string][]index.Usage    `json:"usages"`
}

// DetectChanges compares newCode for file against the indexed state,
// detects signature changes and probable renames among that file's
// functions, and generates update suggestions for call sites elsewhere in
// the tree.
//
// The comparison runs against a snapshot taken before any mutation, and the
// index is only merged after extraction succeeds, so a file that fails to
// parse leaves the index untouched. Rename suggestions are generated before
// signature-change suggestions. The merge never deletes definitions:
// usages of the old name survive a rename so later edits can still find
// them.
func (e *Engine) DetectChanges(ctx context.Context, file, newCode string) (*DetectResult, error) {
	x, ok := e.extractorFor(file)
	if !ok {
		return nil, fmt.Errorf("sigdrift: no extractor for %s", file)
	}

	before := e.idx.Snapshot()

	funcs, err := x.Extract([]byte(newCode))
	if err != nil {
		return nil, fmt.Errorf("sigdrift: extract %s: %w", file, err)
	}

	extracted := make(map[string]index.Definition, len(funcs))
	for _, fn := range funcs {
		extracted[fn.Name] = index.Definition{
			Name:      fn.Name,
			File:      file,
			Code:      fn.Code,
			Signature: fn.Params,
		}
	}

	// Signature changes: functions that exist in both versions with
	// different parameter text.
	names := make([]string, 0, len(extracted))
	for name := range extracted {
		names = append(names, name)
	}
	sort.Strings(names)

	var changed []suggest.ChangedFunction
	for _, name := range names {
		old, known := before.Definitions[name]
		if !known || old.Signature == extracted[name].Signature {
			continue
		}
		changed = append(changed, suggest.ChangedFunction{
			Name:            name,
			OldSignature:    old.Signature,
			NewSignature:    extracted[name].Signature,
			File:            file,
			DetailedChanges: sigdiff.Compare(old.Signature, extracted[name].Signature),
		})
	}

	// Renames: definitions this file used to hold that vanished, paired
	// against names that newly appeared.
	// Removed names come from the same snapshot as everything else in
	// this comparison; reading the live index here could mix in a
	// concurrent merge.
	removed := map[string]string{}
	for name, def := range before.Definitions {
		if def.File != file {
			continue
		}
		if _, still := extracted[name]; !still {
			removed[name] = def.Signature
		}
	}
	added := map[string]string{}
	for name, def := range extracted {
		if _, was := before.Definitions[name]; !was {
			added[name] = def.Signature
		}
	}
	renamed := rename.Detect(file, removed, added)

	gen := e.generator()
	suggestions := gen.Renames(file, renamed, before.Usages)
	suggestions = append(suggestions, gen.SignatureChanges(ctx, file, changed, before.Usages)...)

	// JSON consumers get arrays, not nulls.
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	if changed == nil {
		changed = []suggest.ChangedFunction{}
	}
	if renamed == nil {
		renamed = []rename.Candidate{}
	}

	e.writeMu.Lock()
	e.idx.Merge(extracted)
	after := e.idx.Snapshot()
	saveErr := e.store.SaveSnapshot(after)
	e.writeMu.Unlock()
	if saveErr != nil {
		// The merge already landed; failing now would leave the caller
		// believing the index is unchanged. The in-memory state is the
		// source of truth for this process, and the next successful
		// write persists the full snapshot again.
		e.log.Warn("persisting index failed", "file", file, "error", saveErr)
	}

	e.log.Info("detection complete",
		"file", file,
		"changed", len(changed),
		"renamed", len(renamed),
		"suggestions", len(suggestions),
	)
	return &DetectResult{
		UpdateSuggestions: suggestions,
		ChangedFunctions:  changed,
		RenamedFunctions:  renamed,
		Definitions:       after.Definitions,
		Usages:            before.Usages,
	}, nil
}
