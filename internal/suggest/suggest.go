// Package suggest turns detected renames and signature changes into
// per-call-site edit suggestions. Suggestions are proposals only; nothing
// here writes source files.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/sigdrift/internal/imports"
	"github.com/jward/sigdrift/internal/index"
	"github.com/jward/sigdrift/internal/oracle"
	"github.com/jward/sigdrift/internal/rename"
	"github.com/jward/sigdrift/internal/sigdiff"
)

// ChangeType labels what kind of edit a suggestion proposes.
type ChangeType string

const (
	ChangeRename          ChangeType = "rename"
	ChangeImportUpdate    ChangeType = "import_update"
	ChangeSignatureUpdate ChangeType = "signature_update"
)

// RenameChange is the detailed_changes payload for rename and import
// suggestions.
type RenameChange struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// Suggestion proposes replacing OldCode with NewCode at File:Line.
// OriginFile is the file whose edit triggered the suggestion; a suggestion
// never targets its own origin file.
type Suggestion struct {
	Function        string     `json:"function"`
	NewFunction     string     `json:"new_function,omitempty"`
	File            string     `json:"file"`
	Line            int        `json:"line"`
	OldCode         string     `json:"old_code"`
	NewCode         string     `json:"new_code"`
	OriginFile      string     `json:"origin_file"`
	ChangeType      ChangeType `json:"change_type"`
	DetailedChanges any        `json:"detailed_changes"`
}

// ChangedFunction records a signature change detected for one function.
type ChangedFunction struct {
	Name            string       `json:"name"`
	OldSignature    string       `json:"old_signature"`
	NewSignature    string       `json:"new_signature"`
	File            string       `json:"file"`
	DetailedChanges sigdiff.Diff `json:"detailed_changes"`
}

// Generator fans detected changes out over recorded usages.
type Generator struct {
	// Oracle rewrites usage lines for signature changes. Nil means every
	// signature suggestion falls back to the unchanged line.
	Oracle oracle.Oracle

	// Imports detects import statements needing a companion update on
	// renames. Nil disables import suggestions.
	Imports *imports.Resolver

	// Timeout bounds each individual oracle call.
	Timeout time.Duration

	// Concurrency caps in-flight oracle calls per request.
	Concurrency int

	Log *slog.Logger
}

const (
	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
)

func (g *Generator) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}

// Renames emits suggestions for every usage of each renamed function
// recorded in usages, excluding usages in originFile (the file being
// edited). NewCode is a plain substring replacement of the old name; when
// the usage's file imports the old name explicitly, a second import_update
// suggestion targets that import line.
func (g *Generator) Renames(originFile string, candidates []rename.Candidate, usages map[string][]index.Usage) []Suggestion {
	var out []Suggestion
	for _, cand := range candidates {
		change := RenameChange{OldName: cand.OldName, NewName: cand.NewName}
		for _, usage := range usages[cand.OldName] {
			if usage.File == originFile {
				continue
			}
			out = append(out, Suggestion{
				Function:        cand.OldName,
				NewFunction:     cand.NewName,
				File:            usage.File,
				Line:            usage.Line,
				OldCode:         usage.Code,
				NewCode:         strings.ReplaceAll(usage.Code, cand.OldName, cand.NewName),
				OriginFile:      originFile,
				ChangeType:      ChangeRename,
				DetailedChanges: change,
			})

			if g.Imports != nil && g.Imports.IsImported(usage.File, cand.OldName) {
				out = append(out, Suggestion{
					Function:        cand.OldName,
					NewFunction:     cand.NewName,
					File:            usage.File,
					Line:            g.Imports.LocateImportLine(usage.File, cand.OldName),
					OldCode:         g.Imports.ImportLine(usage.File, cand.OldName),
					NewCode:         g.Imports.RenderUpdatedImport(usage.File, cand.OldName, cand.NewName),
					OriginFile:      originFile,
					ChangeType:      ChangeImportUpdate,
					DetailedChanges: change,
				})
			}
		}
	}
	return out
}

// SignatureChanges emits one signature_update suggestion per usage outside
// originFile, delegating the line rewrite to the oracle. Oracle calls run
// concurrently (bounded by Concurrency) and each is bounded by Timeout, so
// one stalled call cannot hold up the rest. A failed call falls back to the
// original line: the suggestion still appears, proposing no change.
func (g *Generator) SignatureChanges(ctx context.Context, originFile string, changes []ChangedFunction, usages map[string][]index.Usage) []Suggestion {
	type target struct {
		change ChangedFunction
		usage  index.Usage
	}
	var targets []target
	for _, change := range changes {
		for _, usage := range usages[change.Name] {
			if usage.File == originFile {
				continue
			}
			targets = append(targets, target{change: change, usage: usage})
		}
	}
	if len(targets) == 0 {
		return nil
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := g.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	// Results land in pre-assigned slots so output order matches usage
	// order no matter which oracle call finishes first.
	out := make([]Suggestion, len(targets))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)
	for i, tg := range targets {
		grp.Go(func() error {
			out[i] = Suggestion{
				Function:        tg.change.Name,
				File:            tg.usage.File,
				Line:            tg.usage.Line,
				OldCode:         tg.usage.Code,
				NewCode:         g.rewriteLine(grpCtx, tg.change, tg.usage, timeout),
				OriginFile:      tg.change.File,
				ChangeType:      ChangeSignatureUpdate,
				DetailedChanges: tg.change.DetailedChanges,
			}
			return nil
		})
	}
	// Workers never return errors; failures degrade to the fallback line.
	_ = grp.Wait()
	return out
}

// rewriteLine calls the oracle with a per-call timeout, falling back to the
// unmodified usage line on any failure. Failures are logged, not returned:
// the original code is always the safe answer.
func (g *Generator) rewriteLine(ctx context.Context, change ChangedFunction, usage index.Usage, timeout time.Duration) string {
	if g.Oracle == nil {
		return usage.Code
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	line, err := g.Oracle.Rewrite(callCtx, oracle.Request{
		Function:     change.Name,
		OldSignature: change.OldSignature,
		NewSignature: change.NewSignature,
		Diff:         change.DetailedChanges,
		UsageLine:    usage.Code,
	})
	if err != nil {
		g.logger().Warn("oracle rewrite failed, keeping original line",
			slog.String("function", change.Name),
			slog.String("file", usage.File),
			slog.Int("line", usage.Line),
			slog.Any("error", err),
		)
		return usage.Code
	}
	return line
}
