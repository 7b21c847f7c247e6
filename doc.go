package sigdrift

// Architecture
//
// The pipeline has six stages, leaf-first:
//
//	internal/extract   lexical per-language extraction strategies behind a
//	                   swappable Extractor contract (plus tree-sitter and
//	                   Risor-script implementations)
//	internal/index     the registry of definitions and usages; immutable
//	                   state swapped under a mutex, so snapshots are atomic
//	                   with respect to merges
//	internal/sigdiff   structural parameter-list diffing
//	internal/rename    removed×added matching within the edited file
//	internal/suggest   fan-out over recorded usages, oracle delegation for
//	                   line rewrites, import-update companions
//	internal/imports   lexical import-clause resolution
//
// A full scan (Engine.Scan) walks the tree twice: definitions first, then a
// usage pass matching every known name against every line. The usage pass
// is O(total lines × known names) by construction; acceptable for corpora
// of hundreds of functions, and the first thing to revisit beyond that.
//
// Change detection (Engine.DetectChanges) never touches the registry until
// its final stage: it diffs a fresh extraction of the edited buffer against
// a snapshot, resolves renames, emits suggestions from the snapshot's
// usages, and only then merges the new definitions in. A failure anywhere
// before the merge leaves the registry exactly as it was.
//
// The external rewrite oracle (internal/oracle) is the only slow, networked
// dependency. Calls are bounded, concurrent, and individually cancellable;
// a failed call degrades the suggestion to the unchanged original line.
//
// The registry is persisted to SQLite (internal/store) so scan, detect, and
// watch invocations of the CLI share one view of the codebase.
