package sigdrift

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sigdrift/internal/index"
	"github.com/jward/sigdrift/internal/oracle"
	"github.com/jward/sigdrift/internal/suggest"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(filepath.Join(t.TempDir(), "index.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanIndexesTree(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.Scan(ctx, "testdata/project", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Files)
	assert.Empty(t, result.Failures)

	for _, name := range []string{
		"calculate_totals", "format_date", "apply_discount",
		"checkout", "receipt_header",
		"renderChart", "fetchData", "refresh",
	} {
		assert.Contains(t, result.Definitions, name)
	}
	assert.Equal(t, "date, fmt=\"%Y-%m-%d\"", result.Definitions["format_date"].Signature)
	assert.Equal(t, filepath.Join("testdata", "project", "utils.py"), result.Definitions["format_date"].File)

	// format_date is called twice from app.py; the def line does not count.
	require.Len(t, result.Usages["format_date"], 2)
	for _, u := range result.Usages["format_date"] {
		assert.Equal(t, filepath.Join("testdata", "project", "app.py"), u.File)
	}

	// calculate_totals is defined but never called by that name.
	assert.Empty(t, result.Usages["calculate_totals"])

	require.Len(t, result.Usages["renderChart"], 1)
	assert.Equal(t, `renderChart(data, { animate: true });`, result.Usages["renderChart"][0].Code)
	require.Len(t, result.Usages["fetchData"], 1)
}

func TestScanIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Scan(ctx, "testdata/project", nil)
	require.NoError(t, err)
	second, err := e.Scan(ctx, "testdata/project", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Definitions, second.Definitions)
	assert.Equal(t, first.Usages, second.Usages)
}

func TestScanSkipsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "keep.py", "def kept(a):\n    return a\n")
	writeSource(t, dir, "node_modules/pkg/skip.py", "def skipped(a):\n    return a\n")
	writeSource(t, dir, "venv/lib/also.py", "def also_skipped(a):\n    return a\n")

	e := newTestEngine(t)
	result, err := e.Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Contains(t, result.Definitions, "kept")
	assert.NotContains(t, result.Definitions, "skipped")
	assert.NotContains(t, result.Definitions, "also_skipped")
	assert.Equal(t, 1, result.Files)
}

func TestScanHonorsPatterns(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.py", "def py_fn(a):\n    return a\n")
	writeSource(t, dir, "b.js", "function jsFn(a) { return a; }\n")

	e := newTestEngine(t)
	result, err := e.Scan(context.Background(), dir, []string{"**/*.py"})
	require.NoError(t, err)

	assert.Contains(t, result.Definitions, "py_fn")
	assert.NotContains(t, result.Definitions, "jsFn")
}

func TestDetectSignatureChange(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "a.py", "def foo(a, b=0):\n    return a + b\n")
	usePath := writeSource(t, dir, "b.py", "result = foo(1, 2)\n")

	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	result, err := e.DetectChanges(ctx, defPath, "def foo(a, b=0, c=1):\n    return a + b + c\n")
	require.NoError(t, err)

	require.Len(t, result.ChangedFunctions, 1)
	change := result.ChangedFunctions[0]
	assert.Equal(t, "foo", change.Name)
	assert.Equal(t, "a, b=0", change.OldSignature)
	assert.Equal(t, "a, b=0, c=1", change.NewSignature)
	require.Len(t, change.DetailedChanges.Added, 1)
	assert.Equal(t, "c", change.DetailedChanges.Added[0].Name)
	require.NotNil(t, change.DetailedChanges.Added[0].Default)
	assert.Equal(t, "1", *change.DetailedChanges.Added[0].Default)

	require.Len(t, result.UpdateSuggestions, 1)
	sug := result.UpdateSuggestions[0]
	assert.Equal(t, suggest.ChangeSignatureUpdate, sug.ChangeType)
	assert.Equal(t, usePath, sug.File)
	assert.Equal(t, defPath, sug.OriginFile)
	assert.Equal(t, "result = foo(1, 2)", sug.OldCode)
	// No oracle configured, so the suggestion proposes the unchanged line.
	assert.Equal(t, sug.OldCode, sug.NewCode)

	assert.Empty(t, result.RenamedFunctions)
}

func TestDetectSignatureChangeWithOracle(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "a.py", "def foo(a, b=0):\n    return a + b\n")
	writeSource(t, dir, "b.py", "result = foo(1, 2)\n")

	var gotReq oracle.Request
	e := newTestEngine(t, WithOracle(oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		gotReq = req
		return "result = foo(1, 2, 3)", nil
	})))
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	result, err := e.DetectChanges(ctx, defPath, "def foo(a, b=0, c=1):\n    return a + b + c\n")
	require.NoError(t, err)

	require.Len(t, result.UpdateSuggestions, 1)
	assert.Equal(t, "result = foo(1, 2, 3)", result.UpdateSuggestions[0].NewCode)
	assert.Equal(t, "foo", gotReq.Function)
	assert.Equal(t, "result = foo(1, 2)", gotReq.UsageLine)
}

func TestDetectRename(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "helpers.py", "def compute_sum(values):\n    return sum(values)\n")
	usePath := writeSource(t, dir, "report.py",
		"from helpers import compute_sum\n\ntotal = compute_sum(nums)\n")

	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	result, err := e.DetectChanges(ctx, defPath, "def compute_summary(values):\n    return sum(values)\n")
	require.NoError(t, err)

	require.Len(t, result.RenamedFunctions, 1)
	assert.Equal(t, "compute_sum", result.RenamedFunctions[0].OldName)
	assert.Equal(t, "compute_summary", result.RenamedFunctions[0].NewName)

	var renames, importUpdates []suggest.Suggestion
	for _, sug := range result.UpdateSuggestions {
		switch sug.ChangeType {
		case suggest.ChangeRename:
			renames = append(renames, sug)
		case suggest.ChangeImportUpdate:
			importUpdates = append(importUpdates, sug)
		}
	}

	require.Len(t, renames, 1)
	assert.Equal(t, usePath, renames[0].File)
	assert.Equal(t, "total = compute_sum(nums)", renames[0].OldCode)
	assert.Equal(t, "total = compute_summary(nums)", renames[0].NewCode)

	require.Len(t, importUpdates, 1)
	assert.Equal(t, 1, importUpdates[0].Line)
	assert.Equal(t, "from helpers import compute_sum", importUpdates[0].OldCode)
	assert.Equal(t, "from helpers import compute_summary", importUpdates[0].NewCode)

	// The merge never deletes: the old definition stays so its usage
	// history remains reachable.
	assert.Contains(t, result.Definitions, "compute_sum")
	assert.Contains(t, result.Definitions, "compute_summary")
}

func TestDetectSkipsOriginFileUsages(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "a.py",
		"def foo(a):\n    return a\n\nlocal = foo(1)\n")
	writeSource(t, dir, "b.py", "remote = foo(2)\n")

	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	result, err := e.DetectChanges(ctx, defPath,
		"def foo(a, b=0):\n    return a + b\n\nlocal = foo(1)\n")
	require.NoError(t, err)

	require.Len(t, result.UpdateSuggestions, 1)
	assert.NotEqual(t, defPath, result.UpdateSuggestions[0].File)
}

// Detection must compare against exactly one snapshot: merges landing
// while a comparison runs may be missed but never mixed in partway.
func TestDetectRenameStableUnderConcurrentMerges(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "helpers.py", "def compute_sum(values):\n    return sum(values)\n")
	writeSource(t, dir, "report.py", "total = compute_sum(nums)\n")

	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			name := fmt.Sprintf("background_%d", i)
			e.idx.Merge(map[string]index.Definition{name: {
				Name: name, File: defPath,
				Signature: "completely, unrelated, parameters",
				Code:      "def " + name + "(completely, unrelated, parameters):",
			}})
		}
	}()

	for i := 0; i < 25; i++ {
		newName := fmt.Sprintf("compute_summary_%d", i)
		result, err := e.DetectChanges(ctx, defPath,
			"def "+newName+"(values):\n    return sum(values)\n")
		require.NoError(t, err)
		require.Len(t, result.RenamedFunctions, 1)
		assert.Equal(t, "compute_sum", result.RenamedFunctions[0].OldName)
		assert.Equal(t, newName, result.RenamedFunctions[0].NewName)
	}
	close(stop)
	<-done
}

// A database failure after the merge must not fail the request: the
// in-memory index already moved on and the caller gets its suggestions.
func TestDetectPersistFailureKeepsResult(t *testing.T) {
	dir := t.TempDir()
	defPath := writeSource(t, dir, "a.py", "def foo(a):\n    return a\n")
	writeSource(t, dir, "b.py", "r = foo(1)\n")

	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)

	// The database goes away mid-session.
	require.NoError(t, e.store.Close())

	result, err := e.DetectChanges(ctx, defPath, "def foo(a, b=0):\n    return a + b\n")
	require.NoError(t, err)
	require.Len(t, result.ChangedFunctions, 1)
	require.Len(t, result.UpdateSuggestions, 1)
	assert.Equal(t, "a, b=0", result.Definitions["foo"].Signature)
}

func TestDetectUnknownExtension(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.DetectChanges(context.Background(), "main.rb", "def foo(a)\nend\n")
	assert.Error(t, err)
}

func TestDetectExtractFailureLeavesIndexIntact(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.py", "def foo(a):\n    return a\n")

	e := newTestEngine(t, WithScriptExtractor(".zz", "this is not a valid script ((("))
	ctx := context.Background()
	_, err := e.Scan(ctx, dir, nil)
	require.NoError(t, err)
	before := e.Snapshot()

	_, err = e.DetectChanges(ctx, filepath.Join(dir, "x.zz"), "anything")
	require.Error(t, err)
	assert.Equal(t, before.Definitions, e.Snapshot().Definitions)
}

func TestResetClearsIndexAndStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	e1, err := New(dbPath)
	require.NoError(t, err)
	_, err = e1.Scan(ctx, "testdata/project", nil)
	require.NoError(t, err)
	require.NoError(t, e1.Reset())
	assert.Empty(t, e1.Snapshot().Definitions)
	require.NoError(t, e1.Close())

	e2, err := New(dbPath)
	require.NoError(t, err)
	defer e2.Close()
	assert.Empty(t, e2.Snapshot().Definitions)
}

func TestPersistenceAcrossEngines(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	e1, err := New(dbPath)
	require.NoError(t, err)
	result, err := e1.Scan(ctx, "testdata/project", nil)
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	e2, err := New(dbPath)
	require.NoError(t, err)
	defer e2.Close()

	snap := e2.Snapshot()
	assert.Equal(t, result.Definitions, snap.Definitions)
	assert.Equal(t, result.Usages, snap.Usages)

	root, _, ok, err := e2.LastScan()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "testdata/project", root)
}

func TestApplySuggestion(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "b.py", "result = foo(1, 2)\nprint(result)\n")

	err := ApplySuggestion(suggest.Suggestion{
		File:    path,
		OldCode: "result = foo(1, 2)",
		NewCode: "result = foo(1, 2, 3)",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "result = foo(1, 2, 3)\nprint(result)\n", string(data))
}

func TestApplySuggestionStaleOldCode(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "b.py", "result = foo(9)\n")

	err := ApplySuggestion(suggest.Suggestion{
		File:    path,
		OldCode: "result = foo(1, 2)",
		NewCode: "result = foo(1, 2, 3)",
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "result = foo(9)\n", string(data))
}
