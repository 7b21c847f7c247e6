package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sigdrift/internal/index"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot() index.Snapshot {
	return index.Snapshot{
		Definitions: map[string]index.Definition{
			"calculate_total": {
				Name: "calculate_total", File: "utils.py",
				Signature: "base, qty, discount=0",
				Code:      "def calculate_total(base, qty, discount=0):\n    return base * qty",
			},
			"format_money": {
				Name: "format_money", File: "utils.py", Signature: "amount",
				Code: "def format_money(amount):\n    return amount",
			},
		},
		Usages: map[string][]index.Usage{
			"calculate_total": {
				{File: "orders.py", Line: 7, Code: "calculate_total(p, q)"},
				{File: "main.py", Line: 12, Code: "calculate_total(1, 2, discount=0.1)"},
			},
		},
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := NewStore("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestDB_ConnectionConfig(t *testing.T) {
	s := newTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.DB().QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 30000, timeout)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestSaveLoadSnapshot_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	snap := sampleSnapshot()
	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Definitions, got.Definitions)
	assert.Equal(t, snap.Usages, got.Usages)
}

func TestSaveSnapshot_ReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSnapshot(sampleSnapshot()))

	small := index.Snapshot{
		Definitions: map[string]index.Definition{
			"only_fn": {Name: "only_fn", File: "a.py", Signature: "", Code: "def only_fn():"},
		},
		Usages: map[string][]index.Usage{},
	}
	require.NoError(t, s.SaveSnapshot(small))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.Len(t, got.Definitions, 1)
	assert.Contains(t, got.Definitions, "only_fn")
	assert.Empty(t, got.Usages)
}

func TestLoadSnapshot_EmptyDatabase(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, got.Definitions)
	assert.Empty(t, got.Usages)
}

func TestLoadSnapshot_PreservesUsageOrder(t *testing.T) {
	s := newTestStore(t)
	snap := index.Snapshot{
		Definitions: map[string]index.Definition{},
		Usages: map[string][]index.Usage{
			"fn": {
				{File: "z.py", Line: 9, Code: "fn(3)"},
				{File: "a.py", Line: 1, Code: "fn(1)"},
				{File: "m.py", Line: 5, Code: "fn(2)"},
			},
		},
	}
	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Usages["fn"], got.Usages["fn"], "ordinal column preserves insertion order")
}

func TestRecordScan_LastScan(t *testing.T) {
	s := newTestStore(t)

	_, _, ok, err := s.LastScan()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordScan("/repo", 12))
	require.NoError(t, s.RecordScan("/repo/sub", 3))

	root, at, ok, err := s.LastScan()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/repo/sub", root)
	assert.False(t, at.IsZero())
}
