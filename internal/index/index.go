// Package index owns the cross-file registry of function definitions and
// call-site usages. The registry state is an immutable value swapped under a
// mutex, so snapshots are cheap to take and can never observe a half-applied
// merge.
package index

import "sync"

// Definition is one function definition. Name is the registry key: two files
// defining the same name collapse into one entry and the later scan wins.
type Definition struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Code      string `json:"code"`
	Signature string `json:"signature"`
}

// Usage is one call-site occurrence of a known function name.
type Usage struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Code string `json:"code"`
}

// Snapshot is an independent deep copy of the registry at one instant.
// Mutating a Snapshot never affects the Index it came from.
type Snapshot struct {
	Definitions map[string]Definition `json:"definitions"`
	Usages      map[string][]Usage    `json:"usages"`
}

// state is the immutable registry value. Once installed in an Index it is
// never mutated; every write builds a replacement and swaps the pointer.
type state struct {
	defs   map[string]Definition
	usages map[string][]Usage
}

func emptyState() *state {
	return &state{
		defs:   map[string]Definition{},
		usages: map[string][]Usage{},
	}
}

// Index is the process-wide symbol registry.
type Index struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty Index.
func New() *Index {
	return &Index{st: emptyState()}
}

// Snapshot returns a deep copy of the definitions and usages maps. The copy
// is taken against a single registry state, so a merge running concurrently
// is either fully visible or not visible at all.
func (ix *Index) Snapshot() Snapshot {
	ix.mu.RLock()
	st := ix.st
	ix.mu.RUnlock()

	snap := Snapshot{
		Definitions: make(map[string]Definition, len(st.defs)),
		Usages:      make(map[string][]Usage, len(st.usages)),
	}
	for name, def := range st.defs {
		snap.Definitions[name] = def
	}
	for name, us := range st.usages {
		cp := make([]Usage, len(us))
		copy(cp, us)
		snap.Usages[name] = cp
	}
	return snap
}

// Merge overwrites definitions by name. Names absent from defs are left
// untouched. The Index never deletes; removed names are inferred externally
// by set difference and their usage history stays queryable until the next
// Replace.
func (ix *Index) Merge(defs map[string]Definition) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := &state{
		defs:   make(map[string]Definition, len(ix.st.defs)+len(defs)),
		usages: ix.st.usages,
	}
	for name, def := range ix.st.defs {
		next.defs[name] = def
	}
	for name, def := range defs {
		next.defs[name] = def
	}
	ix.st = next
}

// Replace installs a full registry state, discarding everything held before.
// Used by full directory scans and by persistence loads.
func (ix *Index) Replace(snap Snapshot) {
	next := emptyState()
	for name, def := range snap.Definitions {
		next.defs[name] = def
	}
	for name, us := range snap.Usages {
		cp := make([]Usage, len(us))
		copy(cp, us)
		next.usages[name] = cp
	}

	ix.mu.Lock()
	ix.st = next
	ix.mu.Unlock()
}

// Reset clears the registry.
func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.st = emptyState()
	ix.mu.Unlock()
}

// Definition returns the definition for name, if present.
func (ix *Index) Definition(name string) (Definition, bool) {
	ix.mu.RLock()
	st := ix.st
	ix.mu.RUnlock()
	def, ok := st.defs[name]
	return def, ok
}

// Len returns the number of distinct definition names.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.st.defs)
}

// NamesInFile returns the definition names whose Definition.File equals file.
func (ix *Index) NamesInFile(file string) []string {
	ix.mu.RLock()
	st := ix.st
	ix.mu.RUnlock()

	var names []string
	for name, def := range st.defs {
		if def.File == file {
			names = append(names, name)
		}
	}
	return names
}
