// Package sigdiff computes structural diffs between two raw parameter-list
// strings. It is deliberately not a type-aware comparison: parameters are
// identified by their textual name, and defaults are compared as raw text.
package sigdiff

import "strings"

// Param is one parsed parameter: a name and an optional default expression.
// Default is nil when the parameter has no default.
type Param struct {
	Name    string  `json:"name"`
	Default *string `json:"default"`
}

// DefaultChange records a parameter whose default expression changed between
// the old and new signatures.
type DefaultChange struct {
	Name       string  `json:"name"`
	OldDefault *string `json:"old_default"`
	NewDefault *string `json:"new_default"`
}

// Diff describes what changed between two parameter lists.
type Diff struct {
	Added           []Param         `json:"added"`
	Removed         []Param         `json:"removed"`
	ChangedDefaults []DefaultChange `json:"changed_defaults"`
	Reordered       bool            `json:"reordered"`
}

// ParseParams splits a raw parameter-list string into Params. Splitting
// happens on top-level commas only (commas nested inside (), [] or {} belong
// to a default expression); each piece then splits on the first "=" into
// name and default. Empty pieces are dropped.
//
// Quoted strings are not understood: a bracket or comma inside a string
// literal default will confuse the split. That matches the lexical contract
// of the rest of the pipeline.
func ParseParams(raw string) []Param {
	var params []Param
	for _, piece := range splitTopLevel(raw) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		name, def, found := strings.Cut(piece, "=")
		p := Param{Name: strings.TrimSpace(name)}
		if found {
			d := strings.TrimSpace(def)
			p.Default = &d
		}
		params = append(params, p)
	}
	return params
}

// splitTopLevel splits s on commas that are not nested inside brackets.
func splitTopLevel(s string) []string {
	var pieces []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				pieces = append(pieces, s[start:i])
				start = i + 1
			}
		}
	}
	pieces = append(pieces, s[start:])
	return pieces
}

// Compare diffs two raw parameter-list strings for the same function.
//
// Added holds parameters whose name appears only in newRaw, Removed those
// whose name appears only in oldRaw. A parameter present in both with
// different default text yields a ChangedDefaults entry. Reordered is true
// when a parameter common to both signatures no longer sits at its old rank
// among the common parameters: swapping two parameters sets it, and so does
// inserting a new parameter before an existing one. Appending parameters at
// the end does not.
func Compare(oldRaw, newRaw string) Diff {
	oldParams := ParseParams(oldRaw)
	newParams := ParseParams(newRaw)

	oldIndex := make(map[string]int, len(oldParams))
	for i, p := range oldParams {
		oldIndex[p.Name] = i
	}
	newIndex := make(map[string]int, len(newParams))
	for i, p := range newParams {
		newIndex[p.Name] = i
	}

	d := Diff{
		Added:           []Param{},
		Removed:         []Param{},
		ChangedDefaults: []DefaultChange{},
	}
	for _, p := range newParams {
		if _, ok := oldIndex[p.Name]; !ok {
			d.Added = append(d.Added, p)
		}
	}
	for _, p := range oldParams {
		if _, ok := newIndex[p.Name]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}

	for _, np := range newParams {
		oi, ok := oldIndex[np.Name]
		if !ok {
			continue
		}
		op := oldParams[oi]
		if !sameDefault(op.Default, np.Default) {
			d.ChangedDefaults = append(d.ChangedDefaults, DefaultChange{
				Name:       np.Name,
				OldDefault: op.Default,
				NewDefault: np.Default,
			})
		}
	}

	// Reordered: a common parameter is out of place when its index in the
	// new list differs from its rank among the common parameters in old
	// order. That covers both a genuine swap and an addition inserted
	// before an existing parameter, which shifts every later positional
	// argument. With fewer than two common parameters there is no order
	// to disturb.
	shifted := false
	rank := 0
	for _, op := range oldParams {
		ni, ok := newIndex[op.Name]
		if !ok {
			continue
		}
		if ni != rank {
			shifted = true
		}
		rank++
	}
	d.Reordered = shifted && rank > 1
	return d
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
