// Package rename matches functions that disappeared from a file during a
// re-scan against functions that appeared, to tell a rename apart from an
// unrelated remove/add pair.
package rename

import "sort"

// Threshold is the minimum signature similarity for two differently named
// functions to be considered a rename.
const Threshold = 0.7

// Candidate is a matched old-name/new-name pair within a single file.
type Candidate struct {
	OldName      string `json:"old_name"`
	NewName      string `json:"new_name"`
	File         string `json:"file"`
	OldSignature string `json:"old_signature"`
	NewSignature string `json:"new_signature"`
}

// Similarity is a positional character-overlap ratio: twice the number of
// positions holding equal characters (up to the shorter length) over the sum
// of both lengths. Two empty strings score 1.0; one empty string scores 0.0.
// It is not an edit distance: an insertion near the front shifts every
// later position and tanks the score.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	n := min(len(a), len(b))
	matches := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

// scored is one removed×added pairing under consideration.
type scored struct {
	old, new string
	score    float64
	exact    bool
}

// Detect pairs removed names with added names for one re-scanned file.
// removed and added map each name to its raw signature text; both sets must
// already be restricted to the file being re-scanned.
//
// Every removed×added pair is scored up front, then pairs are accepted
// greedily by descending score (exact signature matches first, ties broken
// by old then new name). Once a name is matched it is withdrawn from
// further pairing, so each name appears in at most one Candidate. Scoring
// the full product before matching makes the result independent of map
// iteration order.
func Detect(file string, removed, added map[string]string) []Candidate {
	var pairs []scored
	for oldName, oldSig := range removed {
		for newName, newSig := range added {
			exact := oldSig == newSig
			score := Similarity(oldSig, newSig)
			if !exact && score < Threshold {
				continue
			}
			pairs = append(pairs, scored{old: oldName, new: newName, score: score, exact: exact})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.old != b.old {
			return a.old < b.old
		}
		return a.new < b.new
	})

	usedOld := make(map[string]bool, len(removed))
	usedNew := make(map[string]bool, len(added))
	var candidates []Candidate
	for _, p := range pairs {
		if usedOld[p.old] || usedNew[p.new] {
			continue
		}
		usedOld[p.old] = true
		usedNew[p.new] = true
		candidates = append(candidates, Candidate{
			OldName:      p.old,
			NewName:      p.new,
			File:         file,
			OldSignature: removed[p.old],
			NewSignature: added[p.new],
		})
	}
	return candidates
}
