package park

import (
	"sort"
	"time"
)

// Candidate is an existing canonical entity considered as a fuzzy-match
// target for an incoming upstream name.
type Candidate struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// DiceCoefficient computes the Sørensen–Dice bigram similarity of two
// already-normalized strings, in [0, 1].
func DiceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}

	matches := 0
	for i := 0; i < len(b)-1; i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(a)+len(b)-2)
}

// BestMatch finds the canonical entity an upstream name should reconcile
// into. Candidates are visited oldest-first so repeated runs are
// deterministic: the oldest plausible match wins.
func BestMatch(name string, candidates []Candidate, threshold float64) (Candidate, bool) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return Candidate{}, false
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, c := range ordered {
		if DiceCoefficient(normalized, NormalizeName(c.Name)) >= threshold {
			return c, true
		}
	}

	return Candidate{}, false
}
