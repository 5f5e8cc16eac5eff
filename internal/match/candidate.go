package match

import (
	"cmp"
	"slices"
)

// Candidate is a scored match of a header against one schema item.
type Candidate[T any] struct {
	Item T
	// Key breaks ties deterministically (e.g. the path string).
	Key string
	// Score is the similarity in [0, 1] (higher is better).
	Score float64
	// Depth is the number of relationships crossed to reach the item.
	Depth int
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList[T any] []Candidate[T]

// Rank sorts candidates by score (descending), then depth (ascending),
// then key. The order is total, so ranking is deterministic.
func (c CandidateList[T]) Rank() CandidateList[T] {
	slices.SortStableFunc(c, func(a, b Candidate[T]) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}

		if a.Depth != b.Depth {
			return cmp.Compare(a.Depth, b.Depth)
		}

		return cmp.Compare(a.Key, b.Key)
	})

	return c
}

// Top returns the top n candidates.
func (c CandidateList[T]) Top(n int) CandidateList[T] {
	if n >= len(c) {
		return c
	}

	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList[T]) Best() *Candidate[T] {
	if len(c) == 0 {
		return nil
	}

	return &c[0]
}

// AboveThreshold returns candidates with a score of at least threshold.
func (c CandidateList[T]) AboveThreshold(threshold float64) CandidateList[T] {
	var result CandidateList[T]
	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}

	return result
}

// IsAmbiguous returns true if the top two candidates are within the threshold.
func (c CandidateList[T]) IsAmbiguous(threshold float64) bool {
	if len(c) < 2 {
		return false
	}

	return c[0].Score-c[1].Score < threshold
}

// Default thresholds for the fuzzy stage.
const (
	// DefaultMinScore is the minimum similarity for a fuzzy match.
	DefaultMinScore = 0.85
	// DefaultAmbiguityThreshold is the score difference that marks ambiguity.
	DefaultAmbiguityThreshold = 0.05
)
