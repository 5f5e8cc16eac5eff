package common

import (
	"cmp"
	"slices"
)

// IsEmpty returns true if the slice is empty.
func IsEmpty[S ~[]E, E any](s S) bool {
	return len(s) == 0
}

// First returns the first element of the slice and true, or the zero value and false if empty.
func First[S ~[]E, E any](s S) (E, bool) {
	if len(s) == 0 {
		var zero E
		return zero, false
	}

	return s[0], true
}

// Last returns the last element of the slice and true, or the zero value and false if empty.
func Last[S ~[]E, E any](s S) (E, bool) {
	if len(s) == 0 {
		var zero E
		return zero, false
	}

	return s[len(s)-1], true
}

// Without returns a copy of s with every occurrence of v removed.
func Without[S ~[]E, E comparable](s S, v E) S {
	result := make(S, 0, len(s))
	for _, e := range s {
		if e != v {
			result = append(result, e)
		}
	}

	return result
}

// SortedKeys returns the keys of m in ascending order.
// Map iteration order is random, so every walk over a map that produces
// user-visible output goes through here.
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Unique returns s without duplicates, keeping the first occurrence of each element.
func Unique[S ~[]E, E comparable](s S) S {
	seen := make(map[E]struct{}, len(s))
	result := make(S, 0, len(s))

	for _, e := range s {
		if _, ok := seen[e]; ok {
			continue
		}

		seen[e] = struct{}{}
		result = append(result, e)
	}

	return result
}
