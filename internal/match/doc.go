// Package match provides header and label normalization, unit-suffix
// stripping, Levenshtein distance calculation and candidate ranking used by
// the auto-mapper's fuzzy stage.
//
// Key functions:
//   - NormalizeIdent: normalizes identifiers and labels for comparison
//   - NormalizeHeader: additionally strips bracketed notes and unit suffixes
//   - Levenshtein: computes edit distance between strings
//   - Rank: orders scored candidates deterministically
package match
