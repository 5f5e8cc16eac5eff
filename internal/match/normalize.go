package match

import (
	"slices"
	"strings"
	"unicode"
)

// unitSuffixes are trailing header tokens that describe a unit rather than a field.
var unitSuffixes = []string{
	"mm", "cm", "m", "km", "ft", "in", "mi",
	"mg", "g", "kg", "ml", "l",
	"deg", "degrees", "dd", "pct", "percent",
}

// NormalizeIdent normalizes an identifier or label for fuzzy matching.
// The normalization pipeline:
// 1. Tokenize CamelCase and split on anything that is not a letter or digit.
// 2. Case-fold to lower.
// 3. Join the tokens without separators.
func NormalizeIdent(s string) string {
	return strings.Join(TokenizeIdent(s), "")
}

// NormalizeHeader normalizes a spreadsheet header: bracketed notes such as
// "(m)" or "[deg]" are removed, and a trailing unit token is dropped when
// other tokens remain.
func NormalizeHeader(s string) string {
	tokens := TokenizeIdent(stripBracketed(s))

	for len(tokens) > 1 && slices.Contains(unitSuffixes, tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, "")
}

// CollapseSpace lower-cases s and collapses runs of whitespace into one space.
func CollapseSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Humanize turns an identifier into a label: "catalogNumber" -> "Catalog Number".
func Humanize(s string) string {
	tokens := tokenizeCamelCase(s)
	for i, t := range tokens {
		r := []rune(t)
		r[0] = unicode.ToUpper(r[0])
		tokens[i] = string(r)
	}

	return strings.Join(tokens, " ")
}

// TokenizeIdent splits an identifier into normalized lowercase tokens.
func TokenizeIdent(s string) []string {
	tokens := tokenizeCamelCase(s)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return tokens
}

// stripBracketed removes "(...)" and "[...]" groups.
func stripBracketed(s string) string {
	var (
		b     strings.Builder
		depth int
	)

	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}

	return b.String()
}

// tokenizeCamelCase splits a CamelCase or camelCase string into tokens.
// Examples:
//   - "OrderID" -> ["Order", "ID"]
//   - "customerName" -> ["customer", "Name"]
//   - "Cat. #" -> ["Cat"]
//   - "latitude1" -> ["latitude1"]
func tokenizeCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var (
		tokens  []string
		current strings.Builder
	)

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && shouldStartNewToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// isSeparator returns true for every rune that is not a letter or a digit.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// shouldStartNewToken determines if a new token should start at position i.
func shouldStartNewToken(runes []rune, i int) bool {
	r := runes[i]
	prevRune := runes[i-1]
	isUpper := unicode.IsUpper(r)
	isPrevUpper := unicode.IsUpper(prevRune)

	// "orderID" -> split before 'I'
	if isUpper && !isPrevUpper && !isSeparator(prevRune) {
		return true
	}

	// "XMLParser" -> "XML" + "Parser", split before 'P'
	hasNextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

	return isUpper && isPrevUpper && hasNextLower
}
