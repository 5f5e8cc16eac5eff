package automap

import (
	"slices"
	"strconv"
	"strings"

	"workbench-mapper/internal/match"
)

// header is a spreadsheet header prepared for matching.
type header struct {
	raw string
	// phrase is the collapsed header.
	phrase string
	// numbered is phrase without its instance number. It is empty unless
	// the header holds exactly one number besides other words.
	numbered string
	index    int
}

func parseHeader(raw string) header {
	h := header{raw: raw, phrase: match.CollapseSpace(raw)}
	words := strings.Fields(h.phrase)

	pos, index := -1, 0

	for i, w := range words {
		n, err := strconv.Atoi(strings.TrimPrefix(w, "#"))
		if err != nil || n < 1 {
			continue
		}

		if pos != -1 {
			return h
		}

		pos, index = i, n
	}

	if pos == -1 || len(words) == 1 {
		return h
	}

	h.numbered = strings.Join(slices.Delete(words, pos, pos+1), " ")
	h.index = index

	return h
}

// qualifiedMatch reports whether phrase is name preceded by labels taken
// in order from chain. It returns how many chain labels were used.
func qualifiedMatch(phrase string, chain [][]string, name string) (int, bool) {
	if name == "" {
		return 0, false
	}

	if phrase == name {
		return 0, true
	}

	rest, ok := strings.CutSuffix(phrase, " "+name)
	if !ok {
		return 0, false
	}

	return consumeQualifiers(rest, chain)
}

func consumeQualifiers(rest string, chain [][]string) (int, bool) {
	for i, variants := range chain {
		for _, v := range variants {
			if rest == v {
				return 1, true
			}

			after, ok := strings.CutPrefix(rest, v+" ")
			if !ok {
				continue
			}

			if n, ok := consumeQualifiers(after, chain[i+1:]); ok {
				return n + 1, true
			}
		}
	}

	return 0, false
}

// specificity is the share of the chain named by a header.
func specificity(used, chainLen int) float64 {
	if chainLen == 0 {
		return 1
	}

	return float64(used) / float64(chainLen)
}
