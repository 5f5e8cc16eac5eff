package automap

import (
	"workbench-mapper/internal/common"
	"workbench-mapper/internal/diagnostic"
	"workbench-mapper/internal/mapping"
)

// Suggestion holds the paths proposed for one header, best first.
type Suggestion struct {
	Header string
	Paths  []mapping.Path
	Stage  Stage
	// Score of the best path within its stage.
	Score float64
}

// Best returns the first proposed path.
func (s Suggestion) Best() (mapping.Path, bool) {
	return common.First(s.Paths)
}

// Result is the outcome of one AutoMap call, in header order.
type Result struct {
	BaseTable   string
	Suggestions []Suggestion
	// Diagnostics explain each decision: infos for mapped or ambiguous
	// headers, warnings for headers left unmapped.
	Diagnostics diagnostic.Diagnostics
}

// Lookup returns the suggestion of a header.
func (r Result) Lookup(header string) (Suggestion, bool) {
	for _, s := range r.Suggestions {
		if s.Header == header {
			return s, true
		}
	}

	return Suggestion{}, false
}

// Unmapped returns the headers no stage matched.
func (r Result) Unmapped() []string {
	var headers []string
	for _, s := range r.Suggestions {
		if len(s.Paths) == 0 {
			headers = append(headers, s.Header)
		}
	}

	return headers
}

// Tree maps every matched header to its best path.
func (r Result) Tree() (*mapping.Tree, error) {
	var entries []mapping.Entry

	for _, s := range r.Suggestions {
		path, ok := s.Best()
		if !ok {
			continue
		}

		entries = append(entries, mapping.Entry{
			Path: path,
			Leaf: mapping.Leaf{Kind: mapping.ExistingHeader, Value: s.Header},
		})
	}

	return mapping.ArrayToTree(entries)
}
