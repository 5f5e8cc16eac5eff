package validation

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"workbench-mapper/internal/mapping"
)

// Candidate is a record match the user has to disambiguate.
type Candidate struct {
	MappingPath mapping.Path
	// Columns are the physical columns the match was made on.
	Columns []int
	IDs     []int
	// Key is shared by candidates that matched the same records.
	Key string
}

type rowEntry struct {
	choices map[string]int
	pending []Candidate
}

// Registry holds, per physical row, the chosen record IDs keyed by mapping
// path string and the ambiguities of the last validation.
type Registry struct {
	mu   sync.Mutex
	rows map[int]*rowEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rows: map[int]*rowEntry{}}
}

func (r *Registry) entry(row int) *rowEntry {
	e, ok := r.rows[row]
	if !ok {
		e = &rowEntry{choices: map[string]int{}}
		r.rows[row] = e
	}

	return e
}

// SetPending replaces the ambiguities of a row with those of a new result.
func (r *Registry) SetPending(row int, candidates []Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entry(row).pending = slices.Clone(candidates)
}

// Pending returns the ambiguities of a row that have no choice yet.
func (r *Registry) Pending(row int) []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[row]
	if !ok {
		return nil
	}

	return e.unresolved()
}

func (e *rowEntry) unresolved() []Candidate {
	var out []Candidate

	for _, c := range e.pending {
		if _, chosen := e.choices[c.MappingPath.String()]; !chosen {
			out = append(out, c)
		}
	}

	return out
}

// Candidate returns the ambiguity of a row that covers a column.
func (r *Registry) Candidate(row, col int) (Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[row]
	if !ok {
		return Candidate{}, false
	}

	for _, c := range e.pending {
		if slices.Contains(c.Columns, col) {
			return c, true
		}
	}

	return Candidate{}, false
}

// IsAmbiguous reports whether a column of a row is part of an
// ambiguity that has no choice yet.
func (r *Registry) IsAmbiguous(row, col int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[row]
	if !ok {
		return false
	}

	return slices.ContainsFunc(e.unresolved(), func(c Candidate) bool {
		return slices.Contains(c.Columns, col)
	})
}

// Resolve stores the chosen record for one path of a row. Other
// ambiguities of the row are untouched. It returns the columns of the
// resolved ambiguity.
func (r *Registry) Resolve(row int, path mapping.Path, id int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.resolve(row, path, id)
}

func (r *Registry) resolve(row int, path mapping.Path, id int) []int {
	e := r.entry(row)
	key := path.String()
	e.choices[key] = id

	for _, c := range e.pending {
		if c.MappingPath.String() == key {
			return slices.Clone(c.Columns)
		}
	}

	return nil
}

// ResolveAll stores the chosen record under path in every row with an
// unresolved ambiguity carrying key. Rows for which skip returns true are
// left alone. The changed rows are returned in descending order, so
// pushing them on the validation stack in turn validates the top row first.
func (r *Registry) ResolveAll(path mapping.Path, key string, id int, skip func(row int) bool) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []int

	for row, e := range r.rows {
		if skip != nil && skip(row) {
			continue
		}

		if !slices.ContainsFunc(e.unresolved(), func(c Candidate) bool { return c.Key == key }) {
			continue
		}

		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b int) int { return cmp.Compare(b, a) })

	for _, row := range rows {
		r.resolve(row, path, id)
	}

	return rows
}

// ClearRow drops the choices of a row. Its data changed, so earlier
// choices may no longer hold.
func (r *Registry) ClearRow(row int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.rows[row]; ok {
		e.choices = map[string]int{}
	}
}

// Choices returns a copy of the choices of a row.
func (r *Registry) Choices(row int) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[row]
	if !ok {
		return map[string]int{}
	}

	return maps.Clone(e.choices)
}

// LoadChoices replaces the choices of a row, e.g. from its stored payload.
func (r *Registry) LoadChoices(row int, choices map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(row)
	e.choices = maps.Clone(choices)

	if e.choices == nil {
		e.choices = map[string]int{}
	}
}

// Remove forgets rows.
func (r *Registry) Remove(rows ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		delete(r.rows, row)
	}
}

// Reset forgets every row.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows = map[int]*rowEntry{}
}

const payloadKey = "disambiguation"

// DecodePayload reads the choices from a hidden row payload. An empty
// payload has no choices.
func DecodePayload(raw string) (map[string]int, error) {
	choices := map[string]int{}
	if raw == "" {
		return choices, nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode row payload: %w", err)
	}

	da, ok := payload[payloadKey]
	if !ok || string(da) == "null" {
		return choices, nil
	}

	if err := json.Unmarshal(da, &choices); err != nil {
		return nil, fmt.Errorf("failed to decode disambiguation: %w", err)
	}

	return choices, nil
}

// EncodePayload writes choices into a hidden row payload. Other keys of
// the payload are kept.
func EncodePayload(raw string, choices map[string]int) (string, error) {
	payload := map[string]json.RawMessage{}

	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return "", fmt.Errorf("failed to decode row payload: %w", err)
		}

		if payload == nil {
			payload = map[string]json.RawMessage{}
		}
	}

	if choices == nil {
		choices = map[string]int{}
	}

	da, err := json.Marshal(choices)
	if err != nil {
		return "", fmt.Errorf("failed to encode disambiguation: %w", err)
	}

	payload[payloadKey] = da

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode row payload: %w", err)
	}

	return string(data), nil
}
