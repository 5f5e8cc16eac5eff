package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench-mapper/internal/mapping"
)

func mustPath(t *testing.T, s string) mapping.Path {
	t.Helper()

	p, err := mapping.ParsePath(s)
	require.NoError(t, err)

	return p
}

func TestRegistry_ResolveAll(t *testing.T) {
	reg := NewRegistry()
	cataloger := mustPath(t, "cataloger")

	k1 := Candidate{MappingPath: cataloger, Columns: []int{1}, IDs: []int{10, 11}, Key: "K1"}
	k2 := Candidate{MappingPath: cataloger, Columns: []int{1}, IDs: []int{12, 13}, Key: "K2"}

	for _, row := range []int{2, 5, 7, 8, 9} {
		reg.SetPending(row, []Candidate{k1})
	}

	reg.SetPending(3, []Candidate{k2})
	reg.Resolve(8, cataloger, 11)

	busy := func(row int) bool { return row == 9 }

	rows := reg.ResolveAll(cataloger, "K1", 10, busy)
	assert.Equal(t, []int{7, 5, 2}, rows)

	for _, row := range rows {
		assert.Equal(t, map[string]int{"cataloger": 10}, reg.Choices(row))
		assert.Empty(t, reg.Pending(row))
	}

	assert.Equal(t, map[string]int{"cataloger": 11}, reg.Choices(8), "resolved rows keep their choice")
	assert.Empty(t, reg.Choices(9), "busy rows are skipped")
	assert.Empty(t, reg.Choices(3), "other keys are untouched")
	assert.Len(t, reg.Pending(3), 1)
}

func TestRegistry_ResolveClearsOnlyThatPath(t *testing.T) {
	reg := NewRegistry()
	cataloger := mustPath(t, "cataloger")
	accession := mustPath(t, "accession")

	reg.SetPending(4, []Candidate{
		{MappingPath: cataloger, Columns: []int{1, 2}, IDs: []int{1, 2}, Key: "A"},
		{MappingPath: accession, Columns: []int{3}, IDs: []int{5, 6}, Key: "B"},
	})

	assert.True(t, reg.IsAmbiguous(4, 1))
	assert.True(t, reg.IsAmbiguous(4, 3))
	assert.False(t, reg.IsAmbiguous(4, 0))

	cols := reg.Resolve(4, cataloger, 2)
	assert.Equal(t, []int{1, 2}, cols)

	assert.False(t, reg.IsAmbiguous(4, 1))
	assert.True(t, reg.IsAmbiguous(4, 3))

	pending := reg.Pending(4)
	require.Len(t, pending, 1)
	assert.Equal(t, "accession", pending[0].MappingPath.String())

	c, ok := reg.Candidate(4, 3)
	require.True(t, ok)
	assert.Equal(t, []int{5, 6}, c.IDs)

	_, ok = reg.Candidate(4, 0)
	assert.False(t, ok)
}

func TestRegistry_ClearRowIsolation(t *testing.T) {
	reg := NewRegistry()
	cataloger := mustPath(t, "cataloger")

	reg.Resolve(1, cataloger, 10)
	reg.Resolve(2, cataloger, 20)

	reg.ClearRow(1)

	assert.Empty(t, reg.Choices(1))
	assert.Equal(t, map[string]int{"cataloger": 20}, reg.Choices(2))
}

func TestRegistry_ChoicesAreCopies(t *testing.T) {
	reg := NewRegistry()
	reg.LoadChoices(0, map[string]int{"accession": 3})

	choices := reg.Choices(0)
	choices["accession"] = 99

	assert.Equal(t, map[string]int{"accession": 3}, reg.Choices(0))
}

func TestRegistry_RemoveAndReset(t *testing.T) {
	reg := NewRegistry()
	reg.LoadChoices(0, map[string]int{"a": 1})
	reg.LoadChoices(1, map[string]int{"a": 2})

	reg.Remove(0)
	assert.Empty(t, reg.Choices(0))
	assert.NotEmpty(t, reg.Choices(1))

	reg.Reset()
	assert.Empty(t, reg.Choices(1))
}

func TestPayload(t *testing.T) {
	raw, err := EncodePayload(`{"other": [1, 2]}`, map[string]int{"cataloger": 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"other": [1, 2], "disambiguation": {"cataloger": 10}}`, raw)

	choices, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cataloger": 10}, choices)

	cleared, err := EncodePayload(raw, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"other": [1, 2], "disambiguation": {}}`, cleared)

	empty, err := DecodePayload("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	noKey, err := DecodePayload(`{"other": true}`)
	require.NoError(t, err)
	assert.Empty(t, noKey)

	_, err = DecodePayload(`{"disambiguation": {"cataloger": "ten"}}`)
	require.Error(t, err)

	_, err = EncodePayload(`not json`, nil)
	require.Error(t, err)
}
