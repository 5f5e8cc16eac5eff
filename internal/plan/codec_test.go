package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench-mapper/internal/mapping"
)

type leafSpec struct {
	path  string
	kind  mapping.LeafKind
	value string
}

func existing(path, header string) leafSpec {
	return leafSpec{path: path, kind: mapping.ExistingHeader, value: header}
}

func static(path, value string) leafSpec {
	return leafSpec{path: path, kind: mapping.NewStaticColumn, value: value}
}

func newColumn(path, header string) leafSpec {
	return leafSpec{path: path, kind: mapping.NewColumn, value: header}
}

func mustPath(t *testing.T, s string) mapping.Path {
	t.Helper()

	p, err := mapping.ParsePath(s)
	require.NoError(t, err)

	return p
}

func buildPlan(t *testing.T, base string, mustMatch []string, leaves ...leafSpec) MappingPlan {
	t.Helper()

	entries := make([]mapping.Entry, 0, len(leaves))
	for _, l := range leaves {
		entries = append(entries, mapping.Entry{
			Path: mustPath(t, l.path),
			Leaf: mapping.Leaf{Kind: l.kind, Value: l.value},
		})
	}

	tree, err := mapping.ArrayToTree(entries)
	require.NoError(t, err)

	p := MappingPlan{BaseTable: base, Tree: tree}
	for _, m := range mustMatch {
		p.MustMatch = append(p.MustMatch, mustPath(t, m))
	}

	return p
}

func TestEncode(t *testing.T) {
	p := buildPlan(t, "collectionobject", []string{"accession"},
		existing("catalogNumber", "Cat #"),
		static("cataloger.lastName", "Smith"),
		existing("collectingEvent.collectors.#1.agent.lastName", "Collector 1"),
		existing("collectingEvent.collectors.#3.agent.lastName", "Collector 3"),
	)

	up, err := Encode(p)
	require.NoError(t, err)

	assert.Equal(t, "collectionobject", up.BaseTableName)
	require.Len(t, up.Relationships, 4, spew.Sdump(up))

	assert.Equal(t, FieldMapping{
		MappingPath: []string{"catalogNumber"},
		MappingType: MappingExisting,
		ColumnInfo:  "Cat #",
	}, up.Relationships[0])

	assert.Equal(t, FieldMapping{
		MappingPath: []string{"cataloger", "lastName"},
		MappingType: MappingNewStaticColumn,
		ColumnInfo:  "Smith",
	}, up.Relationships[1])

	group := up.Relationships[2]
	assert.Equal(t, []string{"collectingEvent", "collectors"}, group.MappingPath)
	assert.Empty(t, group.MappingType)
	require.Len(t, group.ToMany, 3)
	assert.Equal(t, []FieldMapping{{
		MappingPath: []string{"agent", "lastName"},
		MappingType: MappingExisting,
		ColumnInfo:  "Collector 1",
	}}, group.ToMany[0])
	assert.Empty(t, group.ToMany[1])
	assert.Equal(t, "Collector 3", group.ToMany[2][0].ColumnInfo)

	assert.Equal(t, FieldMapping{
		MappingPath: []string{"accession"},
		MappingType: MappingMustMatch,
	}, up.Relationships[3])
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	plans := []MappingPlan{
		buildPlan(t, "collectionobject", nil),
		buildPlan(t, "collectionobject", nil, existing("catalogNumber", "Cat #")),
		buildPlan(t, "collectionobject", []string{"accession", "collectingEvent.locality"},
			existing("catalogNumber", "Cat #"),
			newColumn("remarks", "Remarks (new)"),
			static("text1", ""),
			static("cataloger.lastName", "Smith"),
			existing("determinations.#1.taxon.$Genus.name", "Genus"),
			existing("determinations.#1.taxon.$Species.name", "Species"),
			existing("determinations.#2.isCurrent", "Current 2"),
			existing("collectingEvent.collectors.#2.agent.lastName", "Collector 2"),
			existing("collectingEvent.startDate", "Date"),
		),
		buildPlan(t, "taxon", nil, existing("$Kingdom.name", "Kingdom"), existing("$Species.author", "Author")),
	}

	for _, p := range plans {
		up, err := Encode(p)
		require.NoError(t, err)

		decoded, err := Decode(up)
		require.NoError(t, err)
		assert.True(t, p.Equal(decoded), spew.Sdump(up))

		data, err := Marshal(p)
		require.NoError(t, err)

		unmarshaled, err := Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, p.Equal(unmarshaled), string(data))
	}
}

func TestMarshal_JSONShape(t *testing.T) {
	p := buildPlan(t, "collectionobject", nil,
		existing("catalogNumber", "Cat #"),
		existing("collectingEvent.collectors.#1.agent.lastName", "Collector 1"),
	)

	data, err := Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"baseTableName": "collectionobject",
		"relationships": [
			{"mappingPath": ["catalogNumber"], "mappingType": "existing", "columnInfo": "Cat #"},
			{"mappingPath": ["collectingEvent", "collectors"], "toMany": [
				[{"mappingPath": ["agent", "lastName"], "mappingType": "existing", "columnInfo": "Collector 1"}]
			]}
		]
	}`, string(data))

	empty, err := Marshal(buildPlan(t, "agent", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"baseTableName": "agent", "relationships": []}`, string(empty))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no base table", `{"relationships": []}`},
		{"unknown mapping type", `{"baseTableName": "agent", "relationships": [
			{"mappingPath": ["lastName"], "mappingType": "bogus", "columnInfo": "x"}]}`},
		{"missing mapping type", `{"baseTableName": "agent", "relationships": [
			{"mappingPath": ["lastName"], "columnInfo": "x"}]}`},
		{"empty step", `{"baseTableName": "agent", "relationships": [
			{"mappingPath": ["", "lastName"], "mappingType": "existing", "columnInfo": "x"}]}`},
		{"duplicate path", `{"baseTableName": "agent", "relationships": [
			{"mappingPath": ["lastName"], "mappingType": "existing", "columnInfo": "x"},
			{"mappingPath": ["lastName"], "mappingType": "existing", "columnInfo": "y"}]}`},
		{"nested to-many", `{"baseTableName": "collectionobject", "relationships": [
			{"mappingPath": ["determinations"], "toMany": [[
				{"mappingPath": ["determiner", "members"], "toMany": [[
					{"mappingPath": ["lastName"], "mappingType": "existing", "columnInfo": "x"}]]}]]}]}`},
		{"not json", `{"baseTableName": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Unmarshal([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, p.Tree)
		})
	}
}

func TestDecode_NestedToManyIsInvalidPath(t *testing.T) {
	var up UploadPlan
	require.NoError(t, json.Unmarshal([]byte(`{"baseTableName": "collectionobject", "relationships": [
		{"mappingPath": ["determinations"], "toMany": [[
			{"mappingPath": ["determiner", "members"], "toMany": [[
				{"mappingPath": ["lastName"], "mappingType": "existing", "columnInfo": "x"}]]}]]}]}`), &up))

	_, err := Decode(up)

	var nesting *mapping.UnsupportedNestingError
	assert.ErrorAs(t, err, &nesting)
}

func TestDecodeFor(t *testing.T) {
	up, err := Encode(buildPlan(t, "collectionobject", nil, existing("catalogNumber", "Cat #")))
	require.NoError(t, err)

	p, err := DecodeFor(up, "CollectionObject")
	require.NoError(t, err)
	assert.Equal(t, "collectionobject", p.BaseTable)

	_, err = DecodeFor(up, "agent")

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "collectionobject", mismatch.PlanTable)
	assert.Equal(t, "agent", mismatch.ResourceTable)
}

func TestUnmarshalFor_MismatchBeforeDecoding(t *testing.T) {
	doc := `{"baseTableName": "agent", "relationships": [
		{"mappingPath": ["lastName"], "mappingType": "bogus"}]}`

	_, err := UnmarshalFor([]byte(doc), "collectionobject")

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = UnmarshalFor([]byte(doc), "agent")
	require.Error(t, err)
	assert.False(t, errors.As(err, &mismatch))
}

func TestMappingPlan_IsMustMatch(t *testing.T) {
	p := buildPlan(t, "collectionobject", []string{"accession"})

	assert.True(t, p.IsMustMatch(mustPath(t, "accession")))
	assert.False(t, p.IsMustMatch(mustPath(t, "cataloger")))
}
