package mapping

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Path {
	t.Helper()

	p, err := ParsePath(s)
	require.NoError(t, err)

	return p
}

func header(value string) Leaf {
	return Leaf{Kind: ExistingHeader, Value: value}
}

func buildTree(t *testing.T, pairs ...string) *Tree {
	t.Helper()
	require.Zero(t, len(pairs)%2)

	var entries []Entry
	for i := 0; i < len(pairs); i += 2 {
		entries = append(entries, Entry{Path: mustParse(t, pairs[i]), Leaf: header(pairs[i+1])})
	}

	tree, err := ArrayToTree(entries)
	require.NoError(t, err)

	return tree
}

func TestArrayToTree(t *testing.T) {
	tree := buildTree(t,
		"catalogNumber", "Cat #",
		"cataloger.lastName", "Cataloger Last Name",
		"cataloger.firstName", "Cataloger First Name",
		"collectingEvent.collectors.#1.agent.lastName", "Collector 1",
		"collectingEvent.collectors.#2.agent.lastName", "Collector 2",
	)

	assert.Equal(t, []string{"catalogNumber", "cataloger", "collectingEvent"}, tree.Keys())
	assert.Equal(t, []string{"lastName", "firstName"}, tree.MappedKeys(mustParse(t, "cataloger")))
	assert.Equal(t, []string{"#1", "#2"}, tree.MappedKeys(mustParse(t, "collectingEvent.collectors")))
	assert.Nil(t, tree.MappedKeys(mustParse(t, "accession")))
	assert.Nil(t, tree.MappedKeys(mustParse(t, "catalogNumber")))

	node, ok := tree.Lookup(mustParse(t, "collectingEvent.collectors.#2.agent.lastName"))
	require.True(t, ok)
	require.True(t, node.IsLeaf())
	assert.Equal(t, header("Collector 2"), *node.Leaf)
}

func TestArrayToTree_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		target  error
	}{
		{
			name: "duplicate path",
			entries: []Entry{
				{Path: Path{Field("remarks")}, Leaf: header("A")},
				{Path: Path{Field("remarks")}, Leaf: header("B")},
			},
			target: ErrDuplicatePath,
		},
		{
			name: "leaf under leaf",
			entries: []Entry{
				{Path: Path{Field("cataloger")}, Leaf: header("A")},
				{Path: Path{Relationship("cataloger"), Field("lastName")}, Leaf: header("B")},
			},
			target: ErrDuplicatePath,
		},
		{
			name: "nested to-many",
			entries: []Entry{
				{Path: Path{Relationship("a"), ToMany(1), Relationship("b"), ToMany(1), Field("c")}, Leaf: header("A")},
			},
			target: ErrInvalidPath,
		},
		{
			name: "name reads as a token",
			entries: []Entry{
				{Path: Path{Relationship("cataloger"), Field("#x")}, Leaf: header("A")},
			},
			target: ErrInvalidPath,
		},
		{
			name: "ends with token",
			entries: []Entry{
				{Path: Path{Relationship("collectors"), ToMany(1)}, Leaf: header("A")},
			},
			target: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ArrayToTree(tt.entries)
			require.ErrorIs(t, err, tt.target)
			assert.Nil(t, tree)
		})
	}
}

func TestTreeToArray_RoundTrip(t *testing.T) {
	trees := []*Tree{
		NewTree(),
		buildTree(t, "catalogNumber", "Cat #"),
		buildTree(t,
			"determinations.#1.taxon.$Genus.name", "Genus 1",
			"determinations.#1.taxon.$Species.name", "Species 1",
			"determinations.#2.isCurrent", "Current 2",
			"accession.accessionNumber", "Accession",
			"remarks", "Remarks",
		),
	}

	for _, tree := range trees {
		entries := TreeToArray(tree)

		rebuilt, err := ArrayToTree(entries)
		require.NoError(t, err)
		assert.True(t, tree.Equal(rebuilt), spew.Sdump(entries))
		assert.Equal(t, tree.Keys(), rebuilt.Keys())
	}
}

func TestTreeToArray_Order(t *testing.T) {
	tree := buildTree(t,
		"cataloger.lastName", "B",
		"catalogNumber", "A",
		"cataloger.firstName", "C",
	)

	var got []string
	for _, e := range TreeToArray(tree) {
		got = append(got, e.Path.String()+"="+e.Leaf.Value)
	}

	assert.Equal(t, []string{"cataloger.lastName=B", "cataloger.firstName=C", "catalogNumber=A"}, got)
}

func TestMerge(t *testing.T) {
	a := buildTree(t, "A.B.C", "1")
	b := buildTree(t, "A.D.E", "1")

	merged, err := Merge(a, b)
	require.NoError(t, err)

	assert.True(t, merged.Equal(buildTree(t, "A.B.C", "1", "A.D.E", "1")))
	assert.Equal(t, []string{"B", "D"}, merged.MappedKeys(Path{Field("A")}))

	// inputs are untouched
	assert.Equal(t, []string{"B"}, a.MappedKeys(Path{Field("A")}))
	assert.Equal(t, []string{"D"}, b.MappedKeys(Path{Field("A")}))
}

func TestMerge_Associative(t *testing.T) {
	a := buildTree(t, "cataloger.lastName", "1", "remarks", "2")
	b := buildTree(t, "cataloger.firstName", "3", "collectingEvent.startDate", "4")
	c := buildTree(t, "collectingEvent.collectors.#1.agent.lastName", "5", "text1", "6")

	ab, err := Merge(a, b)
	require.NoError(t, err)
	left, err := Merge(ab, c)
	require.NoError(t, err)

	bc, err := Merge(b, c)
	require.NoError(t, err)
	right, err := Merge(a, bc)
	require.NoError(t, err)

	assert.True(t, left.Equal(right))
	assert.Equal(t, TreeToArray(left), TreeToArray(right))
}

func TestMerge_Conflict(t *testing.T) {
	a := buildTree(t, "cataloger.lastName", "1")
	b := buildTree(t, "cataloger.lastName", "2")

	_, err := Merge(a, b)
	require.ErrorIs(t, err, ErrDuplicatePath)

	leaf, _ := a.Lookup(mustParse(t, "cataloger.lastName"))
	assert.Equal(t, "1", leaf.Leaf.Value)
}

func TestTraverse(t *testing.T) {
	tree := buildTree(t,
		"collectingEvent.collectors.#1.agent.lastName", "Collector 1",
		"collectingEvent.startDate", "Date",
	)

	node, ok := Traverse(tree, PathTree(mustParse(t, "collectingEvent.collectors.#1")))
	require.True(t, ok)
	require.False(t, node.IsLeaf())
	assert.Equal(t, []string{"agent"}, node.Subtree.Keys())

	node, ok = Traverse(tree, PathTree(mustParse(t, "collectingEvent.startDate")))
	require.True(t, ok)
	require.True(t, node.IsLeaf())
	assert.Equal(t, "Date", node.Leaf.Value)

	_, ok = Traverse(tree, PathTree(mustParse(t, "collectingEvent.collectors.#2")))
	assert.False(t, ok)

	_, ok = Traverse(tree, PathTree(mustParse(t, "collectingEvent.startDate.year")))
	assert.False(t, ok)
}

func TestTree_Equal(t *testing.T) {
	a := buildTree(t, "x", "1", "y", "2")
	b := buildTree(t, "y", "2", "x", "1")
	c := buildTree(t, "x", "1", "y", "3")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewTree()))

	static := NewTree()
	require.NoError(t, static.insert(Path{Field("x")}, Leaf{Kind: NewStaticColumn, Value: "1"}))
	require.NoError(t, static.insert(Path{Field("y")}, header("2")))
	assert.False(t, a.Equal(static))
}
