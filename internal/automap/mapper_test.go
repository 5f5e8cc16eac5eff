package automap

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/schema/schematest"
)

func newTestMapper(t *testing.T, cache *Cache) *Mapper {
	t.Helper()

	return NewMapper(schematest.Graph(t), DefaultConfig(), cache, nil)
}

func pathStrings(paths []mapping.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.String())
	}

	return out
}

func TestAutoMap_Stages(t *testing.T) {
	tests := []struct {
		header   string
		wantPath string
		want     Stage
	}{
		{"Cataloger Last Name", "cataloger.lastName", StageLabel},
		{"  cataloger   LAST name ", "cataloger.lastName", StageLabel},
		{"Remarks", "remarks", StageLabel},
		{"Text 1", "text1", StageLabel},
		{"Collector 2 Last Name", "collectingEvent.collectors.#2.agent.lastName", StageLabel},
		{"Determination Current", "determinations.#1.isCurrent", StageLabel},
		{"Species", "determinations.#1.taxon.$Species.name", StageLabel},
		{"Genus Author", "determinations.#1.taxon.$Genus.author", StageLabel},
		{"Cat #", "catalogNumber", StageSynonym},
		{"Surname", "cataloger.lastName", StageSynonym},
		{"Catalog Numbr", "catalogNumber", StageFuzzy},
		{"Catalog-Number (text)", "catalogNumber", StageFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			m := newTestMapper(t, nil)

			res, err := m.AutoMap([]string{tt.header}, "collectionobject", Options{})
			require.NoError(t, err)
			require.Len(t, res.Suggestions, 1)

			s := res.Suggestions[0]
			require.NotEmpty(t, s.Paths, spew.Sdump(s))
			assert.Equal(t, tt.wantPath, s.Paths[0].String())
			assert.Equal(t, tt.want, s.Stage)
			assert.LessOrEqual(t, len(s.Paths), DefaultConfig().MaxSuggestions)
		})
	}
}

func TestAutoMap_LabelBeatsFuzzy(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Cataloger Last Name"}, "CollectionObject", Options{})
	require.NoError(t, err)

	s, ok := res.Lookup("Cataloger Last Name")
	require.True(t, ok)
	assert.Equal(t, StageLabel, s.Stage)
	assert.Equal(t, []string{"cataloger", "lastName"}, s.Paths[0].Tokens())
	assert.InDelta(t, 1.0, s.Score, 1e-9)
}

func TestAutoMap_MostSpecificFirst(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Last Name"}, "collectionobject", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cataloger.lastName",
		"cataloger.members.#1.lastName",
		"cataloger.organization.lastName",
	}, pathStrings(res.Suggestions[0].Paths))

	var codes []string
	for _, d := range res.Diagnostics.Infos {
		codes = append(codes, d.Code)
	}

	assert.Equal(t, []string{"automapped", "ambiguous_header"}, codes)
}

func TestAutoMap_ClaimsBumpToManyIndex(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Determined Date", "Determined Date", "Cataloger Last Name", "Cataloger Last Name"},
		"collectionobject", Options{Scope: ScopeAutomapper})
	require.NoError(t, err)

	var best []string
	for _, s := range res.Suggestions {
		p, ok := s.Best()
		require.True(t, ok)

		best = append(best, p.String())
	}

	assert.Equal(t, []string{
		"determinations.#1.determinedDate",
		"determinations.#2.determinedDate",
		"cataloger.lastName",
		"cataloger.members.#1.lastName",
	}, best)

	tree, err := res.Tree()
	require.NoError(t, err)
	assert.Equal(t, []string{"determinations", "cataloger"}, tree.Keys())
}

func TestAutoMap_ExistingMappingsAreSkipped(t *testing.T) {
	m := newTestMapper(t, nil)

	path, err := mapping.ParsePath("determinations.#1.determinedDate")
	require.NoError(t, err)

	existing, err := mapping.ArrayToTree([]mapping.Entry{{
		Path: path,
		Leaf: mapping.Leaf{Kind: mapping.ExistingHeader, Value: "Det Date"},
	}})
	require.NoError(t, err)

	s, err := m.Suggest("Determined Date", "collectionobject", existing)
	require.NoError(t, err)
	assert.Equal(t, "determinations.#2.determinedDate", s.Paths[0].String())
}

func TestAutoMap_SuggestionDoesNotClaim(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Remarks", "Remarks"}, "collectionobject", Options{Scope: ScopeSuggestion})
	require.NoError(t, err)

	assert.Equal(t, res.Suggestions[0].Paths, res.Suggestions[1].Paths)
}

func TestAutoMap_Unmapped(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Remarks", "Qwerty Zxcv"}, "collectionobject", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Qwerty Zxcv"}, res.Unmapped())
	assert.Equal(t, StageNone, res.Suggestions[1].Stage)
	require.Len(t, res.Diagnostics.Warnings, 1)
	assert.Equal(t, "unmapped_header", res.Diagnostics.Warnings[0].Code)

	tree, err := res.Tree()
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestAutoMap_Deterministic(t *testing.T) {
	headers := []string{
		"Cat #", "Last Name", "Collector 1 Last Name", "Collector 2 Last Name",
		"Species", "Genus", "Locality", "Latitude", "Remarks", "Count",
	}

	first, err := newTestMapper(t, nil).AutoMap(headers, "collectionobject", Options{})
	require.NoError(t, err)

	for range 5 {
		again, err := newTestMapper(t, nil).AutoMap(headers, "collectionobject", Options{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAutoMap_UserSynonyms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Synonyms = cfg.Synonyms.Merge(Synonyms{"CollectionObject": {"Text1": {"Batch"}}})

	m := NewMapper(schematest.Graph(t), cfg, nil, nil)

	res, err := m.AutoMap([]string{"batch"}, "collectionobject", Options{})
	require.NoError(t, err)
	assert.Equal(t, StageSynonym, res.Suggestions[0].Stage)
	assert.Equal(t, "text1", res.Suggestions[0].Paths[0].String())
}

func TestAutoMap_TreeBaseTable(t *testing.T) {
	m := newTestMapper(t, nil)

	res, err := m.AutoMap([]string{"Kingdom", "Species Author"}, "taxon", Options{})
	require.NoError(t, err)

	assert.Equal(t, "$Kingdom.name", res.Suggestions[0].Paths[0].String())
	assert.Equal(t, "$Species.author", res.Suggestions[1].Paths[0].String())
}

func TestAutoMap_UnknownTable(t *testing.T) {
	_, err := newTestMapper(t, nil).AutoMap([]string{"x"}, "specimen", Options{})
	require.Error(t, err)
}

func TestAutoMap_CacheScopes(t *testing.T) {
	cache := NewCache()
	m := newTestMapper(t, cache)

	_, err := m.Suggest("Remarks", "collectionobject", nil)
	require.NoError(t, err)
	assert.Empty(t, cache.Table(), "suggestions must not fill the cache")

	_, err = m.AutoMap([]string{"Remarks"}, "collectionobject", Options{Scope: ScopeAutomapper})
	require.NoError(t, err)
	assert.Equal(t, "collectionobject", cache.Table())
	assert.Zero(t, cache.Hits())

	_, err = m.Suggest("Remarks", "collectionobject", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Hits())

	// another base table replaces the cached walk
	_, err = m.AutoMap([]string{"Last Name"}, "agent", Options{Scope: ScopeAutomapper})
	require.NoError(t, err)
	assert.Equal(t, "agent", cache.Table())

	_, err = m.Suggest("Remarks", "collectionobject", nil)
	require.NoError(t, err)
	assert.Zero(t, cache.Hits())

	cache.Invalidate()
	assert.Empty(t, cache.Table())
}

func TestWalk_Limits(t *testing.T) {
	g := schematest.Graph(t)
	targets := walk(g, "collectionobject", 3)
	require.NotEmpty(t, targets)

	seen := map[string]bool{}

	for _, tg := range targets {
		assert.False(t, seen[tg.key], "duplicate target %s", tg.key)
		seen[tg.key] = true

		assert.LessOrEqual(t, tg.depth, 3)

		_, err := mapping.Resolve(g, "collectionobject", tg.path)
		require.NoError(t, err, tg.key)
	}

	assert.True(t, seen["collectingEvent.collectors.#1.agent.lastName"])
	assert.False(t, seen["guid"], "hidden fields are not offered")
	assert.False(t, seen["determinations.#1.collectionObject.catalogNumber"], "circular relationships are not followed")
}
