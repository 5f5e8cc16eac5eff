package schema_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench-mapper/internal/schema"
	"workbench-mapper/internal/schema/schematest"
)

func fieldNames(t *schema.Table) []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}

	return names
}

func TestParse_FieldOrderAndLabels(t *testing.T) {
	g := schematest.Graph(t)
	assert.Equal(t, schematest.Version, g.Version())

	co, ok := g.Table("CollectionObject")
	require.True(t, ok)
	assert.Equal(t, "Collection Object", co.Label)

	assert.Equal(t, []string{
		"catalogNumber", "guid", "remarks", "text1",
		"accession", "cataloger", "collectingEvent", "determinations", "preparations",
	}, fieldNames(co))

	f, ok := co.Field("COLLECTINGEVENT")
	require.True(t, ok)
	assert.Equal(t, "Collecting Event", f.Label)
	assert.Equal(t, schema.ManyToOne, f.Kind)
	assert.Equal(t, "collectionObjects", f.ForeignName)
}

func TestParse_Normalization(t *testing.T) {
	g := schematest.Graph(t)

	// Relationship to a table missing from the graph is dropped.
	audit, ok := g.Table("spauditlog")
	require.True(t, ok)
	assert.Equal(t, []string{"action"}, fieldNames(audit))

	// Tree tables keep literal fields only.
	taxon, ok := g.Table("taxon")
	require.True(t, ok)
	assert.Equal(t, []string{"author", "name"}, fieldNames(taxon))
	assert.True(t, g.IsTree("Taxon"))
	assert.False(t, g.IsTree("agent"))

	r, ok := g.Rank("taxon", "kingdom")
	require.True(t, ok)
	assert.Equal(t, schema.Rank{Name: "Kingdom", IsRequired: true}, r)

	_, ok = g.Rank("taxon", "Order")
	assert.False(t, ok)
}

func TestParse_RequiredFieldsAreNotHidden(t *testing.T) {
	g, err := schema.Parse([]byte(`
tables:
  - name: thing
    fields:
      - name: code
        required: true
        hidden: true
`))
	require.NoError(t, err)

	tbl, _ := g.Table("thing")
	f, _ := tbl.Field("code")
	assert.False(t, f.IsHidden)
	assert.Equal(t, "Code", f.Label)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", "tables:\n  - name: a\n    fields:\n      - {name: b, table: a, type: few-to-some}\n"},
		{"duplicate table", "tables:\n  - name: a\n  - name: A\n"},
		{"duplicate field", "tables:\n  - name: a\n    fields:\n      - {name: b}\n      - {name: B}\n"},
		{"bad yaml", "tables: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseRelationshipKind(t *testing.T) {
	k, err := schema.ParseRelationshipKind("zero-to-one")
	require.NoError(t, err)
	assert.Equal(t, schema.OneToOne, k)

	k, err = schema.ParseRelationshipKind("Many-To-Many")
	require.NoError(t, err)
	assert.True(t, k.IsToMany())
	assert.Equal(t, "many-to-many", k.String())

	assert.False(t, schema.ManyToOne.IsToMany())
}

func TestGraph_MustTable(t *testing.T) {
	g := schematest.Graph(t)

	_, err := g.MustTable("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnknownTable))
}

func TestGraph_BaseTables(t *testing.T) {
	g := schematest.Graph(t)

	var common []string
	for _, tbl := range g.BaseTables(false) {
		common = append(common, tbl.Name)
	}

	assert.Equal(t, []string{"accession", "agent", "collectionobject", "taxon"}, common)
	assert.Greater(t, len(g.BaseTables(true)), len(common))
}

func TestProvider_CachesPerVersion(t *testing.T) {
	var calls atomic.Int32

	release := make(chan struct{})
	p := schema.NewProvider(schema.FetcherFunc(func(ctx context.Context) (*schema.Graph, error) {
		calls.Add(1)
		<-release

		return schema.Parse([]byte(schematest.YAML))
	}), nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			g, err := p.Get(context.Background(), "v1")
			assert.NoError(t, err)
			assert.NotNil(t, g)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	_, err := p.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = p.Get(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	p.Invalidate()
	_, err = p.Get(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProvider_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	p := schema.NewProvider(schema.FetcherFunc(func(ctx context.Context) (*schema.Graph, error) {
		close(started)

		select {
		case <-release:
			return schema.Parse([]byte(schematest.YAML))
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() {
		_, err := p.Get(ctx, "v1")
		firstErr <- err
	}()

	<-started

	second := make(chan error, 1)

	go func() {
		g, err := p.Get(context.Background(), "v1")
		if err == nil && g == nil {
			err = errors.New("nil graph")
		}
		second <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-second)
}

func TestProvider_FetchError(t *testing.T) {
	boom := errors.New("boom")
	p := schema.NewProvider(schema.FetcherFunc(func(ctx context.Context) (*schema.Graph, error) {
		return nil, boom
	}), nil)

	_, err := p.Get(context.Background(), "v1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
