package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"workbench-mapper/internal/match"
)

// NewGraph builds a normalized, immutable Graph. The input slices are copied.
func NewGraph(version string, tables []Table, ranks map[string][]Rank) (*Graph, error) {
	g := &Graph{
		version: version,
		tables:  make(map[string]*Table, len(tables)),
		ranks:   make(map[string][]Rank, len(ranks)),
	}

	for name, rs := range ranks {
		g.ranks[strings.ToLower(name)] = slices.Clone(rs)
	}

	for i := range tables {
		t := tables[i]
		key := strings.ToLower(t.Name)

		if t.Name == "" {
			return nil, fmt.Errorf("table #%d has no name", i)
		}

		if _, dup := g.tables[key]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}

		if t.Label == "" {
			t.Label = match.Humanize(t.Name)
		}

		t.Fields = slices.Clone(t.Fields)
		g.tables[key] = &t
	}

	for _, t := range g.tables {
		if err := g.normalizeFields(t); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Graph) normalizeFields(t *Table) error {
	isTree := g.IsTree(t.Name)
	fields := make([]Field, 0, len(t.Fields))

	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("table %q has a field without a name", t.Name)
		}

		if f.Label == "" {
			f.Label = match.Humanize(f.Name)
		}

		if f.IsRelationship {
			// Tree tables are navigated through ranks, never through their own relationships.
			if isTree {
				continue
			}

			if f.Kind == NotRelationship {
				return fmt.Errorf("relationship %s.%s has no kind", t.Name, f.Name)
			}

			if _, ok := g.tables[strings.ToLower(f.RelatedTable)]; !ok {
				continue
			}
		}

		if f.IsHidden && f.IsRequired {
			f.IsHidden = false
		}

		fields = append(fields, f)
	}

	slices.SortStableFunc(fields, func(a, b Field) int {
		if a.IsRelationship != b.IsRelationship {
			if a.IsRelationship {
				return 1
			}

			return -1
		}

		return cmp.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
	})

	t.Fields = fields
	t.index = make(map[string]int, len(fields))

	for i, f := range fields {
		key := strings.ToLower(f.Name)
		if _, dup := t.index[key]; dup {
			return fmt.Errorf("duplicate field %s.%s", t.Name, f.Name)
		}

		t.index[key] = i
	}

	return nil
}
