package automap

import (
	"strings"

	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/match"
	"workbench-mapper/internal/schema"
)

// target is one mappable field reachable from the base table.
type target struct {
	path mapping.Path
	key  string
	// table owns the field.
	table string
	field string
	// label is the collapsed field label.
	label string
	// chain holds the collapsed labels of the relationships and ranks
	// crossed, each with its accepted spellings.
	chain [][]string
	// rank is the collapsed rank label when the field sits under a rank.
	rank string
	// depth is the number of relationships crossed.
	depth int
	// toMany is the index of the to-many reference in path, or -1.
	toMany int
}

// qualifiedLabel is the full label of the target, e.g.
// "collecting event collectors agent last name".
func (t *target) qualifiedLabel() string {
	parts := make([]string, 0, len(t.chain)+1)
	for _, variants := range t.chain {
		parts = append(parts, variants[0])
	}

	return strings.Join(append(parts, t.label), " ")
}

// withIndex returns the target path with the to-many reference set to n.
func (t *target) withIndex(n int) mapping.Path {
	p := t.path.Append()
	p[t.toMany].Index = n

	return p
}

type walker struct {
	graph    *schema.Graph
	maxDepth int
	targets  []target
}

// walk lists the targets of a base table in schema order.
func walk(graph *schema.Graph, baseTable string, maxDepth int) []target {
	w := &walker{graph: graph, maxDepth: maxDepth}
	w.table(baseTable, nil, nil, "", schema.NotRelationship, 0, -1)

	return w.targets
}

func (w *walker) table(
	tableName string,
	path mapping.Path,
	chain [][]string,
	previousTable string,
	parentKind schema.RelationshipKind,
	depth, toMany int,
) {
	table, ok := w.graph.Table(tableName)
	if !ok {
		return
	}

	if w.graph.IsTree(table.Name) && path.Last().Kind != mapping.StepTreeRank {
		for _, rank := range w.graph.Ranks(table.Name) {
			rankLabel := match.CollapseSpace(rank.Name)
			rankPath := path.Append(mapping.TreeRank(rank.Name))
			rankChain := appendChain(chain, []string{rankLabel})

			for i := range table.Fields {
				field := &table.Fields[i]
				if field.IsRelationship || field.IsHidden {
					continue
				}

				w.add(table, field, rankPath, rankChain, rankLabel, depth, toMany)
			}
		}

		return
	}

	previousRel := path.LastName()

	for i := range table.Fields {
		field := &table.Fields[i]
		if field.IsHidden {
			continue
		}

		if !field.IsRelationship {
			w.add(table, field, path, chain, "", depth, toMany)
			continue
		}

		if depth >= w.maxDepth ||
			mapping.IsCircular(w.graph, table.Name, field.Name, previousTable, previousRel) ||
			mapping.IsNestedToMany(field.Kind, parentKind) {
			continue
		}

		next := path.Append(mapping.Relationship(field.Name))
		nextKind, nextToMany := parentKind, toMany

		if field.Kind.IsToMany() {
			nextToMany = len(next)
			next = next.Append(mapping.ToMany(1))
			nextKind = field.Kind
		}

		w.table(field.RelatedTable, next, appendChain(chain, spellings(field.Label)),
			table.Name, nextKind, depth+1, nextToMany)
	}
}

func (w *walker) add(table *schema.Table, field *schema.Field, path mapping.Path, chain [][]string, rank string, depth, toMany int) {
	p := path.Append(mapping.Field(field.Name))

	w.targets = append(w.targets, target{
		path:   p,
		key:    p.String(),
		table:  table.Name,
		field:  field.Name,
		label:  match.CollapseSpace(field.Label),
		chain:  chain,
		rank:   rank,
		depth:  depth,
		toMany: toMany,
	})
}

// spellings returns the collapsed label and its singular forms.
func spellings(label string) []string {
	l := match.CollapseSpace(label)
	out := []string{l}

	if s, ok := strings.CutSuffix(l, "ies"); ok && s != "" {
		out = append(out, s+"y")
	} else if s, ok := strings.CutSuffix(l, "s"); ok && s != "" && !strings.HasSuffix(s, "s") {
		out = append(out, s)
	}

	return out
}

func appendChain(chain [][]string, variants []string) [][]string {
	out := make([][]string, 0, len(chain)+1)
	out = append(out, chain...)

	return append(out, variants)
}
