package mapping

import (
	"workbench-mapper/internal/schema"
)

// FindMissingRequired returns the paths of required fields and tree ranks
// that are not mapped, in schema order. Only branches present in tree are
// followed. Relationships that lead back over the relationship just
// crossed, and to-many relationships directly under another to-many
// relationship, are not followed.
func FindMissingRequired(graph *schema.Graph, table string, tree *Tree) []Path {
	var results []Path

	findMissing(graph, table, tree, "", nil, &results)

	return results
}

func findMissing(graph *schema.Graph, tableName string, tree *Tree, previousTable string, path Path, results *[]Path) {
	table, ok := graph.Table(tableName)
	if !ok || tree == nil {
		return
	}

	keys := tree.Keys()

	// to-many references: audit every instance
	if len(keys) > 0 && IsToManyReference(keys[0]) {
		for _, k := range keys {
			n, _ := tree.Get(k)
			if n.IsLeaf() {
				continue
			}

			step, err := stepFromToken(k)
			if err != nil {
				continue
			}

			findMissing(graph, table.Name, n.Subtree, previousTable, path.Append(step), results)
		}

		return
	}

	// tree tables: audit ranks before their fields
	if graph.IsTree(table.Name) && path.Last().Kind != StepTreeRank {
		for _, rank := range graph.Ranks(table.Name) {
			local := path.Append(TreeRank(rank.Name))

			n, mapped := tree.GetFold(FormatTreeRank(rank.Name))

			switch {
			case mapped && !n.IsLeaf():
				findMissing(graph, table.Name, n.Subtree, previousTable, local, results)
			case !mapped && rank.IsRequired:
				*results = append(*results, local)
			}
		}

		return
	}

	previousRel := path.LastName()

	for i := range table.Fields {
		field := &table.Fields[i]
		local := path.Append(Field(field.Name))
		n, mapped := tree.GetFold(field.Name)

		if !field.IsRelationship {
			if !mapped && field.IsRequired {
				*results = append(*results, local)
			}

			continue
		}

		if previousTable != "" {
			if IsCircular(graph, table.Name, field.Name, previousTable, previousRel) {
				continue
			}

			if parentTable, ok := graph.Table(previousTable); ok {
				if parent, ok := parentTable.Field(previousRel); ok && IsNestedToMany(field.Kind, parent.Kind) {
					continue
				}
			}
		}

		switch {
		case mapped && !n.IsLeaf():
			findMissing(graph, field.RelatedTable, n.Subtree, table.Name, local, results)
		case !mapped && field.IsRequired:
			*results = append(*results, local)
		}
	}
}
