package plan

import (
	"errors"
	"fmt"

	"workbench-mapper/internal/diagnostic"
	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/match"
	"workbench-mapper/internal/schema"
)

// "did you mean" list of unknown fields
const (
	maxFieldSuggestions = 3
	minSuggestionScore  = 0.5
)

// Validate checks a mapping plan against the schema. Paths that do not
// resolve, leaves on relationships, must-match paths that do not end in a
// relationship and headers mapped twice are errors. Missing required
// fields are warnings, since the user may still be mapping.
func Validate(graph *schema.Graph, p MappingPlan) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}

	if graph == nil {
		res.AddError("graph_is_nil", "schema graph is nil", "", "")
		return res
	}

	base, ok := graph.Table(p.BaseTable)
	if !ok {
		res.AddError("unknown_table", fmt.Sprintf("base table %q not found", p.BaseTable), p.BaseTable, "")
		return res
	}

	headers := map[string]string{}

	for _, entry := range mapping.TreeToArray(p.Tree) {
		resolved, ok := resolvePath(graph, base.Name, entry.Path, res)
		if !ok {
			continue
		}

		last := resolved[len(resolved)-1]
		if last.Field != nil && last.Field.IsRelationship {
			res.AddError("not_a_field",
				fmt.Sprintf("%q is a relationship and cannot hold a column", last.Field.Name),
				base.Name, entry.Path.String())
		}

		if entry.Leaf.Kind == mapping.NewStaticColumn {
			continue
		}

		if first, dup := headers[entry.Leaf.Value]; dup {
			res.AddError("duplicate_header",
				fmt.Sprintf("header %q is also mapped to %s", entry.Leaf.Value, first),
				base.Name, entry.Path.String())

			continue
		}

		headers[entry.Leaf.Value] = entry.Path.String()
	}

	for _, path := range p.MustMatch {
		resolved, ok := resolvePath(graph, base.Name, path, res)
		if !ok {
			continue
		}

		last := resolved[len(resolved)-1]
		if last.Field == nil || !last.Field.IsRelationship {
			res.AddError("must_match_not_relationship",
				"must-match path does not end in a relationship", base.Name, path.String())
		}
	}

	for _, missing := range mapping.FindMissingRequired(graph, base.Name, p.Tree) {
		res.AddWarning("missing_required", "required field is not mapped", base.Name, missing.String())
	}

	return res
}

func resolvePath(graph *schema.Graph, base string, path mapping.Path, res *diagnostic.Diagnostics) ([]mapping.ResolvedStep, bool) {
	resolved, err := mapping.Resolve(graph, base, path)
	if err == nil {
		return resolved, true
	}

	var nesting *mapping.UnsupportedNestingError

	switch {
	case errors.As(err, &nesting):
		res.AddError("nested_to_many", err.Error(), base, path.String())
	case errors.Is(err, mapping.ErrUnknownField):
		res.AddError("unknown_field", err.Error(), base, path.String(), fieldSuggestions(graph, base, path)...)
	case errors.Is(err, schema.ErrUnknownTable):
		res.AddError("unknown_table", err.Error(), base, path.String())
	default:
		res.AddError("invalid_path", err.Error(), base, path.String())
	}

	return nil, false
}

// fieldSuggestions proposes fields of the table holding the first unknown
// step, closest names first.
func fieldSuggestions(graph *schema.Graph, base string, path mapping.Path) []string {
	tableName := base

	for _, step := range path {
		if step.IsToken() {
			continue
		}

		table, ok := graph.Table(tableName)
		if !ok {
			return nil
		}

		field, ok := table.Field(step.Name)
		if !ok {
			return closestFields(table, step.Name)
		}

		if field.IsRelationship {
			tableName = field.RelatedTable
		}
	}

	return nil
}

func closestFields(table *schema.Table, name string) []string {
	var candidates match.CandidateList[string]
	for _, f := range table.Fields {
		candidates = append(candidates, match.Candidate[string]{
			Item:  f.Name,
			Key:   f.Name,
			Score: match.LevenshteinNormalized(match.NormalizeIdent(name), match.NormalizeIdent(f.Name)),
		})
	}

	var names []string
	for _, c := range candidates.Rank().AboveThreshold(minSuggestionScore).Top(maxFieldSuggestions) {
		names = append(names, c.Item)
	}

	return names
}
