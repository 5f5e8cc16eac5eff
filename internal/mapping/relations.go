package mapping

import (
	"fmt"
	"strings"

	"workbench-mapper/internal/schema"
)

// IsCircular reports whether following relationship rel of table leads
// straight back over the relationship previousRel of previousTable that
// entered table. Both directions are checked through the foreign names.
func IsCircular(graph *schema.Graph, table, rel, previousTable, previousRel string) bool {
	if previousTable == "" || previousRel == "" {
		return false
	}

	t, ok := graph.Table(table)
	if !ok {
		return false
	}

	field, ok := t.Field(rel)
	if !ok || !field.IsRelationship || !strings.EqualFold(field.RelatedTable, previousTable) {
		return false
	}

	// forwards
	if field.ForeignName != "" && strings.EqualFold(field.ForeignName, previousRel) {
		return true
	}

	// backwards
	parent, ok := graph.Table(previousTable)
	if !ok {
		return false
	}

	parentField, ok := parent.Field(previousRel)

	return ok && parentField.ForeignName != "" && strings.EqualFold(parentField.ForeignName, rel)
}

// IsNestedToMany reports whether a relationship of kind sits directly
// under a relationship of parentKind and both are to-many.
func IsNestedToMany(kind, parentKind schema.RelationshipKind) bool {
	return kind.IsToMany() && parentKind.IsToMany()
}

// ResolvedStep is a path step bound to the schema.
type ResolvedStep struct {
	Step Step
	// Table is the table the step is evaluated on.
	Table string
	// Field is set for field and relationship steps.
	Field *schema.Field
}

// Resolve walks path from baseTable and binds each step to the schema.
// Relationships must exist, to-many relationships must be followed by a
// to-many reference unless they end the path, ranks must belong to the
// current tree table, and to-many relationships may not nest.
func Resolve(graph *schema.Graph, baseTable string, path Path) ([]ResolvedStep, error) {
	if err := checkSteps(path); err != nil {
		return nil, err
	}

	table, err := graph.MustTable(baseTable)
	if err != nil {
		return nil, err
	}

	var (
		resolved   = make([]ResolvedStep, 0, len(path))
		parentKind schema.RelationshipKind
	)

	for i, step := range path {
		rs := ResolvedStep{Step: step, Table: table.Name}
		isLast := i == len(path)-1

		switch step.Kind {
		case StepToMany:
			if prev := resolved[i-1].Field; prev == nil || !prev.Kind.IsToMany() {
				return nil, &MalformedPathError{
					Path:   path.String(),
					Reason: fmt.Sprintf("%s follows %q, which is not a to-many relationship", step.Token(), path[i-1].Name),
				}
			}
		case StepTreeRank:
			if !graph.IsTree(table.Name) {
				return nil, fmt.Errorf("%w: table %q has no tree ranks (%s)", ErrInvalidPath, table.Name, path)
			}

			if _, ok := graph.Rank(table.Name, step.Name); !ok {
				return nil, &InvalidTokenError{
					Token:  step.Token(),
					Reason: fmt.Sprintf("no such rank in %q", table.Name),
				}
			}
		default:
			field, ok := table.Field(step.Name)
			if !ok {
				return nil, fmt.Errorf("%w %s.%s (%s)", ErrUnknownField, table.Name, step.Name, path)
			}

			rs.Field = field

			if !field.IsRelationship {
				if !isLast {
					return nil, &MalformedPathError{
						Path:   path.String(),
						Reason: fmt.Sprintf("%q is not a relationship", field.Name),
					}
				}

				break
			}

			if IsNestedToMany(field.Kind, parentKind) {
				return nil, &UnsupportedNestingError{Path: path.String(), Relationship: field.Name}
			}

			if field.Kind.IsToMany() && !isLast && path[i+1].Kind != StepToMany {
				return nil, &MalformedPathError{
					Path:   path.String(),
					Reason: fmt.Sprintf("to-many relationship %q must be followed by a to-many reference", field.Name),
				}
			}

			if !isLast {
				next, err := graph.MustTable(field.RelatedTable)
				if err != nil {
					return nil, err
				}

				table = next
			}

			// Once inside a to-many group, every deeper relationship is nested in it.
			if field.Kind.IsToMany() {
				parentKind = field.Kind
			}
		}

		resolved = append(resolved, rs)
	}

	return resolved, nil
}

// TableAt returns the table path leads to: the related table when the path
// ends in a relationship or a to-many reference, the owning table otherwise.
func TableAt(graph *schema.Graph, baseTable string, path Path) (string, error) {
	if len(path) == 0 {
		t, err := graph.MustTable(baseTable)
		if err != nil {
			return "", err
		}

		return t.Name, nil
	}

	resolved, err := Resolve(graph, baseTable, path)
	if err != nil {
		return "", err
	}

	last := resolved[len(resolved)-1]
	if last.Step.Kind == StepToMany && len(resolved) > 1 {
		last = resolved[len(resolved)-2]
	}

	if last.Field == nil || !last.Field.IsRelationship {
		return last.Table, nil
	}

	related, err := graph.MustTable(last.Field.RelatedTable)
	if err != nil {
		return "", err
	}

	return related.Name, nil
}
