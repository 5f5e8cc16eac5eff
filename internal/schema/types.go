package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"workbench-mapper/internal/common"
)

// ErrUnknownTable is returned when a table name is not part of the graph.
var ErrUnknownTable = errors.New("unknown table")

// RelationshipKind is the cardinality of a relationship field.
type RelationshipKind int

const (
	NotRelationship RelationshipKind = iota
	OneToOne
	OneToMany
	ManyToOne
	ManyToMany
)

var relationshipKindNames = map[string]RelationshipKind{
	"one-to-one":   OneToOne,
	"one-to-many":  OneToMany,
	"many-to-one":  ManyToOne,
	"many-to-many": ManyToMany,
}

// relationshipKindAliases are kinds some servers report that behave like a known kind.
var relationshipKindAliases = map[string]RelationshipKind{
	"zero-to-one": OneToOne,
}

// ParseRelationshipKind parses a kind such as "many-to-one", folding known aliases.
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if k, ok := relationshipKindNames[key]; ok {
		return k, nil
	}

	if k, ok := relationshipKindAliases[key]; ok {
		return k, nil
	}

	return NotRelationship, fmt.Errorf("unknown relationship kind %q", s)
}

// String returns the dashed form used on the wire, e.g. "one-to-many".
func (k RelationshipKind) String() string {
	switch k {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	case NotRelationship:
		return ""
	default:
		return common.UnknownStr
	}
}

// IsToMany returns true for kinds ending in "-to-many".
func (k RelationshipKind) IsToMany() bool {
	return k == OneToMany || k == ManyToMany
}

// PickList is the set of allowed values of a literal field.
type PickList struct {
	ReadOnly bool     `yaml:"readOnly,omitempty"`
	Items    []string `yaml:"items"`
}

// Field describes a literal field or a relationship of a table.
type Field struct {
	Name           string
	Label          string
	IsRelationship bool
	IsRequired     bool
	IsHidden       bool
	// RelatedTable is the target table of a relationship.
	RelatedTable string
	Kind         RelationshipKind
	// ForeignName is the name of the reverse relationship on RelatedTable.
	ForeignName string
	PickList    *PickList
}

// Table describes one table and its fields in display order.
type Table struct {
	Name   string
	Label  string
	Fields []Field
	// IsBaseTable marks tables offered as a mapping base table.
	IsBaseTable bool
	// IsCommon marks base tables shown without the "advanced" toggle.
	IsCommon bool

	index map[string]int
}

// Field returns the field with the given name (case-insensitive).
func (t *Table) Field(name string) (*Field, bool) {
	i, ok := t.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}

	return &t.Fields[i], true
}

// Relationships returns the relationship fields of the table.
func (t *Table) Relationships() []Field {
	var result []Field
	for _, f := range t.Fields {
		if f.IsRelationship {
			result = append(result, f)
		}
	}

	return result
}

// Rank is one level of a tree table.
type Rank struct {
	Name       string `yaml:"name"`
	IsRequired bool   `yaml:"required,omitempty"`
}

// Graph is an immutable view of a schema. Values returned by its
// accessors must not be modified.
type Graph struct {
	version string
	tables  map[string]*Table
	ranks   map[string][]Rank
}

// Version returns the opaque schema version token the graph was built for.
func (g *Graph) Version() string {
	return g.version
}

// Table returns the table with the given name (case-insensitive).
func (g *Graph) Table(name string) (*Table, bool) {
	t, ok := g.tables[strings.ToLower(name)]
	return t, ok
}

// MustTable is like Table but returns an error wrapping ErrUnknownTable.
func (g *Graph) MustTable(name string) (*Table, error) {
	t, ok := g.Table(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}

	return t, nil
}

// Tables returns all tables ordered by name.
func (g *Graph) Tables() []*Table {
	result := make([]*Table, 0, len(g.tables))
	for _, key := range common.SortedKeys(g.tables) {
		result = append(result, g.tables[key])
	}

	return result
}

// BaseTables returns the tables that may be used as a mapping base table.
// Unless advanced is set, only common tables are returned.
func (g *Graph) BaseTables(advanced bool) []*Table {
	var result []*Table
	for _, t := range g.Tables() {
		if t.IsBaseTable && (advanced || t.IsCommon) {
			result = append(result, t)
		}
	}

	return result
}

// IsTree returns true if the table has tree ranks.
func (g *Graph) IsTree(table string) bool {
	_, ok := g.ranks[strings.ToLower(table)]
	return ok
}

// Ranks returns the ranks of a tree table from the root down.
func (g *Graph) Ranks(table string) []Rank {
	return g.ranks[strings.ToLower(table)]
}

// Rank returns the rank with the given name (case-insensitive).
func (g *Graph) Rank(table, name string) (Rank, bool) {
	idx := slices.IndexFunc(g.Ranks(table), func(r Rank) bool {
		return strings.EqualFold(r.Name, name)
	})
	if idx == -1 {
		return Rank{}, false
	}

	return g.Ranks(table)[idx], true
}
