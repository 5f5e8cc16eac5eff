package plan

import (
	"fmt"
	"slices"

	"workbench-mapper/internal/mapping"
)

// MappingType tags a mapping in an upload plan.
type MappingType string

const (
	MappingExisting        MappingType = "existing"
	MappingNewColumn       MappingType = "newColumn"
	MappingNewStaticColumn MappingType = "newStaticColumn"
	// MappingMustMatch marks a related table whose records must already exist.
	MappingMustMatch MappingType = "mustMatch"
)

// UploadPlan is the persisted upload plan document.
type UploadPlan struct {
	BaseTableName string         `json:"baseTableName"`
	Relationships []FieldMapping `json:"relationships"`
}

// FieldMapping is one entry of an upload plan. Entries with ToMany are
// to-many groups and carry no MappingType.
type FieldMapping struct {
	MappingPath []string         `json:"mappingPath"`
	MappingType MappingType      `json:"mappingType,omitempty"`
	ColumnInfo  string           `json:"columnInfo,omitempty"`
	ToMany      [][]FieldMapping `json:"toMany,omitempty"`
}

// MappingPlan is the decoded form of an upload plan.
type MappingPlan struct {
	BaseTable string
	Tree      *mapping.Tree
	// MustMatch lists the relationships whose records are looked up, never created.
	MustMatch []mapping.Path
}

// Equal compares base table, tree and must-match paths.
func (p MappingPlan) Equal(other MappingPlan) bool {
	return p.BaseTable == other.BaseTable &&
		p.Tree.Equal(other.Tree) &&
		slices.EqualFunc(p.MustMatch, other.MustMatch, mapping.Path.Equal)
}

// IsMustMatch returns true if path is one of the must-match relationships.
func (p MappingPlan) IsMustMatch(path mapping.Path) bool {
	return slices.ContainsFunc(p.MustMatch, path.Equal)
}

// SchemaMismatchError is returned when a plan is applied to a resource of
// another table.
type SchemaMismatchError struct {
	PlanTable     string
	ResourceTable string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("upload plan base table %q does not match table %q", e.PlanTable, e.ResourceTable)
}

func leafMappingType(kind mapping.LeafKind) (MappingType, error) {
	switch kind {
	case mapping.ExistingHeader:
		return MappingExisting, nil
	case mapping.NewColumn:
		return MappingNewColumn, nil
	case mapping.NewStaticColumn:
		return MappingNewStaticColumn, nil
	default:
		return "", fmt.Errorf("unknown leaf kind %d", kind)
	}
}

func leafKind(t MappingType) (mapping.LeafKind, error) {
	switch t {
	case MappingExisting:
		return mapping.ExistingHeader, nil
	case MappingNewColumn:
		return mapping.NewColumn, nil
	case MappingNewStaticColumn:
		return mapping.NewStaticColumn, nil
	default:
		return 0, fmt.Errorf("unknown mapping type %q", t)
	}
}
