package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"workbench-mapper/internal/mapping"
)

var errNoBaseTable = errors.New("upload plan has no base table")

// Encode converts a mapping plan into an upload plan document.
func Encode(p MappingPlan) (UploadPlan, error) {
	if p.BaseTable == "" {
		return UploadPlan{}, errNoBaseTable
	}

	relationships, err := encodeTree(p.Tree, nil)
	if err != nil {
		return UploadPlan{}, err
	}

	for _, path := range p.MustMatch {
		if err := mapping.ValidatePath(path); err != nil {
			return UploadPlan{}, fmt.Errorf("must-match path: %w", err)
		}

		relationships = append(relationships, FieldMapping{
			MappingPath: path.Tokens(),
			MappingType: MappingMustMatch,
		})
	}

	if relationships == nil {
		relationships = []FieldMapping{}
	}

	return UploadPlan{BaseTableName: p.BaseTable, Relationships: relationships}, nil
}

func encodeTree(tree *mapping.Tree, prefix []string) ([]FieldMapping, error) {
	var result []FieldMapping

	for _, key := range tree.Keys() {
		node, _ := tree.Get(key)
		path := append(append([]string{}, prefix...), key)

		if node.IsLeaf() {
			mt, err := leafMappingType(node.Leaf.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", strings.Join(path, mapping.JoinSymbol), err)
			}

			result = append(result, FieldMapping{
				MappingPath: path,
				MappingType: mt,
				ColumnInfo:  node.Leaf.Value,
			})

			continue
		}

		if isToManyBranch(node.Subtree) {
			groups, err := encodeToMany(node.Subtree)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", strings.Join(path, mapping.JoinSymbol), err)
			}

			result = append(result, FieldMapping{MappingPath: path, ToMany: groups})

			continue
		}

		inner, err := encodeTree(node.Subtree, path)
		if err != nil {
			return nil, err
		}

		result = append(result, inner...)
	}

	return result, nil
}

// encodeToMany places reference #N in group N-1. Missing references become
// empty groups so indexes survive a round trip.
func encodeToMany(tree *mapping.Tree) ([][]FieldMapping, error) {
	groups := make([][]FieldMapping, mapping.MaxToManyIndex(tree.Keys()))

	for _, key := range tree.Keys() {
		n, err := mapping.ParseToManyReferenceIndex(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %q mixed with to-many references", mapping.ErrInvalidPath, key)
		}

		node, _ := tree.Get(key)
		if node.IsLeaf() {
			return nil, fmt.Errorf("%w: %s is mapped directly", mapping.ErrInvalidPath, key)
		}

		group, err := encodeTree(node.Subtree, nil)
		if err != nil {
			return nil, err
		}

		groups[n-1] = group
	}

	for i := range groups {
		if groups[i] == nil {
			groups[i] = []FieldMapping{}
		}
	}

	return groups, nil
}

func isToManyBranch(tree *mapping.Tree) bool {
	keys := tree.Keys()

	return len(keys) > 0 && mapping.IsToManyReference(keys[0])
}

// Decode converts an upload plan document into a mapping plan. Decoding is
// all-or-nothing.
func Decode(up UploadPlan) (MappingPlan, error) {
	if up.BaseTableName == "" {
		return MappingPlan{}, errNoBaseTable
	}

	d := &decoder{}
	if err := d.mappings(up.Relationships, nil); err != nil {
		return MappingPlan{}, err
	}

	tree, err := mapping.ArrayToTree(d.entries)
	if err != nil {
		return MappingPlan{}, err
	}

	return MappingPlan{BaseTable: up.BaseTableName, Tree: tree, MustMatch: d.mustMatch}, nil
}

// DecodeFor decodes an upload plan that is applied to a resource of
// resourceTable. A plan for another table is rejected with a
// *SchemaMismatchError before anything is decoded.
func DecodeFor(up UploadPlan, resourceTable string) (MappingPlan, error) {
	if !strings.EqualFold(up.BaseTableName, resourceTable) {
		return MappingPlan{}, &SchemaMismatchError{PlanTable: up.BaseTableName, ResourceTable: resourceTable}
	}

	return Decode(up)
}

type decoder struct {
	entries   []mapping.Entry
	mustMatch []mapping.Path
}

func (d *decoder) mappings(list []FieldMapping, prefix mapping.Path) error {
	for _, fm := range list {
		rel, err := mapping.FromTokens(fm.MappingPath)
		if err != nil {
			return err
		}

		path := prefix.Append(rel...)

		if fm.ToMany != nil {
			for i, group := range fm.ToMany {
				if err := d.mappings(group, path.Append(mapping.ToMany(i+1))); err != nil {
					return err
				}
			}

			continue
		}

		if fm.MappingType == MappingMustMatch {
			if err := mapping.ValidatePath(path); err != nil {
				return fmt.Errorf("must-match path: %w", err)
			}

			d.mustMatch = append(d.mustMatch, path)

			continue
		}

		kind, err := leafKind(fm.MappingType)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		d.entries = append(d.entries, mapping.Entry{
			Path: path,
			Leaf: mapping.Leaf{Kind: kind, Value: fm.ColumnInfo},
		})
	}

	return nil
}

// Marshal encodes p as upload plan JSON.
func Marshal(p MappingPlan) ([]byte, error) {
	up, err := Encode(p)
	if err != nil {
		return nil, err
	}

	return json.Marshal(up)
}

// Unmarshal decodes upload plan JSON in the current or the legacy format.
func Unmarshal(data []byte) (MappingPlan, error) {
	var head struct {
		BaseTableName string          `json:"baseTableName"`
		Uploadable    json.RawMessage `json:"uploadable"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return MappingPlan{}, fmt.Errorf("failed to parse upload plan: %w", err)
	}

	if len(head.Uploadable) > 0 {
		return decodeLegacy(data)
	}

	var up UploadPlan
	if err := json.Unmarshal(data, &up); err != nil {
		return MappingPlan{}, fmt.Errorf("failed to parse upload plan: %w", err)
	}

	return Decode(up)
}

// UnmarshalFor is Unmarshal with the base table check of DecodeFor, done
// before any mapping is decoded.
func UnmarshalFor(data []byte, resourceTable string) (MappingPlan, error) {
	var head struct {
		BaseTableName string `json:"baseTableName"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return MappingPlan{}, fmt.Errorf("failed to parse upload plan: %w", err)
	}

	if !strings.EqualFold(head.BaseTableName, resourceTable) {
		return MappingPlan{}, &SchemaMismatchError{PlanTable: head.BaseTableName, ResourceTable: resourceTable}
	}

	return Unmarshal(data)
}
