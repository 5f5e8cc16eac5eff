package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"workbench-mapper/internal/common"
	"workbench-mapper/internal/mapping"
)

// legacyPlan is the upload plan format of the upload server:
//
//	{"baseTableName": "collectionobject", "uploadable": {"uploadTable": {
//	  "wbcols": {"catalognumber": "Cat #"},
//	  "static": {"text1": "x"},
//	  "toOne": {"cataloger": {"uploadTable": {...}}},
//	  "toMany": {"determinations": [{"wbcols": {...}, "toOne": {...}}]}
//	}}}
type legacyPlan struct {
	BaseTableName string           `json:"baseTableName"`
	Uploadable    legacyUploadable `json:"uploadable"`
}

type legacyUploadable struct {
	UploadTable         *legacyTable `json:"uploadTable,omitempty"`
	OneToOneTable       *legacyTable `json:"oneToOneTable,omitempty"`
	MustMatchTable      *legacyTable `json:"mustMatchTable,omitempty"`
	TreeRecord          *legacyTree  `json:"treeRecord,omitempty"`
	MustMatchTreeRecord *legacyTree  `json:"mustMatchTreeRecord,omitempty"`
}

type legacyTable struct {
	WBCols map[string]legacyColumn     `json:"wbcols"`
	Static map[string]any              `json:"static"`
	ToOne  map[string]legacyUploadable `json:"toOne"`
	ToMany map[string][]legacyTable    `json:"toMany"`
}

type legacyTree struct {
	Ranks map[string]legacyRank `json:"ranks"`
}

// legacyColumn is a header name, or an object with a "column" key in
// plans that carry match options.
type legacyColumn struct {
	Column string `json:"column"`
}

func (c *legacyColumn) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Column = name
		return nil
	}

	type plain legacyColumn

	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("column must be a string or an object: %w", err)
	}

	*c = legacyColumn(obj)

	return nil
}

// legacyRank is the header of the rank name, or an object mapping tree
// node fields to headers.
type legacyRank struct {
	TreeNodeCols map[string]legacyColumn `json:"treeNodeCols"`
}

func (r *legacyRank) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		r.TreeNodeCols = map[string]legacyColumn{"name": {Column: name}}
		return nil
	}

	type plain legacyRank

	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("rank must be a string or an object: %w", err)
	}

	*r = legacyRank(obj)

	return nil
}

var errEmptyUploadable = errors.New("uploadable has no table or tree record")

func decodeLegacy(data []byte) (MappingPlan, error) {
	var lp legacyPlan
	if err := json.Unmarshal(data, &lp); err != nil {
		return MappingPlan{}, fmt.Errorf("failed to parse legacy upload plan: %w", err)
	}

	if lp.BaseTableName == "" {
		return MappingPlan{}, errNoBaseTable
	}

	d := &decoder{}
	if err := d.legacyUploadable(lp.Uploadable, nil); err != nil {
		return MappingPlan{}, fmt.Errorf("legacy upload plan: %w", err)
	}

	tree, err := mapping.ArrayToTree(d.entries)
	if err != nil {
		return MappingPlan{}, fmt.Errorf("legacy upload plan: %w", err)
	}

	return MappingPlan{BaseTable: lp.BaseTableName, Tree: tree, MustMatch: d.mustMatch}, nil
}

func (d *decoder) legacyUploadable(u legacyUploadable, prefix mapping.Path) error {
	switch {
	case u.UploadTable != nil:
		return d.legacyTable(*u.UploadTable, prefix)
	case u.OneToOneTable != nil:
		return d.legacyTable(*u.OneToOneTable, prefix)
	case u.MustMatchTable != nil:
		d.markMustMatch(prefix)
		return d.legacyTable(*u.MustMatchTable, prefix)
	case u.TreeRecord != nil:
		return d.legacyTree(*u.TreeRecord, prefix)
	case u.MustMatchTreeRecord != nil:
		d.markMustMatch(prefix)
		return d.legacyTree(*u.MustMatchTreeRecord, prefix)
	default:
		return fmt.Errorf("%s: %w", prefix, errEmptyUploadable)
	}
}

// markMustMatch records prefix as must-match. The base table itself is
// never looked up.
func (d *decoder) markMustMatch(prefix mapping.Path) {
	if len(prefix) > 0 {
		d.mustMatch = append(d.mustMatch, prefix.Canonical())
	}
}

func (d *decoder) legacyTable(t legacyTable, prefix mapping.Path) error {
	for _, field := range common.SortedKeys(t.WBCols) {
		d.entries = append(d.entries, mapping.Entry{
			Path: prefix.Append(mapping.Field(field)),
			Leaf: mapping.Leaf{Kind: mapping.ExistingHeader, Value: t.WBCols[field].Column},
		})
	}

	for _, field := range common.SortedKeys(t.Static) {
		d.entries = append(d.entries, mapping.Entry{
			Path: prefix.Append(mapping.Field(field)),
			Leaf: mapping.Leaf{Kind: mapping.NewStaticColumn, Value: staticValue(t.Static[field])},
		})
	}

	for _, rel := range common.SortedKeys(t.ToOne) {
		if err := d.legacyUploadable(t.ToOne[rel], prefix.Append(mapping.Field(rel))); err != nil {
			return err
		}
	}

	for _, rel := range common.SortedKeys(t.ToMany) {
		for i, record := range t.ToMany[rel] {
			if err := d.legacyTable(record, prefix.Append(mapping.Field(rel), mapping.ToMany(i+1))); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *decoder) legacyTree(t legacyTree, prefix mapping.Path) error {
	for _, rank := range common.SortedKeys(t.Ranks) {
		cols := t.Ranks[rank].TreeNodeCols
		for _, field := range common.SortedKeys(cols) {
			d.entries = append(d.entries, mapping.Entry{
				Path: prefix.Append(mapping.TreeRank(rank), mapping.Field(field)),
				Leaf: mapping.Leaf{Kind: mapping.ExistingHeader, Value: cols[field].Column},
			})
		}
	}

	return nil
}

func staticValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
