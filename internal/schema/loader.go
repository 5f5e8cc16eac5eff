package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a schema graph.
//
//	version: "2024-01"
//	tables:
//	  - name: collectionobject
//	    label: Collection Object
//	    common: true
//	    fields:
//	      - name: catalogNumber
//	        required: true
//	      - name: cataloger
//	        table: agent
//	        type: many-to-one
//	ranks:
//	  taxon:
//	    - name: Kingdom
//	      required: true
//	    - name: Species
type File struct {
	Version string            `yaml:"version,omitempty"`
	Tables  []TableDef        `yaml:"tables"`
	Ranks   map[string][]Rank `yaml:"ranks,omitempty"`
}

// TableDef is the YAML form of a table.
type TableDef struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label,omitempty"`
	// Base defaults to true.
	Base   *bool      `yaml:"base,omitempty"`
	Common bool       `yaml:"common,omitempty"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef is the YAML form of a field. A field with a table is a relationship.
type FieldDef struct {
	Name     string    `yaml:"name"`
	Label    string    `yaml:"label,omitempty"`
	Required bool      `yaml:"required,omitempty"`
	Hidden   bool      `yaml:"hidden,omitempty"`
	Table    string    `yaml:"table,omitempty"`
	Type     string    `yaml:"type,omitempty"`
	Foreign  string    `yaml:"foreign,omitempty"`
	PickList *PickList `yaml:"picklist,omitempty"`
}

// LoadFile loads and builds a schema graph from a YAML file.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a Graph.
func Parse(data []byte) (*Graph, error) {
	var f File

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	return f.Build()
}

// Build converts the YAML form into a normalized Graph.
func (f *File) Build() (*Graph, error) {
	tables := make([]Table, 0, len(f.Tables))

	for _, td := range f.Tables {
		t := Table{
			Name:        td.Name,
			Label:       td.Label,
			IsBaseTable: td.Base == nil || *td.Base,
			IsCommon:    td.Common,
		}

		for _, fd := range td.Fields {
			field := Field{
				Name:           fd.Name,
				Label:          fd.Label,
				IsRequired:     fd.Required,
				IsHidden:       fd.Hidden,
				IsRelationship: fd.Table != "",
				RelatedTable:   fd.Table,
				ForeignName:    fd.Foreign,
				PickList:       fd.PickList,
			}

			if field.IsRelationship {
				kind, err := ParseRelationshipKind(fd.Type)
				if err != nil {
					return nil, fmt.Errorf("field %s.%s: %w", td.Name, fd.Name, err)
				}

				field.Kind = kind
			}

			t.Fields = append(t.Fields, field)
		}

		tables = append(tables, t)
	}

	return NewGraph(f.Version, tables, f.Ranks)
}
