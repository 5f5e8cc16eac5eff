package automap

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"workbench-mapper/internal/common"
	"workbench-mapper/internal/match"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

// Synonyms maps a table name to a field name to alternative header phrases.
// Keys are lower case and phrases are collapsed with match.CollapseSpace.
type Synonyms map[string]map[string][]string

// ParseSynonyms parses a synonym table from YAML.
func ParseSynonyms(data []byte) (Synonyms, error) {
	var raw map[string]map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms: %w", err)
	}

	s := Synonyms{}

	for table, fields := range raw {
		for field, phrases := range fields {
			for _, p := range phrases {
				s.add(table, field, p)
			}
		}
	}

	return s, nil
}

// LoadSynonyms reads a synonym table from a YAML file.
func LoadSynonyms(path string) (Synonyms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonyms file: %w", err)
	}

	return ParseSynonyms(data)
}

// DefaultSynonyms returns the built-in synonym table.
func DefaultSynonyms() Synonyms {
	s, err := ParseSynonyms(defaultSynonymsYAML)
	if err != nil {
		panic(err)
	}

	return s
}

// Lookup returns the phrases of a field.
func (s Synonyms) Lookup(table, field string) []string {
	return s[strings.ToLower(table)][strings.ToLower(field)]
}

// Merge returns a new table with the phrases of both tables.
func (s Synonyms) Merge(other Synonyms) Synonyms {
	out := Synonyms{}

	for _, src := range []Synonyms{s, other} {
		for _, table := range common.SortedKeys(src) {
			for _, field := range common.SortedKeys(src[table]) {
				for _, p := range src[table][field] {
					out.add(table, field, p)
				}
			}
		}
	}

	return out
}

func (s Synonyms) add(table, field, phrase string) {
	phrase = match.CollapseSpace(phrase)
	if phrase == "" {
		return
	}

	table, field = strings.ToLower(table), strings.ToLower(field)

	if s[table] == nil {
		s[table] = map[string][]string{}
	}

	for _, p := range s[table][field] {
		if p == phrase {
			return
		}
	}

	s[table][field] = append(s[table][field], phrase)
}
