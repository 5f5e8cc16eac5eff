package validation

import (
	"fmt"
	"slices"
	"unicode"
	"unicode/utf8"

	"workbench-mapper/internal/common"
	"workbench-mapper/internal/mapping"
)

// Issue texts for outcomes that carry no server message.
const (
	NoMatchMessage         = "No matching record for must-match table."
	MatchedMultipleMessage = "This value matches two or more existing database records and must be manually disambiguated before uploading."
)

// Interpreter turns row results into per-column annotations.
type Interpreter struct {
	// Columns are the dataset columns in physical order.
	Columns []string
	// Mappings are the mapped headers with their paths.
	Mappings []mapping.Entry
}

// NewInterpreter creates an interpreter for the headers mapped in tree.
// Static values are not columns and are left out.
func NewInterpreter(columns []string, tree *mapping.Tree) *Interpreter {
	in := &Interpreter{Columns: columns}

	for _, e := range mapping.TreeToArray(tree) {
		if e.Leaf.Kind == mapping.NewStaticColumn {
			continue
		}

		in.Mappings = append(in.Mappings, e)
	}

	return in
}

// RowReport is what one row result means for the cells of that row.
// Columns are physical column indexes.
type RowReport struct {
	Issues      map[int][]string
	New         map[int]bool
	Ambiguities []Candidate
}

func newRowReport() RowReport {
	return RowReport{Issues: map[int][]string{}, New: map[int]bool{}}
}

func (rep *RowReport) addIssue(columns []int, issue string) {
	issue = capitalize(issue)
	for _, col := range columns {
		rep.Issues[col] = append(rep.Issues[col], issue)
	}
}

// IsValid reports whether the row has no issues.
func (rep RowReport) IsValid() bool {
	return len(rep.Issues) == 0
}

// Interpret walks a row result. Relationships are visited in sorted order
// and to-many results get their #N reference. A nil result yields an
// empty report. An unknown record kind is an error.
func (in *Interpreter) Interpret(result *Result) (RowReport, error) {
	rep := newRowReport()

	if result == nil {
		return rep, nil
	}

	if err := in.interpret(result, nil, &rep); err != nil {
		return RowReport{}, err
	}

	return rep, nil
}

func (in *Interpreter) interpret(r *Result, prefix mapping.Path, rep *RowReport) error {
	rec := r.Record
	path := prefix

	var columns []string
	if rec.Info != nil {
		columns = rec.Info.Columns

		if rec.Info.TreeInfo != nil {
			path = prefix.Append(mapping.TreeRank(rec.Info.TreeInfo.Rank))
		}
	}

	switch rec.Kind {
	case NullRecord, PropagatedFailure, Matched:
	case ParseFailures:
		for _, f := range rec.Failures {
			rep.addIssue(in.resolveColumns([]string{f.Column}, path, true), f.Message)
		}
	case NoMatch:
		rep.addIssue(in.resolveColumns(columns, path, true), NoMatchMessage)
	case FailedBusinessRule:
		rep.addIssue(in.resolveColumns(columns, path, true), rec.Message)
	case MatchedMultiple:
		cols := in.resolveColumns(columns, path, true)
		rep.Ambiguities = append(rep.Ambiguities, Candidate{
			MappingPath: path,
			Columns:     cols,
			IDs:         slices.Clone(rec.IDs),
			Key:         rec.Key,
		})
		rep.addIssue(cols, MatchedMultipleMessage)
	case Uploaded:
		// "will create" marks only go where the server pointed
		for _, col := range in.resolveColumns(columns, path, false) {
			rep.New[col] = true
		}
	default:
		return fmt.Errorf("%w %s at %q", ErrUnknownRecordKind, rec.Kind, path.String())
	}

	for _, name := range common.SortedKeys(r.ToOne) {
		if sub := r.ToOne[name]; sub != nil {
			if err := in.interpret(sub, path.Append(mapping.Relationship(name)), rep); err != nil {
				return err
			}
		}
	}

	for _, name := range common.SortedKeys(r.ToMany) {
		for i, sub := range r.ToMany[name] {
			if sub == nil {
				continue
			}

			if err := in.interpret(sub, path.Append(mapping.Relationship(name), mapping.ToMany(i+1)), rep); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveColumns maps column names to physical indexes. Unless infer is
// false, an empty list falls back to the headers mapped under filter,
// then to every mapped header, then to every dataset column.
func (in *Interpreter) resolveColumns(initial []string, filter mapping.Path, infer bool) []int {
	columns := make([]string, 0, len(initial))
	for _, c := range initial {
		if c != "" {
			columns = append(columns, c)
		}
	}

	if infer && len(columns) == 0 {
		for _, e := range in.Mappings {
			if e.Path.HasPrefix(filter) {
				columns = append(columns, e.Leaf.Value)
			}
		}
	}

	if infer && len(columns) == 0 {
		for _, e := range in.Mappings {
			columns = append(columns, e.Leaf.Value)
		}
	}

	if infer && len(columns) == 0 {
		columns = in.Columns
	}

	var indexes []int

	for _, c := range columns {
		if i := slices.Index(in.Columns, c); i != -1 {
			indexes = append(indexes, i)
		}
	}

	return common.Unique(indexes)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
