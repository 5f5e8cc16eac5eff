package validation

import (
	"slices"
	"strings"

	"workbench-mapper/internal/common"
)

// Status is the validation state of a cell.
type Status int

const (
	StatusClean Status = iota
	StatusModified
	StatusValid
	StatusInvalid
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusModified:
		return "modified"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return common.UnknownStr
	}
}

// Annotation is a class the grid shows on a cell.
type Annotation string

const (
	AnnotationModified    Annotation = "modified"
	AnnotationNew         Annotation = "new"
	AnnotationInvalid     Annotation = "invalid"
	AnnotationSearchMatch Annotation = "search-match"
)

// CellState is the annotation state of one cell. Transitions return a new
// value and never modify the receiver.
type CellState struct {
	Status Status
	// Issues are set only in StatusInvalid.
	Issues []string
	// IsNew marks a cell whose value will create a new record.
	IsNew         bool
	IsSearchMatch bool
}

// Edit marks the cell as changed by the user. Issues from the last
// validation no longer apply.
func (c CellState) Edit() CellState {
	return CellState{Status: StatusModified, IsSearchMatch: c.IsSearchMatch}
}

// Validated applies a new validation result. The issue list replaces the
// previous one.
func (c CellState) Validated(issues []string, isNew bool) CellState {
	next := CellState{Status: StatusValid, IsNew: isNew, IsSearchMatch: c.IsSearchMatch}

	if len(issues) > 0 {
		next.Status = StatusInvalid
		next.Issues = slices.Clone(issues)
	}

	return next
}

// Reset drops every validation annotation.
func (c CellState) Reset() CellState {
	return CellState{IsSearchMatch: c.IsSearchMatch}
}

// Searched sets the search-match flag.
func (c CellState) Searched(match bool) CellState {
	c.Issues = slices.Clone(c.Issues)
	c.IsSearchMatch = match

	return c
}

// Annotations returns the classes of the cell in a fixed order. A clean
// cell has none.
func (c CellState) Annotations() []Annotation {
	var out []Annotation

	if c.Status == StatusModified {
		out = append(out, AnnotationModified)
	}

	if c.IsNew {
		out = append(out, AnnotationNew)
	}

	if c.Status == StatusInvalid {
		out = append(out, AnnotationInvalid)
	}

	if c.IsSearchMatch {
		out = append(out, AnnotationSearchMatch)
	}

	return out
}

// Comment is the tooltip text of the cell.
func (c CellState) Comment() string {
	return strings.Join(c.Issues, "\n")
}

// Equal compares two states.
func (c CellState) Equal(other CellState) bool {
	return c.Status == other.Status &&
		c.IsNew == other.IsNew &&
		c.IsSearchMatch == other.IsSearchMatch &&
		slices.Equal(c.Issues, other.Issues)
}

// EffectKind is the kind of grid update an effect asks for.
type EffectKind int

const (
	EffectAnnotate EffectKind = iota
	EffectComment
)

// String returns the effect kind name.
func (k EffectKind) String() string {
	switch k {
	case EffectAnnotate:
		return "annotate"
	case EffectComment:
		return "comment"
	default:
		return common.UnknownStr
	}
}

// Effect is a grid update needed to show a state change.
type Effect struct {
	Row, Col int
	Kind     EffectKind
	// Annotations is the full class list for EffectAnnotate.
	Annotations []Annotation
	// Comment is the tooltip for EffectComment.
	Comment string
}

// Diff returns the grid updates that turn before into after. Equal
// states need none.
func Diff(row, col int, before, after CellState) []Effect {
	var effects []Effect

	if ba, aa := before.Annotations(), after.Annotations(); !slices.Equal(ba, aa) {
		effects = append(effects, Effect{Row: row, Col: col, Kind: EffectAnnotate, Annotations: aa})
	}

	if bc, ac := before.Comment(), after.Comment(); bc != ac {
		effects = append(effects, Effect{Row: row, Col: col, Kind: EffectComment, Comment: ac})
	}

	return effects
}
