package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"workbench-mapper/internal/common"
)

const (
	// JoinSymbol separates steps in the string form of a path.
	JoinSymbol = "."
	// ToManySymbol prefixes to-many reference tokens ("#1").
	ToManySymbol = "#"
	// TreeSymbol prefixes tree rank tokens ("$Species").
	TreeSymbol = "$"

	escapeSymbol = '\\'
)

// StepKind is the kind of a path step.
type StepKind int

const (
	StepField StepKind = iota
	StepRelationship
	StepToMany
	StepTreeRank
)

func (k StepKind) String() string {
	switch k {
	case StepField:
		return "field"
	case StepRelationship:
		return "relationship"
	case StepToMany:
		return "to-many"
	case StepTreeRank:
		return "tree-rank"
	default:
		return common.UnknownStr
	}
}

// Step is one element of a mapping path.
type Step struct {
	Kind StepKind
	// Name is the field, relationship or rank name.
	Name string
	// Index is the 1-based instance number of a to-many reference.
	Index int
}

// Field returns a field step.
func Field(name string) Step { return Step{Kind: StepField, Name: name} }

// Relationship returns a relationship step.
func Relationship(name string) Step { return Step{Kind: StepRelationship, Name: name} }

// ToMany returns a to-many reference step.
func ToMany(index int) Step { return Step{Kind: StepToMany, Index: index} }

// TreeRank returns a tree rank step.
func TreeRank(name string) Step { return Step{Kind: StepTreeRank, Name: name} }

// IsToken returns true for to-many references and tree ranks.
func (s Step) IsToken() bool {
	return s.Kind == StepToMany || s.Kind == StepTreeRank
}

// Token returns the unescaped string form of the step, which is also its
// key in a Tree.
func (s Step) Token() string {
	switch s.Kind {
	case StepToMany:
		return FormatToManyReference(s.Index)
	case StepTreeRank:
		return FormatTreeRank(s.Name)
	default:
		return s.Name
	}
}

func (s Step) String() string {
	return s.Token()
}

// stepFromToken classifies a single unescaped token. Named steps are
// returned as fields; Canonical fixes their kind by position.
func stepFromToken(token string) (Step, error) {
	switch {
	case IsToManyReference(token):
		n, err := ParseToManyReferenceIndex(token)
		if err != nil {
			return Step{}, err
		}

		return ToMany(n), nil
	case IsTreeRankToken(token):
		name := ParseTreeRankName(token)
		if name == "" {
			return Step{}, &InvalidTokenError{Token: token, Reason: "empty rank name"}
		}

		return TreeRank(name), nil
	default:
		return Field(token), nil
	}
}

// Path is an ordered sequence of steps locating a column within the schema.
type Path []Step

// Canonical returns a copy of p where every named step that is followed by
// another step is a relationship and the final named step is a field.
func (p Path) Canonical() Path {
	out := make(Path, len(p))
	copy(out, p)

	for i := range out {
		if out[i].IsToken() {
			continue
		}

		if i < len(out)-1 {
			out[i].Kind = StepRelationship
		} else {
			out[i].Kind = StepField
		}
	}

	return out
}

// Append returns a new canonical path with steps added.
func (p Path) Append(steps ...Step) Path {
	out := make(Path, 0, len(p)+len(steps))
	out = append(out, p...)
	out = append(out, steps...)

	return out.Canonical()
}

// LastName returns the name of the last named step, skipping trailing
// tokens. It is empty for a path without named steps.
func (p Path) LastName() string {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].IsToken() {
			return p[i].Name
		}
	}

	return ""
}

// Tokens returns the unescaped token of every step.
func (p Path) Tokens() []string {
	tokens := make([]string, len(p))
	for i, s := range p {
		tokens[i] = s.Token()
	}

	return tokens
}

// Equal compares two paths step by step. Field and relationship steps with
// the same name are equal.
func (p Path) Equal(other Path) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// HasPrefix returns true if prefix is a leading part of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}

	for i := range prefix {
		if p[i].Token() != prefix[i].Token() {
			return false
		}
	}

	return true
}

// Last returns the final step, or a zero Step for an empty path.
func (p Path) Last() Step {
	if len(p) == 0 {
		return Step{}
	}

	return p[len(p)-1]
}

// String returns the serialized path. Paths that cannot be serialized are
// rendered as their raw tokens.
func (p Path) String() string {
	s, err := PathToString(p)
	if err != nil {
		return fmt.Sprint(p.Tokens())
	}

	return s
}

// PathToString serializes a path, escaping the join symbol in names.
func PathToString(p Path) (string, error) {
	if len(p) == 0 {
		return "", &MalformedPathError{Reason: "empty path"}
	}

	parts := make([]string, len(p))

	for i, s := range p {
		token := s.Token()

		switch {
		case s.IsToken() && strings.Contains(token, JoinSymbol):
			return "", &MalformedPathError{
				Path:   strings.Join(p.Tokens(), JoinSymbol),
				Reason: fmt.Sprintf("token %q contains the join symbol", token),
			}
		case s.Kind == StepToMany && s.Index < 1:
			return "", &InvalidTokenError{Token: token, Reason: "index must be at least 1"}
		case !s.IsToken() && s.Name == "":
			return "", &MalformedPathError{Path: strings.Join(p.Tokens(), JoinSymbol), Reason: "empty step"}
		case !s.IsToken() && isTokenLike(s.Name):
			return "", &MalformedPathError{
				Path:   strings.Join(p.Tokens(), JoinSymbol),
				Reason: fmt.Sprintf("name %q starts with a token symbol", s.Name),
			}
		}

		if s.IsToken() {
			parts[i] = token
		} else {
			parts[i] = escapeName(token)
		}
	}

	return strings.Join(parts, JoinSymbol), nil
}

// ParsePath parses a serialized path. Token placement and nesting are
// checked, but the path may end in a token, as record paths do.
func ParsePath(s string) (Path, error) {
	segments, err := splitEscaped(s)
	if err != nil {
		return nil, err
	}

	path := make(Path, 0, len(segments))

	for _, seg := range segments {
		if seg.text == "" {
			return nil, &MalformedPathError{Path: s, Reason: "empty step"}
		}

		if seg.literal {
			path = append(path, Field(seg.text))
			continue
		}

		step, err := stepFromToken(seg.text)
		if err != nil {
			return nil, err
		}

		path = append(path, step)
	}

	path = path.Canonical()
	if err := checkSteps(path); err != nil {
		return nil, err
	}

	return path, nil
}

// FromTokens builds a canonical path from unescaped tokens, as stored in
// upload plans.
func FromTokens(tokens []string) (Path, error) {
	path := make(Path, 0, len(tokens))

	for _, token := range tokens {
		if token == "" {
			return nil, &MalformedPathError{Path: strings.Join(tokens, JoinSymbol), Reason: "empty step"}
		}

		step, err := stepFromToken(token)
		if err != nil {
			return nil, err
		}

		path = append(path, step)
	}

	path = path.Canonical()
	if err := checkSteps(path); err != nil {
		return nil, err
	}

	return path, nil
}

// ValidatePath checks that p can address a leaf: it must be non-empty,
// tokens must follow the step they qualify, it must end with a named step
// and it may contain at most one to-many reference.
func ValidatePath(p Path) error {
	if err := checkSteps(p); err != nil {
		return err
	}

	if p.Last().IsToken() {
		return &MalformedPathError{Path: p.String(), Reason: "path ends with a token"}
	}

	return nil
}

func checkSteps(p Path) error {
	if len(p) == 0 {
		return &MalformedPathError{Reason: "empty path"}
	}

	toMany := 0

	for i, s := range p {
		var prev *Step
		if i > 0 {
			prev = &p[i-1]
		}

		switch s.Kind {
		case StepToMany:
			if s.Index < 1 {
				return &InvalidTokenError{Token: s.Token(), Reason: "index must be at least 1"}
			}

			if prev == nil || prev.IsToken() {
				return &MalformedPathError{
					Path:   p.String(),
					Reason: fmt.Sprintf("%s must follow a relationship", s.Token()),
				}
			}

			toMany++
			if toMany > 1 {
				return &UnsupportedNestingError{Path: p.String()}
			}
		case StepTreeRank:
			if s.Name == "" {
				return &InvalidTokenError{Token: s.Token(), Reason: "empty rank name"}
			}

			if strings.Contains(s.Name, JoinSymbol) {
				return &MalformedPathError{
					Path:   strings.Join(p.Tokens(), JoinSymbol),
					Reason: fmt.Sprintf("token %q contains the join symbol", s.Token()),
				}
			}

			if prev != nil && prev.Kind == StepTreeRank {
				return &MalformedPathError{
					Path:   p.String(),
					Reason: fmt.Sprintf("%s follows another tree rank", s.Token()),
				}
			}
		default:
			if s.Name == "" {
				return &MalformedPathError{Path: p.String(), Reason: "empty step"}
			}

			if isTokenLike(s.Name) {
				return &MalformedPathError{
					Path:   p.String(),
					Reason: fmt.Sprintf("name %q starts with a token symbol", s.Name),
				}
			}
		}
	}

	return nil
}

// isTokenLike reports whether a name would read back as a token. Tree keys
// and upload plans store names unescaped, so such names are not allowed.
func isTokenLike(name string) bool {
	return IsToManyReference(name) || IsTreeRankToken(name)
}

// IsToManyReference returns true if s looks like a to-many reference ("#2").
func IsToManyReference(s string) bool {
	return strings.HasPrefix(s, ToManySymbol)
}

// IsTreeRankToken returns true if s looks like a tree rank token ("$Genus").
func IsTreeRankToken(s string) bool {
	return strings.HasPrefix(s, TreeSymbol)
}

// FormatToManyReference returns the token for the n-th to-many instance.
func FormatToManyReference(n int) string {
	return ToManySymbol + strconv.Itoa(n)
}

// ParseToManyReferenceIndex returns N of a "#N" token.
func ParseToManyReferenceIndex(s string) (int, error) {
	if !IsToManyReference(s) {
		return 0, &InvalidTokenError{Token: s, Reason: "not a to-many reference"}
	}

	digits := strings.TrimPrefix(s, ToManySymbol)
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, &InvalidTokenError{Token: s, Reason: "index is not numeric"}
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &InvalidTokenError{Token: s, Reason: "index is not numeric"}
	}

	if n < 1 {
		return 0, &InvalidTokenError{Token: s, Reason: "index must be at least 1"}
	}

	return n, nil
}

// FormatTreeRank returns the token for a tree rank.
func FormatTreeRank(name string) string {
	return TreeSymbol + name
}

// ParseTreeRankName returns the rank name of a "$Rank" token. Other strings
// are returned unchanged.
func ParseTreeRankName(s string) string {
	return strings.TrimPrefix(s, TreeSymbol)
}

// MaxToManyIndex returns the highest N among "#N" keys, or 0.
func MaxToManyIndex(keys []string) int {
	highest := 0

	for _, k := range keys {
		if n, err := ParseToManyReferenceIndex(k); err == nil {
			highest = max(highest, n)
		}
	}

	return highest
}

// DivergencePoint returns the index of the first step where source and
// search differ. It returns 0 for an empty search, -1 when source is empty
// or shorter than search, and len(search)-1 when search is a prefix of source.
func DivergencePoint(source, search Path) int {
	if len(search) == 0 {
		return 0
	}

	if len(source) == 0 || len(source) < len(search) {
		return -1
	}

	for i := range search {
		if source[i].Token() != search[i].Token() {
			return i
		}
	}

	return len(search) - 1
}

type segment struct {
	text string
	// literal is set when the first character was escaped, so the segment
	// is a name even if it looks like a token.
	literal bool
}

func escapeName(name string) string {
	var b strings.Builder

	for _, r := range name {
		if r == escapeSymbol || string(r) == JoinSymbol {
			b.WriteRune(escapeSymbol)
		}

		b.WriteRune(r)
	}

	return b.String()
}

func splitEscaped(s string) ([]segment, error) {
	if s == "" {
		return nil, &MalformedPathError{Path: s, Reason: "empty path"}
	}

	var (
		segments []segment
		current  strings.Builder
		literal  bool
		escaped  bool
	)

	for _, r := range s {
		switch {
		case escaped:
			if current.Len() == 0 {
				literal = true
			}

			current.WriteRune(r)

			escaped = false
		case r == escapeSymbol:
			escaped = true
		case string(r) == JoinSymbol:
			segments = append(segments, segment{text: current.String(), literal: literal})
			current.Reset()

			literal = false
		default:
			current.WriteRune(r)
		}
	}

	if escaped {
		return nil, &MalformedPathError{Path: s, Reason: "dangling escape"}
	}

	segments = append(segments, segment{text: current.String(), literal: literal})

	return segments, nil
}
