package mapping

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is matched by every path construction error.
	ErrInvalidPath = errors.New("invalid mapping path")
	// ErrDuplicatePath is returned when two leaves share the same full path.
	ErrDuplicatePath = errors.New("duplicate mapping path")
	// ErrUnknownField is returned when a path names a field the schema does not have.
	ErrUnknownField = errors.New("unknown field")
)

// MalformedPathError reports a path that cannot be parsed or serialized.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed mapping path %q: %s", e.Path, e.Reason)
}

func (e *MalformedPathError) Is(target error) bool {
	return target == ErrInvalidPath
}

// InvalidTokenError reports a to-many reference or tree rank token that
// cannot be decoded.
type InvalidTokenError struct {
	Token  string
	Reason string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid path token %q: %s", e.Token, e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidPath
}

// UnsupportedNestingError reports a to-many relationship inside another
// to-many relationship.
type UnsupportedNestingError struct {
	Path         string
	Relationship string
}

func (e *UnsupportedNestingError) Error() string {
	if e.Relationship == "" {
		return fmt.Sprintf("mapping path %q nests a to-many relationship inside another", e.Path)
	}

	return fmt.Sprintf("mapping path %q: to-many relationship %q is inside another to-many relationship",
		e.Path, e.Relationship)
}

func (e *UnsupportedNestingError) Is(target error) bool {
	return target == ErrInvalidPath
}
