package validation

import (
	"errors"
	"fmt"
)

//go:generate go tool stringer -type=RecordKind -output=record_kind_string.go

// RecordKind is the outcome of uploading (or validating) one record.
type RecordKind int

const (
	_ RecordKind = iota // zero value is not a valid outcome

	NullRecord
	Matched
	MatchedMultiple
	Uploaded
	NoMatch
	ParseFailures
	FailedBusinessRule
	PropagatedFailure
)

// ErrUnknownRecordKind is returned for a record_result key this client
// does not understand. It means client and server disagree on the protocol.
var ErrUnknownRecordKind = errors.New("unknown record result kind")

var recordKinds = map[string]RecordKind{
	NullRecord.String():         NullRecord,
	Matched.String():            Matched,
	MatchedMultiple.String():    MatchedMultiple,
	Uploaded.String():           Uploaded,
	NoMatch.String():            NoMatch,
	ParseFailures.String():      ParseFailures,
	FailedBusinessRule.String(): FailedBusinessRule,
	PropagatedFailure.String():  PropagatedFailure,
}

// ParseRecordKind parses the wire name of a record kind, e.g. "MatchedMultiple".
func ParseRecordKind(s string) (RecordKind, error) {
	k, ok := recordKinds[s]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownRecordKind, s)
	}

	return k, nil
}

// IsFailure returns true for outcomes that block the upload of the row.
func (k RecordKind) IsFailure() bool {
	switch k {
	case MatchedMultiple, NoMatch, ParseFailures, FailedBusinessRule, PropagatedFailure:
		return true
	default:
		return false
	}
}
