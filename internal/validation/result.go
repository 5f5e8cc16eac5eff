package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"workbench-mapper/internal/common"
)

// Result is the upload outcome of one row, mirroring the nesting of the
// upload plan: the base record plus the results of its to-one and to-many
// relationships.
type Result struct {
	Record RecordResult
	ToOne  map[string]*Result
	ToMany map[string][]*Result
}

// RecordResult is the outcome for a single record.
type RecordResult struct {
	Kind RecordKind
	// ID is set for Matched and Uploaded.
	ID int
	// IDs and Key are set for MatchedMultiple. Results sharing a key
	// matched the same set of records.
	IDs []int
	Key string
	// Message and Payload are set for FailedBusinessRule.
	Message string
	Payload map[string]any
	// Failures are set for ParseFailures.
	Failures          []ParseFailure
	PicklistAdditions []PicklistAddition
	Info              *ReportInfo
}

// ParseFailure is a value that could not be parsed.
type ParseFailure struct {
	Column  string
	Message string
}

// UnmarshalJSON accepts both the pair form ["column", "message"] and the
// object form {"column": ..., "message": ...}.
func (p *ParseFailure) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("parse failure must be a [column, message] pair, got %d items", len(pair))
		}

		p.Column, p.Message = pair[0], pair[1]

		return nil
	}

	var obj struct {
		Column  string `json:"column"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("failed to decode parse failure: %w", err)
	}

	p.Column, p.Message = obj.Column, obj.Message

	return nil
}

// PicklistAddition is a pick list item created by an upload.
type PicklistAddition struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Value   string `json:"value"`
}

// ReportInfo tells which table and columns a record result concerns.
type ReportInfo struct {
	TableName string    `json:"tableName"`
	Columns   []string  `json:"columns"`
	TreeInfo  *TreeInfo `json:"treeInfo"`
}

// TreeInfo is set for records of tree tables.
type TreeInfo struct {
	Rank string `json:"rank"`
	Name string `json:"name"`
}

type wireResult struct {
	UploadResult *wireUpload `json:"UploadResult"`
}

type wireUpload struct {
	RecordResult map[string]json.RawMessage `json:"record_result"`
	ToOne        map[string]*Result         `json:"toOne"`
	ToMany       map[string][]*Result       `json:"toMany"`
}

type wireRecord struct {
	ID                int                `json:"id"`
	IDs               []int              `json:"ids"`
	Key               string             `json:"key"`
	Message           string             `json:"message"`
	Payload           map[string]any     `json:"payload"`
	Failures          []ParseFailure     `json:"failures"`
	PicklistAdditions []PicklistAddition `json:"picklistAdditions"`
	Info              *ReportInfo        `json:"info"`
}

var errNoUploadResult = errors.New(`result has no "UploadResult"`)

// UnmarshalJSON decodes the server form
// {"UploadResult": {"record_result": {"<Kind>": {...}}, "toOne": {...}, "toMany": {...}}}.
// A record kind this client does not know yields ErrUnknownRecordKind.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.UploadResult == nil {
		return errNoUploadResult
	}

	if len(w.UploadResult.RecordResult) != 1 {
		return fmt.Errorf("record_result must hold exactly one outcome, got %d", len(w.UploadResult.RecordResult))
	}

	for name, raw := range w.UploadResult.RecordResult {
		kind, err := ParseRecordKind(name)
		if err != nil {
			return err
		}

		var rec wireRecord
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("failed to decode %s: %w", name, err)
			}
		}

		r.Record = RecordResult{
			Kind:              kind,
			ID:                rec.ID,
			IDs:               rec.IDs,
			Key:               rec.Key,
			Message:           rec.Message,
			Payload:           rec.Payload,
			Failures:          rec.Failures,
			PicklistAdditions: rec.PicklistAdditions,
			Info:              rec.Info,
		}
	}

	r.ToOne = w.UploadResult.ToOne
	r.ToMany = w.UploadResult.ToMany

	return nil
}

// DecodeResult decodes one row result.
func DecodeResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode row result: %w", err)
	}

	return &r, nil
}

// DecodeRowResponse decodes the reply of a row validation call,
// {"result": <row result or null>}. A null result yields nil.
func DecodeRowResponse(data []byte) (*Result, error) {
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode row response: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}

	return DecodeResult(resp.Result)
}

// Walk calls fn for every result in the tree, parents first. Relationship
// names are visited in sorted order.
func (r *Result) Walk(fn func(*Result)) {
	if r == nil {
		return
	}

	fn(r)

	for _, name := range common.SortedKeys(r.ToOne) {
		r.ToOne[name].Walk(fn)
	}

	for _, name := range common.SortedKeys(r.ToMany) {
		for _, sub := range r.ToMany[name] {
			sub.Walk(fn)
		}
	}
}

// HasFailures reports whether any record in the tree failed.
func (r *Result) HasFailures() bool {
	failed := false

	r.Walk(func(sub *Result) {
		failed = failed || sub.Record.Kind.IsFailure()
	})

	return failed
}
