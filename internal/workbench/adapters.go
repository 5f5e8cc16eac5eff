package workbench

import (
	"context"
	"encoding/json"
	"fmt"

	"workbench-mapper/internal/scheduler"
	"workbench-mapper/internal/validation"
)

// Grid is the spreadsheet the session works on. Rows are physical row IDs
// that stay stable while rows are added or removed. Columns 0..n-1 hold the
// dataset columns; column n holds the hidden row payload.
type Grid interface {
	// Columns returns the dataset headers in physical order.
	Columns() []string
	// Rows returns the physical rows in display order.
	Rows() []int
	Value(row, col int) string
	SetValue(row, col int, value string)
	SetAnnotations(row, col int, annotations []validation.Annotation)
	SetComment(row, col int, comment string)
}

// Record is an existing database record offered for disambiguation.
type Record struct {
	ID    int
	Label string
}

// RecordLookup fetches records of a table by ID in one call.
type RecordLookup interface {
	LookupRecords(ctx context.Context, table string, ids []int) ([]Record, error)
}

// RecordLookupFunc adapts a function to RecordLookup.
type RecordLookupFunc func(ctx context.Context, table string, ids []int) ([]Record, error)

func (f RecordLookupFunc) LookupRecords(ctx context.Context, table string, ids []int) ([]Record, error) {
	return f(ctx, table, ids)
}

// Transport sends an encoded row to the validation endpoint and returns the
// response body.
type Transport interface {
	PostRow(ctx context.Context, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, body []byte) ([]byte, error)

func (f TransportFunc) PostRow(ctx context.Context, body []byte) ([]byte, error) {
	return f(ctx, body)
}

// NewRowValidator returns a validator that posts rows as JSON arrays and
// decodes the {"result": ...} responses.
func NewRowValidator(t Transport) scheduler.Validator {
	return scheduler.ValidatorFunc(func(ctx context.Context, row int, values []string) (*validation.Result, error) {
		body, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row %d: %w", row, err)
		}

		resp, err := t.PostRow(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("failed to validate row %d: %w", row, err)
		}

		result, err := validation.DecodeRowResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to decode result of row %d: %w", row, err)
		}

		return result, nil
	})
}
