// Package sink defines the write boundary a Pipeline dispatches batches
// through: either a typed parameterized INSERT or a JSON bulk-args POST.
// Both concrete paths live in subpackages so each only pulls in the
// dependency it actually needs (lib/pq vs net/http).
package sink

import (
	"context"
	"fmt"

	"rowsync/internal/value"
)

// ErrEmptyColumns signals a batch with zero columns, which neither
// dispatch path accepts.
var ErrEmptyColumns = fmt.Errorf("sink: batch has no columns")

// ErrRowArity signals a row whose length doesn't match the column count.
var ErrRowArity = fmt.Errorf("sink: row length does not match column count")

// Report accounts for one Write call: how many rows were written, and how
// many were flagged for carrying a non-bindable variant on the typed path
// (VecDyn/Object stringified as a last resort).
type Report struct {
	RowsWritten int
	Flagged     int
}

// Sink accepts column-aligned batches for one {schema}.{table} target and
// dispatches them through its configured write path.
type Sink interface {
	Write(ctx context.Context, schemaName, table string, columns []string, rows [][]value.Value) (Report, error)
	Close(ctx context.Context) error
}

// ValidateBatch enforces the shape invariant both dispatch paths require.
func ValidateBatch(columns []string, rows [][]value.Value) error {
	if len(columns) == 0 {
		return ErrEmptyColumns
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrRowArity, i, len(row), len(columns))
		}
	}
	return nil
}

// QualifiedTable joins schema and table with no quoting; identifiers are
// expected to be safe (the injection risk this implies is an open question,
// see DESIGN.md).
func QualifiedTable(schemaName, table string) string {
	return schemaName + "." + table
}
