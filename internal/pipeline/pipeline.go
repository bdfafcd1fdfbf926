// Package pipeline drives one (source_table -> sink_table) migration: the
// batching loop that couples a source.RowCursor to a sink.Sink, flushing on
// either a size threshold or a column-shape change.
package pipeline

import (
	"context"
	"fmt"

	"rowsync/internal/frame"
	"rowsync/internal/reconcile"
	"rowsync/internal/schema"
	"rowsync/internal/sink"
	"rowsync/internal/source"
	"rowsync/internal/value"
)

// DefaultBatchSize is the fallback flush threshold when Config.BatchSize is
// left at zero.
const DefaultBatchSize = 5000

// Config parameterizes one pipeline run.
type Config struct {
	SourceDB     string
	SourceTable  string
	SinkSchema   string
	SinkTable    string
	Ignored      map[string]bool
	Schema       *schema.Schema // nil disables reconciliation
	BatchSize    int
	Reconcile    bool
}

// Report totals one pipeline run's outcome.
type Report struct {
	RowsRead    int
	BatchesSent int
	RowsWritten int
	Flagged     int
}

// Pipeline couples a source cursor to a sink across a batching state
// machine: Open -> Accumulating -> Flushing -> ... -> Draining -> Closed.
type Pipeline struct {
	cur    source.RowCursor
	sk     sink.Sink
	cfg    Config
}

// Open begins a pipeline over an already-open cursor and sink.
func Open(cur source.RowCursor, sk sink.Sink, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Pipeline{cur: cur, sk: sk, cfg: cfg}
}

// namedRow adapts a slice of frame.NamedValue (already produced by a
// source.RowCursor) to frame.RowSource for reuse inside Frame/Reconciler.
type namedRow []frame.NamedValue

func (r namedRow) Fields() []frame.NamedValue { return r }

// Run drives the state machine: accumulate rows into a column-aligned
// buffer, flush on shape change or size threshold, translate through the
// reconciler when configured, and dispatch each flush through the sink.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	buffer := make([]frame.RowSource, 0, p.cfg.BatchSize)
	var columns []string
	var lastColumns []string
	batchColCount := -1 // ⊥

	flush := func(cols []string) error {
		if len(buffer) == 0 {
			return nil
		}
		f, err := frame.FromRows(buffer, p.cfg.Schema)
		if err != nil {
			return fmt.Errorf("pipeline: build frame: %w", err)
		}

		outNames := cols
		if p.cfg.Reconcile && p.cfg.Schema != nil {
			if err := reconcile.Reconcile(f, p.cfg.Schema); err != nil {
				return fmt.Errorf("pipeline: reconcile: %w", err)
			}
			reconcile.RightPad(f)
			// Reconciliation may have synthesized sibling columns; they
			// trail the discovered columns in frame order and must ship
			// with the batch.
			outNames = f.ColumnNames()
		}

		outCols, rows := materialize(f, outNames)
		rep, err := p.sk.Write(ctx, p.cfg.SinkSchema, p.cfg.SinkTable, outCols, rows)
		if err != nil {
			return fmt.Errorf("pipeline: write batch: %w", err)
		}

		report.BatchesSent++
		report.RowsWritten += rep.RowsWritten
		report.Flagged += rep.Flagged
		buffer = buffer[:0]
		return nil
	}

	for {
		r, ok, err := p.cur.Next(ctx)
		if err != nil {
			return report, fmt.Errorf("pipeline: cursor: %w", err)
		}
		if !ok {
			break
		}
		report.RowsRead++

		names := fieldNames(r)
		arity := len(names)

		if batchColCount == -1 {
			batchColCount = arity
		}
		shapeChanged := arity != batchColCount

		if len(columns) == 0 {
			columns = names
		}
		if shapeChanged || len(lastColumns) == 0 {
			lastColumns = names
		}

		if shapeChanged || len(buffer) == p.cfg.BatchSize {
			if err := flush(columns); err != nil {
				return report, err
			}
			batchColCount = arity
			columns = names
		}

		buffer = append(buffer, r)
	}

	if len(buffer) > 0 {
		if err := flush(lastColumns); err != nil {
			return report, err
		}
	}

	return report, nil
}

func fieldNames(r frame.RowSource) []string {
	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// materialize flattens a Frame's columns (restricted to cols, in order)
// into the column-list/row-matrix shape the sink interface expects.
func materialize(f *frame.Frame, cols []string) ([]string, [][]value.Value) {
	view := f.Select(cols)
	names := view.ColumnNames()
	columns := view.Columns()
	if len(columns) == 0 {
		return names, nil
	}
	rowCount := len(columns[0].Values)
	rows := make([][]value.Value, rowCount)
	for r := 0; r < rowCount; r++ {
		row := make([]value.Value, len(columns))
		for c, col := range columns {
			if r < len(col.Values) {
				row[c] = col.Values[r]
			} else {
				row[c] = value.NewNone()
			}
		}
		rows[r] = row
	}
	return names, rows
}
