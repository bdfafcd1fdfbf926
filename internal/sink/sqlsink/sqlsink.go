// Package sqlsink implements the typed parameterized-INSERT sink dispatch
// path against CrateDB's PostgreSQL-wire-compatible SQL endpoint, using
// lib/pq over a pooled, bounded *sql.DB.
package sqlsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rowsync/internal/sink"
	"rowsync/internal/value"
)

// MaxPoolConns bounds the connection pool that each Sink opens; every Sink
// has its own pool.
const MaxPoolConns = 5

// Sink writes batches via a pooled *sql.DB using parameterized VALUES.
type Sink struct {
	db *sql.DB
}

// Open connects to dsn (a CrateDB/PostgreSQL wire URL) and bounds the pool.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlsink: open: %w", err)
	}
	db.SetMaxOpenConns(MaxPoolConns)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlsink: ping: %w", err)
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Sink) Write(ctx context.Context, schemaName, table string, columns []string, rows [][]value.Value) (sink.Report, error) {
	if err := sink.ValidateBatch(columns, rows); err != nil {
		return sink.Report{}, err
	}

	stmt := buildInsert(schemaName, table, columns)
	var report sink.Report

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sink.Report{}, fmt.Errorf("sqlsink: begin: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return sink.Report{}, fmt.Errorf("sqlsink: prepare: %w", err)
	}
	defer prepared.Close()

	for i, row := range rows {
		args, flagged := bindRow(row)
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return report, fmt.Errorf("sqlsink: exec row %d: %w", i, err)
		}
		report.RowsWritten++
		if flagged {
			report.Flagged++
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("sqlsink: commit: %w", err)
	}
	return report, nil
}

func buildInsert(schemaName, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sink.QualifiedTable(schemaName, table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
}

// bindRow maps each Value to its sql-bindable form. VecDyn and Object are
// not bindable on this path: they're stringified to JSON text as a
// last-resort placeholder and the row is flagged rather than failing outright.
func bindRow(row []value.Value) ([]any, bool) {
	args := make([]any, len(row))
	flagged := false
	for i, v := range row {
		arg, ok := bindValue(v)
		if !ok {
			flagged = true
		}
		args[i] = arg
	}
	return args, flagged
}

func bindValue(v value.Value) (any, bool) {
	switch v.Tag() {
	case value.None:
		return nil, true
	case value.Bool:
		return v.Bool(), true
	case value.I16:
		return v.I16Val(), true
	case value.I32:
		return v.I32Val(), true
	case value.I64:
		return v.I64Val(), true
	case value.F32:
		return v.F32Val(), true
	case value.F64:
		return v.F64Val(), true
	case value.String:
		return v.Str(), true
	case value.VecString:
		return pq.Array(v.VecStringVal()), true
	case value.VecI32:
		return pq.Array(v.VecI32Val()), true
	case value.VecI64:
		return pq.Array(v.VecI64Val()), true
	case value.VecF32:
		return pq.Array(v.VecF32Val()), true
	case value.VecF64:
		return pq.Array(v.VecF64Val()), true
	case value.VecDyn, value.Object:
		if b, err := json.Marshal(v); err == nil {
			return string(b), false
		}
		return v.Display(), false
	default:
		return v.Display(), false
	}
}
