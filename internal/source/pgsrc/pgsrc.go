// Package pgsrc implements the relational source adapter against
// PostgreSQL, using the standard database/sql query-and-scan idiom adapted
// to lib/pq and to the driver-reported-type-name translation path in
// internal/value.
package pgsrc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rowsync/internal/frame"
	"rowsync/internal/source"
	"rowsync/internal/value"
)

func init() {
	source.Register(source.Postgres, func() source.Adapter { return &Adapter{} })
}

// Adapter implements source.Adapter over a pooled *sql.DB speaking the
// PostgreSQL wire protocol via lib/pq.
type Adapter struct {
	db *sql.DB
}

func (a *Adapter) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("pgsrc: open: %w", err)
	}
	db.SetMaxOpenConns(5)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pgsrc: ping: %w", err)
	}
	a.db = db
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT datname FROM pg_database WHERE datistemplate = false`)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: list databases: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (a *Adapter) ListTables(ctx context.Context, db string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_catalog = $1 AND table_schema = 'public'
		ORDER BY table_name`, db)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: list tables: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (a *Adapter) Count(ctx context.Context, db, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", pq.QuoteIdentifier(table))
	if err := a.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgsrc: count: %w", err)
	}
	return n, nil
}

// ProbeColumns issues a zero-row SELECT that still reports the full column
// list via driver metadata, so the probe never touches data.
func (a *Adapter) ProbeColumns(ctx context.Context, db, table string) ([]string, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT 0", pq.QuoteIdentifier(table))
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: probe columns: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("pgsrc: probe columns: %w", err)
	}
	return cols, nil
}

func (a *Adapter) Cursor(ctx context.Context, db, table string, ignored map[string]bool) (source.RowCursor, error) {
	probed, err := a.ProbeColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(probed))
	for _, c := range probed {
		if !ignored[c] {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("pgsrc: all columns ignored for %s.%s", db, table)
	}

	quoted := make([]string, len(kept))
	for i, c := range kept {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), pq.QuoteIdentifier(table))
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: open cursor: %w", err)
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("pgsrc: column types: %w", err)
	}
	typeNames := make([]string, len(colTypes))
	for i, ct := range colTypes {
		typeNames[i] = pgTypeName(ct.DatabaseTypeName())
	}

	return &cursor{rows: rows, names: kept, typeNames: typeNames}, nil
}

type cursor struct {
	rows      *sql.Rows
	names     []string
	typeNames []string
}

func (c *cursor) Next(ctx context.Context) (frame.RowSource, bool, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("pgsrc: cursor advance: %w", err)
		}
		return nil, false, nil
	}

	dest := make([]any, len(c.names))
	ptrs := make([]any, len(c.names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	scanErr := c.rows.Scan(ptrs...)

	fields := make([]frame.NamedValue, len(c.names))
	for i, name := range c.names {
		raw, decodeErr := decodeArray(c.typeNames[i], dest[i])
		if decodeErr != nil && scanErr == nil {
			scanErr = decodeErr
		}
		v, err := value.FromRow(c.typeNames[i], raw, scanErr)
		if err != nil {
			return nil, false, fmt.Errorf("pgsrc: translate column %q: %w", name, err)
		}
		fields[i] = frame.NamedValue{Name: name, Value: v}
	}
	return row(fields), true, nil
}

// decodeArray pre-decodes lib/pq's wire-text array representation ([]byte
// like "{1,2,3}") into the native slice value.FromRow expects. Non-array
// type names pass through untouched.
func decodeArray(typeName string, raw any) (any, error) {
	if raw == nil || !strings.HasSuffix(typeName, "[]") {
		return raw, nil
	}
	switch typeName {
	case "TEXT[]":
		var a pq.StringArray
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []string(a), nil
	case "INT4[]":
		var a pq.Int32Array
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []int32(a), nil
	case "INT8[]":
		var a pq.Int64Array
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []int64(a), nil
	case "FLOAT4[]":
		var a pq.Float32Array
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []float32(a), nil
	case "FLOAT8[]":
		var a pq.Float64Array
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []float64(a), nil
	default:
		return raw, nil
	}
}

func (c *cursor) Close(ctx context.Context) error {
	return c.rows.Close()
}

type row []frame.NamedValue

func (r row) Fields() []frame.NamedValue { return r }

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// pgTypeName maps lib/pq's DatabaseTypeName (e.g. "INT4", "VARCHAR",
// "TIMESTAMPTZ", "_INT4") to the driver-reported names value.FromRow
// recognizes.
func pgTypeName(raw string) string {
	switch strings.ToUpper(raw) {
	case "VARCHAR", "BPCHAR", "NAME", "UUID", "TEXT":
		return "TEXT"
	case "INT2":
		return "INT2"
	case "INT4":
		return "INT4"
	case "INT8":
		return "INT8"
	case "FLOAT4":
		return "FLOAT4"
	case "FLOAT8", "NUMERIC":
		return "FLOAT8"
	case "BOOL":
		return "BOOL"
	case "TIMESTAMPTZ":
		return "TIMESTAMPTZ"
	case "TIMESTAMP":
		return "TIMESTAMP"
	case "INET":
		return "INET"
	case "_TEXT", "_VARCHAR":
		return "TEXT[]"
	case "_INT4":
		return "INT4[]"
	case "_INT8":
		return "INT8[]"
	case "_FLOAT4":
		return "FLOAT4[]"
	case "_FLOAT8":
		return "FLOAT8[]"
	case "JSON", "JSONB":
		return "JSON"
	default:
		return raw
	}
}
