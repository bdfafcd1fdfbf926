// Package mysqlsrc implements the relational source adapter against MySQL,
// using github.com/go-sql-driver/mysql and the standard database/sql
// query-and-scan idiom.
package mysqlsrc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"rowsync/internal/frame"
	"rowsync/internal/source"
	"rowsync/internal/value"
)

func init() {
	source.Register(source.MySQL, func() source.Adapter { return &Adapter{} })
}

// Adapter implements source.Adapter over a pooled *sql.DB speaking the
// MySQL wire protocol.
type Adapter struct {
	db *sql.DB
}

func (a *Adapter) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysqlsrc: open: %w", err)
	}
	db.SetMaxOpenConns(5)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysqlsrc: ping: %w", err)
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
	rows, err := a.db.QueryContext(ctx, `SHOW DATABASES`)
	if err != nil {
		return nil, fmt.Errorf("mysqlsrc: list databases: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (a *Adapter) ListTables(ctx context.Context, db string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`, db)
	if err != nil {
		return nil, fmt.Errorf("mysqlsrc: list tables: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (a *Adapter) Count(ctx context.Context, db, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT count(*) FROM `%s`.`%s`", db, table)
	if err := a.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysqlsrc: count: %w", err)
	}
	return n, nil
}

func (a *Adapter) ProbeColumns(ctx context.Context, db, table string) ([]string, error) {
	query := fmt.Sprintf("SELECT * FROM `%s`.`%s` LIMIT 0", db, table)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysqlsrc: probe columns: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mysqlsrc: probe columns: %w", err)
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
		return nil, fmt.Errorf("mysqlsrc: all columns ignored for %s.%s", db, table)
	}

	quoted := make([]string, len(kept))
	for i, c := range kept {
		quoted[i] = "`" + c + "`"
	}
	query := fmt.Sprintf("SELECT %s FROM `%s`.`%s`", strings.Join(quoted, ", "), db, table)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysqlsrc: open cursor: %w", err)
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("mysqlsrc: column types: %w", err)
	}
	typeNames := make([]string, len(colTypes))
	for i, ct := range colTypes {
		typeNames[i] = mysqlTypeName(ct.DatabaseTypeName())
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
			return nil, false, fmt.Errorf("mysqlsrc: cursor advance: %w", err)
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
		v, err := value.FromRow(c.typeNames[i], dest[i], scanErr)
		if err != nil {
			return nil, false, fmt.Errorf("mysqlsrc: translate column %q: %w", name, err)
		}
		fields[i] = frame.NamedValue{Name: name, Value: v}
	}
	return row(fields), true, nil
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

// mysqlTypeName maps the Go driver's DatabaseTypeName (e.g. "VARCHAR",
// "INT", "DATETIME", "JSON") onto the driver-reported names value.FromRow
// recognizes. MySQL has no native array type, so SET/array-like columns are
// not mapped here; unmapped names are fatal by design.
func mysqlTypeName(raw string) string {
	switch strings.ToUpper(raw) {
	case "VARCHAR", "CHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM":
		return "TEXT"
	case "TINYINT", "SMALLINT":
		return "INT2"
	case "INT", "MEDIUMINT":
		return "INT4"
	case "BIGINT":
		return "INT8"
	case "FLOAT":
		return "FLOAT4"
	case "DOUBLE", "DECIMAL":
		return "FLOAT8"
	case "BOOL", "BOOLEAN":
		return "BOOL"
	case "DATETIME", "TIMESTAMP":
		return "TIMESTAMPTZ"
	case "DATE":
		return "TIMESTAMP"
	case "JSON":
		return "JSON"
	default:
		return raw
	}
}
