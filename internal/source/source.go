// Package source defines the capability-set boundary each backend (MongoDB,
// PostgreSQL, MySQL) implements to act as a migration source, plus a
// dialect-keyed registry of constructors guarded by a mutex.
package source

import (
	"context"
	"fmt"
	"sync"

	"rowsync/internal/frame"
)

// Backend names one of the supported source kinds.
type Backend string

const (
	Mongo    Backend = "mongo"
	Postgres Backend = "postgres"
	MySQL    Backend = "mysql"
)

// RowCursor streams translated rows from an open query/collection scan.
// Next returns (row, true, nil) while rows remain, (zero, false, nil) once
// exhausted, or a non-nil error on any cursor-advance failure: a row-level
// failure aborts the run; it is never recovered by synthesizing a
// None-filled row.
type RowCursor interface {
	Next(ctx context.Context) (frame.RowSource, bool, error)
	Close(ctx context.Context) error
}

// Adapter is the capability set a backend must implement to serve as a
// migration source: connect, enumerate, count, probe columns for
// ignored-columns computation, and open a row cursor.
type Adapter interface {
	Connect(ctx context.Context, dsn string) error
	Close(ctx context.Context) error

	ListDatabases(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, db string) ([]string, error)
	Count(ctx context.Context, db, table string) (int64, error)

	// ProbeColumns reports the full column/field set observed for a table,
	// via a LIMIT-1-shaped probe (relational) or a single-document sample
	// (document store). Used to compute ignored_columns by set-difference.
	ProbeColumns(ctx context.Context, db, table string) ([]string, error)

	// Cursor opens a streaming scan over db.table, translating each field
	// into a value.Value and dropping any column named in ignored.
	Cursor(ctx context.Context, db, table string, ignored map[string]bool) (RowCursor, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[Backend]func() Adapter)
)

// Register installs the constructor for a backend. Called from each
// subpackage's init().
func Register(b Backend, fn func() Adapter) {
	mu.Lock()
	defer mu.Unlock()
	registry[b] = fn
}

// New constructs a fresh Adapter for the named backend.
func New(b Backend) (Adapter, error) {
	mu.RLock()
	fn, ok := registry[b]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source: unsupported backend %q", b)
	}
	return fn(), nil
}

// IgnoredSet computes the set-difference of probe against keep: every
// probed column not explicitly kept is ignored.
func IgnoredSet(probed []string, keep map[string]bool) map[string]bool {
	ignored := make(map[string]bool, len(probed))
	for _, col := range probed {
		if !keep[col] {
			ignored[col] = true
		}
	}
	return ignored
}
