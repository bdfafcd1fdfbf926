// Package frame implements the in-memory columnar table that accumulates
// one batch's worth of rows: an insertion-ordered mapping from column name
// to Column, kept rectangular as documents with drifting key sets arrive.
package frame

import (
	"fmt"

	"rowsync/internal/schema"
	"rowsync/internal/value"
)

// Column is one named vector of Values plus the bookkeeping reconciliation
// needs: the observed data type (stamped by the reconciler) and the
// schema-declared expectation and strategy, if any.
type Column struct {
	Name          string
	Values        []value.Value
	DataType      value.TypeTag
	ExpectedDType value.TypeTag
	HasExpected   bool
	Strategy      schema.Strategy
	HasStrategy   bool
}

// Frame is an insertion-ordered columnar table. Columns grows monotonically
// during ingestion; Count is the number of rows every column must hold at
// any quiescent point.
type Frame struct {
	order    []string
	columns  map[string]*Column
	Count    int
	selected []string // nil means no projection
}

// New returns an empty Frame.
func New() *Frame {
	return &Frame{columns: make(map[string]*Column)}
}

// HasColumn reports whether name has been discovered yet.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// AddColumn registers a new column, back-filled with Count leading Nones so
// it stays aligned with rows already accumulated.
func (f *Frame) AddColumn(name string) *Column {
	if c, ok := f.columns[name]; ok {
		return c
	}
	c := &Column{
		Name:     name,
		Values:   backfill(f.Count),
		DataType: value.Unknown,
	}
	f.columns[name] = c
	f.order = append(f.order, name)
	return c
}

// AddBareColumn registers a column with no backfill. Synthesized sibling
// columns manage their own leading padding and may legitimately be shorter
// than Count until right-padded.
func (f *Frame) AddBareColumn(name string) *Column {
	if c, ok := f.columns[name]; ok {
		return c
	}
	c := &Column{Name: name, DataType: value.Unknown}
	f.columns[name] = c
	f.order = append(f.order, name)
	return c
}

func backfill(n int) []value.Value {
	vals := make([]value.Value, n)
	for i := range vals {
		vals[i] = value.NewNone()
	}
	return vals
}

// Append adds v to the named column, creating it (back-filled) first if
// necessary.
func (f *Frame) Append(name string, v value.Value) {
	c := f.columns[name]
	if c == nil {
		c = f.AddColumn(name)
	}
	c.Values = append(c.Values, v)
}

// Extend appends every value in vs to the named column, in order.
func (f *Frame) Extend(name string, vs []value.Value) {
	for _, v := range vs {
		f.Append(name, v)
	}
}

// Modify replaces the named column's values wholesale via mutator, which
// receives the current slice and returns the new one. Used by the
// reconciler to rewrite a column in place.
func (f *Frame) Modify(name string, mutator func([]value.Value) []value.Value) {
	c := f.columns[name]
	if c == nil {
		return
	}
	c.Values = mutator(c.Values)
}

// Column returns the named column, or nil if undiscovered.
func (f *Frame) Column(name string) *Column {
	return f.columns[name]
}

// Columns returns columns in insertion-discovery order, honoring a Select
// projection if one was applied.
func (f *Frame) Columns() []*Column {
	names := f.order
	if f.selected != nil {
		names = f.selected
	}
	out := make([]*Column, 0, len(names))
	for _, name := range names {
		if c, ok := f.columns[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ColumnNames returns the names in the same order as Columns.
func (f *Frame) ColumnNames() []string {
	cols := f.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Select returns a view over f restricted to names (order preserved,
// unknown names silently dropped). The underlying columns are shared, not
// copied: Select only changes what iterates and serializes.
func (f *Frame) Select(names []string) *Frame {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if f.HasColumn(n) {
			kept = append(kept, n)
		}
	}
	return &Frame{
		order:    f.order,
		columns:  f.columns,
		Count:    f.Count,
		selected: kept,
	}
}

// RowSource is the minimal shape FromRows needs from either a decoded
// document or a relational row: an ordered set of (key, Value) pairs plus
// the ignored-columns set already applied by the caller.
type RowSource interface {
	// Fields returns this row's keys in a stable order, each paired with
	// its already-translated Value.
	Fields() []NamedValue
}

// NamedValue pairs a column name with its translated Value.
type NamedValue struct {
	Name  string
	Value value.Value
}

// FromRows drives the ingestion loop: for each row in order, back-fill newly
// discovered columns with leading Nones, append each field's value, then pad
// every column the row doesn't mention with a trailing None. After the loop,
// schema tagging (expected type + strategy) is stamped onto every column
// with a matching schema entry.
func FromRows(rows []RowSource, sc *schema.Schema) (*Frame, error) {
	f := New()
	for _, row := range rows {
		fields := row.Fields()
		present := make(map[string]bool, len(fields))

		for _, nv := range fields {
			if !f.HasColumn(nv.Name) {
				f.AddColumn(nv.Name)
			}
			present[nv.Name] = true
		}
		for _, nv := range fields {
			f.Append(nv.Name, nv.Value)
		}
		for _, name := range f.order {
			if !present[name] {
				f.Append(name, value.NewNone())
			}
		}
		f.Count++
	}

	if err := f.verifyRectangular(); err != nil {
		return nil, err
	}

	if sc != nil {
		for _, name := range f.order {
			c := f.columns[name]
			if dtype, ok := sc.ExpectedType(name); ok {
				c.ExpectedDType = dtype
				c.HasExpected = true
			}
			if strat, ok := sc.StrategyFor(name); ok {
				c.Strategy = strat
				c.HasStrategy = true
			}
		}
	}

	return f, nil
}

func (f *Frame) verifyRectangular() error {
	for _, name := range f.order {
		c := f.columns[name]
		if len(c.Values) != f.Count {
			return fmt.Errorf("frame: column %q has %d values, want %d", name, len(c.Values), f.Count)
		}
	}
	return nil
}
