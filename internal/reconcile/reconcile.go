// Package reconcile applies a Schema against a Frame, rewriting columns so
// every value conforms to its declared expected type: by casting, by
// quarantining mismatches into a sibling column, by leaving them alone, or
// by nullifying them.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"rowsync/internal/frame"
	"rowsync/internal/schema"
	"rowsync/internal/value"
)

// ErrCastFailed reports a numeric parse failure inside the I32 <- String
// Cast rule. This is always fatal, never a silent None. A (target, source)
// pair the policy table has no rule for is not an error: castValue returns
// such a value unchanged.
var ErrCastFailed = fmt.Errorf("reconcile: cast failed")

type relocation struct {
	value  value.Value
	index  int
	origin string
}

// Reconcile rewrites f in place: for every column with both an expected
// type and a strategy, values that already match or are None are left
// alone; mismatches go through Cast/NewCol/Ignore/Remove. NewCol
// relocations are deferred until every column has been walked, then
// replayed against a per-target-column padding counter so two distinct
// synthesized columns never share alignment state.
func Reconcile(f *frame.Frame, sc *schema.Schema) error {
	var deferred []relocation

	for _, col := range f.Columns() {
		if !col.HasExpected || !col.HasStrategy {
			continue
		}
		col.DataType = col.ExpectedDType

		vals := col.Values
		for i, v := range vals {
			if v.Tag() == value.None || v.Tag() == col.ExpectedDType {
				continue
			}
			switch col.Strategy {
			case schema.Cast:
				cast, err := castValue(col.ExpectedDType, v)
				if err != nil {
					return fmt.Errorf("column %q at row %d: %w", col.Name, i, err)
				}
				vals[i] = cast
			case schema.NewCol:
				deferred = append(deferred, relocation{value: v, index: i, origin: col.Name})
				vals[i] = value.NewNone()
			case schema.Ignore:
				// no-op
			case schema.Remove:
				vals[i] = value.NewNone()
			}
		}
		col.Values = vals
	}

	applyRelocations(f, deferred)
	return nil
}

// applyRelocations replays deferred NewCol quarantines against a
// per-target-column last-padding counter, so synthesizing x_i32 and x_str
// from the same origin column never cross-contaminate each other's padding
// math.
func applyRelocations(f *frame.Frame, deferred []relocation) {
	lastPadding := make(map[string]int)

	for _, r := range deferred {
		target := fmt.Sprintf("%s_%s", r.origin, r.value.Slug())

		if !f.HasColumn(target) {
			f.AddBareColumn(target)
			lastPadding[target] = 0
		}

		pad := r.index - lastPadding[target]
		for i := 0; i < pad; i++ {
			f.Append(target, value.NewNone())
		}
		f.Append(target, r.value)
		lastPadding[target] = r.index + 1
	}
}

// RightPad appends Nones to every column shorter than f.Count, so
// synthesized columns (which may trail off before the frame's row count)
// are rectangular again before dispatch.
func RightPad(f *frame.Frame) {
	for _, col := range f.Columns() {
		for len(col.Values) < f.Count {
			col.Values = append(col.Values, value.NewNone())
		}
	}
}

// castValue implements the fixed Cast policy table:
//
//	String <- String (identity)
//	String <- VecString (join by single space)
//	I32    <- String (numeric parse; failure is fatal)
//	String <- I32 (decimal text)
//
// All other (target, source) pairs are no-ops; the original value is
// returned unchanged.
func castValue(target value.TypeTag, v value.Value) (value.Value, error) {
	switch {
	case target == value.String && v.Tag() == value.String:
		return v, nil
	case target == value.String && v.Tag() == value.VecString:
		return value.NewString(strings.Join(v.VecStringVal(), " ")), nil
	case target == value.I32 && v.Tag() == value.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %q is not numeric: %v", ErrCastFailed, v.Str(), err)
		}
		return value.NewI32(int32(n)), nil
	case target == value.String && v.Tag() == value.I32:
		return value.NewString(strconv.FormatInt(int64(v.I32Val()), 10)), nil
	default:
		return v, nil
	}
}
