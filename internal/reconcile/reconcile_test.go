package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowsync/internal/frame"
	"rowsync/internal/schema"
	"rowsync/internal/value"
)

type fakeRow struct{ fields []frame.NamedValue }

func (r fakeRow) Fields() []frame.NamedValue { return r.fields }

func row(pairs ...frame.NamedValue) frame.RowSource { return fakeRow{fields: pairs} }

func nv(name string, v value.Value) frame.NamedValue {
	return frame.NamedValue{Name: name, Value: v}
}

func TestReconcileNewCol(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"String","dtype_collision_strategy":"NewCol"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{
		row(nv("x", value.NewString("a"))),
		row(nv("x", value.NewI32(5))),
		row(nv("x", value.NewString("b"))),
	}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)

	require.NoError(t, Reconcile(f, sc))

	x := f.Column("x").Values
	require.Len(t, x, 3)
	assert.Equal(t, "a", x[0].Str())
	assert.Equal(t, value.None, x[1].Tag())
	assert.Equal(t, "b", x[2].Str())

	xi32 := f.Column("x_i32")
	require.NotNil(t, xi32)
	require.Len(t, xi32.Values, 2)
	assert.Equal(t, value.None, xi32.Values[0].Tag())
	assert.Equal(t, int32(5), xi32.Values[1].I32Val())

	RightPad(f)
	assert.Len(t, f.Column("x_i32").Values, 3)
	assert.Equal(t, value.None, f.Column("x_i32").Values[2].Tag())
}

func TestReconcileCast(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"I32","dtype_collision_strategy":"Cast"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{
		row(nv("x", value.NewString("5"))),
		row(nv("x", value.NewI32(7))),
	}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)
	require.NoError(t, Reconcile(f, sc))

	x := f.Column("x").Values
	assert.Equal(t, int32(5), x[0].I32Val())
	assert.Equal(t, int32(7), x[1].I32Val())
}

func TestReconcileCastFatalOnBadNumeric(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"I32","dtype_collision_strategy":"Cast"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{row(nv("x", value.NewString("abc")))}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)

	err = Reconcile(f, sc)
	assert.ErrorIs(t, err, ErrCastFailed)
}

func TestReconcileRemoveNullifiesKeepsColumn(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"I32","dtype_collision_strategy":"Remove"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{
		row(nv("x", value.NewI32(1))),
		row(nv("x", value.NewString("oops"))),
	}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)
	require.NoError(t, Reconcile(f, sc))

	x := f.Column("x").Values
	require.Len(t, x, 2)
	assert.Equal(t, int32(1), x[0].I32Val())
	assert.Equal(t, value.None, x[1].Tag())
}

func TestReconcileIgnoreIsNoop(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"I32","dtype_collision_strategy":"Ignore"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{row(nv("x", value.NewString("untouched")))}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)
	require.NoError(t, Reconcile(f, sc))

	assert.Equal(t, "untouched", f.Column("x").Values[0].Str())
}

func TestReconcilePerTargetPaddingIndependence(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"String","dtype_collision_strategy":"NewCol"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{
		row(nv("x", value.NewI32(1))),
		row(nv("x", value.NewI64(2))),
		row(nv("x", value.NewI32(3))),
	}
	f, err := frame.FromRows(rows, sc)
	require.NoError(t, err)
	require.NoError(t, Reconcile(f, sc))

	xi32 := f.Column("x_i32").Values
	require.Len(t, xi32, 3)
	assert.Equal(t, int32(1), xi32[0].I32Val())
	assert.Equal(t, value.None, xi32[1].Tag())
	assert.Equal(t, int32(3), xi32[2].I32Val())

	xi64 := f.Column("x_i64").Values
	require.Len(t, xi64, 2)
	assert.Equal(t, value.None, xi64[0].Tag())
	assert.Equal(t, int64(2), xi64[1].I64Val())
}
