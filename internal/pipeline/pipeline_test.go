package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowsync/internal/frame"
	"rowsync/internal/schema"
	"rowsync/internal/sink"
	"rowsync/internal/value"
)

type fakeRow []frame.NamedValue

func (r fakeRow) Fields() []frame.NamedValue { return r }

func nv(name string, v value.Value) frame.NamedValue {
	return frame.NamedValue{Name: name, Value: v}
}

type fakeCursor struct {
	rows []frame.RowSource
	pos  int
}

func (c *fakeCursor) Next(ctx context.Context) (frame.RowSource, bool, error) {
	if c.pos >= len(c.rows) {
		return nil, false, nil
	}
	r := c.rows[c.pos]
	c.pos++
	return r, true, nil
}

func (c *fakeCursor) Close(ctx context.Context) error { return nil }

type recordedBatch struct {
	columns []string
	rows    [][]value.Value
}

type fakeSink struct {
	batches []recordedBatch
}

func (s *fakeSink) Write(ctx context.Context, schemaName, table string, columns []string, rows [][]value.Value) (sink.Report, error) {
	s.batches = append(s.batches, recordedBatch{columns: columns, rows: rows})
	return sink.Report{RowsWritten: len(rows)}, nil
}

func (s *fakeSink) Close(ctx context.Context) error { return nil }

func TestPipelineFlushesOnShapeChange(t *testing.T) {
	rows := []frame.RowSource{
		fakeRow{nv("a", value.NewI32(1)), nv("b", value.NewI32(1))},
		fakeRow{nv("a", value.NewI32(2)), nv("b", value.NewI32(2))},
		fakeRow{nv("a", value.NewI32(3)), nv("b", value.NewI32(3))},
		fakeRow{nv("a", value.NewI32(4)), nv("b", value.NewI32(4)), nv("c", value.NewI32(4))},
		fakeRow{nv("a", value.NewI32(5)), nv("b", value.NewI32(5)), nv("c", value.NewI32(5))},
	}
	cur := &fakeCursor{rows: rows}
	sk := &fakeSink{}

	p := Open(cur, sk, Config{SinkSchema: "doc", SinkTable: "events", BatchSize: 10})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.RowsRead)
	assert.Equal(t, 2, report.BatchesSent)
	require.Len(t, sk.batches, 2)

	assert.ElementsMatch(t, []string{"a", "b"}, sk.batches[0].columns)
	assert.Len(t, sk.batches[0].rows, 3)

	assert.ElementsMatch(t, []string{"a", "b", "c"}, sk.batches[1].columns)
	assert.Len(t, sk.batches[1].rows, 2)
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	rows := make([]frame.RowSource, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, fakeRow{nv("a", value.NewI32(int32(i)))})
	}
	cur := &fakeCursor{rows: rows}
	sk := &fakeSink{}

	p := Open(cur, sk, Config{SinkSchema: "doc", SinkTable: "events", BatchSize: 2})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.RowsRead)
	// Three flushes: 2 + 2 + 1 (terminal drain).
	assert.Equal(t, 3, report.BatchesSent)
}

func TestPipelineReconcileEmitsSynthesizedColumns(t *testing.T) {
	sc, err := schema.Parse([]byte(`{"x":{"dtype":"String","dtype_collision_strategy":"NewCol"}}`))
	require.NoError(t, err)

	rows := []frame.RowSource{
		fakeRow{nv("x", value.NewString("a"))},
		fakeRow{nv("x", value.NewI32(5))},
		fakeRow{nv("x", value.NewString("b"))},
	}
	cur := &fakeCursor{rows: rows}
	sk := &fakeSink{}

	p := Open(cur, sk, Config{SinkSchema: "doc", SinkTable: "events", BatchSize: 10, Schema: sc, Reconcile: true})
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sk.batches, 1)
	batch := sk.batches[0]
	assert.Equal(t, []string{"x", "x_i32"}, batch.columns)
	require.Len(t, batch.rows, 3)

	// Quarantined value moved to the sibling column, right-padded to the
	// frame's row count.
	assert.Equal(t, "a", batch.rows[0][0].Str())
	assert.Equal(t, value.None, batch.rows[0][1].Tag())
	assert.Equal(t, value.None, batch.rows[1][0].Tag())
	assert.Equal(t, int32(5), batch.rows[1][1].I32Val())
	assert.Equal(t, "b", batch.rows[2][0].Str())
	assert.Equal(t, value.None, batch.rows[2][1].Tag())
}

func TestPipelineCursorErrorAborts(t *testing.T) {
	cur := &failingCursor{failAfter: 1}
	sk := &fakeSink{}

	p := Open(cur, sk, Config{SinkSchema: "doc", SinkTable: "events", BatchSize: 10})
	_, err := p.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sk.batches)
}

type failingCursor struct {
	failAfter int
	pos       int
}

func (c *failingCursor) Next(ctx context.Context) (frame.RowSource, bool, error) {
	if c.pos >= c.failAfter {
		return nil, false, fmt.Errorf("cursor advance failed")
	}
	c.pos++
	return fakeRow{nv("a", value.NewI32(1))}, true, nil
}

func (c *failingCursor) Close(ctx context.Context) error { return nil }

func TestPipelineTerminalFlush(t *testing.T) {
	rows := []frame.RowSource{
		fakeRow{nv("a", value.NewI32(1))},
		fakeRow{nv("a", value.NewI32(2))},
	}
	cur := &fakeCursor{rows: rows}
	sk := &fakeSink{}

	p := Open(cur, sk, Config{SinkSchema: "doc", SinkTable: "events", BatchSize: 100})
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.BatchesSent)
	require.Len(t, sk.batches, 1)
	assert.Len(t, sk.batches[0].rows, 2)
}
