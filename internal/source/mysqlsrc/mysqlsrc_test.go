package mysqlsrc

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"rowsync/internal/value"
)

func TestMySQLTypeName(t *testing.T) {
	cases := map[string]string{
		"VARCHAR":  "TEXT",
		"LONGTEXT": "TEXT",
		"TINYINT":  "INT2",
		"INT":      "INT4",
		"BIGINT":   "INT8",
		"FLOAT":    "FLOAT4",
		"DOUBLE":   "FLOAT8",
		"DECIMAL":  "FLOAT8",
		"DATETIME": "TIMESTAMPTZ",
		"JSON":     "JSON",
	}
	for raw, want := range cases {
		assert.Equal(t, want, mysqlTypeName(raw), "raw %s", raw)
	}
	// MySQL has no native arrays; unmapped names stay fatal downstream.
	assert.Equal(t, "SET", mysqlTypeName("SET"))
}

func TestMySQLAdapterIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE testdb.readings (
		id int,
		label varchar(64),
		score double,
		big bigint
	)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO testdb.readings VALUES
		(1, 'alpha', 1.5, 9000000000),
		(2, NULL, 2.5, 1)`)
	require.NoError(t, err)

	adapter := &Adapter{}
	require.NoError(t, adapter.Connect(ctx, dsn))
	t.Cleanup(func() { adapter.Close(ctx) })

	tables, err := adapter.ListTables(ctx, "testdb")
	require.NoError(t, err)
	assert.Contains(t, tables, "readings")

	n, err := adapter.Count(ctx, "testdb", "readings")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cur, err := adapter.Cursor(ctx, "testdb", "readings", nil)
	require.NoError(t, err)
	t.Cleanup(func() { cur.Close(ctx) })

	row1, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	fields := row1.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, int32(1), fields[0].Value.I32Val())
	assert.Equal(t, "alpha", fields[1].Value.Str())
	assert.Equal(t, 1.5, fields[2].Value.F64Val())
	assert.Equal(t, int64(9000000000), fields[3].Value.I64Val())

	row2, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.None, row2.Fields()[1].Value.Tag())
}
