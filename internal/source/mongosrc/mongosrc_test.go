package mongosrc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rowsync/internal/value"
)

func TestMongoAdapterIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start MongoDB container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	seed, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { seed.Disconnect(ctx) })

	coll := seed.Database("testdb").Collection("events")
	_, err = coll.InsertMany(ctx, []any{
		bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}},
		bson.D{{Key: "a", Value: int32(2)}, {Key: "tags", Value: bson.A{"p", "q"}}},
	})
	require.NoError(t, err)

	adapter := &Adapter{}
	require.NoError(t, adapter.Connect(ctx, dsn))
	t.Cleanup(func() { adapter.Close(ctx) })

	tables, err := adapter.ListTables(ctx, "testdb")
	require.NoError(t, err)
	assert.Contains(t, tables, "events")

	n, err := adapter.Count(ctx, "testdb", "events")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	probed, err := adapter.ProbeColumns(ctx, "testdb", "events")
	require.NoError(t, err)
	assert.Contains(t, probed, "a")
	assert.Contains(t, probed, "b")

	cur, err := adapter.Cursor(ctx, "testdb", "events", map[string]bool{"_id": true})
	require.NoError(t, err)
	t.Cleanup(func() { cur.Close(ctx) })

	row1, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	fields := row1.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Name)
	assert.Equal(t, int32(1), fields[0].Value.I32Val())
	assert.Equal(t, "x", fields[1].Value.Str())

	row2, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	fields = row2.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, value.VecString, fields[1].Value.Tag())
	assert.Equal(t, []string{"p", "q"}, fields[1].Value.VecStringVal())

	_, ok, err = cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
