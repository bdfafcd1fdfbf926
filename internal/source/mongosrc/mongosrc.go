// Package mongosrc implements the document-store source adapter against
// MongoDB, grounded on the mongo-driver connect/cursor idiom used throughout
// the pack's MongoDB integrations (see other_examples' steampipe mongodb
// plugin for the client/cursor shape this mirrors).
package mongosrc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rowsync/internal/frame"
	"rowsync/internal/source"
	"rowsync/internal/value"
)

func init() {
	source.Register(source.Mongo, func() source.Adapter { return &Adapter{} })
}

// Adapter implements source.Adapter over a *mongo.Client.
type Adapter struct {
	client *mongo.Client
}

func (a *Adapter) Connect(ctx context.Context, dsn string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return fmt.Errorf("mongosrc: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongosrc: ping: %w", err)
	}
	a.client = client
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := a.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongosrc: list databases: %w", err)
	}
	return names, nil
}

func (a *Adapter) ListTables(ctx context.Context, db string) ([]string, error) {
	names, err := a.client.Database(db).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongosrc: list collections: %w", err)
	}
	return names, nil
}

func (a *Adapter) Count(ctx context.Context, db, table string) (int64, error) {
	n, err := a.client.Database(db).Collection(table).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("mongosrc: count: %w", err)
	}
	return n, nil
}

// ProbeColumns samples a single document and reports its top-level field
// names in document order.
func (a *Adapter) ProbeColumns(ctx context.Context, db, table string) ([]string, error) {
	var doc bson.D
	err := a.client.Database(db).Collection(table).FindOne(ctx, bson.D{}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongosrc: probe columns: %w", err)
	}
	names := make([]string, 0, len(doc))
	for _, el := range doc {
		names = append(names, el.Key)
	}
	return names, nil
}

// prefetchSize is the driver-level cursor batch hint; it is independent of
// the pipeline's sink batch size.
const prefetchSize = 5000

func (a *Adapter) Cursor(ctx context.Context, db, table string, ignored map[string]bool) (source.RowCursor, error) {
	opts := options.Find().SetBatchSize(prefetchSize)
	cur, err := a.client.Database(db).Collection(table).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongosrc: open cursor: %w", err)
	}
	return &cursor{cur: cur, ignored: ignored}, nil
}

type cursor struct {
	cur     *mongo.Cursor
	ignored map[string]bool
}

func (c *cursor) Next(ctx context.Context) (frame.RowSource, bool, error) {
	if !c.cur.Next(ctx) {
		if err := c.cur.Err(); err != nil {
			return nil, false, fmt.Errorf("mongosrc: cursor advance: %w", err)
		}
		return nil, false, nil
	}

	// Decode into bson.D, not bson.M: a document is an ordered key->field
	// mapping, and column discovery order downstream follows field order.
	var doc bson.D
	if err := c.cur.Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("mongosrc: decode document: %w", err)
	}

	fields := make([]frame.NamedValue, 0, len(doc))
	for _, el := range doc {
		if c.ignored[el.Key] {
			continue
		}
		v, err := value.FromBSONField(el.Value)
		if err != nil {
			return nil, false, fmt.Errorf("mongosrc: translate field %q: %w", el.Key, err)
		}
		fields = append(fields, frame.NamedValue{Name: el.Key, Value: v})
	}
	return row(fields), true, nil
}

func (c *cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

type row []frame.NamedValue

func (r row) Fields() []frame.NamedValue { return r }
