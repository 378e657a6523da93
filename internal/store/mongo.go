package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/abhisek/examprep/internal/docstore"
)

// versionField holds the document version alongside the user fields.
const versionField = "_v"

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// Mongo stores each collection as a MongoDB collection. Document fields
// are stored at the top level with the key in _id. Transactions use the
// same optimistic version check as the SQL backend, applied inside a
// MongoDB multi-document transaction so the writes land together.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	opts   docstore.TxOptions
}

// OpenMongo connects and pings the server. Transactions require a replica
// set or sharded cluster.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 100
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
		opts:   docstore.DefaultTxOptions(),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	filter := bson.M{}
	for _, f := range q.Filters {
		field := mongoField(f.Field)
		switch f.Op {
		case docstore.OpEq:
			filter[field] = mergeCond(filter[field], "$eq", f.Value)
		case docstore.OpLt:
			filter[field] = mergeCond(filter[field], "$lt", f.Value)
		case docstore.OpLte:
			filter[field] = mergeCond(filter[field], "$lte", f.Value)
		case docstore.OpGt:
			filter[field] = mergeCond(filter[field], "$gt", f.Value)
		case docstore.OpGte:
			filter[field] = mergeCond(filter[field], "$gte", f.Value)
		case docstore.OpIn:
			filter[field] = mergeCond(filter[field], "$in", docstore.InValues(f.Value))
		default:
			return nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
	}

	sort := bson.D{}
	for _, o := range q.OrderBy {
		dir := 1
		if o.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: mongoField(o.Field), Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	findOpts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}

	cursor, err := m.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []docstore.Document
	for cursor.Next(ctx) {
		doc, err := decodeRaw(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

func mergeCond(existing any, op string, v any) bson.M {
	cond, ok := existing.(bson.M)
	if !ok {
		cond = bson.M{}
	}
	cond[op] = v
	return cond
}

func mongoField(field string) string {
	if field == docstore.IDField {
		return "_id"
	}
	return field
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	raw, err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc, err := decodeRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

// Put runs a one-write transaction so the version bump stays consistent
// with transactional writers.
func (m *Mongo) Put(ctx context.Context, collection string, doc docstore.Document) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		tx.Set(collection, doc)
		return nil
	})
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	return docstore.RunOptimistic(ctx, m.opts, m.Get, fn, m.commit)
}

func (m *Mongo) commit(ctx context.Context, buf *docstore.Buffer) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, m.apply(ctx, buf)
	})
	if err == nil {
		return nil
	}
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %w", docstore.ErrConflict, err)
	}
	return err
}

func (m *Mongo) apply(ctx context.Context, buf *docstore.Buffer) error {
	written := make(map[docstore.Key]bool)
	for _, w := range buf.Writes() {
		written[w.Key] = true
	}
	for k, v := range buf.Reads() {
		if written[k] {
			continue
		}
		cur, err := m.currentVersion(ctx, k)
		if err != nil {
			return err
		}
		if cur != v {
			return docstore.ErrConflict
		}
	}

	for _, w := range buf.Writes() {
		if err := m.applyWrite(ctx, buf, w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mongo) applyWrite(ctx context.Context, buf *docstore.Buffer, w docstore.Write) error {
	coll := m.db.Collection(w.Collection)

	expected, wasRead := buf.ReadVersion(w.Key)
	if !wasRead && !w.Create {
		cur, err := m.currentVersion(ctx, w.Key)
		if err != nil {
			return err
		}
		expected = cur
	}

	if w.Create || expected == 0 {
		_, err := coll.InsertOne(ctx, encodeMongo(w.ID, 1, w.Data))
		if mongo.IsDuplicateKeyError(err) {
			if w.Create {
				return fmt.Errorf("create %s/%s: %w", w.Collection, w.ID, docstore.ErrAlreadyExists)
			}
			return docstore.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert %s/%s: %w", w.Collection, w.ID, err)
		}
		return nil
	}

	res, err := coll.ReplaceOne(ctx,
		bson.M{"_id": w.ID, versionField: expected},
		encodeMongo(w.ID, expected+1, w.Data),
	)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", w.Collection, w.ID, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrConflict
	}
	return nil
}

func (m *Mongo) currentVersion(ctx context.Context, k docstore.Key) (int64, error) {
	doc, err := m.Get(ctx, k.Collection, k.ID)
	if err != nil {
		return 0, err
	}
	return version(doc), nil
}

func encodeMongo(id string, v int64, data map[string]any) bson.M {
	out := bson.M{}
	for k, val := range data {
		out[k] = val
	}
	out["_id"] = id
	out[versionField] = v
	return out
}

// decodeRaw converts a BSON document to the JSON value model via relaxed
// extended JSON.
func decodeRaw(raw bson.Raw) (docstore.Document, error) {
	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("convert bson: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return docstore.Document{}, fmt.Errorf("decode document: %w", err)
	}

	var doc docstore.Document
	doc.ID, _ = data["_id"].(string)
	if v, ok := data[versionField].(float64); ok {
		doc.Version = int64(v)
	}
	delete(data, "_id")
	delete(data, versionField)
	doc.Data = data
	return doc, nil
}
