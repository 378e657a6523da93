package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqljson"

	"github.com/abhisek/examprep/internal/docstore"
)

const documentsTable = "documents"

// SQLite stores documents as JSON text in a single table keyed by
// (collection, id). Filters and ordering are pushed down as JSON path
// expressions.
type SQLite struct {
	db   *sql.DB
	drv  *entsql.Driver
	opts docstore.TxOptions

	// commitMu serializes commits within the process; the version check in
	// each UPDATE guards against writers in other processes.
	commitMu sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at dsn.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &SQLite{
		db:   db,
		drv:  entsql.OpenDB(dialect.SQLite, db),
		opts: docstore.DefaultTxOptions(),
	}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close(context.Context) error {
	return s.drv.Close()
}

func (s *SQLite) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(documentsTable)
	sel := b.Select(t.C("id"), t.C("version"), t.C("data")).From(t)

	preds := []*entsql.Predicate{entsql.EQ(t.C("collection"), collection)}
	for _, f := range q.Filters {
		p, err := filterPredicate(f)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	sel.Where(entsql.And(preds...))

	for _, o := range q.OrderBy {
		switch {
		case o.Field == docstore.IDField && o.Desc:
			sel.OrderBy(entsql.Desc(t.C("id")))
		case o.Field == docstore.IDField:
			sel.OrderBy(t.C("id"))
		case o.Desc:
			sqljson.OrderValueDesc("data", sqljson.DotPath(o.Field))(sel)
		default:
			sqljson.OrderValue("data", sqljson.DotPath(o.Field))(sel)
		}
	}
	// Stable tiebreak so equal sort keys come back in key order.
	sel.OrderBy(t.C("id"))
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}

	query, args := sel.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		doc, err := scanDocument(&rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

func filterPredicate(f docstore.Filter) (*entsql.Predicate, error) {
	if f.Field == docstore.IDField {
		switch f.Op {
		case docstore.OpEq:
			return entsql.EQ("id", f.Value), nil
		case docstore.OpIn:
			return entsql.In("id", docstore.InValues(f.Value)...), nil
		default:
			return nil, fmt.Errorf("unsupported operator %q on document id", f.Op)
		}
	}

	path := sqljson.DotPath(f.Field)
	switch f.Op {
	case docstore.OpEq:
		return sqljson.ValueEQ("data", f.Value, path), nil
	case docstore.OpLt:
		return sqljson.ValueLT("data", f.Value, path), nil
	case docstore.OpLte:
		return sqljson.ValueLTE("data", f.Value, path), nil
	case docstore.OpGt:
		return sqljson.ValueGT("data", f.Value, path), nil
	case docstore.OpGte:
		return sqljson.ValueGTE("data", f.Value, path), nil
	case docstore.OpIn:
		return sqljson.ValueIn("data", docstore.InValues(f.Value), path), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", f.Op)
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return s.get(ctx, s.drv, collection, id)
}

func (s *SQLite) get(ctx context.Context, q dialect.ExecQuerier, collection, id string) (*docstore.Document, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(documentsTable)
	query, args := b.Select(t.C("id"), t.C("version"), t.C("data")).
		From(t).
		Where(entsql.And(entsql.EQ(t.C("collection"), collection), entsql.EQ(t.C("id"), id))).
		Query()

	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
		}
		return nil, nil
	}
	doc, err := scanDocument(&rows)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

func scanDocument(rows *entsql.Rows) (docstore.Document, error) {
	var (
		doc  docstore.Document
		data string
	)
	if err := rows.Scan(&doc.ID, &doc.Version, &data); err != nil {
		return doc, fmt.Errorf("scan: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &doc.Data); err != nil {
		return doc, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return doc, nil
}

func (s *SQLite) Put(ctx context.Context, collection string, doc docstore.Document) error {
	data, err := encodeData(doc.Data)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, doc.ID, err)
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	query, args := upsert(collection, doc.ID, data).Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, doc.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(documentsTable).
		Where(entsql.And(entsql.EQ("collection", collection), entsql.EQ("id", id))).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLite) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	return docstore.RunOptimistic(ctx, s.opts, s.Get, fn, s.commit)
}

// commit applies the buffer in one SQL transaction. Every write to a
// document the transaction read is conditional on the version it saw.
func (s *SQLite) commit(ctx context.Context, buf *docstore.Buffer) (rerr error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rerr != nil {
			tx.Rollback()
		}
	}()

	written := make(map[docstore.Key]bool)
	for _, w := range buf.Writes() {
		written[w.Key] = true
		if err := s.applyWrite(ctx, tx, buf, w); err != nil {
			return err
		}
	}

	// Documents read but not written must still be unchanged.
	for k, v := range buf.Reads() {
		if written[k] {
			continue
		}
		cur, err := s.get(ctx, tx, k.Collection, k.ID)
		if err != nil {
			return err
		}
		if version(cur) != v {
			return docstore.ErrConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) applyWrite(ctx context.Context, tx dialect.Tx, buf *docstore.Buffer, w docstore.Write) error {
	data, err := encodeData(w.Data)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", w.Collection, w.ID, err)
	}
	b := entsql.Dialect(dialect.SQLite)

	var query string
	var args []any
	readVersion, wasRead := buf.ReadVersion(w.Key)
	switch {
	case w.Create || (wasRead && readVersion == 0):
		query, args = b.Insert(documentsTable).
			Columns("collection", "id", "version", "data").
			Values(w.Collection, w.ID, 1, data).
			OnConflict(entsql.DoNothing()).
			Query()
	case wasRead:
		query, args = b.Update(documentsTable).
			Set("data", data).
			Add("version", 1).
			Where(entsql.And(
				entsql.EQ("collection", w.Collection),
				entsql.EQ("id", w.ID),
				entsql.EQ("version", readVersion),
			)).
			Query()
	default:
		query, args = upsert(w.Collection, w.ID, data).Query()
	}

	var res entsql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("write %s/%s: %w", w.Collection, w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", w.Collection, w.ID, err)
	}
	if n == 0 {
		if w.Create {
			return fmt.Errorf("create %s/%s: %w", w.Collection, w.ID, docstore.ErrAlreadyExists)
		}
		return docstore.ErrConflict
	}
	return nil
}

func upsert(collection, id, data string) *entsql.InsertBuilder {
	return entsql.Dialect(dialect.SQLite).
		Insert(documentsTable).
		Columns("collection", "id", "version", "data").
		Values(collection, id, 1, data).
		OnConflict(
			entsql.ConflictColumns("collection", "id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("data")
				u.Add("version", 1)
			}),
		)
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func version(doc *docstore.Document) int64 {
	if doc == nil {
		return 0
	}
	return doc.Version
}
