// Package docstore defines the document database contract the exam engine
// runs against, together with the optimistic transaction loop and an
// in-memory implementation.
//
// Documents are schemaless JSON objects grouped in collections. All
// backends normalise document data to the JSON value model: numbers are
// float64, arrays are []any, and objects are map[string]any.
package docstore

import (
	"context"
	"errors"
)

// IDField is the pseudo-field that addresses the document key in filters
// and ordering.
const IDField = "_id"

// DefaultMaxAttempts bounds how many times RunTransaction re-runs a
// transaction function after a conflict.
const DefaultMaxAttempts = 5

var (
	// ErrConflict reports that a document read by a transaction changed
	// before the transaction committed.
	ErrConflict = errors.New("transaction conflict")

	// ErrTxExhausted is returned by RunTransaction when every attempt ended
	// in a conflict.
	ErrTxExhausted = errors.New("transaction retries exhausted")

	// ErrAlreadyExists is returned when Tx.Create targets an existing document.
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is one stored JSON object.
type Document struct {
	ID   string
	Data map[string]any

	// Version increases by one on every committed write. Zero means the
	// document has never been stored.
	Version int64
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "in"
)

// Filter restricts a query to documents whose field compares true
// against Value. For OpIn, Value is a slice.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents within a collection.
type Query struct {
	Filters []Filter
	OrderBy []Order

	// Limit caps the result size; zero means unlimited.
	Limit int
}

// Store is a document database.
type Store interface {
	// Query returns the documents of collection matching q.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// Get returns the document or nil when it does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Put creates or replaces a document outside any transaction.
	Put(ctx context.Context, collection string, doc Document) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// RunTransaction runs fn atomically. Writes buffered on the Tx become
	// visible together when fn returns nil, or not at all. fn may be
	// invoked more than once and must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn TxFunc) error

	Close(ctx context.Context) error
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Tx is the view of the store inside a transaction.
type Tx interface {
	// Get reads a document and records its version for the commit check.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set buffers an upsert.
	Set(collection string, doc Document)

	// Create buffers an insert that fails the transaction with
	// ErrAlreadyExists when the document exists at commit.
	Create(collection string, doc Document)
}
