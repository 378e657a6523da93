package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/examprep/internal/metrics"
	"github.com/abhisek/examprep/internal/retry"
)

// Key addresses one document.
type Key struct {
	Collection string
	ID         string
}

// Write is a buffered transactional write.
type Write struct {
	Key
	Data   map[string]any
	Create bool
}

// GetFunc reads committed state.
type GetFunc func(ctx context.Context, collection, id string) (*Document, error)

// Buffer is an optimistic Tx: reads go straight to committed state and
// record the observed version, writes are held until commit.
type Buffer struct {
	get    GetFunc
	reads  map[Key]int64
	writes []Write
	err    error
}

// NewBuffer returns an empty Buffer reading through get.
func NewBuffer(get GetFunc) *Buffer {
	return &Buffer{get: get, reads: make(map[Key]int64)}
}

func (b *Buffer) Get(ctx context.Context, collection, id string) (*Document, error) {
	k := Key{Collection: collection, ID: id}

	// Read-your-writes within the transaction.
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].Key == k {
			return &Document{ID: id, Data: cloneMap(b.writes[i].Data), Version: b.reads[k]}, nil
		}
	}

	doc, err := b.get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	var v int64
	if doc != nil {
		v = doc.Version
	}
	if prev, seen := b.reads[k]; seen && prev != v {
		return nil, ErrConflict
	}
	b.reads[k] = v
	return doc, nil
}

func (b *Buffer) Set(collection string, doc Document) {
	b.buffer(collection, doc, false)
}

func (b *Buffer) Create(collection string, doc Document) {
	b.buffer(collection, doc, true)
}

func (b *Buffer) buffer(collection string, doc Document, create bool) {
	data, err := Normalize(doc.Data)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.writes = append(b.writes, Write{
		Key:    Key{Collection: collection, ID: doc.ID},
		Data:   data,
		Create: create,
	})
}

// Reads returns the version observed for every document read. Zero means
// the document did not exist.
func (b *Buffer) Reads() map[Key]int64 { return b.reads }

// ReadVersion reports the version observed for k, if it was read.
func (b *Buffer) ReadVersion(k Key) (int64, bool) {
	v, ok := b.reads[k]
	return v, ok
}

// Writes returns the buffered writes in order.
func (b *Buffer) Writes() []Write { return b.writes }

// Err reports a write that could not be buffered.
func (b *Buffer) Err() error { return b.err }

// CommitFunc applies a buffer atomically, returning ErrConflict when any
// read version is stale.
type CommitFunc func(ctx context.Context, b *Buffer) error

// TxOptions tunes the optimistic loop.
type TxOptions struct {
	MaxAttempts int
	Backoff     retry.Policy
}

// DefaultTxOptions returns the loop settings used by all backends.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		MaxAttempts: DefaultMaxAttempts,
		Backoff: retry.Policy{
			InitialWait: 5 * time.Millisecond,
			MaxWait:     200 * time.Millisecond,
			Multiplier:  2.0,
		},
	}
}

// RunOptimistic runs fn against a fresh Buffer and commits it, retrying
// with backoff while commit reports ErrConflict. Errors returned by fn
// abort the loop unchanged.
func RunOptimistic(ctx context.Context, opts TxOptions, get GetFunc, fn TxFunc, commit CommitFunc) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		buf := NewBuffer(get)
		err := fn(ctx, buf)
		if err == nil {
			err = buf.Err()
		}
		if err == nil {
			err = commit(ctx, buf)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err
		metrics.TxConflicts.Inc()

		if attempt < attempts-1 {
			if err := retry.Sleep(ctx, opts.Backoff.Delay(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrTxExhausted, attempts, lastErr)
}
