package docstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use and
// implements the same optimistic commit protocol as the SQL backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Document
	opts TxOptions
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithTxOptions overrides the transaction retry settings.
func WithTxOptions(o TxOptions) MemoryOption {
	return func(m *Memory) { m.opts = o }
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data: make(map[string]map[string]Document),
		opts: DefaultTxOptions(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	coll := m.data[collection]
	docs := make([]Document, 0, len(coll))
	for _, d := range coll {
		docs = append(docs, d.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.ID, b.ID) })
	return Apply(docs, q), nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[collection][id]
	if !ok {
		return nil, nil
	}
	c := d.Clone()
	return &c, nil
}

func (m *Memory) Put(_ context.Context, collection string, doc Document) error {
	data, err := Normalize(doc.Data)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, doc.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(collection, doc.ID, data)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) RunTransaction(ctx context.Context, fn TxFunc) error {
	return RunOptimistic(ctx, m.opts, m.Get, fn, m.commit)
}

func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) commit(_ context.Context, b *Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range b.Reads() {
		if m.versionLocked(k) != v {
			return ErrConflict
		}
	}
	for _, w := range b.Writes() {
		if w.Create && m.versionLocked(w.Key) != 0 {
			return fmt.Errorf("create %s/%s: %w", w.Collection, w.ID, ErrAlreadyExists)
		}
	}
	for _, w := range b.Writes() {
		m.putLocked(w.Collection, w.ID, w.Data)
	}
	return nil
}

func (m *Memory) versionLocked(k Key) int64 {
	return m.data[k.Collection][k.ID].Version
}

func (m *Memory) putLocked(collection, id string, data map[string]any) {
	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string]Document)
		m.data[collection] = coll
	}
	prev := coll[id]
	coll[id] = Document{ID: id, Data: data, Version: prev.Version + 1}
}
