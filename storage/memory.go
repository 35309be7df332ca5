package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Collection used by tests and NATS-less runs.
// It provides the same atomic insert-with-duplicate-rejection semantics
// as the KV-backed collection, guarded by a mutex.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Doc
}

// NewMemory creates an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Doc)}
}

var _ Collection = (*Memory)(nil)

// FindID implements Collection.
func (m *Memory) FindID(_ context.Context, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// FindPrefix implements Collection.
func (m *Memory) FindPrefix(_ context.Context, field, prefix string) ([]Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Doc
	for _, doc := range m.docs {
		if v, ok := doc[field].(string); ok && strings.HasPrefix(v, prefix) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// CountPrefix implements Collection.
func (m *Memory) CountPrefix(ctx context.Context, field, prefix string) (int, error) {
	docs, err := m.FindPrefix(ctx, field, prefix)
	return len(docs), err
}

// Insert implements Collection. It fails with ErrExists for a duplicate
// identity key while holding the write lock, so concurrent inserts of the
// same identity cannot both succeed.
func (m *Memory) Insert(_ context.Context, doc Doc) error {
	id := doc.ID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return ErrExists
	}
	m.docs[id] = doc.Clone()
	return nil
}

// Replace implements Collection.
func (m *Memory) Replace(_ context.Context, id string, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	stored := doc.Clone()
	stored[IDKey] = id
	m.docs[id] = stored
	return nil
}

// Apply implements Collection.
func (m *Memory) Apply(_ context.Context, id string, update Update) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated, err := applyUpdate(doc, update)
	if err != nil {
		return nil, err
	}
	m.docs[id] = updated
	return updated.Clone(), nil
}

// Delete implements Collection.
func (m *Memory) Delete(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	return 1, nil
}

// Upsert implements Collection.
func (m *Memory) Upsert(_ context.Context, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID()] = doc.Clone()
	return nil
}
