package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/gogotex/docnorm/internal/document"
)

// MemoryRepo is an in-memory repository used when no MongoDB is configured
// and in unit tests. Stored documents are deep copies.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]map[string]map[string]any
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]map[string]map[string]any)}
}

func (m *MemoryRepo) Insert(_ context.Context, collection string, values map[string]any) (any, error) {
	doc := document.Clone(values)
	id := ensureID(doc)
	key := KeyOf(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.store[collection]
	if !ok {
		col = make(map[string]map[string]any)
		m.store[collection] = col
	}
	if _, exists := col[key]; exists {
		return nil, ErrDuplicateID
	}
	col[key] = doc
	return id, nil
}

func (m *MemoryRepo) Get(_ context.Context, collection string, id any) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[collection][KeyOf(id)]; ok {
		return document.Clone(d), nil
	}
	return nil, ErrNotFound
}

// List returns the documents of a collection ordered by id key.
func (m *MemoryRepo) List(_ context.Context, collection string) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.store[collection]
	keys := make([]string, 0, len(col))
	for k := range col {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, document.Clone(col[k]))
	}
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, collection string, id any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := KeyOf(id)
	if _, ok := m.store[collection][key]; !ok {
		return ErrNotFound
	}
	delete(m.store[collection], key)
	return nil
}
