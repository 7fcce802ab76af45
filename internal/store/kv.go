package store

import (
	"context"
	"sync"
)

// KV is a string-keyed byte store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
}

// Deleter is implemented by stores that can remove keys.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-memory KV, safe for concurrent use.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failGet and failSet, when non-nil, are returned by Get and Set.
	failGet error
	failSet error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failGet != nil {
		return nil, false, m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns a snapshot of the stored keys.
func (m *MemoryKV) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// FailGet makes every subsequent Get return err. Pass nil to recover.
func (m *MemoryKV) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = err
}

// FailSet makes every subsequent Set return err. Pass nil to recover.
func (m *MemoryKV) FailSet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = err
}
