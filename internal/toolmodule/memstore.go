package toolmodule

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store in memory. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu        sync.RWMutex
	fragments []Fragment
}

// NewMemStore returns an empty MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append adds frag after all existing fragments, skipping checksum duplicates.
func (m *MemStore) Append(_ context.Context, frag Fragment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dup, err := prepareAppend(m.fragments, &frag)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	m.fragments = append(m.fragments, copyFragment(frag))
	return true, nil
}

// Manifest returns all tool identifiers in fragment order.
func (m *MemStore) Manifest(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return manifestOf(m.fragments), nil
}

// Fragments returns a deep copy of all fragments in append order.
func (m *MemStore) Fragments(_ context.Context) ([]Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Fragment, len(m.fragments))
	for i, f := range m.fragments {
		out[i] = copyFragment(f)
	}
	return out, nil
}

// Render returns the concatenated module text.
func (m *MemStore) Render(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return renderFragments(m.fragments), nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
