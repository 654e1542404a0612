package snapshot

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps snapshots in memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]Snapshot
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Snapshot),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	if s.Name == "" {
		return ErrNoName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy entries to avoid retaining the caller's slice.
	s.Entries = cloneEntries(s.Entries)
	m.data[s.Name] = s
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, name string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	s, ok := m.data[name]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	s.Entries = cloneEntries(s.Entries)
	return s, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for _, name := range slices.Sorted(maps.Keys(m.data)) {
		s := m.data[name]
		infos = append(infos, Info{Name: s.Name, Taken: s.Taken, Entries: len(s.Entries)})
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, name)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// cloneEntries copies entries. The result is never nil, matching what the
// SQLite store loads for a snapshot without entries.
func cloneEntries(entries []Entry) []Entry {
	return append(make([]Entry, 0, len(entries)), entries...)
}
