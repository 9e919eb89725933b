package kv

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development.
type MemoryStore struct {
	records map[string]map[string]Content
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Content),
	}
}

// Reader opens a snapshot of the record at root
func (s *MemoryStore) Reader(ctx context.Context, root string) (Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[root]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so later writes don't leak into an open reader
	snapshot := make(map[string]Content, len(record))
	for k, v := range record {
		snapshot[k] = v
	}
	return NewSnapshotReader(snapshot), nil
}

// Writer returns a writer for the record at root
func (s *MemoryStore) Writer(root string) Writer {
	return &memoryWriter{store: s, root: root}
}

// Delete removes the record at root
func (s *MemoryStore) Delete(ctx context.Context, root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, root)
	return nil
}

// List returns the roots of all records
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := make([]string, 0, len(s.records))
	for root := range s.records {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

type memoryWriter struct {
	store *MemoryStore
	root  string
}

func (w *memoryWriter) Write(ctx context.Context, fields map[string]Content) error {
	record := make(map[string]Content, len(fields))
	for k, v := range fields {
		record[k] = v
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.records[w.root] = record
	return nil
}
