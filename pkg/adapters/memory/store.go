package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/taleweave/pkg/domain"
)

// Store implements ports.KVStore in memory.
// Collections are kept as encoded JSON so readers never alias stored values.
// Safe for concurrent use.
type Store struct {
	collections map[string][]byte
	blobs       map[string][]byte
	mu          sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string][]byte),
		blobs:       make(map[string][]byte),
	}
}

// Read decodes the collection into dst. It reports false when the collection was never written.
func (s *Store) Read(ctx context.Context, collection string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.collections[collection]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode collection %s: %w", collection, err)
	}
	return true, nil
}

// Write replaces the whole collection with value.
func (s *Store) Write(ctx context.Context, collection string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = data
	return nil
}

// GetBlob returns a copy of the blob stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// SetBlob stores a copy of data under key.
func (s *Store) SetBlob(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// DeleteBlob removes the blob.
func (s *Store) DeleteBlob(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Collections returns the names of written collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
