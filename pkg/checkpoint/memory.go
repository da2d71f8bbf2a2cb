package checkpoint

import (
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. Checkpoints are kept
// encoded, so loads always return detached copies.
type MemoryStore struct {
	mu    sync.RWMutex
	codec *Codec
	data  map[string][]byte
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore(codec *Codec) *MemoryStore {
	return &MemoryStore{
		codec: codec,
		data:  make(map[string][]byte),
	}
}

// Save stores cp.
func (s *MemoryStore) Save(cp *Checkpoint) error {
	data, err := s.codec.Encode(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[cp.Name] = data
	return nil
}

// Load retrieves a checkpoint by name.
func (s *MemoryStore) Load(name string) (*Checkpoint, error) {
	s.mu.RLock()
	data, exists := s.data[name]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.codec.Decode(data)
}

// Delete removes a checkpoint.
func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, name)
	return nil
}

// List returns the stored names in sorted order.
func (s *MemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Count returns the number of stored checkpoints.
func (s *MemoryStore) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.data))
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
