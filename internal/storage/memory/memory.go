package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pulsepoll/pulsepoll/internal/storage"
)

// Store keeps all records in process memory. It is the storage used by tests
// and by views that opt out of durability; it honors the same contract as
// the sqlite store.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(key string, v any) error {
	const op = "storage.memory.Get"

	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Set(key string, v any) error {
	const op = "storage.memory.Set"

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Update(key string, fn func(raw []byte) ([]byte, error)) error {
	const op = "storage.memory.Update"

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.data[key])
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.data, key)
		return nil
	}
	if !json.Valid(next) {
		return fmt.Errorf("%s: invalid JSON for key %q", op, key)
	}
	s.data[key] = next
	return nil
}

func (s *Store) Close() error {
	return nil
}
