package memory

import (
	"context"
	"sync"

	"github.com/haneul-dev/addrsearch/internal/infra/kv"
)

// Store is an in-memory kv.Store for tests and ephemeral runs.
type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites forces Set to fail; used to exercise storage-failure paths.
	FailWrites bool
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errWriteFailed
	}
	s.data[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) Close() error { return nil }

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var errWriteFailed = writeError{}

type writeError struct{}

func (writeError) Error() string { return "memory: writes disabled" }
