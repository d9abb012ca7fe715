// Package memory is an in-process storage.KV used for development and tests.
package memory

import (
	"context"
	"sync"

	"bankdash/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	values map[string][]byte
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, storage.Decode(key, raw, dst)
}

// Update holds the store lock for the duration of fn.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := storage.NewStaging(func(key string) ([]byte, bool, error) {
		raw, ok := s.values[key]
		return raw, ok, nil
	})
	if err := fn(staged); err != nil {
		return err
	}
	return staged.Writes(func(key string, raw []byte) error {
		s.values[key] = raw
		return nil
	})
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
