package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("preference not found")
)

// Store is the contract for the durable client-side key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// MemoryStore is a concurrency-safe in-memory implementation of Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// GetDefault returns the stored value or def when the key is absent.
func GetDefault(ctx context.Context, s Store, key, def string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) || (err == nil && v == "") {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
