// Package persist serializes and restores the chat store under named keys
// in a durable key-value backend.
package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by backends when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a durable key-value record store.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases the backend.
	Close() error
}

// MemoryBackend keeps records in process memory. It is used for ephemeral
// runs and in tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte

	// PutErr, when set, is returned by every Put.
	PutErr error
	// GetErr, when set, is returned by every Get.
	GetErr error
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Name returns the backend name.
func (b *MemoryBackend) Name() string { return "memory" }

// Get returns a copy of the value stored under key.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.GetErr != nil {
		return nil, b.GetErr
	}
	v, ok := b.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (b *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.PutErr != nil {
		return b.PutErr
	}
	b.data[key] = append([]byte(nil), value...)
	return nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
