package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend stores records in an embedded Pebble database.
type PebbleBackend struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a Pebble database at path.
func OpenPebble(path string) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return &PebbleBackend{db: db}, nil
}

// Name returns the backend name.
func (b *PebbleBackend) Name() string { return "pebble" }

// Get returns a copy of the value stored under key.
func (b *PebbleBackend) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := b.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer closer.Close()

	return append([]byte(nil), v...), nil
}

// Put writes value under key with a synced write.
func (b *PebbleBackend) Put(_ context.Context, key string, value []byte) error {
	if err := b.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (b *PebbleBackend) Close() error {
	return b.db.Close()
}
