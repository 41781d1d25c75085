package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/chatstore/internal/persist"
)

// DefaultBucket is the key-value bucket holding store records.
const DefaultBucket = "CHATSTORE"

// KVBackend stores records in a JetStream key-value bucket.
type KVBackend struct {
	kv jetstream.KeyValue
}

// OpenKV binds to bucket, creating it when it does not exist yet.
func OpenKV(ctx context.Context, js jetstream.JetStream, bucket string) (*KVBackend, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Persisted chat store snapshots and preferences",
			History:     5,
			Storage:     jetstream.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
	}
	return NewKVBackend(kv), nil
}

// NewKVBackend wraps an existing bucket.
func NewKVBackend(kv jetstream.KeyValue) *KVBackend {
	return &KVBackend{kv: kv}
}

// Name returns the backend name.
func (b *KVBackend) Name() string { return "nats" }

// Get returns the latest value stored under key.
func (b *KVBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

// Put replaces the value stored under key.
func (b *KVBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

// Close is a no-op; the connection is owned by Client.
func (b *KVBackend) Close() error { return nil }
