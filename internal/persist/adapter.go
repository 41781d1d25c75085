package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
	"github.com/capitalize-ai/chatstore/pkg/tracing"
)

const (
	// DefaultKey is the record holding the chat state.
	DefaultKey = "chat-store"

	// DefaultPreferencesKey is the record holding presentation preferences.
	DefaultPreferencesKey = "theme-storage"

	defaultTimeout = 5 * time.Second
)

// Adapter round-trips the full store snapshot and the preferences record
// through a Backend.
type Adapter struct {
	backend  Backend
	key      string
	prefsKey string
	timeout  time.Duration
	logger   *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKey sets the chat state record key.
func WithKey(key string) Option {
	return func(a *Adapter) { a.key = key }
}

// WithPreferencesKey sets the preferences record key.
func WithPreferencesKey(key string) Option {
	return func(a *Adapter) { a.prefsKey = key }
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an adapter over backend.
func NewAdapter(backend Backend, opts ...Option) *Adapter {
	a := &Adapter{
		backend:  backend,
		key:      DefaultKey,
		prefsKey: DefaultPreferencesKey,
		timeout:  defaultTimeout,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend returns the underlying backend.
func (a *Adapter) Backend() Backend { return a.backend }

// Load reads the chat state. It never fails: an absent, unreadable or
// unparsable record yields the seed snapshot.
func (a *Adapter) Load() model.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	data, err := a.backend.Get(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		a.logger.Info("no persisted state, starting from seed", zap.String("key", a.key))
		metrics.PersistenceSeedsTotal.WithLabelValues("absent").Inc()
		return model.SeedSnapshot()
	}
	if err != nil {
		a.logger.Warn("failed to read persisted state, starting from seed",
			zap.String("key", a.key), zap.String("backend", a.backend.Name()), zap.Error(err))
		metrics.PersistenceSeedsTotal.WithLabelValues("read_error").Inc()
		return model.SeedSnapshot()
	}

	snap, err := Decode(data)
	if err != nil {
		reason := "corrupt"
		if errors.Is(err, ErrUnsupportedVersion) {
			reason = "version"
		}
		a.logger.Warn("discarding persisted state, starting from seed",
			zap.String("key", a.key), zap.String("reason", reason), zap.Error(err))
		metrics.PersistenceSeedsTotal.WithLabelValues(reason).Inc()
		return model.SeedSnapshot()
	}

	snap = Repair(snap)
	a.logger.Info("persisted state loaded",
		zap.String("key", a.key),
		zap.Int("conversations", len(snap.Conversations)),
		zap.Int("folders", len(snap.Folders)),
	)
	return snap
}

// Save writes the full snapshot.
func (a *Adapter) Save(s model.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	ctx, span := tracing.Tracer().Start(ctx, "persist.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("persist.backend", a.backend.Name()),
		attribute.Int("persist.conversations", len(s.Conversations)),
	)

	start := time.Now()
	data, err := Encode(s)
	if err == nil {
		err = a.backend.Put(ctx, a.key, data)
	}
	metrics.PersistenceWriteDuration.WithLabelValues(a.backend.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot write failed")
		metrics.PersistenceWriteFailures.WithLabelValues(a.backend.Name()).Inc()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadPreferences reads the preferences record, falling back to defaults.
func (a *Adapter) LoadPreferences() model.Preferences {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	data, err := a.backend.Get(ctx, a.prefsKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("failed to read preferences", zap.String("key", a.prefsKey), zap.Error(err))
		}
		return model.DefaultPreferences()
	}

	var p model.Preferences
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		a.logger.Warn("discarding invalid preferences", zap.String("key", a.prefsKey))
		return model.DefaultPreferences()
	}
	return p
}

// SavePreferences writes the preferences record.
func (a *Adapter) SavePreferences(p model.Preferences) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := a.backend.Put(ctx, a.prefsKey, data); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Check reports whether the backend answers reads. A missing record is
// healthy: the store simply has not saved yet.
func (a *Adapter) Check(ctx context.Context) error {
	if _, err := a.backend.Get(ctx, a.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s backend: %w", a.backend.Name(), err)
	}
	return nil
}

// Close closes the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
