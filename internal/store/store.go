// Package store holds the conversation state store: the single in-memory
// source of truth for conversations, folders and messages.
//
// Every mutation is total: references to unknown ids are silent no-ops.
// An applied mutation writes the full snapshot through the Persister and
// then notifies subscribers. A failed write is logged and swallowed; the
// in-memory state stays authoritative for the session.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/persist"
	"github.com/capitalize-ai/chatstore/internal/search"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
)

// TitleLength is the number of characters of the first user message used
// as a conversation title.
const TitleLength = 30

// ErrConversationNotFound reports a reference to a conversation that does
// not exist. Store mutations themselves never return it.
var ErrConversationNotFound = errors.New("conversation not found")

// Persister loads and saves full store snapshots.
type Persister interface {
	Load() model.Snapshot
	Save(model.Snapshot) error
}

// Subscriber receives change notifications after each applied mutation.
type Subscriber func(model.ChangeEvent)

// Store is the conversation state store.
type Store struct {
	mu            sync.RWMutex
	conversations []model.Conversation
	folders       []model.Folder
	activeID      string

	persister Persister
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string

	subMu       sync.Mutex
	subscribers map[uint64]Subscriber
	nextSub     uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation for conversations, folders and
// messages that arrive without an id.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates a store seeded with the built-in folders. A nil persister
// keeps the store purely in memory. Call Load to restore persisted state.
func New(persister Persister, opts ...Option) *Store {
	seed := model.SeedSnapshot()
	s := &Store{
		conversations: seed.Conversations,
		folders:       seed.Folders,
		persister:     persister,
		logger:        logger.NewNop(),
		now:           time.Now,
		newID:         func() string { return uuid.Must(uuid.NewV7()).String() },
		subscribers:   make(map[uint64]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted snapshot.
func (s *Store) Load() {
	if s.persister == nil {
		return
	}
	snap := persist.Repair(s.persister.Load())

	s.mu.Lock()
	s.restoreLocked(snap)
	s.mu.Unlock()

	s.logger.Info("store loaded",
		zap.Int("conversations", len(snap.Conversations)),
		zap.Int("folders", len(snap.Folders)),
		zap.String("active_conversation_id", snap.ActiveConversationID),
	)
	s.Notify(model.ChangeEvent{Type: model.EventStoreLoaded})
}

// Close flushes the current state and drops all subscribers.
func (s *Store) Close() error {
	s.subMu.Lock()
	s.subscribers = make(map[uint64]Subscriber)
	s.subMu.Unlock()

	if s.persister == nil {
		return nil
	}
	return s.persister.Save(s.Snapshot())
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// Notify delivers ev to every subscriber.
func (s *Store) Notify(ev model.ChangeEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	s.subMu.Lock()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Search evaluates query and filters over every message in the store.
func (s *Store) Search(query string, filters search.Filters) []model.Message {
	start := time.Now()
	out := search.Run(s.AllMessages(), query, filters)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	return out
}

// mutate runs fn under the write lock. When fn reports the mutation as
// applied, the snapshot is persisted before the lock is released and the
// returned event is delivered afterwards.
func (s *Store) mutate(op string, fn func() (model.ChangeEvent, bool)) bool {
	s.mu.Lock()
	ev, applied := fn()
	if applied {
		s.persistLocked(op)
	}
	s.mu.Unlock()

	metrics.RecordMutation(op, applied)
	if !applied {
		s.logger.Debug("mutation ignored", logger.Op(op))
		return false
	}
	s.Notify(ev)
	return true
}

func (s *Store) persistLocked(op string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		s.logger.Warn("failed to persist store, keeping in-memory state",
			logger.Op(op), zap.Error(err))
	}
}

func (s *Store) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Conversations:        s.conversations,
		Folders:              s.folders,
		ActiveConversationID: s.activeID,
	}.Clone()
}

func (s *Store) restoreLocked(snap model.Snapshot) {
	snap = snap.Clone()
	s.conversations = snap.Conversations
	s.folders = snap.Folders
	s.activeID = snap.ActiveConversationID
}

func (s *Store) conversationIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) folderIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.folders {
		if s.folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) event(t model.EventType) model.ChangeEvent {
	return model.ChangeEvent{Type: t, CreatedAt: s.now()}
}
