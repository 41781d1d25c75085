package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/chatstore/internal/model"
)

const (
	// StreamName is the name of the store change event stream.
	StreamName = "CHATSTORE_EVENTS"

	// SubjectPrefix is the prefix for all change event subjects.
	SubjectPrefix = "chat"

	// storeScope stands in for the conversation id on store-wide events.
	storeScope = "_"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(js jetstream.JetStream) *StreamManager {
	return &StreamManager{js: js}
}

// EnsureStream creates the change event stream unless it already exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat store change events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject an event is published on.
func EventSubject(ev model.ChangeEvent) string {
	scope := ev.ConversationID
	if scope == "" {
		scope = storeScope
	}
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, scope, ev.Type)
}

// ConversationFilter returns the filter subject for all events of a conversation.
func ConversationFilter(conversationID string) string {
	return fmt.Sprintf("%s.%s.event.>", SubjectPrefix, conversationID)
}

// SequencedEvent is a change event with its stream sequence.
type SequencedEvent struct {
	Sequence uint64 `json:"sequence"`
	model.ChangeEvent
}

// Events replays up to limit events of a conversation published after
// afterSequence. hasMore reports that the page was full.
func (m *StreamManager) Events(ctx context.Context, conversationID string, afterSequence uint64, limit int) ([]SequencedEvent, uint64, bool, error) {
	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ConversationFilter(conversationID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.js.OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch events: %w", err)
	}

	events := make([]SequencedEvent, 0, limit)
	lastSequence := afterSequence
	for msg := range batch.Messages() {
		var ev model.ChangeEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			continue
		}
		out := SequencedEvent{ChangeEvent: ev}
		if meta, err := msg.Metadata(); err == nil {
			out.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}
		events = append(events, out)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return events, lastSequence, len(events) == limit, nil
}
