package nats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
)

// Publisher is the publishing subset of jetstream.JetStream.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher forwards store change events to JetStream. Events are
// queued by Handle and published by Run, so store mutations never wait on
// the network. When the queue is full the event is dropped.
type EventPublisher struct {
	js      Publisher
	events  chan model.ChangeEvent
	timeout time.Duration
	logger  *logger.Logger
}

// NewEventPublisher creates a publisher with a queue of size buffer.
func NewEventPublisher(js Publisher, buffer int, log *logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventPublisher{
		js:      js,
		events:  make(chan model.ChangeEvent, buffer),
		timeout: 5 * time.Second,
		logger:  log.Named("event_publisher"),
	}
}

// Handle queues ev for publishing. It is meant to be registered with
// store.Subscribe.
func (p *EventPublisher) Handle(ev model.ChangeEvent) {
	select {
	case p.events <- ev:
	default:
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "dropped").Inc()
		p.logger.Warn("event queue full, dropping event", zap.String("type", string(ev.Type)))
	}
}

// Run publishes queued events until ctx is done, then publishes whatever is
// still queued.
func (p *EventPublisher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-p.events:
			p.publish(ctx, ev)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *EventPublisher) drain() {
	for {
		select {
		case ev := <-p.events:
			p.publish(context.Background(), ev)
		default:
			return
		}
	}
}

func (p *EventPublisher) publish(ctx context.Context, ev model.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	subject := EventSubject(ev)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(uuid.Must(uuid.NewV7()).String())); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "error").Inc()
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
}
