package nats

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/persist"
	"github.com/capitalize-ai/chatstore/pkg/logger"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "chat.c1.event.message_added",
		EventSubject(model.ChangeEvent{Type: model.EventMessageAdded, ConversationID: "c1"}))
	assert.Equal(t, "chat._.event.folder_created",
		EventSubject(model.ChangeEvent{Type: model.EventFolderCreated, FolderID: "f1"}))
	assert.Equal(t, "chat.c1.event.>", ConversationFilter("c1"))
}

func TestEventPublisher_PublishesQueuedEvents(t *testing.T) {
	js := &fakePublisher{}
	p := NewEventPublisher(js, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Handle(model.ChangeEvent{Type: model.EventConversationCreated, ConversationID: "c1"})
	p.Handle(model.ChangeEvent{Type: model.EventMessageAdded, ConversationID: "c1", MessageID: "m1"})

	require.Eventually(t, func() bool { return js.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "chat.c1.event.message_added", js.msgs[1].subject)
	var ev model.ChangeEvent
	require.NoError(t, json.Unmarshal(js.msgs[1].data, &ev))
	assert.Equal(t, "m1", ev.MessageID)
}

func TestEventPublisher_DrainsOnShutdown(t *testing.T) {
	js := &fakePublisher{}
	p := NewEventPublisher(js, 8, nil)

	p.Handle(model.ChangeEvent{Type: model.EventFolderCreated})
	p.Handle(model.ChangeEvent{Type: model.EventFolderDeleted})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	assert.Equal(t, 2, js.count())
}

func TestEventPublisher_DropsWhenFull(t *testing.T) {
	js := &fakePublisher{}
	p := NewEventPublisher(js, 1, nil)

	p.Handle(model.ChangeEvent{Type: model.EventFolderCreated})
	p.Handle(model.ChangeEvent{Type: model.EventFolderUpdated})

	assert.Len(t, p.events, 1)
}

func TestEventPublisher_PublishErrorIsNotFatal(t *testing.T) {
	js := &fakePublisher{err: errors.New("no responders")}
	p := NewEventPublisher(js, 4, nil)
	p.Handle(model.ChangeEvent{Type: model.EventFolderCreated})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { p.Run(ctx) })
	assert.Equal(t, 0, js.count())
}

// fakeKV implements the parts of jetstream.KeyValue used by KVBackend.
type fakeKV struct {
	jetstream.KeyValue
	data map[string][]byte
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func TestKVBackend(t *testing.T) {
	b := NewKVBackend(&fakeKV{data: map[string][]byte{}})
	ctx := context.Background()

	_, err := b.Get(ctx, "chat-store")
	assert.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, b.Put(ctx, "chat-store", []byte(`{"version":1}`)))
	got, err := b.Get(ctx, "chat-store")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(got))
	assert.Equal(t, "nats", b.Name())
}

func TestKVBackend_WithAdapter(t *testing.T) {
	adapter := persist.NewAdapter(NewKVBackend(&fakeKV{data: map[string][]byte{}}))

	snap := model.SeedSnapshot()
	snap.Folders = append(snap.Folders, model.Folder{ID: "f1", Name: "Work"})
	require.NoError(t, adapter.Save(snap))

	loaded := adapter.Load()
	assert.Equal(t, snap.Folders, loaded.Folders)
}

func TestClientCheck_NotConnected(t *testing.T) {
	c := &Client{logger: logger.NewNop()}
	assert.ErrorIs(t, c.Check(context.Background()), ErrNotConnected)
}

func TestConnectOptions(t *testing.T) {
	opts, err := connectOptions(Config{URL: "nats://localhost:4222", Token: "secret"}, logger.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	_, err = connectOptions(Config{
		CAFile:   filepath.Join(t.TempDir(), "missing-ca.pem"),
		CertFile: "cert.pem",
		KeyFile:  "key.pem",
	}, logger.NewNop())
	assert.ErrorContains(t, err, "failed to read CA file")
}
