package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatstore/internal/llm"
	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/store"
)

type fakeGenerator struct {
	reply  string
	err    error
	tokens []string

	// before runs while the completion is in flight.
	before  func()
	prompts []string

	// honorCancel fails the completion when ctx is done, as real providers do.
	honorCancel bool
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.honorCancel && ctx.Err() != nil {
		return "", ctx.Err()
	}
	if g.before != nil {
		g.before()
	}
	return g.reply, g.err
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, prompt string, cb llm.TokenFunc) (string, error) {
	for i, tok := range g.tokens {
		if err := cb(tok, i); err != nil {
			return "", err
		}
	}
	return g.Generate(ctx, prompt)
}

func TestSend_CreatesConversationAndAppendsReply(t *testing.T) {
	st := store.New(nil)
	gen := &fakeGenerator{reply: "Hello! How can I help?"}
	svc := NewMessageService(st, gen, nil)

	resp, err := svc.Send(context.Background(), &model.SendMessageRequest{Text: "  hello there  "})
	require.NoError(t, err)

	assert.Equal(t, st.ActiveConversationID(), resp.ConversationID)
	assert.Equal(t, []string{"hello there"}, gen.prompts)
	require.NotNil(t, resp.Reply)
	assert.False(t, resp.ReplyDropped)

	c, ok := st.Conversation(resp.ConversationID)
	require.True(t, ok)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, model.SenderUser, c.Messages[0].Sender)
	assert.Equal(t, "hello there", c.Messages[0].Text)
	assert.Equal(t, model.SenderAI, c.Messages[1].Sender)
	assert.Equal(t, "Hello! How can I help?", c.Messages[1].Text)
	assert.Equal(t, "hello there", c.Title)
}

func TestSend_EmptyText(t *testing.T) {
	st := store.New(nil)
	svc := NewMessageService(st, &fakeGenerator{}, nil)

	_, err := svc.Send(context.Background(), &model.SendMessageRequest{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, st.Conversations())
}

func TestSend_GenerationFailureAppendsApology(t *testing.T) {
	st := store.New(nil)
	svc := NewMessageService(st, &fakeGenerator{err: errors.New("rate limited")}, nil)

	resp, err := svc.Send(context.Background(), &model.SendMessageRequest{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	assert.True(t, resp.Reply.IsError)
	assert.Equal(t, model.ErrorReplyText, resp.Reply.Text)

	c, _ := st.Conversation(resp.ConversationID)
	require.Len(t, c.Messages, 2)
	assert.True(t, c.Messages[1].IsError)
}

func TestSend_ReplyFollowsOriginConversation(t *testing.T) {
	st := store.New(nil)
	origin := st.AddConversation()

	gen := &fakeGenerator{reply: "answer"}
	gen.before = func() { st.AddConversation() }
	svc := NewMessageService(st, gen, nil)

	resp, err := svc.Send(context.Background(), &model.SendMessageRequest{Text: "question"})
	require.NoError(t, err)
	assert.Equal(t, origin, resp.ConversationID)
	assert.NotEqual(t, origin, st.ActiveConversationID())

	c, _ := st.Conversation(origin)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "answer", c.Messages[1].Text)

	active, _ := st.ActiveConversation()
	assert.Empty(t, active.Messages)
}

func TestSend_ReplyDroppedWhenOriginDeleted(t *testing.T) {
	st := store.New(nil)
	origin := st.AddConversation()

	var events []model.ChangeEvent
	st.Subscribe(func(ev model.ChangeEvent) { events = append(events, ev) })

	gen := &fakeGenerator{reply: "too late"}
	gen.before = func() { st.DeleteConversation(origin) }
	svc := NewMessageService(st, gen, nil)

	resp, err := svc.Send(context.Background(), &model.SendMessageRequest{Text: "question"})
	require.NoError(t, err)
	assert.True(t, resp.ReplyDropped)
	assert.Nil(t, resp.Reply)
	assert.Empty(t, st.Conversations())

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, model.EventReplyDropped, last.Type)
	assert.Equal(t, origin, last.ConversationID)
}

func TestSendWithStream(t *testing.T) {
	st := store.New(nil)
	gen := &fakeGenerator{reply: "Hi!", tokens: []string{"H", "i", "!"}}
	svc := NewMessageService(st, gen, nil)

	var tokens []string
	resp, err := svc.SendWithStream(context.Background(), &model.SendMessageRequest{Text: "hey"},
		func(token string, _ int) error {
			tokens = append(tokens, token)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"H", "i", "!"}, tokens)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "Hi!", resp.Reply.Text)
}

func TestSendVoice(t *testing.T) {
	st := store.New(nil)
	svc := NewMessageService(st, &fakeGenerator{}, nil)

	resp, err := svc.SendVoice(&model.SendVoiceRequest{AudioURL: "blob:voice-1"})
	require.NoError(t, err)

	c, _ := st.Conversation(resp.ConversationID)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, model.MessageTypeVoice, c.Messages[0].Type)
	assert.Equal(t, model.VoicePlaceholderText, c.Messages[0].Text)
	assert.Equal(t, "blob:voice-1", c.Messages[0].AudioURL)

	_, err = svc.SendVoice(&model.SendVoiceRequest{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendFiles(t *testing.T) {
	st := store.New(nil)
	svc := NewMessageService(st, &fakeGenerator{}, nil)

	msgs, err := svc.SendFiles(&model.SendFilesRequest{Files: []model.FileUpload{
		{Name: "cat.png", Size: 120, Type: "image/png", URL: "blob:cat"},
		{Name: "notes.pdf", Size: 900, Type: "application/pdf", URL: "blob:notes"},
	}})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.MessageTypeImage, msgs[0].Type)
	assert.Equal(t, "![cat.png](blob:cat)", msgs[0].Text)
	assert.Equal(t, model.MessageTypeFile, msgs[1].Type)
	assert.Equal(t, "[notes.pdf](blob:notes)", msgs[1].Text)

	active, _ := st.ActiveConversation()
	assert.Len(t, active.Messages, 2)

	_, err = svc.SendFiles(&model.SendFilesRequest{})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestSend_CallerCancellationDoesNotAbortReply(t *testing.T) {
	st := store.New(nil)
	svc := NewMessageService(st, &fakeGenerator{reply: "still here", honorCancel: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Send(ctx, &model.SendMessageRequest{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	assert.False(t, resp.Reply.IsError)

	c, ok := st.Conversation(resp.ConversationID)
	require.True(t, ok)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "still here", c.Messages[1].Text)
	assert.False(t, c.Messages[1].IsError)
}

func TestSendWithStream_CallerCancellationDoesNotAbortReply(t *testing.T) {
	st := store.New(nil)
	gen := &fakeGenerator{reply: "streamed", tokens: []string{"str", "eamed"}, honorCancel: true}
	svc := NewMessageService(st, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.SendWithStream(ctx, &model.SendMessageRequest{Text: "hi"}, func(string, int) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "streamed", resp.Reply.Text)
	assert.False(t, resp.Reply.IsError)
}
