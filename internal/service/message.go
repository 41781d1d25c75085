// Package service runs the chat send flow on top of the conversation store.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/llm"
	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
)

// ErrEmptyMessage is returned when the message text is blank.
var ErrEmptyMessage = errors.New("message text is empty")

// ErrNoFiles is returned when a file send carries no files.
var ErrNoFiles = errors.New("no files to send")

// MessageService appends user messages and generated replies to the store.
type MessageService struct {
	store     *store.Store
	generator llm.Generator
	logger    *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(st *store.Store, generator llm.Generator, log *logger.Logger) *MessageService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		store:     st,
		generator: generator,
		logger:    log.Named("message_service"),
	}
}

// Send appends a user message to the active conversation, creating one when
// none is active, and appends the generated reply to that same conversation.
// A failed completion is answered with a flagged apology instead of an error.
func (s *MessageService) Send(ctx context.Context, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	return s.send(ctx, req, func(ctx context.Context, prompt string) (string, error) {
		return s.generator.Generate(ctx, prompt)
	})
}

// SendWithStream is Send with the reply streamed to onToken as it arrives.
// An error from onToken aborts the completion like a provider failure.
func (s *MessageService) SendWithStream(ctx context.Context, req *model.SendMessageRequest, onToken llm.TokenFunc) (*model.SendMessageResponse, error) {
	return s.send(ctx, req, func(ctx context.Context, prompt string) (string, error) {
		return s.generator.GenerateStream(ctx, prompt, onToken)
	})
}

func (s *MessageService) send(
	ctx context.Context,
	req *model.SendMessageRequest,
	generate func(context.Context, string) (string, error),
) (*model.SendMessageResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// The reply goes to the conversation the prompt was sent from, even if
	// another one becomes active while the completion is running.
	origin := s.ensureActive()

	userMsg := model.NewTextMessage(model.SenderUser, text)
	userMsg.ID = newMessageID()
	if !s.store.AddMessageTo(origin, userMsg) {
		return nil, store.ErrConversationNotFound
	}

	resp := &model.SendMessageResponse{ConversationID: origin, UserMessage: userMsg}

	// A caller that hangs up does not cancel the completion: the reply still
	// belongs in the conversation.
	var reply model.Message
	content, err := generate(context.WithoutCancel(ctx), text)
	if err != nil {
		s.logger.Warn("reply generation failed, sending apology",
			logger.ConversationID(origin),
			zap.Error(err),
		)
		reply = model.NewErrorReply()
	} else {
		reply = model.NewTextMessage(model.SenderAI, content)
	}
	reply.ID = newMessageID()

	if !s.store.AddMessageTo(origin, reply) {
		s.dropReply(origin, reply.ID)
		resp.ReplyDropped = true
		return resp, nil
	}
	resp.Reply = &reply
	return resp, nil
}

// SendVoice appends a voice message to the active conversation.
func (s *MessageService) SendVoice(req *model.SendVoiceRequest) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return nil, ErrEmptyMessage
	}
	origin := s.ensureActive()

	msg := model.NewVoiceMessage(req.AudioURL)
	msg.ID = newMessageID()
	if !s.store.AddMessageTo(origin, msg) {
		return nil, store.ErrConversationNotFound
	}
	return &model.SendMessageResponse{ConversationID: origin, UserMessage: msg}, nil
}

// SendFiles appends one message per uploaded file to the active conversation.
func (s *MessageService) SendFiles(req *model.SendFilesRequest) ([]model.Message, error) {
	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}
	origin := s.ensureActive()

	out := make([]model.Message, 0, len(req.Files))
	for _, f := range req.Files {
		msg := model.NewFileMessage(f.Name, f.Size, f.Type, f.URL)
		msg.ID = newMessageID()
		if !s.store.AddMessageTo(origin, msg) {
			return out, store.ErrConversationNotFound
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *MessageService) ensureActive() string {
	if id := s.store.ActiveConversationID(); id != "" {
		return id
	}
	return s.store.AddConversation()
}

func (s *MessageService) dropReply(conversationID, messageID string) {
	metrics.RepliesDroppedTotal.Inc()
	s.logger.Warn("conversation deleted before reply arrived, dropping reply",
		logger.ConversationID(conversationID),
		logger.MessageID(messageID),
	)
	s.store.Notify(model.ChangeEvent{
		Type:           model.EventReplyDropped,
		ConversationID: conversationID,
		MessageID:      messageID,
		Reason:         "conversation deleted",
	})
}

func newMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}
