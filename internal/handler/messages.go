package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/middleware"
	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/service"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	store          *store.Store
	messageService *service.MessageService
	logger         *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(st *store.Store, msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{store: st, messageService: msgSvc, logger: log}
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

type replyRequest struct {
	Text string `json:"text"`
}

// Send handles POST /api/v1/chat
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.messageService.Send(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SendVoice handles POST /api/v1/chat/voice
func (h *MessageHandler) SendVoice(w http.ResponseWriter, r *http.Request) {
	var req model.SendVoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.messageService.SendVoice(&req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SendFiles handles POST /api/v1/chat/files
func (h *MessageHandler) SendFiles(w http.ResponseWriter, r *http.Request) {
	var req model.SendFilesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msgs, err := h.messageService.SendFiles(&req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"conversationId": h.store.ActiveConversationID(),
		"messages":       msgs,
	})
}

func (h *MessageHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrNoFiles):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConversationNotFound):
		writeError(w, http.StatusConflict, "conversation was removed")
	default:
		h.logger.Error("failed to send message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send message")
	}
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.store.Conversation(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": conv.Messages,
		"total":    len(conv.Messages),
	})
}

// Add handles POST /api/v1/conversations/:id/messages. It appends the message
// as given without generating a reply.
func (h *MessageHandler) Add(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if _, ok := h.store.Conversation(conversationID); !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var msg model.Message
	if !decodeJSON(w, r, &msg) {
		return
	}
	if msg.Sender != model.SenderUser && msg.Sender != model.SenderAI {
		writeError(w, http.StatusBadRequest, "sender must be user or ai")
		return
	}
	if msg.ID != "" {
		if _, exists := h.store.Message(conversationID, msg.ID); exists {
			writeError(w, http.StatusConflict, "message id already exists")
			return
		}
	}

	if !h.store.AddMessageTo(conversationID, msg) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	conv, _ := h.store.Conversation(conversationID)
	writeJSON(w, http.StatusCreated, conv.Messages[len(conv.Messages)-1])
}

// Get handles GET /api/v1/conversations/:id/messages/:mid
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.store.Message(chi.URLParam(r, "id"), chi.URLParam(r, "mid"))
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Update handles PATCH /api/v1/conversations/:id/messages/:mid
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	conversationID, messageID := chi.URLParam(r, "id"), chi.URLParam(r, "mid")
	if _, ok := h.store.Message(conversationID, messageID); !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	var patch model.MessagePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Text != nil {
		if err := middleware.ValidateMessageText(*patch.Text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.store.UpdateMessage(conversationID, messageID, patch)
	h.writeMessage(w, conversationID, messageID)
}

// Delete handles DELETE /api/v1/conversations/:id/messages/:mid
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID, messageID := chi.URLParam(r, "id"), chi.URLParam(r, "mid")
	if _, ok := h.store.Message(conversationID, messageID); !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	h.store.DeleteMessage(conversationID, messageID)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleReaction handles POST /api/v1/conversations/:id/messages/:mid/reactions
func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	conversationID, messageID := chi.URLParam(r, "id"), chi.URLParam(r, "mid")
	if _, ok := h.store.Message(conversationID, messageID); !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	var req reactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateEmoji(req.Emoji); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.ToggleReaction(conversationID, messageID, req.Emoji, middleware.GetUserID(r.Context()))
	h.writeMessage(w, conversationID, messageID)
}

// Reply handles POST /api/v1/conversations/:id/messages/:mid/replies
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	conversationID, messageID := chi.URLParam(r, "id"), chi.URLParam(r, "mid")
	if _, ok := h.store.Message(conversationID, messageID); !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	var req replyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.AddReply(conversationID, messageID, model.NewTextMessage(model.SenderUser, req.Text))
	msg, ok := h.store.Message(conversationID, messageID)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) writeMessage(w http.ResponseWriter, conversationID, messageID string) {
	msg, ok := h.store.Message(conversationID, messageID)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
