// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/export"
	"github.com/capitalize-ai/chatstore/internal/middleware"
	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st *store.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{store: st, logger: log}
}

// setActiveRequest selects a conversation; an empty id clears the selection.
type setActiveRequest struct {
	ID string `json:"id"`
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.store.AddConversation()
	conv, _ := h.store.Conversation(id)
	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations, optionally narrowed by ?folder=
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	var convs []model.Conversation
	if folderID := r.URL.Query().Get("folder"); folderID != "" {
		if _, ok := h.store.Folder(folderID); !ok {
			writeError(w, http.StatusNotFound, "folder not found")
			return
		}
		convs = h.store.ConversationsInFolder(folderID)
	} else {
		convs = h.store.Conversations()
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations:        convs,
		Total:                len(convs),
		ActiveConversationID: h.store.ActiveConversationID(),
	})
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.store.Conversation(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Update handles PATCH /api/v1/conversations/:id
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if _, ok := h.store.Conversation(conversationID); !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var patch model.ConversationPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Title != nil {
		if err := middleware.ValidateTitle(*patch.Title); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.FolderID != nil {
		if _, ok := h.store.Folder(*patch.FolderID); !ok {
			writeError(w, http.StatusBadRequest, "folder not found")
			return
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	h.store.UpdateConversation(conversationID, patch)
	conv, ok := h.store.Conversation(conversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if _, ok := h.store.Conversation(conversationID); !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	h.store.DeleteConversation(conversationID)
	w.WriteHeader(http.StatusNoContent)
}

// GetActive handles GET /api/v1/conversations/active
func (h *ConversationHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.store.ActiveConversation()
	if !ok {
		writeError(w, http.StatusNotFound, "no active conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// SetActive handles PUT /api/v1/conversations/active
func (h *ConversationHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID != "" {
		if _, ok := h.store.Conversation(req.ID); !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
	}

	h.store.SetActiveConversation(req.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"activeConversationId": h.store.ActiveConversationID(),
	})
}

// MarkImportant handles POST /api/v1/conversations/:id/important
func (h *ConversationHandler) MarkImportant(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.store.MarkAsImportant)
}

// UnmarkImportant handles DELETE /api/v1/conversations/:id/important
func (h *ConversationHandler) UnmarkImportant(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.store.UnmarkAsImportant)
}

// Archive handles POST /api/v1/conversations/:id/archive
func (h *ConversationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.store.ArchiveConversation)
}

// Unarchive handles DELETE /api/v1/conversations/:id/archive
func (h *ConversationHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.store.UnarchiveConversation)
}

func (h *ConversationHandler) setStatus(w http.ResponseWriter, r *http.Request, apply func(id string)) {
	conversationID := chi.URLParam(r, "id")
	if _, ok := h.store.Conversation(conversationID); !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	apply(conversationID)
	conv, _ := h.store.Conversation(conversationID)
	writeJSON(w, http.StatusOK, conv)
}

// Export handles GET /api/v1/conversations/:id/export?format=json|csv
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, ok := h.store.Conversation(conversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName(conv.ID)+`"`)
	if err := export.Write(w, conv, format, nil); err != nil {
		h.logger.Error("failed to export conversation",
			logger.ConversationID(conversationID),
			zap.Error(err),
		)
	}
}
