package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatstore/internal/middleware"
	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/internal/store"
)

// FolderHandler handles folder endpoints.
type FolderHandler struct {
	store *store.Store
}

// NewFolderHandler creates a new folder handler.
func NewFolderHandler(st *store.Store) *FolderHandler {
	return &FolderHandler{store: st}
}

type createFolderRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/v1/folders
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"folders": h.store.Folders(),
	})
}

// Create handles POST /api/v1/folders
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateFolderName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := h.store.AddFolder(req.Name)
	folder, _ := h.store.Folder(id)
	writeJSON(w, http.StatusCreated, folder)
}

// Get handles GET /api/v1/folders/:id
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	folder, ok := h.store.Folder(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// Update handles PATCH /api/v1/folders/:id
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")
	if _, ok := h.store.Folder(folderID); !ok {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}

	var patch model.FolderPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Name != nil {
		if err := middleware.ValidateFolderName(*patch.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.store.UpdateFolder(folderID, patch)
	folder, _ := h.store.Folder(folderID)
	writeJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /api/v1/folders/:id. Conversations in the folder
// move to the default folder.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")
	folder, ok := h.store.Folder(folderID)
	if !ok {
		writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	if folder.Reserved() {
		writeError(w, http.StatusConflict, "built-in folders cannot be deleted")
		return
	}
	h.store.DeleteFolder(folderID)
	w.WriteHeader(http.StatusNoContent)
}
