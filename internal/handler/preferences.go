package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/model"
	"github.com/capitalize-ai/chatstore/pkg/logger"
)

// PreferencesStore loads and saves presentation preferences.
type PreferencesStore interface {
	LoadPreferences() model.Preferences
	SavePreferences(model.Preferences) error
}

// PreferencesHandler handles preference endpoints.
type PreferencesHandler struct {
	prefs  PreferencesStore
	logger *logger.Logger
}

// NewPreferencesHandler creates a new preferences handler.
func NewPreferencesHandler(prefs PreferencesStore, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: log}
}

// Get handles GET /api/v1/preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.LoadPreferences())
}

// Put handles PUT /api/v1/preferences. Omitted fields keep their value.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	p := h.prefs.LoadPreferences()
	if !decodeJSON(w, r, &p) {
		return
	}
	if !p.Valid() {
		writeError(w, http.StatusBadRequest, "unknown theme or font size")
		return
	}

	if err := h.prefs.SavePreferences(p); err != nil {
		h.logger.Warn("failed to save preferences", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
