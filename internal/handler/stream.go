package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/middleware"
	"github.com/capitalize-ai/chatstore/internal/model"
	natsclient "github.com/capitalize-ai/chatstore/internal/nats"
	"github.com/capitalize-ai/chatstore/internal/service"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
)

// EventHistory replays published change events of a conversation.
type EventHistory interface {
	Events(ctx context.Context, conversationID string, afterSequence uint64, limit int) ([]natsclient.SequencedEvent, uint64, bool, error)
}

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	store          *store.Store
	messageService *service.MessageService
	history        EventHistory
	heartbeat      time.Duration
	logger         *logger.Logger
}

// NewStreamHandler creates a new stream handler. history may be nil when
// events are not published.
func NewStreamHandler(st *store.Store, msgSvc *service.MessageService, history EventHistory, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		store:          st,
		messageService: msgSvc,
		history:        history,
		heartbeat:      30 * time.Second,
		logger:         log,
	}
}

// Events handles GET /api/v1/events. It streams every store change event
// until the client disconnects.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sse, ok := openSSE(w)
	if !ok {
		return
	}

	defer metrics.TrackSSE()()

	events := make(chan model.ChangeEvent, 64)
	cancel := h.store.Subscribe(func(ev model.ChangeEvent) {
		select {
		case events <- ev:
		default:
			h.logger.Warn("SSE client too slow, dropping event",
				logger.CorrelationID(middleware.GetCorrelationID(ctx)),
				zap.String("type", string(ev.Type)),
			)
		}
	})
	defer cancel()

	sse.send("connected", map[string]string{
		"activeConversationId": h.store.ActiveConversationID(),
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected",
				logger.CorrelationID(middleware.GetCorrelationID(ctx)))
			return
		case ev := <-events:
			if err := sse.send(string(ev.Type), ev); err != nil {
				return
			}
		case <-heartbeat.C:
			sse.send("heartbeat", &model.HeartbeatEvent{Timestamp: time.Now()})
		}
	}
}

// ChatStream handles POST /api/v1/chat/stream. It sends a message and
// streams the reply tokens.
func (h *StreamHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sse, ok := openSSE(w)
	if !ok {
		return
	}

	defer metrics.TrackSSE()()

	log := h.logger.With(logger.CorrelationID(middleware.GetCorrelationID(ctx)))

	// Once the client is gone, tokens are no longer written but the reply
	// still completes and is stored.
	gone := false
	resp, err := h.messageService.SendWithStream(ctx, &req, func(token string, index int) error {
		if gone || ctx.Err() != nil {
			gone = true
			return nil
		}
		if err := sse.send("token", &model.TokenEvent{Token: token, Index: index}); err != nil {
			log.Debug("SSE token write failed", zap.Error(err))
			gone = true
		}
		return nil
	})
	if gone || ctx.Err() != nil {
		log.Debug("SSE client left before the reply finished")
		return
	}

	send := func(event string, data interface{}) {
		if err := sse.send(event, data); err != nil {
			log.Debug("SSE write failed", zap.String("event", event), zap.Error(err))
		}
	}
	if err != nil {
		send("error", &model.ErrorEvent{Code: "stream_error", Message: err.Error()})
		return
	}

	send("user_message", resp.UserMessage)
	if resp.ReplyDropped {
		send(string(model.EventReplyDropped), map[string]string{"conversationId": resp.ConversationID})
	} else if resp.Reply != nil {
		send("message_complete", resp.Reply)
	}
	send("done", map[string]bool{"success": true})
}

// History handles GET /api/v1/conversations/:id/events?after_sequence=N
func (h *StreamHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "event history is not enabled")
		return
	}
	conversationID := chi.URLParam(r, "id")

	after, err := queryUint(r, "after_sequence")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid after_sequence")
		return
	}

	events, last, hasMore, err := h.history.Events(r.Context(), conversationID, after, queryLimit(r, 50, 500))
	if err != nil {
		h.logger.Error("failed to replay events",
			logger.ConversationID(conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to replay events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":        events,
		"last_sequence": last,
		"has_more":      hasMore,
	})
}

// sseWriter writes server-sent events, flushing after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// openSSE commits the event-stream headers. It answers 500 and returns false
// when the connection cannot stream.
func openSSE(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// queryUint parses an optional unsigned query parameter.
func queryUint(r *http.Request, name string) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

// queryLimit parses the limit parameter, keeping def for missing or out of
// range values.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}
