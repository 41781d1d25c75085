package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/chatstore/internal/middleware"
	"github.com/capitalize-ai/chatstore/internal/service"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
)

// RouterConfig holds everything the API routes are built from.
type RouterConfig struct {
	Store          *store.Store
	MessageService *service.MessageService
	Preferences    PreferencesStore
	History        EventHistory
	Health         *HealthHandler
	Logger         *logger.Logger

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler("", nil)
	}

	conversationHandler := NewConversationHandler(cfg.Store, log)
	messageHandler := NewMessageHandler(cfg.Store, cfg.MessageService, log)
	folderHandler := NewFolderHandler(cfg.Store)
	searchHandler := NewSearchHandler(cfg.Store)
	preferencesHandler := NewPreferencesHandler(cfg.Preferences, log)
	streamHandler := NewStreamHandler(cfg.Store, cfg.MessageService, cfg.History, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Identity)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", messageHandler.Send)
			r.Post("/stream", streamHandler.ChatStream)
			r.Post("/voice", messageHandler.SendVoice)
			r.Post("/files", messageHandler.SendFiles)
		})

		r.Get("/events", streamHandler.Events)
		r.Get("/search", searchHandler.Search)

		r.Get("/preferences", preferencesHandler.Get)
		r.Put("/preferences", preferencesHandler.Put)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)
			r.Get("/active", conversationHandler.GetActive)
			r.Put("/active", conversationHandler.SetActive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Patch("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)

				r.Post("/important", conversationHandler.MarkImportant)
				r.Delete("/important", conversationHandler.UnmarkImportant)
				r.Post("/archive", conversationHandler.Archive)
				r.Delete("/archive", conversationHandler.Unarchive)

				r.Get("/export", conversationHandler.Export)
				r.Get("/events", streamHandler.History)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Add)
				r.Route("/messages/{mid}", func(r chi.Router) {
					r.Get("/", messageHandler.Get)
					r.Patch("/", messageHandler.Update)
					r.Delete("/", messageHandler.Delete)
					r.Post("/reactions", messageHandler.ToggleReaction)
					r.Post("/replies", messageHandler.Reply)
				})
			})
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", folderHandler.List)
			r.Post("/", folderHandler.Create)
			r.Get("/{id}", folderHandler.Get)
			r.Patch("/{id}", folderHandler.Update)
			r.Delete("/{id}", folderHandler.Delete)
		})
	})

	return r
}
