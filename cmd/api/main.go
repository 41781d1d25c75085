// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/internal/config"
	"github.com/capitalize-ai/chatstore/internal/handler"
	"github.com/capitalize-ai/chatstore/internal/llm"
	natsclient "github.com/capitalize-ai/chatstore/internal/nats"
	"github.com/capitalize-ai/chatstore/internal/persist"
	"github.com/capitalize-ai/chatstore/internal/service"
	"github.com/capitalize-ai/chatstore/internal/store"
	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatstore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewForEnv(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("store_backend", cfg.StoreBackend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatstore", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	var natsClient *natsclient.Client
	if cfg.NeedsNATS() {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()
	}

	backend, err := openBackend(ctx, cfg, natsClient)
	if err != nil {
		return err
	}
	adapter := persist.NewAdapter(backend,
		persist.WithKey(cfg.StoreKey),
		persist.WithPreferencesKey(cfg.PreferencesKey),
		persist.WithLogger(log),
	)
	defer func() {
		if err := adapter.Close(); err != nil {
			log.Warn("failed to close store backend", zap.Error(err))
		}
	}()

	st := store.New(adapter, store.WithLogger(log.Named("store")))
	st.Load()

	// The publisher outlives the HTTP server so in-flight mutations still
	// reach the stream; it drains before the store flushes and closes.
	var history handler.EventHistory
	publisherCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()
	publisherDone := make(chan struct{})
	close(publisherDone)
	if cfg.NATSEventsEnabled {
		streamManager := natsclient.NewStreamManager(natsClient.JetStream())
		if err := streamManager.EnsureStream(ctx); err != nil {
			return err
		}
		history = streamManager

		publisher := natsclient.NewEventPublisher(natsClient.JetStream(), 1024, log)
		unsubscribe := st.Subscribe(publisher.Handle)
		defer unsubscribe()

		publisherDone = make(chan struct{})
		go func() {
			publisher.Run(publisherCtx)
			close(publisherDone)
		}()
	}

	generator, err := newGenerator(cfg, log)
	if err != nil {
		return err
	}
	messageSvc := service.NewMessageService(st, generator, log)

	checks := map[string]handler.Checker{"store": adapter}
	if natsClient != nil {
		checks["nats"] = natsClient
	}

	router := handler.NewRouter(handler.RouterConfig{
		Store:             st,
		MessageService:    messageSvc,
		Preferences:       adapter,
		History:           history,
		Health:            handler.NewHealthHandler(backend.Name(), checks),
		Logger:            log,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	stop()

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	stopPublisher()
	<-publisherDone

	if err := st.Close(); err != nil {
		log.Error("failed to flush store on shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, nc *natsclient.Client) (persist.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return persist.NewFileBackend(cfg.DataDir)
	case config.BackendPebble:
		return persist.OpenPebble(filepath.Join(cfg.DataDir, "pebble"))
	case config.BackendNATS:
		return natsclient.OpenKV(ctx, nc.JetStream(), cfg.NATSKVBucket)
	case config.BackendMemory:
		return persist.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// newGenerator builds the reply generator for the configured provider. A
// missing API key leaves replies to the unavailable generator, which makes
// every send answer with the error reply.
func newGenerator(cfg *config.Config, log *logger.Logger) (llm.Generator, error) {
	if cfg.LLMAPIKey() == "" {
		log.Warn("no LLM API key configured, replies will fail", zap.String("provider", cfg.DefaultLLM))
		return llm.Unavailable{}, nil
	}
	client, err := llm.NewClient(llm.Provider(cfg.DefaultLLM), cfg.LLMAPIKey())
	if err != nil {
		return nil, err
	}
	return llm.NewGenerator(client, cfg.LLMModel, log), nil
}
