// Package main is the entry point for the help-desk assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/maxpilipovic/INB-internal-project/internal/blob"
	"github.com/maxpilipovic/INB-internal-project/internal/config"
	"github.com/maxpilipovic/INB-internal-project/internal/events"
	"github.com/maxpilipovic/INB-internal-project/internal/freshservice"
	"github.com/maxpilipovic/INB-internal-project/internal/handler"
	"github.com/maxpilipovic/INB-internal-project/internal/intent"
	"github.com/maxpilipovic/INB-internal-project/internal/llm"
	"github.com/maxpilipovic/INB-internal-project/internal/middleware"
	"github.com/maxpilipovic/INB-internal-project/internal/service"
	"github.com/maxpilipovic/INB-internal-project/internal/session"
	"github.com/maxpilipovic/INB-internal-project/internal/store"
	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
	"github.com/maxpilipovic/INB-internal-project/pkg/tracing"
)

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting help-desk API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "helpdesk-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Document store
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Event publishing is optional; without NATS the assistant runs with a
	// no-op publisher.
	var publisher events.Publisher = events.Noop{}
	var natsConn handler.ConnChecker
	if cfg.NATSURL != "" {
		js, err := events.Connect(ctx, events.Config{URL: cfg.NATSURL, Token: cfg.NATSToken}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			defer js.Close()
			publisher = js
			natsConn = js
		}
	}

	// Completion client
	apiKey := cfg.OpenAIAPIKey
	if llm.Provider(cfg.LLMProvider) == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(llm.Provider(cfg.LLMProvider), apiKey)
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}

	// Ticketing gateway
	tickets := freshservice.NewClient(cfg.FreshServiceBaseURL, cfg.FreshServiceAPIKey, cfg.FreshServiceWorkspaceID)

	// Services
	blobs := blob.NewDocumentStore(st, cfg.BaseURL, cfg.AttachmentTTL)
	chatSvc := service.New(service.Deps{
		Store:      st,
		Sessions:   session.NewAdapter(st, llmClient, cfg.LLMModel, log),
		Classifier: intent.NewClassifier(llmClient, cfg.LLMModel, log),
		LLM:        llmClient,
		LLMModel:   cfg.LLMModel,
		Tickets:    tickets,
		Blobs:      blobs,
		Events:     publisher,
		Logger:     log,
	})

	// Handlers
	healthHandler := handler.NewHealthHandler(st, natsConn)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	attachmentHandler := handler.NewAttachmentHandler(blobs, log)

	// Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatHandler.Send)
			r.Post("/preview-ticket", chatHandler.Preview)
			r.Post("/confirm-ticket", chatHandler.Confirm)
			r.Get("/{sessionID}", chatHandler.GetSession)
		})

		r.Get("/attachments/{id}", attachmentHandler.Get)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
