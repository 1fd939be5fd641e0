package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/SveinnSSR/lavashow-chat-2024/cmd/lavashow-api/handlers"
	"github.com/SveinnSSR/lavashow-chat-2024/cmd/lavashow-api/middleware"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/app"
)

// NewRouter creates the API router. The returned stop function ends
// background work owned by the router.
func NewRouter(a *app.App) (http.Handler, func()) {
	cfg := a.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(a.Logger, a.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.APIKeyHeader, "webhook-headers"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	r.Use(chimiddleware.Timeout(timeout))

	health := handlers.NewHealthHandler(cfg.OpenAI.APIKey != "", cfg.Auth.APIKey != "")
	chatHandler := handlers.NewChatHandler(a.Logger, a.Chat)
	knowledgeHandler := handlers.NewKnowledgeHandler(a.Logger, a.Engine, a.Sessions, a.Audit)

	// Unauthenticated
	r.Get("/", health.Root)
	r.Get("/chat", health.ChatStatus)
	if a.Metrics != nil {
		r.Handle("/metrics", a.Metrics.Handler())
	}

	stop := func() {}
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Auth.APIKey))
		if cfg.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
				Window:      cfg.RateLimit.Window,
				MaxRequests: cfg.RateLimit.MaxRequests,
			}, a.Logger)
			stop = limiter.Stop
			r.Use(limiter.Middleware)
		}

		r.Post("/chat", chatHandler.Post)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/retrieve", knowledgeHandler.Retrieve)
			r.Post("/pricing", knowledgeHandler.Pricing)
			r.Get("/sessions/{sessionId}/transcripts", knowledgeHandler.Transcripts)
		})
	})

	return r, stop
}

// defaultRequestTimeout bounds a request when the config leaves it unset.
const defaultRequestTimeout = 75 * time.Second
