// Package app wires the chat service from configuration. Both the HTTP server
// and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/audit"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/cache"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/chat"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/config"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/llm"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Cache    cache.Client
	Sessions *conversation.SessionManager
	Engine   *engine.Engine
	Provider llm.Provider
	Audit    *audit.Store
	Chat     *chat.Service
}

// Options overrides parts of the wiring.
type Options struct {
	// Provider replaces the OpenAI provider. It is still wrapped with retries
	// and the circuit breaker.
	Provider llm.Provider
	// Cache replaces the configured cache backend.
	Cache cache.Client
}

// Build creates every component named by cfg. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Observability.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	client, err := newCache(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	a.Cache = client

	a.Sessions = conversation.NewSessionManager(
		conversation.NewStore(client, cfg.Chat.SessionTTL), logger, a.Metrics)

	a.Engine, err = engine.New(engine.Config{Logger: logger, Metrics: a.Metrics})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	provider := opts.Provider
	if provider == nil {
		if cfg.OpenAI.APIKey == "" {
			logger.Warn().Msg("OPENAI_API_KEY is not set, completions will fail")
		}
		provider = llm.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	}
	a.Provider = llm.NewResilient(provider, llm.RetryConfig{
		MaxAttempts:     cfg.OpenAI.MaxAttempts,
		InitialBackoff:  cfg.OpenAI.InitialBackoff,
		MaxBackoff:      cfg.OpenAI.MaxBackoff,
		AttemptTimeout:  cfg.OpenAI.Timeout,
		BreakerFailures: cfg.OpenAI.Breaker.ConsecutiveFailures,
		BreakerOpen:     cfg.OpenAI.Breaker.OpenTimeout,
	}, logger, a.Metrics)

	var recorder chat.Recorder
	if cfg.Audit.Driver != "none" {
		a.Audit, err = audit.Open(ctx, cfg.Audit.Driver, cfg.AuditDSN())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		recorder = a.Audit
	}

	a.Chat, err = chat.NewService(chat.Config{
		Model:            cfg.OpenAI.Model,
		Temperature:      cfg.OpenAI.Temperature,
		ResponseCacheTTL: cfg.Chat.ResponseCacheTTL,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryWindow:    cfg.Chat.HistoryWindow,
		DefaultLanguage:  cfg.Chat.DefaultLanguage,
	}, chat.Deps{
		Engine:   a.Engine,
		Provider: a.Provider,
		Sessions: a.Sessions,
		Cache:    client,
		Recorder: recorder,
		Logger:   logger,
		Metrics:  a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create chat service: %w", err)
	}

	logger.Info().
		Str("cache", cfg.Cache.Driver).
		Str("audit", cfg.Audit.Driver).
		Str("model", cfg.OpenAI.Model).
		Bool("metrics", a.Metrics != nil).
		Msg("Chat service ready")

	return a, nil
}

func newCache(ctx context.Context, cfg *config.Config, opts Options) (cache.Client, error) {
	if opts.Cache != nil {
		return opts.Cache, nil
	}
	switch cfg.Cache.Driver {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			URL:      cfg.Cache.Redis.URL,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return client, nil
	default:
		return cache.NewMemoryClient(cfg.Cache.MaxEntries, cfg.Cache.SweepInterval), nil
	}
}

// Close releases the cache and the audit store.
func (a *App) Close() {
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit store")
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}
