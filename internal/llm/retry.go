package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

const (
	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	attemptTimeout = 15 * time.Second
)

// RetryConfig holds retry and circuit breaker configuration.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration

	// BreakerFailures consecutive failed calls open the breaker for BreakerOpen.
	BreakerFailures uint32
	BreakerOpen     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     maxAttempts,
		InitialBackoff:  initialBackoff,
		MaxBackoff:      maxBackoff,
		AttemptTimeout:  attemptTimeout,
		BreakerFailures: 5,
		BreakerOpen:     30 * time.Second,
	}
}

// HTTPError is a provider failure carrying an HTTP status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// shouldRetry determines if a status code is retryable.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// calculateBackoff returns initialBackoff * 2^attempt, capped at MaxBackoff.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// Resilient wraps a Provider with per-attempt timeouts, retries with
// exponential backoff and a circuit breaker.
type Resilient struct {
	next    Provider
	cfg     RetryConfig
	breaker *gobreaker.CircuitBreaker
	logger  *observability.Logger
	metrics *observability.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewResilient wraps next.
func NewResilient(next Provider, cfg RetryConfig, logger *observability.Logger, metrics *observability.Metrics) *Resilient {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	logger = logger.WithOperation("llm")

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Rejected input says nothing about provider health.
			return err == nil || domain.IsKind(err, domain.KindValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &Resilient{
		next:    next,
		cfg:     cfg,
		breaker: breaker,
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
	}
}

func (r *Resilient) Name() string {
	return r.next.Name()
}

// State reports the circuit breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

// Complete runs the request through the breaker and retry loop. Errors are
// classified as domain errors: rate_limit, timeout, upstream or validation.
func (r *Resilient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.completeWithRetry(ctx, req)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.UpstreamError("completion provider unavailable", err)
		}
		r.metrics.ObserveLLM(string(domain.KindOf(err)), time.Since(start))
		return nil, err
	}

	r.metrics.ObserveLLM("ok", time.Since(start))
	return out.(*CompletionResponse), nil
}

func (r *Resilient) completeWithRetry(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, classify(err)
		}

		resp, err := r.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = classify(err)

		if !retryable(err) || attempt == r.cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, r.cfg)
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", r.cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("Completion failed, retrying")

		if err := r.sleep(ctx, backoff); err != nil {
			return nil, classify(err)
		}
	}

	return nil, lastErr
}

func (r *Resilient) attempt(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if r.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()
	}
	return r.next.Complete(ctx, req)
}

func retryable(err error) bool {
	if code := errorStatus(err); code != 0 {
		return shouldRetry(code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func errorStatus(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return statusCode(err)
}

// classify maps a provider failure onto the domain error kinds.
func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	code := errorStatus(err)
	switch {
	case code == http.StatusTooManyRequests:
		return domain.RateLimitError("completion provider rate limited", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.TimeoutError("completion request timed out", err)
	case code >= 400 && code < 500:
		return domain.ValidationError("completion request rejected", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.TimeoutError("completion request timed out", err)
		}
		return domain.UpstreamError("completion provider unreachable", err)
	}
	return domain.UpstreamError("completion failed", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
