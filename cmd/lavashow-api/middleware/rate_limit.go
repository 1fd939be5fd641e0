package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

// RateLimiterConfig allows MaxRequests per Window for each client IP.
type RateLimiterConfig struct {
	Window      time.Duration
	MaxRequests int
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a per-IP token bucket. The bucket holds MaxRequests tokens
// and refills at MaxRequests per Window.
type RateLimiter struct {
	cfg    RateLimiterConfig
	logger *observability.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRateLimiter starts a limiter. Call Stop to end its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig, logger *observability.Logger) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	rl := &RateLimiter{
		cfg:      cfg,
		logger:   logger.WithOperation("rate_limit"),
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Allow consumes one token for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.limiters[ip]
	if !ok {
		every := rl.cfg.Window / time.Duration(rl.cfg.MaxRequests)
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.cfg.MaxRequests)}
		rl.limiters[ip] = cl
	}
	cl.lastAccess = now
	return cl.limiter.AllowN(now, 1)
}

// Middleware answers 429 once a client runs out of tokens.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			rl.logger.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			retry := int(math.Ceil((rl.cfg.Window / time.Duration(rl.cfg.MaxRequests)).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

// Clients reports how many IPs are tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops clients idle for a full window; their buckets are full again.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cfg.Window)
	for ip, cl := range rl.limiters {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// clientIP reads the address chi's RealIP middleware left in RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
