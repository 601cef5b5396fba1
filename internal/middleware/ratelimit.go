package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hugs-network/trivia_layer/internal/httputil"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rate    rate.Limit
	burst   int
	log     *logger.Logger
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// IdleClientTTL is how long a client's bucket survives without requests
// once the sweeper runs.
const IdleClientTTL = 10 * time.Minute

// NewRateLimiter allows perSecond requests per client with burst. A
// non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int, log *logger.Logger) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rate:    limit,
		burst:   burst,
		log:     log,
		now:     time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()
	return c.limiter
}

// Handler is the middleware. Rejected requests get 429 with the standard
// error envelope.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := httputil.ClientIP(r)
		if !rl.limiter(key).Allow() {
			rl.log.WithField("client", key).WithField("path", r.URL.Path).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops clients idle for longer than idle and reports how many
// remain.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	return len(rl.clients)
}

// Name identifies the sweeper to the service manager.
func (rl *RateLimiter) Name() string { return "rate-limit-sweeper" }

// Start runs Cleanup every IdleClientTTL until Stop or ctx ends.
func (rl *RateLimiter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	rl.cancel = cancel
	rl.done = make(chan struct{})
	go func() {
		defer close(rl.done)
		ticker := time.NewTicker(IdleClientTTL)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				remaining := rl.Cleanup(IdleClientTTL)
				rl.log.WithField("clients", remaining).Debug("rate limiter swept")
			}
		}
	}()
	return nil
}

// Stop ends the sweeper.
func (rl *RateLimiter) Stop(ctx context.Context) error {
	if rl.cancel == nil {
		return nil
	}
	rl.cancel()
	select {
	case <-rl.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
