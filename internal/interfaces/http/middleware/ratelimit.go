package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/interfaces/http/dto"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. A client may burst up
// to limit requests and then regains one request every window/limit.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*visitor
	limit   int
	every   rate.Limit
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window and
// starts a janitor evicting idle clients
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		clients: make(map[string]*visitor),
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup(window * 2)
	return rl
}

// Stop ends the janitor goroutine
func (rl *RateLimiter) Stop() {
	select {
	case <-rl.stop:
	default:
		close(rl.stop)
	}
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.window * 2)
	for key, v := range rl.clients {
		if v.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) visitor(key string) *visitor {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = v
	}
	v.lastSeen = rl.now()
	return v
}

// Reserve takes a token for key. It reports whether the request may proceed,
// the tokens left and, when refused, how long until the next token.
func (rl *RateLimiter) Reserve(key string) (bool, int, time.Duration) {
	v := rl.visitor(key)
	now := rl.now()
	if v.limiter.AllowN(now, 1) {
		return true, int(math.Max(0, math.Floor(v.limiter.TokensAt(now)))), 0
	}
	r := v.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, 0, delay
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	ok, _, _ := rl.Reserve(key)
	return ok
}

// Limit returns the burst size
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey limits requests per key extracted from the request
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining, retryAfter := limiter.Reserve(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited, "Too many requests. Please try again later.", getRequestIDFromContext(c)))
			return
		}
		c.Next()
	}
}
