package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/friendfilter/backend/internal/logging"
)

// RateLimiter decides whether client may spend one request from scope's
// budget. When it may not, retryAfter says when the next token frees up.
type RateLimiter interface {
	Allow(scope, client string) (ok bool, retryAfter time.Duration)
}

// Budget is the number of requests a client may make per window. The full
// budget is available as a burst; tokens refill evenly across the window.
type Budget struct {
	Requests int
	Window   time.Duration
}

func (b Budget) normalized() Budget {
	if b.Requests <= 0 {
		b.Requests = 1
	}
	if b.Window <= 0 {
		b.Window = time.Second
	}
	return b
}

type bucketKey struct {
	scope  string
	client string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per (scope, client). Scopes
// without their own budget share the default. Idle buckets are dropped after
// ttl.
type ClientRateLimiter struct {
	mu       sync.Mutex
	fallback Budget
	budgets  map[string]Budget
	buckets  map[bucketKey]*bucket
	ttl      time.Duration
	now      func() time.Time
}

// NewClientRateLimiter returns a limiter applying fallback to every scope.
func NewClientRateLimiter(fallback Budget, ttl time.Duration) *ClientRateLimiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ClientRateLimiter{
		fallback: fallback.normalized(),
		budgets:  make(map[string]Budget),
		buckets:  make(map[bucketKey]*bucket),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetBudget overrides the budget of scope. Existing buckets keep their old
// rate until they expire.
func (l *ClientRateLimiter) SetBudget(scope string, b Budget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.budgets[scope] = b.normalized()
}

// Allow implements RateLimiter.
func (l *ClientRateLimiter) Allow(scope, client string) (bool, time.Duration) {
	if client == "" {
		client = "unknown"
	}

	l.mu.Lock()
	now := l.now()
	b := l.bucketLocked(bucketKey{scope: scope, client: client}, now)
	l.sweepLocked(now)
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.budget(scope).Window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *ClientRateLimiter) budget(scope string) Budget {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.budgetLocked(scope)
}

func (l *ClientRateLimiter) budgetLocked(scope string) Budget {
	if b, ok := l.budgets[scope]; ok {
		return b
	}
	return l.fallback
}

func (l *ClientRateLimiter) bucketLocked(key bucketKey, now time.Time) *bucket {
	if b, ok := l.buckets[key]; ok {
		b.lastSeen = now
		return b
	}

	budget := l.budgetLocked(key.scope)
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Every(budget.Window/time.Duration(budget.Requests)), budget.Requests),
		lastSeen: now,
	}
	l.buckets[key] = b
	return b
}

func (l *ClientRateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests with 429 once the caller exhausts its budget for
// scope. A nil limiter disables the check.
func RateLimit(limiter RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			ok, retryAfter := limiter.Allow(scope, client)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				"scope", scope, "client", client, "retry_after", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
		})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP relies on chi's RealIP having already rewritten RemoteAddr from
// forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
