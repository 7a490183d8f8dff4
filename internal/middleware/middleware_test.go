package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/friendfilter/backend/internal/logging"
)

func fixedClock(limiter *ClientRateLimiter, now *time.Time) {
	limiter.now = func() time.Time { return *now }
}

func TestClientRateLimiterBudget(t *testing.T) {
	limiter := NewClientRateLimiter(Budget{Requests: 2, Window: time.Minute}, time.Hour)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	fixedClock(limiter, &now)

	ok, _ := limiter.Allow("friends", "a")
	gt.True(t, ok)
	ok, _ = limiter.Allow("friends", "a")
	gt.True(t, ok)
	ok, retryAfter := limiter.Allow("friends", "a")
	gt.False(t, ok)
	gt.True(t, retryAfter > 29*time.Second && retryAfter <= 30*time.Second+time.Millisecond)

	ok, _ = limiter.Allow("friends", "b")
	gt.True(t, ok)

	now = now.Add(31 * time.Second)
	ok, _ = limiter.Allow("friends", "a")
	gt.True(t, ok)
	ok, _ = limiter.Allow("friends", "a")
	gt.False(t, ok)
}

func TestClientRateLimiterScopesAreIndependent(t *testing.T) {
	limiter := NewClientRateLimiter(Budget{Requests: 1, Window: time.Minute}, time.Hour)
	limiter.SetBudget("triage", Budget{Requests: 3, Window: time.Minute})
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	fixedClock(limiter, &now)

	ok, _ := limiter.Allow("credential", "a")
	gt.True(t, ok)
	ok, _ = limiter.Allow("credential", "a")
	gt.False(t, ok)

	for range 3 {
		ok, _ = limiter.Allow("triage", "a")
		gt.True(t, ok)
	}
	ok, retryAfter := limiter.Allow("triage", "a")
	gt.False(t, ok)
	gt.True(t, retryAfter > 19*time.Second && retryAfter <= 20*time.Second+time.Millisecond)
}

func TestClientRateLimiterDropsIdleBuckets(t *testing.T) {
	limiter := NewClientRateLimiter(Budget{Requests: 1, Window: time.Minute}, time.Second)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	fixedClock(limiter, &now)

	limiter.Allow("friends", "a")
	now = now.Add(2 * time.Second)
	limiter.Allow("friends", "b")

	limiter.mu.Lock()
	_, ok := limiter.buckets[bucketKey{scope: "friends", client: "a"}]
	limiter.mu.Unlock()
	gt.False(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewClientRateLimiter(Budget{Requests: 1, Window: time.Hour}, time.Hour)
	handler := RateLimit(limiter, "triage")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/process-all-requests", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusTooManyRequests)
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	gt.NoError(t, err).Required()
	gt.True(t, retryAfter > 3500)

	other := httptest.NewRequest(http.MethodPost, "/api/process-all-requests", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	gt.Equal(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	RateLimit(nil, "x")(http.NotFoundHandler()).ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusNotFound)
}

func TestRetryAfterSeconds(t *testing.T) {
	gt.Equal(t, retryAfterSeconds(0), "1")
	gt.Equal(t, retryAfterSeconds(1500*time.Millisecond), "2")
	gt.Equal(t, retryAfterSeconds(30*time.Second), "30")
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, req)
		gt.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "*")
		gt.Equal(t, rec.Code, http.StatusOK)
	})

	t.Run("allowList", func(t *testing.T) {
		handler := CORS([]string{"http://app.local"})(next)

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://app.local")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		gt.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "http://app.local")

		req.Header.Set("Origin", "http://evil.local")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		gt.Equal(t, rec.Header().Get("Access-Control-Allow-Origin"), "")
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/set-credential", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		CORS(nil)(next).ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusNoContent)
		gt.Equal(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET, POST, OPTIONS")
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seenID string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	gt.NotEqual(t, seenID, "")

	var entry map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &entry)).Required()
	gt.Equal(t, entry["msg"], any("request completed"))
	gt.Equal(t, entry["status"], any(float64(http.StatusAccepted)))
	gt.Equal(t, entry["request_id"], any(seenID))
}

func TestRequestLoggerRecoversPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	gt.Equal(t, rec.Code, http.StatusInternalServerError)
}
