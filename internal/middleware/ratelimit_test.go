// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis forces every limiter onto its in-process fallback.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestKeyFuncs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users/6f1c2a8e-0b6e-4c55-9d7a-0c1e2f3a4b5c", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", KeyByIP(req))

	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "ratelimit:ip:2.2.2.2", KeyByIP(req))

	assert.Equal(t,
		"ratelimit:ip:2.2.2.2:endpoint:/v1/admin/users/{id}",
		KeyByUserAndEndpoint(req),
	)

	ctx := context.WithValue(req.Context(), UserIDKey, "u1")
	assert.Equal(t, "ratelimit:user:u1", KeyByUser(req.WithContext(ctx)))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/v1/rewards/redeem", normalizeEndpoint("/v1/rewards/redeem/"))
	assert.Equal(t, "/v1/transactions/{id}", normalizeEndpoint("/v1/transactions/42"))
}

func TestWriteRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimited(rec, 1500*time.Millisecond)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	rec = httptest.NewRecorder()
	WriteRateLimited(rec, 0)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestLocalLimiterBurst(t *testing.T) {
	l := &localLimiter{}
	limit := PerMinute(60, 3)

	for range 3 {
		res, err := l.allow("k", limit)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Allowed)
	}

	res, err := l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	res, err = l.allow("other", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)
}

func TestRateLimiterFallsBackWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit: PerPeriod(2, 2, time.Minute),
	})
	h := rl.Handler(okHandler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	rec = send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLevelRateLimiter(t *testing.T) {
	levels := map[string]LevelLimit{
		"BRONZE": {RequestsPerMinute: 1, BurstSize: 1},
		"GOLD":   {RequestsPerMinute: 60, BurstSize: 5},
	}
	limited := LevelRateLimiter(unreachableRedis(t), levels)(okHandler)

	send := func(userID, level string) *httptest.ResponseRecorder {
		ctx := context.WithValue(context.Background(), UserIDKey, userID)
		ctx = context.WithValue(ctx, UserLevelKey, level)
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec
	}

	rec := send("bronze-user", "BRONZE")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BRONZE", rec.Header().Get("X-RateLimit-Level"))
	assert.Equal(t, http.StatusTooManyRequests, send("bronze-user", "BRONZE").Code)

	for range 5 {
		assert.Equal(t, http.StatusOK, send("gold-user", "GOLD").Code)
	}

	rec = send("new-user", "")
	assert.Equal(t, "BRONZE", rec.Header().Get("X-RateLimit-Level"))

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Level"))
}

func TestRateLimiterFailOpen(t *testing.T) {
	broken := RateLimitConfig{Limit: PerPeriod(0, 0, time.Minute)}

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	NewRateLimiter(unreachableRedis(t), broken).Handler(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	broken.FailOpen = true
	rec = httptest.NewRecorder()
	NewRateLimiter(unreachableRedis(t), broken).Handler(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
