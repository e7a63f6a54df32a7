// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

const keyPrefix = "ratelimit:"

// quota is a GCRA limiter backed by redis that degrades to a per process
// token bucket whenever redis cannot answer.
type quota struct {
	shared *redis_rate.Limiter
	local  *localLimiter
}

func newQuota(rdb *redis.Client) *quota {
	return &quota{
		shared: redis_rate.NewLimiter(rdb),
		local:  &localLimiter{},
	}
}

func (q *quota) take(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	res, err := q.shared.Allow(ctx, key, limit)
	if err == nil {
		return res, nil
	}

	slog.Debug("shared rate limiter unavailable, using local bucket",
		"key", key,
		"error", err,
	)
	return q.local.allow(key, limit)
}

// enforce writes the limit headers and reports whether the request may
// continue. A rejected request has already been answered.
func enforce(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) bool {
	WriteLimitHeaders(w, limit.Rate, res.Remaining, time.Now().Add(res.ResetAfter))

	h := w.Header()
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit",
		fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))

	if res.Allowed > 0 {
		return true
	}
	WriteRateLimited(w, res.RetryAfter)
	return false
}

type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

// RateLimiter applies one fixed budget to every request, keyed by KeyFunc.
type RateLimiter struct {
	quota  *quota
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	return &RateLimiter{quota: newQuota(rdb), config: cfg}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)
		res, err := rl.quota.take(r.Context(), key, rl.config.Limit)
		if err != nil {
			if rl.config.FailOpen {
				slog.Warn("rate limiter error, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		if enforce(w, res, rl.config.Limit) {
			next.ServeHTTP(w, r)
		}
	})
}

// LevelLimit is the API budget granted to one membership level.
type LevelLimit struct {
	RequestsPerMinute int
	BurstSize         int
}

// DefaultLevelLimits gives higher membership levels more headroom.
// Admin traffic uses the ADMIN entry regardless of level.
var DefaultLevelLimits = map[string]LevelLimit{
	"BRONZE":       {RequestsPerMinute: 60, BurstSize: 10},
	"SILVER":       {RequestsPerMinute: 120, BurstSize: 20},
	"GOLD":         {RequestsPerMinute: 240, BurstSize: 40},
	core.RoleAdmin: {RequestsPerMinute: 600, BurstSize: 100},
}

// LevelRateLimiter limits authenticated callers per user, with the budget
// picked by membership level. It must run after Authenticator.
func LevelRateLimiter(
	rdb *redis.Client,
	levels map[string]LevelLimit,
) func(http.Handler) http.Handler {
	q := newQuota(rdb)

	budgetFor := func(ctx context.Context) (string, redis_rate.Limit) {
		level := GetUserLevel(ctx)
		if GetUserRole(ctx) == core.RoleAdmin {
			level = core.RoleAdmin
		}
		budget, ok := levels[level]
		if !ok {
			level = "BRONZE"
			budget = levels[level]
		}
		return level, PerMinute(budget.RequestsPerMinute, budget.BurstSize)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			level, limit := budgetFor(r.Context())
			w.Header().Set("X-RateLimit-Level", level)

			res, err := q.take(r.Context(), keyPrefix+"user:"+userID, limit)
			if err != nil {
				slog.Warn("level rate limiter error, failing open",
					"error", err,
					"level", level,
				)
				next.ServeHTTP(w, r)
				return
			}
			if enforce(w, res, limit) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return PerPeriod(rate, burst, time.Minute)
}

func PerPeriod(rate, burst int, period time.Duration) redis_rate.Limit {
	if period <= 0 {
		period = time.Minute
	}
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: period}
}

// ClientIP trusts the last X-Forwarded-For hop, which the edge proxy
// appends, then X-Real-IP, then the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return keyPrefix + "ip:" + ClientIP(r)
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return keyPrefix + "user:" + userID
	}
	return KeyByIP(r)
}

func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

// normalizeEndpoint folds ids out of the path so /users/<a> and
// /users/<b> share one bucket.
func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	if len(seg) != 36 {
		return false
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

// WriteLimitHeaders sets the X-RateLimit-* headers shared by the API wide
// limiter and the redemption window.
func WriteLimitHeaders(
	w http.ResponseWriter,
	limit, remaining int,
	resetAt time.Time,
) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// WriteRateLimited renders a 429 with Retry-After in whole seconds.
func WriteRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := max(int(retryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "RATE_LIMITED",
			"message": fmt.Sprintf("Too many requests. Retry after %d seconds.", secs),
		},
	})
}

const (
	bucketIdleTTL = 10 * time.Minute
	sweepInterval = 5 * time.Minute
)

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// localLimiter is the in-process stand in for redis_rate. The zero value
// is ready to use; idle buckets are swept lazily on access.
type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid limit %d per %s", limit.Rate, limit.Period)
	}

	perToken := limit.Period / time.Duration(limit.Rate)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buckets == nil {
		l.buckets = make(map[string]*bucket)
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= sweepInterval {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(rate.Every(perToken), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: perToken,
	}
	if b.tokens.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = perToken
	}
	res.Remaining = max(int(b.tokens.TokensAt(now)), 0)

	return res, nil
}
