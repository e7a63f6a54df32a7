// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

// HandlerConfig wires the probes the stats endpoints read. Any of them
// may be nil; the matching section is then omitted.
type HandlerConfig struct {
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
	DBPing      func(ctx context.Context) error
	LevelCounts func(ctx context.Context) (map[string]int, error)
	LimiterKeys func() int
}

type Handler struct {
	probes HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{probes: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator, adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Get("/stats/members", h.GetMemberStats)
	})
}

// GetMemberStats reports the member distribution across membership
// levels and how many redeem windows the in-process limiter tracks.
func (h *Handler) GetMemberStats(w http.ResponseWriter, r *http.Request) {
	resp := MemberStatsResponse{Levels: map[string]int{}}

	if h.probes.LevelCounts != nil {
		counts, err := h.probes.LevelCounts(r.Context())
		if err != nil {
			core.InternalServerError(w, err)
			return
		}
		resp.Levels = counts
	}
	for _, n := range resp.Levels {
		resp.Total += n
	}

	if h.probes.LimiterKeys != nil {
		keys := h.probes.LimiterKeys()
		resp.TrackedLimiterKeys = &keys
	}

	core.OK(w, resp)
}

// GetSystemStats combines liveness of both stores with pool and runtime
// figures. An unset ping counts as healthy.
func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: pings(r.Context(), h.probes.DBPing),
			Stats:   h.dbPool(),
		},
		Redis: RedisStatus{
			Healthy: pings(r.Context(), h.probes.RedisPing),
			Stats:   h.redisPool(),
		},
		Runtime: readRuntime(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.dbPool())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.redisPool())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntime())
}

func pings(ctx context.Context, ping func(context.Context) error) bool {
	return ping == nil || ping(ctx) == nil
}

func (h *Handler) dbPool() *DBPoolStats {
	if h.probes.DBStats == nil {
		return nil
	}
	s := h.probes.DBStats()
	return &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxIdleTimeClosed:  s.MaxIdleTimeClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func (h *Handler) redisPool() *RedisPoolStats {
	if h.probes.RedisStats == nil {
		return nil
	}
	s := h.probes.RedisStats()
	return &RedisPoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
		StaleConns: s.StaleConns,
	}
}

func readRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     m.Alloc,
		MemSys:       m.Sys,
		NumGC:        m.NumGC,
	}
}
