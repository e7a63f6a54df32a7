// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named backend that readiness depends on.
type Dependency struct {
	Name    string
	Checker Checker
}

// Handler serves liveness and readiness probes. Readiness pings every
// dependency concurrently on each call.
type Handler struct {
	deps     []Dependency
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(deps ...Dependency) *Handler {
	h := &Handler{deps: deps}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) SetReady(ready bool)       { h.ready.Store(ready) }
func (h *Handler) SetShutdown(shutdown bool) { h.shutdown.Store(shutdown) }

// lifecycle reports a blocking process state, or "" when requests may be
// served.
func (h *Handler) lifecycle(needReady bool) string {
	switch {
	case h.shutdown.Load():
		return "shutting_down"
	case needReady && !h.ready.Load():
		return "not_ready"
	}
	return ""
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if state := h.lifecycle(false); state != "" {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: state})
		return
	}
	writeProbe(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if state := h.lifecycle(true); state != "" {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: state})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: h.probeAll(ctx)}
	code := http.StatusOK
	for _, c := range resp.Checks {
		if !c.Healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	writeProbe(w, code, resp)
}

func (h *Handler) probeAll(ctx context.Context) []HealthCheck {
	results := make([]HealthCheck, len(h.deps))

	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = probe(ctx, dep)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes report through results

	return results
}

func probe(ctx context.Context, dep Dependency) HealthCheck {
	if dep.Checker == nil {
		return HealthCheck{Name: dep.Name, Message: dep.Name + " checker not configured"}
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)

	hc := HealthCheck{
		Name:    dep.Name,
		Healthy: err == nil,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		hc.Message = "ping failed"
	}
	return hc
}

func writeProbe(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(body)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
