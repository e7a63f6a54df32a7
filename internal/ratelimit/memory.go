// AngelaMos | 2026
// memory.go

package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps windows in process memory. Limits are per process;
// use RedisStore when several instances serve the same users.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*Window),
	}
}

func (m *MemoryStore) Take(
	_ context.Context,
	key string,
	limit int,
	window time.Duration,
	now time.Time,
) (Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.ResetAt) {
		w = &Window{Count: 1, ResetAt: now.Add(window)}
		m.windows[key] = w
		return *w, true, nil
	}

	if w.Count >= limit {
		return *w, false, nil
	}

	w.Count++
	return *w, true, nil
}

// Sweep drops every window whose reset time has passed and reports how
// many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.ResetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				slog.Debug("rate limit windows swept", "removed", n)
			}
		}
	}
}
