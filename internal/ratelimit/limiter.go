// AngelaMos | 2026
// limiter.go

// Package ratelimit implements a fixed-window request counter keyed by
// an arbitrary string. Window state lives behind Store so the same
// limiter can run against process memory or a shared Redis instance.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Window is the state of one key's current counting window.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Store holds window state. Take must be atomic per key: when there is
// no live window it starts one with count 1, when the live window holds
// fewer than limit hits it increments, otherwise it leaves the count
// untouched and reports allowed=false.
type Store interface {
	Take(
		ctx context.Context,
		key string,
		limit int,
		window time.Duration,
		now time.Time,
	) (Window, bool, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, never below one
// second so clients do not spin.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

type Limiter struct {
	store    Store
	fallback Store
	clock    func() time.Time
}

type Option func(*Limiter)

// WithFallback installs a store used when the primary store errors.
func WithFallback(s Store) Option {
	return func(l *Limiter) {
		l.fallback = s
	}
}

func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Allow(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (Decision, error) {
	if limit < 1 || window <= 0 {
		return Decision{}, fmt.Errorf("ratelimit: invalid limit %d per %s", limit, window)
	}

	now := l.clock()

	w, allowed, err := l.store.Take(ctx, key, limit, window, now)
	if err != nil {
		if l.fallback == nil {
			return Decision{}, fmt.Errorf("ratelimit take: %w", err)
		}

		slog.Warn("rate limit store error, using fallback",
			"error", err,
			"key", key,
		)

		w, allowed, err = l.fallback.Take(ctx, key, limit, window, now)
		if err != nil {
			return Decision{}, fmt.Errorf("ratelimit fallback take: %w", err)
		}
	}

	remaining := limit - w.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}
