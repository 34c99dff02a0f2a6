// Package ratelimit bounds vote attempts per user over a trailing window.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"livepolls/internal/metrics"
)

// Decision is the outcome of one admission check.
type Decision int

const (
	Allowed Decision = iota
	Denied
	// Unknown means the window store could not be consulted. It is admitted:
	// an outage of the limiter must not stop voting, and the vote ledger stays
	// correct without it.
	Unknown
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Admit reports whether the attempt may proceed.
func (d Decision) Admit() bool {
	return d != Denied
}

// Window records an attempt for key at now, prunes attempts older than span
// and returns how many attempts remain in the window, the new one included.
type Window interface {
	Record(ctx context.Context, key string, now time.Time, span time.Duration) (int64, error)
}

type Limiter struct {
	window Window
	limit  int64
	span   time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewLimiter(window Window, limit int, span time.Duration, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		window: window,
		limit:  int64(limit),
		span:   span,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock is used by tests to drive the window deterministically.
func (l *Limiter) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Check records a vote attempt for userID and decides whether to admit it.
// Denied attempts still occupy the window.
func (l *Limiter) Check(ctx context.Context, userID string) Decision {
	d := l.check(ctx, userID)
	metrics.IncRateLimit(d.String())
	return d
}

func (l *Limiter) check(ctx context.Context, userID string) Decision {
	count, err := l.window.Record(ctx, voteKey(userID), l.now(), l.span)
	if err != nil {
		l.logger.Warn("rate limiter degraded, admitting attempt",
			"event", "rate_limit_degraded",
			"user_id", userID,
			"error", err.Error(),
		)
		return Unknown
	}
	if count > l.limit {
		return Denied
	}
	return Allowed
}

// Allow is Check reduced to the admission answer.
func (l *Limiter) Allow(ctx context.Context, userID string) bool {
	return l.Check(ctx, userID).Admit()
}

func voteKey(userID string) string {
	return "ratelimit:vote:" + userID
}
