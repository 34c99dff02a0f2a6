package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"livepolls/internal/metrics"
)

// ExpiredPollDeleter removes polls whose expiry precedes both now and cutoff,
// together with their votes.
type ExpiredPollDeleter interface {
	DeleteExpired(ctx context.Context, now, cutoff time.Time) (int64, error)
}

// Locker serialises sweeps across instances. Acquire returns ErrLockHeld
// when another holder owns the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

var ErrLockHeld = errors.New("reaper lock held elsewhere")

const sweepTimeout = time.Minute

// Reaper periodically deletes polls that closed more than retention ago.
type Reaper struct {
	store     ExpiredPollDeleter
	interval  time.Duration
	retention time.Duration
	locker    Locker
	logger    *slog.Logger
	now       func() time.Time
}

func NewReaper(store ExpiredPollDeleter, interval, retention time.Duration, locker Locker, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		store:     store,
		interval:  interval,
		retention: retention,
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Reaper) SetClock(now func() time.Time) {
	r.now = now
}

// Run sweeps once immediately and then every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("expiry reaper started",
		"event", "reaper_started",
		"interval", r.interval.String(),
		"retention", r.retention.String(),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		_, _ = r.Sweep(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("expiry reaper stopped", "event", "reaper_stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep performs one deletion pass. Errors are logged and returned; the
// caller is expected to simply try again next cycle.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if r.locker != nil {
		release, err := r.locker.Acquire(ctx)
		switch {
		case errors.Is(err, ErrLockHeld):
			r.logger.Info("reaper sweep skipped, lock held elsewhere", "event", "reaper_skipped")
			return 0, nil
		case err != nil:
			r.logger.Warn("reaper lock unavailable, sweeping without it",
				"event", "reaper_lock_degraded",
				"error", err.Error(),
			)
		default:
			defer release()
		}
	}

	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	now := r.now()
	cutoff := now.Add(-r.retention)
	n, err := r.store.DeleteExpired(sweepCtx, now, cutoff)
	if err != nil {
		metrics.IncReaperFailure()
		r.logger.Error("reaper sweep failed",
			"event", "reaper_failed",
			"error", err.Error(),
		)
		return 0, err
	}

	metrics.AddReaped(n)
	r.logger.Info("reaper sweep finished",
		"event", "reaper_swept",
		"deleted", n,
		"cutoff", cutoff,
	)
	return n, nil
}
