package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryWindow is a process-local Window for single-instance deployments
// and for running without Redis.
type MemoryWindow struct {
	users sync.Map // key -> *userWindow
}

type userWindow struct {
	mu       sync.Mutex
	attempts []time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{}
}

func (w *MemoryWindow) Record(ctx context.Context, key string, now time.Time, span time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, _ := w.users.LoadOrStore(key, &userWindow{})
	uw := v.(*userWindow)

	uw.mu.Lock()
	defer uw.mu.Unlock()

	uw.attempts = append(uw.attempts, now)
	uw.prune(now.Add(-span))
	return int64(len(uw.attempts)), nil
}

// prune drops attempts at or before floor. Attempts are appended in arrival
// order, which is close enough to time order for an approximate limiter.
func (uw *userWindow) prune(floor time.Time) {
	i := 0
	for i < len(uw.attempts) && !uw.attempts[i].After(floor) {
		i++
	}
	uw.attempts = uw.attempts[i:]
}

// Sweep forgets users whose window is empty as of now.
func (w *MemoryWindow) Sweep(now time.Time, span time.Duration) {
	floor := now.Add(-span)
	w.users.Range(func(k, v any) bool {
		uw := v.(*userWindow)
		uw.mu.Lock()
		uw.prune(floor)
		empty := len(uw.attempts) == 0
		uw.mu.Unlock()
		if empty {
			w.users.Delete(k)
		}
		return true
	})
}

// RunSweeper calls Sweep every span until ctx is done.
func (w *MemoryWindow) RunSweeper(ctx context.Context, span time.Duration) {
	t := time.NewTicker(span)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			w.Sweep(now, span)
		}
	}
}
