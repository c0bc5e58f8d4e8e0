package session

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner periodically deletes expired session rows.
type Cleaner struct {
	repo     Repository
	interval time.Duration
}

// NewCleaner creates a Cleaner sweeping at the given interval.
func NewCleaner(repo Repository, interval time.Duration) *Cleaner {
	return &Cleaner{repo: repo, interval: interval}
}

// Run sweeps until the context is cancelled. Sweep failures are logged and
// the loop keeps going; correctness never depends on a sweep succeeding.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := c.repo.DeleteExpired(sweepCtx)
	if err != nil {
		slog.Warn("Failed to delete expired sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Deleted expired sessions", "count", n)
	}
}
