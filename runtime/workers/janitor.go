package workers

import (
	"context"
	"log/slog"
	"time"

	"chatroom/moderation"
)

// JanitorWorker periodically sweeps expired rate-limit windows so the
// limiter map stays bounded no matter how many actors come and go.
type JanitorWorker struct {
	log      *slog.Logger
	limiter  *moderation.RateLimiter
	interval time.Duration
}

func NewJanitorWorker(log *slog.Logger, limiter *moderation.RateLimiter, interval time.Duration) *JanitorWorker {
	return &JanitorWorker{log: log, limiter: limiter, interval: interval}
}

func (w *JanitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping janitor")
			return nil
		case <-ticker.C:
			w.limiter.Sweep()
		}
	}
}
