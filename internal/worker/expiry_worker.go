package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer force-submits attempts past their deadline. Implemented by
// service.AttemptService.
type Expirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// ExpiryWorker periodically submits overdue attempts, so deadlines hold even
// when no client is connected.
type ExpiryWorker struct {
	expirer  Expirer
	interval time.Duration
	limit    int
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(expirer Expirer, interval time.Duration, limit int, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		expirer:  expirer,
		interval: interval,
		limit:    limit,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps every interval until ctx is done. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep keeps going while full pages come back, so a backlog clears in one tick.
func (w *ExpiryWorker) sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := w.expirer.ExpireOverdue(ctx, w.limit)
		if err != nil {
			w.log.Error().Err(err).Msg("Expiry sweep failed")
			break
		}
		total += n
		if n == 0 || n < w.limit {
			break
		}
	}
	if total > 0 {
		w.log.Info().Int("count", total).Msg("Overdue attempts submitted")
	}
	return total
}
