package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/model"
)

// EventStore persists anti-cheat events. Implemented by repository.AntiCheatRepository.
type EventStore interface {
	InsertBatch(ctx context.Context, events []model.AntiCheatEvent) error
	Insert(ctx context.Context, e *model.AntiCheatEvent) error
}

// CheatWorker consumes persist_cheats_queue and bulk-inserts events.
type CheatWorker struct {
	store EventStore
	c     consumer
	log   zerolog.Logger
}

// NewCheatWorker creates a new CheatWorker.
func NewCheatWorker(store EventStore, rdb *redis.Client, log zerolog.Logger) *CheatWorker {
	w := &CheatWorker{
		store: store,
		log:   log.With().Str("component", "cheat_worker").Logger(),
	}
	w.c = consumer{
		rdb:          rdb,
		queue:        config.WorkerKey.PersistCheatsQueue,
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *CheatWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CheatWorker started")
	w.c.run(ctx)
}

// flush tries one COPY for the whole batch, then falls back to row-by-row
// inserts so a single bad row cannot hold the rest back.
func (w *CheatWorker) flush(ctx context.Context, batch []string) []string {
	events := make([]model.AntiCheatEvent, 0, len(batch))
	raws := make([]string, 0, len(batch))
	for _, raw := range batch {
		var e model.AntiCheatEvent
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			// Malformed JSON cannot succeed on retry.
			w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed JSON")
			continue
		}
		if !e.Kind.Valid() {
			w.log.Error().Str("kind", string(e.Kind)).Msg("Discarding event with unknown kind")
			continue
		}
		events = append(events, e)
		raws = append(raws, raw)
	}
	if len(events) == 0 {
		return nil
	}

	err := w.store.InsertBatch(ctx, events)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(events)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var requeue []string
	for i := range events {
		if err := w.store.Insert(ctx, &events[i]); err != nil {
			w.log.Error().Err(err).Str("attempt_id", events[i].AttemptID.String()).Msg("Insert failed, requeueing")
			requeue = append(requeue, raws[i])
		}
	}
	return requeue
}
