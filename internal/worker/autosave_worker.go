package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/model"
)

// CheckpointStore persists checkpoints. Implemented by repository.AttemptRepository.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error
}

// AutosaveWorker consumes persist_checkpoints_queue and upserts the newest
// checkpoint of each attempt into PostgreSQL.
type AutosaveWorker struct {
	store CheckpointStore
	c     consumer
	log   zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(store CheckpointStore, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	w := &AutosaveWorker{
		store: store,
		log:   log.With().Str("component", "autosave_worker").Logger(),
	}
	w.c = consumer{
		rdb:          rdb,
		queue:        config.WorkerKey.PersistCheckpointsQueue,
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.c.run(ctx)
}

// flush keeps only the newest checkpoint per attempt and saves each one.
// Payloads whose save fails are returned for requeue.
func (w *AutosaveWorker) flush(ctx context.Context, batch []string) []string {
	type entry struct {
		raw string
		cp  *model.Checkpoint
	}
	newest := make(map[string]entry, len(batch))
	order := make([]string, 0, len(batch))

	for _, raw := range batch {
		var cp model.Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed checkpoint")
			continue
		}
		key := cp.AttemptID.String()
		prev, seen := newest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || cp.SavedAt.After(prev.cp.SavedAt) {
			newest[key] = entry{raw: raw, cp: &cp}
		}
	}

	var requeue []string
	for _, key := range order {
		e := newest[key]
		if err := w.store.SaveCheckpoint(ctx, e.cp); err != nil {
			w.log.Error().Err(err).Str("attempt_id", key).Msg("Persist checkpoint failed, requeueing")
			requeue = append(requeue, e.raw)
		}
	}
	return requeue
}
