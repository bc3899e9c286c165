package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/repository"
)

// OrderStore persists randomized question orders. Implemented by
// repository.AttemptRepository.
type OrderStore interface {
	BulkSetQuestionOrder(ctx context.Context, batch []repository.QuestionOrder) error
}

// QuestionOrderWorker consumes persist_question_order_queue and writes orders
// with one UNNEST update per batch.
type QuestionOrderWorker struct {
	store OrderStore
	c     consumer
	log   zerolog.Logger
}

// NewQuestionOrderWorker creates a new QuestionOrderWorker.
func NewQuestionOrderWorker(store OrderStore, rdb *redis.Client, log zerolog.Logger) *QuestionOrderWorker {
	w := &QuestionOrderWorker{
		store: store,
		log:   log.With().Str("component", "question_order_worker").Logger(),
	}
	w.c = consumer{
		rdb:          rdb,
		queue:        config.WorkerKey.PersistQuestionOrderQueue,
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *QuestionOrderWorker) Start(ctx context.Context) {
	w.log.Info().Msg("QuestionOrderWorker started")
	w.c.run(ctx)
}

func (w *QuestionOrderWorker) flush(ctx context.Context, batch []string) []string {
	orders := make([]repository.QuestionOrder, 0, len(batch))
	raws := make([]string, 0, len(batch))
	for _, raw := range batch {
		var p orderPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed question order")
			continue
		}
		orders = append(orders, repository.QuestionOrder{AttemptID: p.AttemptID, Order: p.Order})
		raws = append(raws, raw)
	}
	if len(orders) == 0 {
		return nil
	}

	if err := w.store.BulkSetQuestionOrder(ctx, orders); err != nil {
		w.log.Error().Err(err).Int("count", len(orders)).Msg("Bulk question order update failed, requeueing")
		return raws
	}
	w.log.Debug().Int("count", len(orders)).Msg("Question orders persisted")
	return nil
}
