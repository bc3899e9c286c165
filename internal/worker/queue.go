package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/model"
)

// checkpointMirrorTTL bounds how long the latest checkpoint stays readable in
// Redis after the attempt goes quiet.
const checkpointMirrorTTL = 2 * time.Hour

// Queue is the producer side of the persistence workers. Each Enqueue pushes a
// JSON payload onto a Redis list that a worker drains into PostgreSQL.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a new Queue.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

type orderPayload struct {
	AttemptID uuid.UUID   `json:"attempt_id"`
	Order     []uuid.UUID `json:"order"`
}

// EnqueueCheckpoint queues a checkpoint and mirrors it under the attempt's
// checkpoint key so a reconnecting client can read it before the worker runs.
func (q *Queue) EnqueueCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	pipe := q.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.PersistCheckpointsQueue, data)
	pipe.Set(ctx, config.CacheKey.AttemptCheckpointKey(cp.AttemptID), data, checkpointMirrorTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// EnqueueEvent queues an anti-cheat event.
func (q *Queue) EnqueueEvent(ctx context.Context, e *model.AntiCheatEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistCheatsQueue, data).Err()
}

// EnqueueQuestionOrder queues an attempt's randomized question order.
func (q *Queue) EnqueueQuestionOrder(ctx context.Context, attemptID uuid.UUID, order []uuid.UUID) error {
	data, err := json.Marshal(orderPayload{AttemptID: attemptID, Order: order})
	if err != nil {
		return fmt.Errorf("marshal question order: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, data).Err()
}

// MirroredCheckpoint returns the checkpoint last queued for an attempt, or
// redis.Nil when none is mirrored.
func (q *Queue) MirroredCheckpoint(ctx context.Context, attemptID uuid.UUID) (*model.Checkpoint, error) {
	data, err := q.rdb.Get(ctx, config.CacheKey.AttemptCheckpointKey(attemptID)).Bytes()
	if err != nil {
		return nil, err
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// CheckpointSource reads persisted checkpoints. Implemented by repository.AttemptRepository.
type CheckpointSource interface {
	LatestCheckpoint(ctx context.Context, attemptID uuid.UUID) (*model.Checkpoint, error)
}

// LatestCheckpoint prefers the mirror, which runs ahead of the database until
// the autosave worker flushes, and falls back to source.
func (q *Queue) LatestCheckpoint(ctx context.Context, attemptID uuid.UUID, source CheckpointSource) (*model.Checkpoint, error) {
	if cp, err := q.MirroredCheckpoint(ctx, attemptID); err == nil {
		return cp, nil
	}
	return source.LatestCheckpoint(ctx, attemptID)
}
