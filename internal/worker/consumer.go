package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// flushFunc persists a batch of raw payloads and returns the ones that must be
// pushed back for a later retry.
type flushFunc func(ctx context.Context, batch []string) (requeue []string)

// consumer drains one Redis list, flushing by size or by age.
type consumer struct {
	rdb          *redis.Client
	queue        string
	batchSize    int
	batchTimeout time.Duration
	flush        flushFunc
	log          zerolog.Logger
}

func (c *consumer) run(ctx context.Context) {
	c.log.Info().Str("queue", c.queue).Msg("Worker started")

	buffer := make([]string, 0, c.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= c.batchSize || time.Since(lastFlush) >= c.batchTimeout) {
			c.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			c.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately when data exists.
		result, err := c.rdb.BLPop(ctx, PollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		buffer = append(buffer, result[1])
	}
}

func (c *consumer) flushSafe(ctx context.Context, batch []string) {
	if failed := c.flush(ctx, batch); len(failed) > 0 {
		c.requeue(ctx, failed)
	}
}

func (c *consumer) requeue(ctx context.Context, items []string) {
	pipe := c.rdb.Pipeline()
	for _, raw := range items {
		pipe.RPush(ctx, c.queue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	c.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	sleep(ctx, 2*time.Second)
}

// shutdown flushes the in-memory buffer, then drains what is left in the list.
func (c *consumer) shutdown(buffer []string) {
	c.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		c.flushSafe(ctx, buffer)
	}

	drained := 0
	for ctx.Err() == nil {
		items, err := c.rdb.LPopCount(ctx, c.queue, c.batchSize).Result()
		if err != nil || len(items) == 0 {
			break
		}
		if failed := c.flush(ctx, items); len(failed) > 0 {
			c.requeue(ctx, failed)
			break
		}
		drained += len(items)
	}
	if drained > 0 {
		c.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
	c.log.Info().Msg("Worker stopped")
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
