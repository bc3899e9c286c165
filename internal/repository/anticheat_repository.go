package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizattempt/internal/model"
)

// AntiCheatRepository stores the append-only anti-cheat log.
type AntiCheatRepository struct {
	pool *pgxpool.Pool
}

// NewAntiCheatRepository creates a new AntiCheatRepository.
func NewAntiCheatRepository(pool *pgxpool.Pool) *AntiCheatRepository {
	return &AntiCheatRepository{pool: pool}
}

// InsertBatch bulk-inserts events with COPY.
func (r *AntiCheatRepository) InsertBatch(ctx context.Context, events []model.AntiCheatEvent) error {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.AttemptID, string(e.Kind), e.OccurredAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"anti_cheat_events"},
		[]string{"attempt_id", "kind", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert stores a single event.
func (r *AntiCheatRepository) Insert(ctx context.Context, e *model.AntiCheatEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO anti_cheat_events (attempt_id, kind, occurred_at) VALUES ($1, $2, $3)`,
		e.AttemptID, e.Kind, e.OccurredAt,
	)
	return err
}

// ListByAttempt returns the events of an attempt in the order they happened.
func (r *AntiCheatRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AntiCheatEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, kind, occurred_at FROM anti_cheat_events
		 WHERE attempt_id = $1 ORDER BY occurred_at ASC, id ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.AntiCheatEvent
	for rows.Next() {
		var e model.AntiCheatEvent
		if err := rows.Scan(&e.AttemptID, &e.Kind, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
