package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizattempt/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const attemptColumns = `id, quiz_id, learner_id, status, started_at, completed_at,
	current_question_index, marked_for_review, question_order, score, passed,
	time_spent_seconds, forced`

// AttemptRepository handles attempt, answer and checkpoint data access.
// Every mutation of an attempt is guarded on status = 'IN_PROGRESS'.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.QuizAttempt, error) {
	a := &model.QuizAttempt{}
	err := row.Scan(&a.ID, &a.QuizID, &a.LearnerID, &a.Status, &a.StartedAt, &a.CompletedAt,
		&a.CurrentQuestionIndex, &a.MarkedForReview, &a.QuestionOrder, &a.Score, &a.Passed,
		&a.TimeSpentSeconds, &a.Forced)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if a.MarkedForReview == nil {
		a.MarkedForReview = []uuid.UUID{}
	}
	return a, nil
}

// GetByID retrieves an attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, id))
}

// FindInProgress returns the learner's in-progress attempt for a quiz, or ErrNotFound.
func (r *AttemptRepository) FindInProgress(ctx context.Context, quizID uuid.UUID, learnerID string) (*model.QuizAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts
		 WHERE quiz_id = $1 AND learner_id = $2 AND status = 'IN_PROGRESS'`, quizID, learnerID))
}

// CountByQuizAndLearner counts every attempt regardless of status.
func (r *AttemptRepository) CountByQuizAndLearner(ctx context.Context, quizID uuid.UUID, learnerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = $1 AND learner_id = $2`,
		quizID, learnerID,
	).Scan(&n)
	return n, err
}

// Create inserts a new in-progress attempt. The partial unique index on
// (quiz_id, learner_id) WHERE status = 'IN_PROGRESS' turns a concurrent
// duplicate start into ErrActiveAttemptExists.
func (r *AttemptRepository) Create(ctx context.Context, a *model.QuizAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, learner_id, status, started_at,
		                            current_question_index, marked_for_review)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuizID, a.LearnerID, model.AttemptStatusInProgress, a.StartedAt,
		a.CurrentQuestionIndex, a.MarkedForReview,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrActiveAttemptExists
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListAnswers returns every recorded selection of an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) (model.Answers, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, option_ids FROM attempt_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(model.Answers)
	for rows.Next() {
		var (
			qID  uuid.UUID
			opts []uuid.UUID
		)
		if err := rows.Scan(&qID, &opts); err != nil {
			return nil, err
		}
		answers[qID] = opts
	}
	return answers, rows.Err()
}

// SaveAnswer upserts one question's selection while the attempt is in progress.
func (r *AttemptRepository) SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, optionIDs []uuid.UUID) error {
	if optionIDs == nil {
		optionIDs = []uuid.UUID{}
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, option_ids)
		 SELECT $1, $2, $3
		 WHERE EXISTS (SELECT 1 FROM quiz_attempts WHERE id = $1 AND status = 'IN_PROGRESS')
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET option_ids = EXCLUDED.option_ids, updated_at = NOW()`,
		attemptID, questionID, optionIDs,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInProgress
	}
	return nil
}

// SetMarked replaces the mark-for-review set.
func (r *AttemptRepository) SetMarked(ctx context.Context, attemptID uuid.UUID, marked []uuid.UUID) error {
	if marked == nil {
		marked = []uuid.UUID{}
	}
	return r.guardedUpdate(ctx,
		`UPDATE quiz_attempts SET marked_for_review = $2
		 WHERE id = $1 AND status = 'IN_PROGRESS'`, attemptID, marked)
}

// SetPosition stores the current question index.
func (r *AttemptRepository) SetPosition(ctx context.Context, attemptID uuid.UUID, index int) error {
	return r.guardedUpdate(ctx,
		`UPDATE quiz_attempts SET current_question_index = $2
		 WHERE id = $1 AND status = 'IN_PROGRESS'`, attemptID, index)
}

// Complete performs the terminal transition. Exactly one caller can win; the
// others get ErrNotInProgress.
func (r *AttemptRepository) Complete(ctx context.Context, c *model.Completion) error {
	return r.guardedUpdate(ctx,
		`UPDATE quiz_attempts
		 SET status = 'COMPLETED', completed_at = $2, score = $3, passed = $4,
		     time_spent_seconds = $5, forced = $6
		 WHERE id = $1 AND status = 'IN_PROGRESS'`,
		c.AttemptID, c.CompletedAt, c.Score, c.Passed, c.TimeSpentSeconds, c.Forced)
}

func (r *AttemptRepository) guardedUpdate(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotInProgress
	}
	return nil
}

// ListOverdue returns in-progress attempts of timed quizzes whose deadline is at or before now.
func (r *AttemptRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.quiz_id, a.learner_id, a.status, a.started_at, a.completed_at,
		        a.current_question_index, a.marked_for_review, a.question_order, a.score,
		        a.passed, a.time_spent_seconds, a.forced
		 FROM quiz_attempts a
		 JOIN quizzes q ON q.id = a.quiz_id
		 WHERE a.status = 'IN_PROGRESS'
		   AND q.time_limit_seconds > 0
		   AND a.started_at + make_interval(secs => q.time_limit_seconds) <= $1
		 ORDER BY a.started_at ASC
		 LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.QuizAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// SaveCheckpoint upserts the latest snapshot. Snapshots for terminal attempts and
// snapshots older than the stored one are ignored.
func (r *AttemptRepository) SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	answers, err := json.Marshal(cp.Answers)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempt_checkpoints (attempt_id, answers, current_question_index, saved_at)
		 SELECT $1, $2::jsonb, $3, $4
		 WHERE EXISTS (SELECT 1 FROM quiz_attempts WHERE id = $1 AND status = 'IN_PROGRESS')
		 ON CONFLICT (attempt_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     current_question_index = EXCLUDED.current_question_index,
		     saved_at = EXCLUDED.saved_at
		 WHERE attempt_checkpoints.saved_at < EXCLUDED.saved_at`,
		cp.AttemptID, answers, cp.CurrentQuestionIndex, cp.SavedAt,
	)
	return err
}

// LatestCheckpoint returns the stored snapshot of an attempt, or ErrNotFound.
func (r *AttemptRepository) LatestCheckpoint(ctx context.Context, attemptID uuid.UUID) (*model.Checkpoint, error) {
	var (
		cp  = &model.Checkpoint{AttemptID: attemptID}
		raw []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT answers, current_question_index, saved_at
		 FROM attempt_checkpoints WHERE attempt_id = $1`, attemptID,
	).Scan(&raw, &cp.CurrentQuestionIndex, &cp.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &cp.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// QuestionOrder is one attempt's randomized question order.
type QuestionOrder struct {
	AttemptID uuid.UUID
	Order     []uuid.UUID
}

// BulkSetQuestionOrder stores many question orders in one statement.
func (r *AttemptRepository) BulkSetQuestionOrder(ctx context.Context, batch []QuestionOrder) error {
	ids := make([]uuid.UUID, 0, len(batch))
	orders := make([][]byte, 0, len(batch))
	for _, b := range batch {
		raw, err := json.Marshal(b.Order)
		if err != nil {
			return err
		}
		ids = append(ids, b.AttemptID)
		orders = append(orders, raw)
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts AS a
		 SET question_order = ARRAY(SELECT jsonb_array_elements_text(t.qo)::uuid)
		 FROM (
			SELECT u.id, u.qo
			FROM UNNEST($1::uuid[], $2::jsonb[]) AS u (id, qo)
		 ) AS t
		 WHERE a.id = t.id`,
		ids, orders,
	)
	return err
}

// SetQuestionOrder stores a single question order.
func (r *AttemptRepository) SetQuestionOrder(ctx context.Context, attemptID uuid.UUID, order []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts SET question_order = $2 WHERE id = $1`,
		attemptID, order,
	)
	return err
}
