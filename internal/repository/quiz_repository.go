package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizattempt/internal/model"
)

// QuizRepository reads quiz definitions. The engine never mutates a quiz; Create
// exists for the seed tool.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID loads a quiz with its ordered questions and options.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, time_limit_seconds, passing_score_percent, max_attempts,
		        randomize_questions, randomize_answers, prevent_tab_switch,
		        prevent_copy_paste, show_progress_bar, created_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.TimeLimitSeconds, &q.PassingScorePercent, &q.MaxAttempts,
		&q.RandomizeQuestions, &q.RandomizeAnswers, &q.PreventTabSwitch,
		&q.PreventCopyPaste, &q.ShowProgressBar, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, prompt, image_url, question_type, points, order_num
		 FROM quiz_questions WHERE quiz_id = $1
		 ORDER BY order_num ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var qq model.QuizQuestion
		if err := rows.Scan(&qq.ID, &qq.Prompt, &qq.ImageURL, &qq.Type, &qq.Points, &qq.OrderNum); err != nil {
			return nil, err
		}
		index[qq.ID] = len(q.Questions)
		q.Questions = append(q.Questions, qq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.text, o.image_url, o.is_correct, o.order_num
		 FROM quiz_answer_options o
		 JOIN quiz_questions qq ON qq.id = o.question_id
		 WHERE qq.quiz_id = $1
		 ORDER BY o.question_id, o.order_num ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var (
			o          model.AnswerOption
			questionID uuid.UUID
		)
		if err := optRows.Scan(&o.ID, &questionID, &o.Text, &o.ImageURL, &o.IsCorrect, &o.OrderNum); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			q.Questions[i].Options = append(q.Questions[i].Options, o)
		}
	}
	return q, optRows.Err()
}

// Create inserts a quiz with all questions and options in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (id, title, time_limit_seconds, passing_score_percent, max_attempts,
		                      randomize_questions, randomize_answers, prevent_tab_switch,
		                      prevent_copy_paste, show_progress_bar)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		q.ID, q.Title, q.TimeLimitSeconds, q.PassingScorePercent, q.MaxAttempts,
		q.RandomizeQuestions, q.RandomizeAnswers, q.PreventTabSwitch,
		q.PreventCopyPaste, q.ShowProgressBar,
	).Scan(&q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	batch := &pgx.Batch{}
	for _, qq := range q.Questions {
		batch.Queue(
			`INSERT INTO quiz_questions (id, quiz_id, prompt, image_url, question_type, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			qq.ID, q.ID, qq.Prompt, qq.ImageURL, qq.Type, qq.Points, qq.OrderNum,
		)
		for _, o := range qq.Options {
			batch.Queue(
				`INSERT INTO quiz_answer_options (id, question_id, text, image_url, is_correct, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, qq.ID, o.Text, o.ImageURL, o.IsCorrect, o.OrderNum,
			)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
