//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, dsn, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "start postgres:", err)
		os.Exit(1)
	}

	code := func() int {
		defer container.Terminate(ctx)

		if err := migrateUp(dsn); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			return 1
		}
		pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			fmt.Fprintln(os.Stderr, "connect:", err)
			return 1
		}
		defer pool.Close()
		return m.Run()
	}()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "quiz",
			"POSTGRES_PASSWORD": "quiz",
			"POSTGRES_DB":       "quizattempt",
		},
		// The server restarts once after init, so wait for the second message.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := c.Host(ctx)
	if err != nil {
		return c, "", err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return c, "", err
	}
	dsn := fmt.Sprintf("postgres://quiz:quiz@%s:%s/quizattempt?sslmode=disable", host, port.Port())
	return c, dsn, nil
}

func migrateUp(dsn string) error {
	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func newQuiz(limitSeconds int) *model.Quiz {
	opt := func(text string, correct bool, order int) model.AnswerOption {
		return model.AnswerOption{ID: uuid.New(), Text: text, IsCorrect: correct, OrderNum: order}
	}
	return &model.Quiz{
		ID:                  uuid.New(),
		Title:               "Storage",
		TimeLimitSeconds:    limitSeconds,
		PassingScorePercent: 60,
		MaxAttempts:         2,
		PreventTabSwitch:    true,
		Questions: []model.QuizQuestion{
			{
				ID: uuid.New(), Prompt: "ACID stands for?", Type: model.QuestionTypeMultipleChoice, Points: 3,
				Options: []model.AnswerOption{opt("Atomicity", true, 0), opt("Speed", false, 1), opt("Isolation", true, 2)},
			},
			{
				ID: uuid.New(), Prompt: "Postgres supports JSONB.", Type: model.QuestionTypeTrueFalse, Points: 1, OrderNum: 1,
				Options: []model.AnswerOption{opt("True", true, 0), opt("False", false, 1)},
			},
		},
	}
}

func createAttempt(t *testing.T, quizID uuid.UUID, learnerID string, startedAt time.Time) *model.QuizAttempt {
	t.Helper()
	a := &model.QuizAttempt{
		ID:              uuid.New(),
		QuizID:          quizID,
		LearnerID:       learnerID,
		StartedAt:       startedAt.UTC().Truncate(time.Microsecond),
		MarkedForReview: []uuid.UUID{},
	}
	require.NoError(t, repository.NewAttemptRepository(pool).Create(context.Background(), a))
	return a
}

func TestQuizRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewQuizRepository(pool)
	quiz := newQuiz(300)
	require.NoError(t, repo.Create(ctx, quiz))

	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.Title, got.Title)
	assert.Equal(t, 300, got.TimeLimitSeconds)
	assert.True(t, got.PreventTabSwitch)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, quiz.Questions[0].ID, got.Questions[0].ID)
	assert.Equal(t, quiz.Questions[0].CorrectOptions(), got.Questions[0].CorrectOptions())
	assert.Equal(t, 4, got.TotalPoints())

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAttemptRepository_OneInProgressPerLearner(t *testing.T) {
	ctx := context.Background()
	quiz := newQuiz(300)
	require.NoError(t, repository.NewQuizRepository(pool).Create(ctx, quiz))
	repo := repository.NewAttemptRepository(pool)

	first := createAttempt(t, quiz.ID, "learner-a", time.Now())
	dup := &model.QuizAttempt{ID: uuid.New(), QuizID: quiz.ID, LearnerID: "learner-a", StartedAt: time.Now(), MarkedForReview: []uuid.UUID{}}
	assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrActiveAttemptExists)

	found, err := repo.FindInProgress(ctx, quiz.ID, "learner-a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	n, err := repo.CountByQuizAndLearner(ctx, quiz.ID, "learner-a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAttemptRepository_StatusGuardedMutations(t *testing.T) {
	ctx := context.Background()
	quiz := newQuiz(300)
	require.NoError(t, repository.NewQuizRepository(pool).Create(ctx, quiz))
	repo := repository.NewAttemptRepository(pool)
	attempt := createAttempt(t, quiz.ID, "learner-b", time.Now())

	q0 := quiz.Questions[0]
	picked := []uuid.UUID{q0.Options[0].ID, q0.Options[2].ID}
	require.NoError(t, repo.SaveAnswer(ctx, attempt.ID, q0.ID, picked))
	require.NoError(t, repo.SetMarked(ctx, attempt.ID, []uuid.UUID{q0.ID}))
	require.NoError(t, repo.SetPosition(ctx, attempt.ID, 1))

	answers, err := repo.ListAnswers(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, picked, answers[q0.ID])

	// Concurrent submits: exactly one wins the guarded update.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Complete(ctx, &model.Completion{
				AttemptID: attempt.ID, Score: 75, Passed: true, TimeSpentSeconds: 120, CompletedAt: time.Now(),
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrNotInProgress)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	got, err := repo.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusCompleted, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 75, *got.Score)
	assert.Equal(t, 1, got.CurrentQuestionIndex)
	assert.Equal(t, []uuid.UUID{q0.ID}, got.MarkedForReview)

	assert.ErrorIs(t, repo.SaveAnswer(ctx, attempt.ID, q0.ID, nil), repository.ErrNotInProgress)
	assert.ErrorIs(t, repo.SetPosition(ctx, attempt.ID, 0), repository.ErrNotInProgress)

	// The slot is free again once the attempt is terminal.
	createAttempt(t, quiz.ID, "learner-b", time.Now())
}

func TestAttemptRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	timed := newQuiz(60)
	untimed := newQuiz(0)
	quizzes := repository.NewQuizRepository(pool)
	require.NoError(t, quizzes.Create(ctx, timed))
	require.NoError(t, quizzes.Create(ctx, untimed))
	repo := repository.NewAttemptRepository(pool)

	now := time.Now()
	overdue := createAttempt(t, timed.ID, "learner-c", now.Add(-2*time.Minute))
	createAttempt(t, timed.ID, "learner-d", now)
	createAttempt(t, untimed.ID, "learner-c", now.Add(-time.Hour))

	list, err := repo.ListOverdue(ctx, now, 100)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, overdue.ID)
	for _, a := range list {
		assert.NotEqual(t, untimed.ID, a.QuizID)
	}
}

func TestAttemptRepository_Checkpoints(t *testing.T) {
	ctx := context.Background()
	quiz := newQuiz(300)
	require.NoError(t, repository.NewQuizRepository(pool).Create(ctx, quiz))
	repo := repository.NewAttemptRepository(pool)
	attempt := createAttempt(t, quiz.ID, "learner-e", time.Now())

	_, err := repo.LatestCheckpoint(ctx, attempt.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	q1 := quiz.Questions[1]
	saved := time.Now().UTC().Truncate(time.Microsecond)
	newer := &model.Checkpoint{
		AttemptID:            attempt.ID,
		Answers:              model.Answers{q1.ID: {q1.Options[0].ID}},
		CurrentQuestionIndex: 1,
		SavedAt:              saved,
	}
	require.NoError(t, repo.SaveCheckpoint(ctx, newer))

	// An older snapshot arriving late does not overwrite the newer one.
	older := &model.Checkpoint{AttemptID: attempt.ID, Answers: model.Answers{}, SavedAt: saved.Add(-time.Minute)}
	require.NoError(t, repo.SaveCheckpoint(ctx, older))

	got, err := repo.LatestCheckpoint(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentQuestionIndex)
	assert.Equal(t, newer.Answers, got.Answers)
	assert.True(t, saved.Equal(got.SavedAt))

	order := []uuid.UUID{q1.ID, quiz.Questions[0].ID}
	require.NoError(t, repo.BulkSetQuestionOrder(ctx, []repository.QuestionOrder{{AttemptID: attempt.ID, Order: order}}))
	stored, err := repo.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, order, stored.QuestionOrder)
}

func TestAntiCheatRepository(t *testing.T) {
	ctx := context.Background()
	quiz := newQuiz(300)
	require.NoError(t, repository.NewQuizRepository(pool).Create(ctx, quiz))
	attempt := createAttempt(t, quiz.ID, "learner-f", time.Now())
	repo := repository.NewAntiCheatRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.InsertBatch(ctx, []model.AntiCheatEvent{
		{AttemptID: attempt.ID, Kind: model.EventKindCopy, OccurredAt: base.Add(time.Second)},
		{AttemptID: attempt.ID, Kind: model.EventKindTabSwitch, OccurredAt: base},
	}))
	require.NoError(t, repo.Insert(ctx, &model.AntiCheatEvent{AttemptID: attempt.ID, Kind: model.EventKindPaste, OccurredAt: base.Add(2 * time.Second)}))

	events, err := repo.ListByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventKindTabSwitch, events[0].Kind)
	assert.Equal(t, model.EventKindCopy, events[1].Kind)
	assert.Equal(t, model.EventKindPaste, events[2].Kind)
}
