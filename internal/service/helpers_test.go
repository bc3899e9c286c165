package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sampleQuiz has one question of each type worth 10 points each.
func sampleQuiz() *model.Quiz {
	opt := func(text string, correct bool) model.AnswerOption {
		return model.AnswerOption{ID: uuid.New(), Text: text, IsCorrect: correct}
	}
	return &model.Quiz{
		ID:                  uuid.New(),
		Title:               "Go basics",
		TimeLimitSeconds:    60,
		PassingScorePercent: 70,
		Questions: []model.QuizQuestion{
			{
				ID: uuid.New(), Prompt: "Zero value of int?", Type: model.QuestionTypeSingleChoice, Points: 10,
				Options: []model.AnswerOption{opt("0", true), opt("nil", false), opt("1", false)},
			},
			{
				ID: uuid.New(), Prompt: "Reference types?", Type: model.QuestionTypeMultipleChoice, Points: 10,
				Options: []model.AnswerOption{opt("map", true), opt("slice", true), opt("array", false)},
			},
			{
				ID: uuid.New(), Prompt: "Go has generics.", Type: model.QuestionTypeTrueFalse, Points: 10, OrderNum: 2,
				Options: []model.AnswerOption{opt("True", true), opt("False", false)},
			},
		},
	}
}

type fixture struct {
	store   *memory.Store
	clock   *fakeClock
	quiz    *model.Quiz
	quizzes *QuizService
	svc     *AttemptService
}

func newFixture(t *testing.T, mutate func(*model.Quiz)) *fixture {
	t.Helper()
	quiz := sampleQuiz()
	if mutate != nil {
		mutate(quiz)
	}

	store := memory.NewStore()
	require.NoError(t, store.Create(context.Background(), quiz))

	clock := newFakeClock()
	quizzes := NewQuizService(store, nil, 0, zerolog.Nop())
	svc := NewAttemptService(store.Attempts(), quizzes, store, store, zerolog.Nop()).WithClock(clock.Now)

	return &fixture{store: store, clock: clock, quiz: quiz, quizzes: quizzes, svc: svc}
}

func (f *fixture) start(t *testing.T, learnerID string) *model.AttemptState {
	t.Helper()
	state, err := f.svc.Start(context.Background(), f.quiz.ID, learnerID)
	require.NoError(t, err)
	return state
}

func (f *fixture) option(qi, oi int) (uuid.UUID, uuid.UUID) {
	q := f.quiz.Questions[qi]
	return q.ID, q.Options[oi].ID
}

type failingQueue struct{ calls int }

var errQueueDown = errors.New("queue unavailable")

func (q *failingQueue) EnqueueEvent(context.Context, *model.AntiCheatEvent) error {
	q.calls++
	return errQueueDown
}

func (q *failingQueue) EnqueueCheckpoint(context.Context, *model.Checkpoint) error {
	q.calls++
	return errQueueDown
}
