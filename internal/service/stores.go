package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizattempt/internal/model"
)

// QuizStore loads quiz definitions. Implemented by repository.QuizRepository
// and memory.Store.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
}

// QuizLoader resolves a quiz for the attempt engine, usually through the cache.
type QuizLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
}

// AttemptReader is the read side of the attempt store.
type AttemptReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.QuizAttempt, error)
}

// AttemptStore persists attempts and their answers. Every mutation is
// status-guarded and returns repository.ErrNotInProgress once the attempt is terminal.
type AttemptStore interface {
	AttemptReader
	FindInProgress(ctx context.Context, quizID uuid.UUID, learnerID string) (*model.QuizAttempt, error)
	CountByQuizAndLearner(ctx context.Context, quizID uuid.UUID, learnerID string) (int, error)
	Create(ctx context.Context, a *model.QuizAttempt) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) (model.Answers, error)
	SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, optionIDs []uuid.UUID) error
	SetMarked(ctx context.Context, attemptID uuid.UUID, marked []uuid.UUID) error
	SetPosition(ctx context.Context, attemptID uuid.UUID, index int) error
	Complete(ctx context.Context, c *model.Completion) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.QuizAttempt, error)
	LatestCheckpoint(ctx context.Context, attemptID uuid.UUID) (*model.Checkpoint, error)
}

// AntiCheatLog reads back recorded anti-cheat events.
type AntiCheatLog interface {
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AntiCheatEvent, error)
}

// CheckpointQueue accepts checkpoints for asynchronous persistence.
type CheckpointQueue interface {
	EnqueueCheckpoint(ctx context.Context, cp *model.Checkpoint) error
}

// EventQueue accepts anti-cheat events for asynchronous persistence.
type EventQueue interface {
	EnqueueEvent(ctx context.Context, e *model.AntiCheatEvent) error
}

// OrderQueue accepts per-attempt question orders for asynchronous persistence.
type OrderQueue interface {
	EnqueueQuestionOrder(ctx context.Context, attemptID uuid.UUID, order []uuid.UUID) error
}

// Notifier publishes attempt lifecycle events. Implemented by notify.RabbitPublisher.
type Notifier interface {
	Publish(ctx context.Context, e *model.AttemptEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, *model.AttemptEvent) error { return nil }

// SessionTracker mirrors attempt changes into the live countdown and autosave
// session. Implemented by timer.Coordinator.
type SessionTracker interface {
	Record(attemptID, questionID uuid.UUID, optionIDs []uuid.UUID)
	SetIndex(attemptID uuid.UUID, index int)
	Complete(attemptID uuid.UUID, result *model.ScoredResult)
}

type nopTracker struct{}

func (nopTracker) Record(uuid.UUID, uuid.UUID, []uuid.UUID) {}
func (nopTracker) SetIndex(uuid.UUID, int)                  {}
func (nopTracker) Complete(uuid.UUID, *model.ScoredResult)  {}
