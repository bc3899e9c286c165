// Package memory is an in-process implementation of the quiz, attempt and
// anti-cheat stores. It keeps the same status-guarded semantics as the Postgres
// repositories and backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository"
)

// Store holds every record behind one mutex.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[uuid.UUID]*model.Quiz
	attempts    map[uuid.UUID]*model.QuizAttempt
	answers     map[uuid.UUID]model.Answers
	checkpoints map[uuid.UUID]*model.Checkpoint
	events      map[uuid.UUID][]model.AntiCheatEvent
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		quizzes:     make(map[uuid.UUID]*model.Quiz),
		attempts:    make(map[uuid.UUID]*model.QuizAttempt),
		answers:     make(map[uuid.UUID]model.Answers),
		checkpoints: make(map[uuid.UUID]*model.Checkpoint),
		events:      make(map[uuid.UUID][]model.AntiCheatEvent),
	}
}

// ─── Quizzes ────────────────────────────────────────────────────────

// Create stores a quiz definition.
func (s *Store) Create(_ context.Context, q *model.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

// GetByID returns a quiz definition.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneQuiz(q), nil
}

// ─── Attempts ───────────────────────────────────────────────────────

// Attempts is the attempt-store view of the Store. Quiz and attempt lookups
// share the GetByID name, so the attempt methods live on this type.
type Attempts struct{ s *Store }

// Attempts returns the attempt store.
func (s *Store) Attempts() *Attempts { return &Attempts{s: s} }

// GetByID returns an attempt.
func (a *Attempts) GetByID(_ context.Context, id uuid.UUID) (*model.QuizAttempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	at, ok := a.s.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(at), nil
}

// FindInProgress returns the learner's in-progress attempt for a quiz.
func (a *Attempts) FindInProgress(_ context.Context, quizID uuid.UUID, learnerID string) (*model.QuizAttempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	for _, at := range a.s.attempts {
		if at.QuizID == quizID && at.LearnerID == learnerID && at.Active() {
			return cloneAttempt(at), nil
		}
	}
	return nil, repository.ErrNotFound
}

// CountByQuizAndLearner counts every attempt regardless of status.
func (a *Attempts) CountByQuizAndLearner(_ context.Context, quizID uuid.UUID, learnerID string) (int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	n := 0
	for _, at := range a.s.attempts {
		if at.QuizID == quizID && at.LearnerID == learnerID {
			n++
		}
	}
	return n, nil
}

// Create inserts an in-progress attempt, enforcing one active attempt per pair.
func (a *Attempts) Create(_ context.Context, at *model.QuizAttempt) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, other := range a.s.attempts {
		if other.QuizID == at.QuizID && other.LearnerID == at.LearnerID && other.Active() {
			return repository.ErrActiveAttemptExists
		}
	}
	stored := cloneAttempt(at)
	stored.Status = model.AttemptStatusInProgress
	stored.QuestionOrder = nil
	a.s.attempts[at.ID] = stored
	a.s.answers[at.ID] = make(model.Answers)
	return nil
}

// ListAnswers returns every recorded selection of an attempt.
func (a *Attempts) ListAnswers(_ context.Context, attemptID uuid.UUID) (model.Answers, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return a.s.answers[attemptID].Clone(), nil
}

// SaveAnswer upserts a selection while the attempt is in progress.
func (a *Attempts) SaveAnswer(_ context.Context, attemptID, questionID uuid.UUID, optionIDs []uuid.UUID) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	at, ok := a.s.attempts[attemptID]
	if !ok || !at.Active() {
		return repository.ErrNotInProgress
	}
	a.s.answers[attemptID][questionID] = append([]uuid.UUID{}, optionIDs...)
	return nil
}

// SetMarked replaces the mark-for-review set.
func (a *Attempts) SetMarked(_ context.Context, attemptID uuid.UUID, marked []uuid.UUID) error {
	return a.mutate(attemptID, func(at *model.QuizAttempt) {
		at.MarkedForReview = append([]uuid.UUID{}, marked...)
	})
}

// SetPosition stores the current question index.
func (a *Attempts) SetPosition(_ context.Context, attemptID uuid.UUID, index int) error {
	return a.mutate(attemptID, func(at *model.QuizAttempt) {
		at.CurrentQuestionIndex = index
	})
}

// Complete performs the terminal transition exactly once.
func (a *Attempts) Complete(_ context.Context, c *model.Completion) error {
	return a.mutate(c.AttemptID, func(at *model.QuizAttempt) {
		completedAt := c.CompletedAt
		score, passed, spent := c.Score, c.Passed, c.TimeSpentSeconds
		at.Status = model.AttemptStatusCompleted
		at.CompletedAt = &completedAt
		at.Score = &score
		at.Passed = &passed
		at.TimeSpentSeconds = &spent
		at.Forced = c.Forced
	})
}

func (a *Attempts) mutate(attemptID uuid.UUID, fn func(*model.QuizAttempt)) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	at, ok := a.s.attempts[attemptID]
	if !ok || !at.Active() {
		return repository.ErrNotInProgress
	}
	fn(at)
	return nil
}

// ListOverdue returns in-progress attempts of timed quizzes past their deadline.
func (a *Attempts) ListOverdue(_ context.Context, now time.Time, limit int) ([]model.QuizAttempt, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []model.QuizAttempt
	for _, at := range a.s.attempts {
		if !at.Active() {
			continue
		}
		q, ok := a.s.quizzes[at.QuizID]
		if !ok || !q.Timed() {
			continue
		}
		deadline := at.StartedAt.Add(time.Duration(q.TimeLimitSeconds) * time.Second)
		if !deadline.After(now) {
			out = append(out, *cloneAttempt(at))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveCheckpoint keeps the newest snapshot of an in-progress attempt.
func (a *Attempts) SaveCheckpoint(_ context.Context, cp *model.Checkpoint) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	at, ok := a.s.attempts[cp.AttemptID]
	if !ok || !at.Active() {
		return nil
	}
	if prev, ok := a.s.checkpoints[cp.AttemptID]; ok && !prev.SavedAt.Before(cp.SavedAt) {
		return nil
	}
	stored := *cp
	stored.Answers = cp.Answers.Clone()
	a.s.checkpoints[cp.AttemptID] = &stored
	return nil
}

// LatestCheckpoint returns the stored snapshot of an attempt.
func (a *Attempts) LatestCheckpoint(_ context.Context, attemptID uuid.UUID) (*model.Checkpoint, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	cp, ok := a.s.checkpoints[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *cp
	out.Answers = cp.Answers.Clone()
	return &out, nil
}

// SetQuestionOrder stores an attempt's randomized question order.
func (a *Attempts) SetQuestionOrder(_ context.Context, attemptID uuid.UUID, order []uuid.UUID) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if at, ok := a.s.attempts[attemptID]; ok {
		at.QuestionOrder = append([]uuid.UUID{}, order...)
	}
	return nil
}

// ─── Anti-cheat log ─────────────────────────────────────────────────

// Insert appends an event.
func (s *Store) Insert(_ context.Context, e *model.AntiCheatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.AttemptID] = append(s.events[e.AttemptID], *e)
	return nil
}

// ListByAttempt returns the events of an attempt in insertion order.
func (s *Store) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AntiCheatEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AntiCheatEvent(nil), s.events[attemptID]...), nil
}

// ─── Queues ─────────────────────────────────────────────────────────
// Without Redis the queues write straight through.

// EnqueueCheckpoint stores a checkpoint immediately.
func (s *Store) EnqueueCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	return s.Attempts().SaveCheckpoint(ctx, cp)
}

// EnqueueEvent stores an anti-cheat event immediately.
func (s *Store) EnqueueEvent(ctx context.Context, e *model.AntiCheatEvent) error {
	return s.Insert(ctx, e)
}

// EnqueueQuestionOrder stores a question order immediately.
func (s *Store) EnqueueQuestionOrder(ctx context.Context, attemptID uuid.UUID, order []uuid.UUID) error {
	return s.Attempts().SetQuestionOrder(ctx, attemptID, order)
}

// ─── Copies ─────────────────────────────────────────────────────────

func cloneQuiz(q *model.Quiz) *model.Quiz {
	out := *q
	out.Questions = make([]model.QuizQuestion, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]model.AnswerOption(nil), qq.Options...)
		out.Questions[i] = qq
	}
	return &out
}

func cloneAttempt(a *model.QuizAttempt) *model.QuizAttempt {
	out := *a
	out.MarkedForReview = append([]uuid.UUID{}, a.MarkedForReview...)
	if a.QuestionOrder != nil {
		out.QuestionOrder = append([]uuid.UUID{}, a.QuestionOrder...)
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	if a.Score != nil {
		v := *a.Score
		out.Score = &v
	}
	if a.Passed != nil {
		v := *a.Passed
		out.Passed = &v
	}
	if a.TimeSpentSeconds != nil {
		v := *a.TimeSpentSeconds
		out.TimeSpentSeconds = &v
	}
	return &out
}
