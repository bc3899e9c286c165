package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository"
	"github.com/stemsi/quizattempt/internal/scoring"
)

// DefaultLowTimeThreshold is the remaining time at which learners are warned.
const DefaultLowTimeThreshold = 300

// AttemptService is the attempt session manager. The server clock is the only
// authority on deadlines: remaining time is always derived from StartedAt.
type AttemptService struct {
	attempts    AttemptStore
	quizzes     QuizLoader
	checkpoints CheckpointQueue
	orders      OrderQueue
	notifier    Notifier
	sessions    SessionTracker
	locks       *lockTable
	now         func() time.Time
	lowTime     int
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	quizzes QuizLoader,
	checkpoints CheckpointQueue,
	orders OrderQueue,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		quizzes:     quizzes,
		checkpoints: checkpoints,
		orders:      orders,
		notifier:    nopNotifier{},
		sessions:    nopTracker{},
		locks:       newLockTable(),
		now:         time.Now,
		lowTime:     DefaultLowTimeThreshold,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// WithClock replaces the wall clock. Used by tests.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// WithNotifier publishes lifecycle events through n.
func (s *AttemptService) WithNotifier(n Notifier) *AttemptService {
	s.notifier = n
	return s
}

// WithSessions keeps running timer sessions in step with changes made through
// any transport.
func (s *AttemptService) WithSessions(t SessionTracker) *AttemptService {
	s.sessions = t
	return s
}

// WithLowTimeThreshold sets the remaining seconds at which LowTime is reported.
func (s *AttemptService) WithLowTimeThreshold(seconds int) *AttemptService {
	s.lowTime = seconds
	return s
}

// LowTimeThreshold returns the configured warning threshold in seconds.
func (s *AttemptService) LowTimeThreshold() int {
	return s.lowTime
}

// Remaining returns the whole seconds left before the attempt's deadline,
// rounded up and never negative. ok is false for untimed quizzes.
func Remaining(quiz *model.Quiz, attempt *model.QuizAttempt, now time.Time) (seconds int, ok bool) {
	if !quiz.Timed() {
		return 0, false
	}
	deadline := attempt.StartedAt.Add(time.Duration(quiz.TimeLimitSeconds) * time.Second)
	left := deadline.Sub(now)
	if left <= 0 {
		return 0, true
	}
	return int(math.Ceil(left.Seconds())), true
}

func (s *AttemptService) expired(quiz *model.Quiz, attempt *model.QuizAttempt) bool {
	rem, timed := Remaining(quiz, attempt, s.now())
	return timed && rem == 0
}

// ─── Start / resume ─────────────────────────────────────────────────

// Start resumes the learner's in-progress attempt or creates a new one.
// An in-progress attempt whose deadline already passed is submitted first.
func (s *AttemptService) Start(ctx context.Context, quizID uuid.UUID, learnerID string) (*model.AttemptState, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	existing, err := s.attempts.FindInProgress(ctx, quizID, learnerID)
	switch {
	case err == nil:
		if !s.expired(quiz, existing) {
			return s.buildState(ctx, quiz, existing, true)
		}
		if _, err := s.ExpireAttempt(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("expire stale attempt: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find in-progress attempt: %w", err)
	}

	if quiz.MaxAttempts > 0 {
		count, err := s.attempts.CountByQuizAndLearner(ctx, quizID, learnerID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		if count >= quiz.MaxAttempts {
			return nil, ErrAttemptLimitExceeded
		}
	}

	attempt := &model.QuizAttempt{
		ID:              uuid.New(),
		QuizID:          quizID,
		LearnerID:       learnerID,
		Status:          model.AttemptStatusInProgress,
		StartedAt:       s.now().UTC(),
		MarkedForReview: []uuid.UUID{},
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			// A concurrent Start won; resume its attempt.
			winner, ferr := s.attempts.FindInProgress(ctx, quizID, learnerID)
			if ferr != nil {
				return nil, fmt.Errorf("find in-progress attempt: %w", ferr)
			}
			return s.buildState(ctx, quiz, winner, true)
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	if quiz.RandomizeQuestions {
		attempt.QuestionOrder = questionOrder(quiz, attempt.ID)
		if err := s.orders.EnqueueQuestionOrder(ctx, attempt.ID, attempt.QuestionOrder); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to queue question order")
		}
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("quiz_id", quizID.String()).
		Str("learner_id", learnerID).
		Msg("Attempt started")

	s.announce(ctx, &model.AttemptEvent{
		Type:       model.AttemptEventStarted,
		AttemptID:  attempt.ID,
		QuizID:     quizID,
		LearnerID:  learnerID,
		OccurredAt: attempt.StartedAt,
	})
	return s.buildState(ctx, quiz, attempt, false)
}

// ─── Mutations ──────────────────────────────────────────────────────

// SelectAnswer records a selection and returns the question's new option set.
// Exclusive question types replace the selection; multiple choice toggles it.
func (s *AttemptService) SelectAnswer(ctx context.Context, attemptID uuid.UUID, learnerID string, questionID, optionID uuid.UUID) ([]uuid.UUID, error) {
	l := s.locks.acquire(attemptID)
	defer s.locks.release(attemptID)

	selected, expired, err := s.selectAnswer(ctx, l, attemptID, learnerID, questionID, optionID)
	if expired {
		s.expireLate(ctx, attemptID)
	}
	if err != nil {
		return nil, err
	}
	s.sessions.Record(attemptID, questionID, selected)
	return selected, nil
}

func (s *AttemptService) selectAnswer(ctx context.Context, l *attemptLock, attemptID uuid.UUID, learnerID string, questionID, optionID uuid.UUID) ([]uuid.UUID, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	attempt, quiz, err := s.loadActive(ctx, attemptID, learnerID)
	if err != nil {
		return nil, false, err
	}
	if s.expired(quiz, attempt) {
		return nil, true, ErrAttemptNotActive
	}

	question, ok := quiz.Question(questionID)
	if !ok {
		return nil, false, ErrQuestionNotFound
	}
	if _, ok := question.Option(optionID); !ok {
		return nil, false, ErrInvalidOption
	}

	qm := l.question(questionID)
	qm.Lock()
	defer qm.Unlock()

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, false, fmt.Errorf("list answers: %w", err)
	}
	next := applySelection(question.Type, answers[questionID], optionID)

	if err := s.attempts.SaveAnswer(ctx, attemptID, questionID, next); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, false, ErrAttemptNotActive
		}
		return nil, false, fmt.Errorf("save answer: %w", err)
	}
	return next, false, nil
}

// applySelection returns the option set after selecting optionID.
func applySelection(t model.QuestionType, current []uuid.UUID, optionID uuid.UUID) []uuid.UUID {
	if t.Exclusive() {
		return []uuid.UUID{optionID}
	}
	next := make([]uuid.UUID, 0, len(current)+1)
	removed := false
	for _, id := range current {
		if id == optionID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, optionID)
	}
	return next
}

// ToggleMark flips a question's mark-for-review flag and reports the new value.
func (s *AttemptService) ToggleMark(ctx context.Context, attemptID uuid.UUID, learnerID string, questionID uuid.UUID) (bool, error) {
	var marked bool
	err := s.withMeta(ctx, attemptID, learnerID, func(attempt *model.QuizAttempt, quiz *model.Quiz) error {
		if _, ok := quiz.Question(questionID); !ok {
			return ErrQuestionNotFound
		}

		next := make([]uuid.UUID, 0, len(attempt.MarkedForReview)+1)
		for _, id := range attempt.MarkedForReview {
			if id != questionID {
				next = append(next, id)
			}
		}
		marked = len(next) == len(attempt.MarkedForReview)
		if marked {
			next = append(next, questionID)
		}
		return s.attempts.SetMarked(ctx, attemptID, next)
	})
	return marked, err
}

// Navigate moves the attempt to index, clamped into the question range.
func (s *AttemptService) Navigate(ctx context.Context, attemptID uuid.UUID, learnerID string, index int) (int, error) {
	var clamped int
	err := s.withMeta(ctx, attemptID, learnerID, func(_ *model.QuizAttempt, quiz *model.Quiz) error {
		clamped = clampIndex(index, len(quiz.Questions))
		return s.attempts.SetPosition(ctx, attemptID, clamped)
	})
	if err != nil {
		return 0, err
	}
	s.sessions.SetIndex(attemptID, clamped)
	return clamped, nil
}

func clampIndex(index, n int) int {
	if index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	return index
}

// withMeta runs fn under the attempt's metadata lock after checking ownership,
// status and deadline.
func (s *AttemptService) withMeta(ctx context.Context, attemptID uuid.UUID, learnerID string, fn func(*model.QuizAttempt, *model.Quiz) error) error {
	l := s.locks.acquire(attemptID)
	defer s.locks.release(attemptID)

	expired, err := func() (bool, error) {
		l.mu.RLock()
		defer l.mu.RUnlock()
		l.meta.Lock()
		defer l.meta.Unlock()

		attempt, quiz, err := s.loadActive(ctx, attemptID, learnerID)
		if err != nil {
			return false, err
		}
		if s.expired(quiz, attempt) {
			return true, ErrAttemptNotActive
		}
		if err := fn(attempt, quiz); err != nil {
			if errors.Is(err, repository.ErrNotInProgress) {
				return false, ErrAttemptNotActive
			}
			return false, err
		}
		return false, nil
	}()
	if expired {
		s.expireLate(ctx, attemptID)
	}
	return err
}

// ─── Submit ─────────────────────────────────────────────────────────

// Submit scores and completes the attempt. timeRemainingSeconds is the client's
// view of its clock and is clamped to what the server allows.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, learnerID string, timeRemainingSeconds int) (*model.ScoredResult, error) {
	return s.finish(ctx, attemptID, learnerID, timeRemainingSeconds, false)
}

// ExpireAttempt force-submits an attempt whose deadline passed. An attempt that
// is already terminal is not an error: it returns nil, nil.
func (s *AttemptService) ExpireAttempt(ctx context.Context, attemptID uuid.UUID) (*model.ScoredResult, error) {
	result, err := s.finish(ctx, attemptID, "", 0, true)
	if errors.Is(err, ErrAttemptNotActive) {
		return nil, nil
	}
	return result, err
}

// expireLate force-submits after a mutation observed the deadline. Failures are
// logged; the sweeper retries.
func (s *AttemptService) expireLate(ctx context.Context, attemptID uuid.UUID) {
	if _, err := s.ExpireAttempt(ctx, attemptID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to force-submit expired attempt")
	}
}

// finish is the single terminal transition. The store's status guard makes the
// first caller win; every other caller gets ErrAttemptNotActive.
func (s *AttemptService) finish(ctx context.Context, attemptID uuid.UUID, learnerID string, clientRemaining int, forced bool) (*model.ScoredResult, error) {
	l := s.locks.acquire(attemptID)
	defer s.locks.release(attemptID)
	l.mu.Lock()
	defer l.mu.Unlock()

	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}
	if !attempt.Active() {
		return nil, ErrAttemptNotActive
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	result, err := scoring.Score(quiz, answers)
	if err != nil {
		return nil, fmt.Errorf("score attempt: %w", err)
	}

	now := s.now().UTC()
	completion := &model.Completion{
		AttemptID:        attemptID,
		Score:            result.Score,
		Passed:           result.Passed,
		TimeSpentSeconds: s.timeSpent(quiz, attempt, now, clientRemaining, forced),
		Forced:           forced,
		CompletedAt:      now,
	}
	if err := s.attempts.Complete(ctx, completion); err != nil {
		if errors.Is(err, repository.ErrNotInProgress) {
			return nil, ErrAttemptNotActive
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	result.AttemptID = attemptID
	result.TimeSpentSeconds = completion.TimeSpentSeconds
	result.Forced = forced
	result.CompletedAt = now
	s.sessions.Complete(attemptID, result)

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("score", result.Score).
		Bool("passed", result.Passed).
		Bool("forced", forced).
		Int("time_spent", result.TimeSpentSeconds).
		Msg("Attempt submitted")

	s.announce(ctx, &model.AttemptEvent{
		Type:             model.AttemptEventCompleted,
		AttemptID:        attemptID,
		QuizID:           attempt.QuizID,
		LearnerID:        attempt.LearnerID,
		Score:            &completion.Score,
		Passed:           &completion.Passed,
		TimeSpentSeconds: &completion.TimeSpentSeconds,
		Forced:           forced,
		OccurredAt:       now,
	})
	return result, nil
}

// announce publishes e in the background. The broker is never on the
// learner's critical path; failures are logged.
func (s *AttemptService) announce(ctx context.Context, e *model.AttemptEvent) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.notifier.Publish(ctx, e); err != nil {
			s.log.Warn().
				Err(err).
				Str("attempt_id", e.AttemptID.String()).
				Str("type", string(e.Type)).
				Msg("Failed to publish attempt event")
		}
	}()
}

// timeSpent computes the recorded duration. Timed quizzes use the client's
// remaining time clamped into [0, server remaining]; a forced or late submit
// spends the whole limit. Untimed quizzes use wall-clock elapsed time.
func (s *AttemptService) timeSpent(quiz *model.Quiz, attempt *model.QuizAttempt, now time.Time, clientRemaining int, forced bool) int {
	serverRemaining, timed := Remaining(quiz, attempt, now)
	if !timed {
		elapsed := int(now.Sub(attempt.StartedAt).Seconds())
		return max(elapsed, 0)
	}
	if forced || serverRemaining == 0 {
		return quiz.TimeLimitSeconds
	}
	remaining := min(max(clientRemaining, 0), serverRemaining)
	return quiz.TimeLimitSeconds - remaining
}

// ─── Checkpoints ────────────────────────────────────────────────────

// Autosave queues a checkpoint taken by the timer. Failures are returned so
// the caller can log them and retry on the next tick. Snapshots of an attempt
// that is no longer in progress are dropped.
func (s *AttemptService) Autosave(ctx context.Context, cp *model.Checkpoint) error {
	l := s.locks.acquire(cp.AttemptID)
	defer s.locks.release(cp.AttemptID)
	l.mu.RLock()
	defer l.mu.RUnlock()

	attempt, err := s.loadOwned(ctx, cp.AttemptID, "")
	if err != nil {
		return err
	}
	if !attempt.Active() {
		s.log.Debug().Str("attempt_id", cp.AttemptID.String()).Msg("Checkpoint skipped, attempt not in progress")
		return nil
	}
	return s.enqueueCheckpoint(ctx, cp)
}

func (s *AttemptService) enqueueCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	if cp.SavedAt.IsZero() {
		cp.SavedAt = s.now().UTC()
	}
	if err := s.checkpoints.EnqueueCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("enqueue checkpoint: %w", err)
	}
	return nil
}

// SaveCheckpoint accepts a client-pushed snapshot. Persistence is best-effort:
// once the request is validated, queue failures are logged and swallowed.
func (s *AttemptService) SaveCheckpoint(ctx context.Context, attemptID uuid.UUID, learnerID string, req *model.CheckpointRequest) error {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return err
	}
	if !attempt.Active() {
		return ErrAttemptNotActive
	}

	answers := make(model.Answers, len(req.Answers))
	for q, opts := range req.Answers {
		qid, err := uuid.Parse(q)
		if err != nil {
			return ErrInvalidCheckpoint
		}
		ids := make([]uuid.UUID, 0, len(opts))
		for _, o := range opts {
			oid, err := uuid.Parse(o)
			if err != nil {
				return ErrInvalidCheckpoint
			}
			ids = append(ids, oid)
		}
		answers[qid] = ids
	}

	cp := &model.Checkpoint{
		AttemptID:            attemptID,
		Answers:              answers,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
	}
	if err := s.Autosave(ctx, cp); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Checkpoint dropped")
	}
	return nil
}

// ─── Views ──────────────────────────────────────────────────────────

// State returns the resume view of an attempt. An in-progress attempt found past
// its deadline is submitted before the view is built.
func (s *AttemptService) State(ctx context.Context, attemptID uuid.UUID, learnerID string) (*model.AttemptState, error) {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	if attempt.Active() && s.expired(quiz, attempt) {
		if _, err := s.ExpireAttempt(ctx, attemptID); err != nil {
			return nil, err
		}
		if attempt, err = s.loadOwned(ctx, attemptID, learnerID); err != nil {
			return nil, err
		}
	}
	return s.buildState(ctx, quiz, attempt, true)
}

// Paper returns the learner-facing quiz in the attempt's presentation order.
func (s *AttemptService) Paper(ctx context.Context, attemptID uuid.UUID, learnerID string) (*model.QuizPaper, error) {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	return buildPaper(quiz, attempt), nil
}

// Result returns the graded outcome of a completed attempt.
func (s *AttemptService) Result(ctx context.Context, attemptID uuid.UUID, learnerID string) (*model.ScoredResult, error) {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return nil, err
	}
	if attempt.Active() || attempt.Score == nil {
		return nil, ErrAttemptNotCompleted
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	result, err := scoring.Score(quiz, answers)
	if err != nil {
		return nil, fmt.Errorf("score attempt: %w", err)
	}

	// Stored values are authoritative.
	result.AttemptID = attemptID
	result.Score = *attempt.Score
	if attempt.Passed != nil {
		result.Passed = *attempt.Passed
	}
	if attempt.TimeSpentSeconds != nil {
		result.TimeSpentSeconds = *attempt.TimeSpentSeconds
	}
	if attempt.CompletedAt != nil {
		result.CompletedAt = *attempt.CompletedAt
	}
	result.Forced = attempt.Forced
	return result, nil
}

// Deadline returns the attempt's start time and limit for the timer. limit is
// zero for untimed quizzes.
func (s *AttemptService) Deadline(ctx context.Context, attemptID uuid.UUID, learnerID string) (startedAt time.Time, limit time.Duration, err error) {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return time.Time{}, 0, err
	}
	if !attempt.Active() {
		return time.Time{}, 0, ErrAttemptNotActive
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return time.Time{}, 0, err
	}
	return attempt.StartedAt, time.Duration(quiz.TimeLimitSeconds) * time.Second, nil
}

// ExpireOverdue force-submits up to limit attempts past their deadline and
// returns how many it completed.
func (s *AttemptService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.attempts.ListOverdue(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue attempts: %w", err)
	}

	expired := 0
	for i := range overdue {
		result, err := s.ExpireAttempt(ctx, overdue[i].ID)
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", overdue[i].ID.String()).Msg("Failed to expire attempt")
			continue
		}
		if result != nil {
			expired++
		}
	}
	return expired, nil
}

func (s *AttemptService) buildState(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, resumed bool) (*model.AttemptState, error) {
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	state := &model.AttemptState{
		Attempt:        attempt,
		Answers:        answers,
		TotalQuestions: len(quiz.Questions),
		AnsweredCount:  answers.Answered(),
		Resumed:        resumed,
	}
	if rem, timed := Remaining(quiz, attempt, s.now()); timed {
		if !attempt.Active() {
			rem = 0
		}
		state.RemainingSeconds = &rem
		state.LowTime = attempt.Active() && rem <= s.lowTime
	}

	if resumed && attempt.Active() {
		cp, err := s.attempts.LatestCheckpoint(ctx, attempt.ID)
		switch {
		case err == nil:
			state.LastCheckpointAt = &cp.SavedAt
		case !errors.Is(err, repository.ErrNotFound):
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to read checkpoint")
		}
	}
	return state, nil
}

// loadOwned returns the attempt when learnerID owns it. An empty learnerID
// skips the ownership check for server-driven callers.
func (s *AttemptService) loadOwned(ctx context.Context, attemptID uuid.UUID, learnerID string) (*model.QuizAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if learnerID != "" && attempt.LearnerID != learnerID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptService) loadActive(ctx context.Context, attemptID uuid.UUID, learnerID string) (*model.QuizAttempt, *model.Quiz, error) {
	attempt, err := s.loadOwned(ctx, attemptID, learnerID)
	if err != nil {
		return nil, nil, err
	}
	if !attempt.Active() {
		return nil, nil, ErrAttemptNotActive
	}
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, quiz, nil
}
