package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository"
)

// AntiCheatService collects behavioral signals. Recording never blocks or fails
// the learner's attempt: every persistence failure is logged and swallowed.
type AntiCheatService struct {
	attempts AttemptReader
	quizzes  QuizLoader
	queue    EventQueue
	history  AntiCheatLog
	now      func() time.Time
	log      zerolog.Logger
}

// NewAntiCheatService creates a new AntiCheatService.
func NewAntiCheatService(attempts AttemptReader, quizzes QuizLoader, queue EventQueue, history AntiCheatLog, log zerolog.Logger) *AntiCheatService {
	return &AntiCheatService{
		attempts: attempts,
		quizzes:  quizzes,
		queue:    queue,
		history:  history,
		now:      time.Now,
		log:      log.With().Str("component", "anticheat_service").Logger(),
	}
}

// Log records a signal when the attempt is in progress and the quiz watches for
// it, and tells the client whether to suppress the action. Only an unknown kind
// or an attempt the learner does not own is reported as an error.
func (s *AntiCheatService) Log(ctx context.Context, attemptID uuid.UUID, learnerID string, kind model.EventKind) (*model.LogEventResult, error) {
	if !kind.Valid() {
		return nil, ErrInvalidEventKind
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Anti-cheat lookup failed, event dropped")
		return &model.LogEventResult{}, nil
	}
	if attempt.LearnerID != learnerID {
		return nil, ErrAttemptNotFound
	}
	if !attempt.Active() {
		return &model.LogEventResult{}, nil
	}

	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Anti-cheat quiz lookup failed, event dropped")
		return &model.LogEventResult{}, nil
	}

	watched, suppress := policy(quiz, kind)
	result := &model.LogEventResult{Suppress: suppress}
	if !watched {
		return result, nil
	}

	event := &model.AntiCheatEvent{AttemptID: attemptID, Kind: kind, OccurredAt: s.now().UTC()}
	if err := s.queue.EnqueueEvent(ctx, event); err != nil {
		s.log.Warn().
			Err(err).
			Str("attempt_id", attemptID.String()).
			Str("kind", string(kind)).
			Msg("Failed to queue anti-cheat event")
		return result, nil
	}
	result.Recorded = true
	return result, nil
}

// policy reports whether the quiz records kind and whether the client must
// block the underlying action.
func policy(quiz *model.Quiz, kind model.EventKind) (watched, suppress bool) {
	switch kind {
	case model.EventKindTabSwitch:
		return quiz.PreventTabSwitch, false
	case model.EventKindCopy, model.EventKindPaste:
		return quiz.PreventCopyPaste, quiz.PreventCopyPaste
	}
	return false, false
}

// List returns the recorded events of an attempt owned by learnerID.
func (s *AntiCheatService) List(ctx context.Context, attemptID uuid.UUID, learnerID string) ([]model.AntiCheatEvent, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.LearnerID != learnerID {
		return nil, ErrAttemptNotFound
	}
	events, err := s.history.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.AntiCheatEvent{}
	}
	return events, nil
}
