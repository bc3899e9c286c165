package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates persisted attempt states.
// Deadline expiry is not a stored status: it triggers the same submit path and
// is recorded through QuizAttempt.Forced.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// QuizAttempt is one learner's timed pass at a quiz.
type QuizAttempt struct {
	ID                   uuid.UUID     `json:"id"`
	QuizID               uuid.UUID     `json:"quiz_id"`
	LearnerID            string        `json:"learner_id"`
	Status               AttemptStatus `json:"status"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	MarkedForReview      []uuid.UUID   `json:"marked_for_review"`
	QuestionOrder        []uuid.UUID   `json:"-"`
	Score                *int          `json:"score,omitempty"`
	Passed               *bool         `json:"passed,omitempty"`
	TimeSpentSeconds     *int          `json:"time_spent_seconds,omitempty"`
	Forced               bool          `json:"forced"`
}

// Active reports whether the attempt still accepts mutations.
func (a *QuizAttempt) Active() bool {
	return a.Status == AttemptStatusInProgress
}

// IsMarked reports whether questionID is in the mark-for-review set.
func (a *QuizAttempt) IsMarked(questionID uuid.UUID) bool {
	for _, id := range a.MarkedForReview {
		if id == questionID {
			return true
		}
	}
	return false
}

// AttemptAnswer is the selection recorded for one question of an attempt.
type AttemptAnswer struct {
	AttemptID  uuid.UUID   `json:"attempt_id"`
	QuestionID uuid.UUID   `json:"question_id"`
	OptionIDs  []uuid.UUID `json:"option_ids"`
}

// Answers maps question ID to the ordered set of selected option IDs.
type Answers map[uuid.UUID][]uuid.UUID

// Clone returns a deep copy safe to hand to another goroutine.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for q, opts := range a {
		out[q] = append([]uuid.UUID(nil), opts...)
	}
	return out
}

// Answered counts questions with at least one selected option.
func (a Answers) Answered() int {
	n := 0
	for _, opts := range a {
		if len(opts) > 0 {
			n++
		}
	}
	return n
}

// Checkpoint is a periodic best-effort snapshot of an in-progress attempt.
type Checkpoint struct {
	AttemptID            uuid.UUID `json:"attempt_id"`
	Answers              Answers   `json:"answers"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	SavedAt              time.Time `json:"saved_at"`
}

// Completion carries the terminal fields written by a status-guarded submit.
type Completion struct {
	AttemptID        uuid.UUID
	Score            int
	Passed           bool
	TimeSpentSeconds int
	Forced           bool
	CompletedAt      time.Time
}

// QuestionOutcome is the per-question part of a scored result.
type QuestionOutcome struct {
	QuestionID uuid.UUID `json:"question_id"`
	Correct    bool      `json:"correct"`
	Points     int       `json:"points"`
	Earned     int       `json:"earned"`
}

// ScoredResult is returned by a successful submit and by the result view.
type ScoredResult struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	Score            int               `json:"score"`
	Passed           bool              `json:"passed"`
	EarnedPoints     int               `json:"earned_points"`
	TotalPoints      int               `json:"total_points"`
	CorrectQuestions int               `json:"correct_questions"`
	TotalQuestions   int               `json:"total_questions"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
	Forced           bool              `json:"forced"`
	CompletedAt      time.Time         `json:"completed_at"`
	Questions        []QuestionOutcome `json:"questions,omitempty"`
}

// AttemptState is the resume view of an attempt. RemainingSeconds is nil when
// the quiz is untimed.
type AttemptState struct {
	Attempt          *QuizAttempt `json:"attempt"`
	Answers          Answers      `json:"answers"`
	RemainingSeconds *int         `json:"remaining_seconds"`
	LowTime          bool         `json:"low_time"`
	TotalQuestions   int          `json:"total_questions"`
	AnsweredCount    int          `json:"answered_count"`
	Resumed          bool         `json:"resumed"`
	LastCheckpointAt *time.Time   `json:"last_checkpoint_at,omitempty"`
}

// SelectAnswerRequest is the payload for selecting an option.
type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	OptionID   string `json:"option_id" binding:"required,uuid"`
}

// ToggleMarkRequest is the payload for marking a question for review.
type ToggleMarkRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// NavigateRequest is the payload for moving to another question.
type NavigateRequest struct {
	Index int `json:"index"`
}

// CheckpointRequest is the client-pushed autosave snapshot.
type CheckpointRequest struct {
	Answers              map[string][]string `json:"answers"`
	CurrentQuestionIndex int                 `json:"current_question_index" binding:"min=0"`
}

// SubmitRequest is the payload for submitting an attempt.
type SubmitRequest struct {
	TimeRemainingSeconds int `json:"time_remaining_seconds" binding:"min=0"`
}
