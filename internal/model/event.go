package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptEventType names a lifecycle transition published to other services.
type AttemptEventType string

const (
	AttemptEventStarted   AttemptEventType = "attempt.started"
	AttemptEventCompleted AttemptEventType = "attempt.completed"
)

// AttemptEvent is the message published on attempt lifecycle transitions.
// Score fields are set only for completions.
type AttemptEvent struct {
	Type             AttemptEventType `json:"type"`
	AttemptID        uuid.UUID        `json:"attempt_id"`
	QuizID           uuid.UUID        `json:"quiz_id"`
	LearnerID        string           `json:"learner_id"`
	Score            *int             `json:"score,omitempty"`
	Passed           *bool            `json:"passed,omitempty"`
	TimeSpentSeconds *int             `json:"time_spent_seconds,omitempty"`
	Forced           bool             `json:"forced,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
}
