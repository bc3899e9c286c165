package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates anti-cheat signals.
type EventKind string

const (
	EventKindTabSwitch EventKind = "TAB_SWITCH"
	EventKindCopy      EventKind = "COPY"
	EventKindPaste     EventKind = "PASTE"
)

// Valid reports whether k is a known signal.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindTabSwitch, EventKindCopy, EventKindPaste:
		return true
	}
	return false
}

// AntiCheatEvent is an append-only behavioral signal tied to an attempt.
type AntiCheatEvent struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LogEventRequest is the payload for reporting a signal.
type LogEventRequest struct {
	Kind EventKind `json:"kind" binding:"required,oneof=TAB_SWITCH COPY PASTE"`
}

// LogEventResult tells the client whether to suppress the underlying action.
type LogEventResult struct {
	Recorded bool `json:"recorded"`
	Suppress bool `json:"suppress"`
}
