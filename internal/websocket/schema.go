package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionMark     Action = "mark"
	ActionNavigate Action = "navigate"
	ActionCheat    Action = "cheat"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Request is one client message. Only the fields of its action are read.
type Request struct {
	Action               Action `json:"action"`
	QuestionID           string `json:"question_id,omitempty"`
	OptionID             string `json:"option_id,omitempty"`
	Index                int    `json:"index,omitempty"`
	Kind                 string `json:"kind,omitempty"`
	TimeRemainingSeconds int    `json:"time_remaining_seconds,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState            Event = "state"
	EventTick             Event = "tick"
	EventLowTime          Event = "low_time"
	EventExpired          Event = "expired"
	EventGraded           Event = "graded"
	EventSaved            Event = "saved"
	EventMarked           Event = "marked"
	EventNavigated        Event = "navigated"
	EventCheat            Event = "cheat_ack"
	EventCheckpointFailed Event = "checkpoint_failed"
	EventError            Event = "error"
	EventPong             Event = "pong"
)

// Envelope wraps every server message.
type Envelope struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

type TimePayload struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

type SavedPayload struct {
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids"`
}

type MarkedPayload struct {
	QuestionID string `json:"question_id"`
	Marked     bool   `json:"marked"`
}

type NavigatedPayload struct {
	Index int `json:"index"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
