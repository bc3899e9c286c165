package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
)

// Exclusive reports whether at most one option may be selected.
func (t QuestionType) Exclusive() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeTrueFalse
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeTrueFalse:
		return true
	}
	return false
}

// AnswerOption is a selectable answer. IsCorrect never leaves the server.
type AnswerOption struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	ImageURL  *string   `json:"image_url,omitempty"`
	IsCorrect bool      `json:"-"`
	OrderNum  int       `json:"order_num"`
}

// QuizQuestion is a single question of a quiz.
type QuizQuestion struct {
	ID       uuid.UUID      `json:"id"`
	Prompt   string         `json:"prompt"`
	ImageURL *string        `json:"image_url,omitempty"`
	Type     QuestionType   `json:"type"`
	Points   int            `json:"points"`
	OrderNum int            `json:"order_num"`
	Options  []AnswerOption `json:"options"`
}

// Option returns the option with the given ID.
func (q *QuizQuestion) Option(id uuid.UUID) (*AnswerOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// CorrectOptions returns the IDs of all options flagged correct, in option order.
func (q *QuizQuestion) CorrectOptions() []uuid.UUID {
	var ids []uuid.UUID
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Quiz is an immutable, versioned quiz definition. Read-only to the attempt engine.
type Quiz struct {
	ID                  uuid.UUID      `json:"id"`
	Title               string         `json:"title"`
	Questions           []QuizQuestion `json:"questions"`
	TimeLimitSeconds    int            `json:"time_limit_seconds"`
	PassingScorePercent int            `json:"passing_score_percent"`
	MaxAttempts         int            `json:"max_attempts"`
	RandomizeQuestions  bool           `json:"randomize_questions"`
	RandomizeAnswers    bool           `json:"randomize_answers"`
	PreventTabSwitch    bool           `json:"prevent_tab_switch"`
	PreventCopyPaste    bool           `json:"prevent_copy_paste"`
	ShowProgressBar     bool           `json:"show_progress_bar"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Question returns the question with the given ID.
func (q *Quiz) Question(id uuid.UUID) (*QuizQuestion, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Timed reports whether the quiz has a deadline.
func (q *Quiz) Timed() bool {
	return q.TimeLimitSeconds > 0
}

// TotalPoints sums the points of every question.
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, qq := range q.Questions {
		total += qq.Points
	}
	return total
}

// QuizPaper is the learner-facing view of a quiz for one attempt (no correct flags).
type QuizPaper struct {
	QuizID           uuid.UUID       `json:"quiz_id"`
	AttemptID        uuid.UUID       `json:"attempt_id"`
	Title            string          `json:"title"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
	ShowProgressBar  bool            `json:"show_progress_bar"`
	PreventTabSwitch bool            `json:"prevent_tab_switch"`
	PreventCopyPaste bool            `json:"prevent_copy_paste"`
	Questions        []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question as shown to the learner.
type PaperQuestion struct {
	ID       uuid.UUID     `json:"id"`
	Prompt   string        `json:"prompt"`
	ImageURL *string       `json:"image_url,omitempty"`
	Type     QuestionType  `json:"type"`
	Points   int           `json:"points"`
	Options  []PaperOption `json:"options"`
}

// PaperOption is an answer option as shown to the learner.
type PaperOption struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	ImageURL *string   `json:"image_url,omitempty"`
}

// SeedOption is the authoring shape of an option read by the seed tool.
type SeedOption struct {
	Text      string  `json:"text" binding:"required" yaml:"text"`
	ImageURL  *string `json:"image_url" yaml:"image_url"`
	IsCorrect bool    `json:"is_correct" yaml:"is_correct"`
}

// SeedQuestion is the authoring shape of a question read by the seed tool.
type SeedQuestion struct {
	Prompt   string       `json:"prompt" binding:"required" yaml:"prompt"`
	ImageURL *string      `json:"image_url" yaml:"image_url"`
	Type     QuestionType `json:"type" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE" yaml:"type"`
	Points   int          `json:"points" binding:"required,min=1" yaml:"points"`
	Options  []SeedOption `json:"options" binding:"required,min=2,dive" yaml:"options"`
}

// SeedQuiz is a complete quiz definition as read from a JSON or YAML file.
type SeedQuiz struct {
	// ID is optional; a fresh one is generated when empty.
	ID                  string         `json:"id" binding:"omitempty,uuid" yaml:"id"`
	Title               string         `json:"title" binding:"required" yaml:"title"`
	TimeLimitSeconds    int            `json:"time_limit_seconds" binding:"min=0" yaml:"time_limit_seconds"`
	PassingScorePercent int            `json:"passing_score_percent" binding:"min=0,max=100" yaml:"passing_score_percent"`
	MaxAttempts         int            `json:"max_attempts" binding:"min=0" yaml:"max_attempts"`
	RandomizeQuestions  bool           `json:"randomize_questions" yaml:"randomize_questions"`
	RandomizeAnswers    bool           `json:"randomize_answers" yaml:"randomize_answers"`
	PreventTabSwitch    bool           `json:"prevent_tab_switch" yaml:"prevent_tab_switch"`
	PreventCopyPaste    bool           `json:"prevent_copy_paste" yaml:"prevent_copy_paste"`
	ShowProgressBar     bool           `json:"show_progress_bar" yaml:"show_progress_bar"`
	Questions           []SeedQuestion `json:"questions" binding:"required,min=1,dive" yaml:"questions"`
}

// Build converts the seed definition into a Quiz with fresh identifiers.
func (s *SeedQuiz) Build() *Quiz {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		id = uuid.New()
	}
	quiz := &Quiz{
		ID:                  id,
		Title:               s.Title,
		TimeLimitSeconds:    s.TimeLimitSeconds,
		PassingScorePercent: s.PassingScorePercent,
		MaxAttempts:         s.MaxAttempts,
		RandomizeQuestions:  s.RandomizeQuestions,
		RandomizeAnswers:    s.RandomizeAnswers,
		PreventTabSwitch:    s.PreventTabSwitch,
		PreventCopyPaste:    s.PreventCopyPaste,
		ShowProgressBar:     s.ShowProgressBar,
		Questions:           make([]QuizQuestion, 0, len(s.Questions)),
	}
	for i, sq := range s.Questions {
		q := QuizQuestion{
			ID:       uuid.New(),
			Prompt:   sq.Prompt,
			ImageURL: sq.ImageURL,
			Type:     sq.Type,
			Points:   sq.Points,
			OrderNum: i,
			Options:  make([]AnswerOption, 0, len(sq.Options)),
		}
		for j, so := range sq.Options {
			q.Options = append(q.Options, AnswerOption{
				ID:        uuid.New(),
				Text:      so.Text,
				ImageURL:  so.ImageURL,
				IsCorrect: so.IsCorrect,
				OrderNum:  j,
			})
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}
