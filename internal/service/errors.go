package service

import "errors"

// Attempt engine errors. Handlers map these to response codes with errors.Is.
var (
	ErrAttemptLimitExceeded = errors.New("maximum number of attempts reached")
	ErrAttemptNotActive     = errors.New("attempt is not in progress")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotCompleted  = errors.New("attempt has not been submitted")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound     = errors.New("question does not belong to this quiz")
	ErrInvalidOption        = errors.New("option does not belong to this question")
	ErrInvalidEventKind     = errors.New("unknown anti-cheat event kind")
	ErrInvalidCheckpoint    = errors.New("checkpoint contains malformed identifiers")
)
