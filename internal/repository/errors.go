package repository

import "errors"

// Store-level errors shared by the Postgres and in-memory implementations.
var (
	ErrNotFound            = errors.New("record not found")
	ErrNotInProgress       = errors.New("attempt is not in progress")
	ErrActiveAttemptExists = errors.New("an in-progress attempt already exists")
)
