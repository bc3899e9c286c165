package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/response"
	"github.com/stemsi/quizattempt/internal/service"
)

// statusFor maps a service error to its HTTP status and API code.
func statusFor(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		return http.StatusConflict, response.ErrAttemptLimitExceeded
	case errors.Is(err, service.ErrAttemptNotActive):
		return http.StatusConflict, response.ErrAttemptNotActive
	case errors.Is(err, service.ErrAttemptNotCompleted):
		return http.StatusConflict, response.ErrAttemptNotCompleted
	case errors.Is(err, service.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, service.ErrInvalidEventKind):
		return http.StatusBadRequest, response.ErrInvalidEventKind
	case errors.Is(err, service.ErrInvalidCheckpoint):
		return http.StatusBadRequest, response.ErrInvalidPayload
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// fail writes the mapped error. Only unexpected errors are logged.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	response.Fail(c, status, code)
}
