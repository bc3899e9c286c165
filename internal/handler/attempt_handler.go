package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/middleware"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/response"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stemsi/quizattempt/internal/validator"
)

// AttemptHandler handles the learner-facing attempt endpoints.
type AttemptHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/learner/quizzes/:quiz_id/attempts
// Starts a new attempt or resumes the in-progress one (200 on resume, 201 on create).
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID, ok := parseID(c, "quiz_id")
	if !ok {
		return
	}

	state, err := h.attempts.Start(c.Request.Context(), quizID, middleware.LearnerID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if state.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, state)
}

// GetState godoc
// GET /api/v1/learner/attempts/:attempt_id
// Returns the resume view with server-derived remaining time.
func (h *AttemptHandler) GetState(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	state, err := h.attempts.State(c.Request.Context(), attemptID, middleware.LearnerID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// GetPaper godoc
// GET /api/v1/learner/attempts/:attempt_id/paper
// Returns the questions in this attempt's order, without correctness flags.
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	paper, err := h.attempts.Paper(c.Request.Context(), attemptID, middleware.LearnerID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// SelectAnswer godoc
// PUT /api/v1/learner/attempts/:attempt_id/answers
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, optionID := uuid.MustParse(req.QuestionID), uuid.MustParse(req.OptionID)
	selected, err := h.attempts.SelectAnswer(c.Request.Context(), attemptID, middleware.LearnerID(c), questionID, optionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "option_ids": selected})
}

// ToggleMark godoc
// POST /api/v1/learner/attempts/:attempt_id/marks
func (h *AttemptHandler) ToggleMark(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.ToggleMarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID := uuid.MustParse(req.QuestionID)
	marked, err := h.attempts.ToggleMark(c.Request.Context(), attemptID, middleware.LearnerID(c), questionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "marked": marked})
}

// Navigate godoc
// PUT /api/v1/learner/attempts/:attempt_id/position
// Out-of-range indexes are clamped; the stored index is returned.
func (h *AttemptHandler) Navigate(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	index, err := h.attempts.Navigate(c.Request.Context(), attemptID, middleware.LearnerID(c), req.Index)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"current_question_index": index})
}

// SaveCheckpoint godoc
// POST /api/v1/learner/attempts/:attempt_id/checkpoint
// Accepts a client snapshot for asynchronous persistence.
func (h *AttemptHandler) SaveCheckpoint(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.CheckpointRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.SaveCheckpoint(c.Request.Context(), attemptID, middleware.LearnerID(c), &req); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Accepted(c, gin.H{"status": "queued"})
}

// Submit godoc
// POST /api/v1/learner/attempts/:attempt_id/submit
// Scores the attempt. Exactly one submit succeeds; later ones get 409.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attempts.Submit(c.Request.Context(), attemptID, middleware.LearnerID(c), req.TimeRemainingSeconds)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/learner/attempts/:attempt_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attempts.Result(c.Request.Context(), attemptID, middleware.LearnerID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
