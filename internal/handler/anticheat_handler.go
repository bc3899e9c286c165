package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/middleware"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/response"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stemsi/quizattempt/internal/validator"
)

// AntiCheatHandler collects behavioral signals from the quiz client.
type AntiCheatHandler struct {
	anticheat *service.AntiCheatService
	log       zerolog.Logger
}

// NewAntiCheatHandler creates a new AntiCheatHandler.
func NewAntiCheatHandler(anticheat *service.AntiCheatService, log zerolog.Logger) *AntiCheatHandler {
	return &AntiCheatHandler{
		anticheat: anticheat,
		log:       log.With().Str("component", "anticheat_handler").Logger(),
	}
}

// LogEvent godoc
// POST /api/v1/learner/attempts/:attempt_id/events
// Records a signal. The response tells the client whether to block the action.
func (h *AntiCheatHandler) LogEvent(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.LogEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.anticheat.Log(c.Request.Context(), attemptID, middleware.LearnerID(c), req.Kind)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Accepted(c, result)
}

// ListEvents godoc
// GET /api/v1/learner/attempts/:attempt_id/events
func (h *AntiCheatHandler) ListEvents(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	events, err := h.anticheat.List(c.Request.Context(), attemptID, middleware.LearnerID(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if events == nil {
		events = []model.AntiCheatEvent{}
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}
