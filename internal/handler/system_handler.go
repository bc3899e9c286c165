package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/response"
)

// SessionCounter reports running attempt timers.
type SessionCounter interface {
	Active() int
}

// SystemHandler serves health and runtime information.
type SystemHandler struct {
	rdb       *redis.Client
	timers    SessionCounter
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(rdb *redis.Client, timers SessionCounter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		timers:    timers,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Goroutines   int    `json:"goroutines"`
	ActiveTimers int    `json:"active_timers"`

	// Worker queues, absent without Redis.
	QueueCheckpoints   *int64 `json:"queue_checkpoints,omitempty"`
	QueueCheats        *int64 `json:"queue_cheats,omitempty"`
	QueueQuestionOrder *int64 `json:"queue_question_order,omitempty"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	st := systemStatus{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Goroutines:   runtime.NumGoroutine(),
		ActiveTimers: h.timers.Active(),
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		pipe := h.rdb.Pipeline()
		checkpoints := pipe.LLen(ctx, config.WorkerKey.PersistCheckpointsQueue)
		cheats := pipe.LLen(ctx, config.WorkerKey.PersistCheatsQueue)
		orders := pipe.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue)
		if _, err := pipe.Exec(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Queue depth check failed")
			st.Status = "degraded"
		} else {
			st.QueueCheckpoints = ptr(checkpoints.Val())
			st.QueueCheats = ptr(cheats.Val())
			st.QueueQuestionOrder = ptr(orders.Val())
		}
	}

	response.Success(c, http.StatusOK, st)
}

func ptr[T any](v T) *T { return &v }
