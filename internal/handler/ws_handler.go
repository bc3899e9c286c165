package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/middleware"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/response"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stemsi/quizattempt/internal/timer"
	ws "github.com/stemsi/quizattempt/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an attempt over a WebSocket: the server clock pushes ticks
// and warnings, the client pushes answer changes.
type WSHandler struct {
	attempts  *service.AttemptService
	anticheat *service.AntiCheatService
	timers    *timer.Coordinator
	cheats    *middleware.RateLimiter
	log       zerolog.Logger
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. cheats may be nil to disable limiting.
func NewWSHandler(
	attempts *service.AttemptService,
	anticheat *service.AntiCheatService,
	timers *timer.Coordinator,
	cheats *middleware.RateLimiter,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attempts:  attempts,
		anticheat: anticheat,
		timers:    timers,
		cheats:    cheats,
		log:       log.With().Str("component", "ws_handler").Logger(),
		upgrader:  buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/learner/attempts/:attempt_id/stream
// Sends the current state, then runs the attempt's countdown and autosave
// until the attempt completes or the client disconnects.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}
	learnerID := middleware.LearnerID(c)
	ctx := c.Request.Context()

	// Deadline also rejects terminal attempts before the upgrade.
	startedAt, limit, err := h.attempts.Deadline(ctx, attemptID, learnerID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	state, err := h.attempts.State(ctx, attemptID, learnerID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if !state.Attempt.Active() {
		fail(c, h.log, service.ErrAttemptNotActive)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("learner_id", learnerID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Learner connected")

	if err := conn.Send(ws.EventState, state); err != nil {
		return
	}

	session := h.timers.Start(context.WithoutCancel(ctx), timer.Deadline{
		AttemptID: attemptID,
		StartedAt: startedAt,
		Limit:     limit,
	}, &model.Checkpoint{
		Answers:              state.Answers,
		CurrentQuestionIndex: state.Attempt.CurrentQuestionIndex,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		forward(conn, session)
	}()

	h.readLoop(ctx, conn, session, learnerID, wsLog)

	session.Stop()
	<-done
	wsLog.Info().Msg("Learner disconnected")
}

// forward relays timer events until the session ends, then closes the socket
// so the read loop returns. A submit made over any transport ends the session.
func forward(conn *ws.Conn, session *timer.Session) {
	for e := range session.Events() {
		switch e.Type {
		case timer.EventTick:
			_ = conn.Send(ws.EventTick, ws.TimePayload{RemainingSeconds: e.RemainingSeconds})
		case timer.EventLowTime:
			_ = conn.Send(ws.EventLowTime, ws.TimePayload{RemainingSeconds: e.RemainingSeconds})
		case timer.EventExpired:
			_ = conn.Send(ws.EventExpired, ws.TimePayload{})
		case timer.EventSubmitted:
			switch {
			case e.Err != nil:
				_ = conn.SendError(string(response.ErrInternal), response.GetMessage(response.ErrInternal))
			case e.Result != nil:
				_ = conn.Send(ws.EventGraded, e.Result)
			default:
				_ = conn.SendError(string(response.ErrAttemptNotActive), response.GetMessage(response.ErrAttemptNotActive))
			}
		case timer.EventCheckpointFailed:
			_ = conn.Send(ws.EventCheckpointFailed, nil)
		}
	}
	_ = conn.Close()
}

// errStreamDone ends the read loop after a terminal action.
var errStreamDone = errors.New("stream done")

func (h *WSHandler) readLoop(ctx context.Context, conn *ws.Conn, session *timer.Session, learnerID string, wsLog zerolog.Logger) {
	for {
		var req ws.Request
		if err := conn.Read(&req); err != nil {
			if ws.IsUnexpectedClose(err) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		err := h.dispatch(ctx, conn, session, learnerID, &req)
		if errors.Is(err, errStreamDone) {
			return
		}
		if err != nil {
			_, code := statusFor(err)
			if code == response.ErrInternal {
				wsLog.Error().Err(err).Str("action", string(req.Action)).Msg("Action failed")
			}
			_ = conn.SendError(string(code), response.GetMessage(code))
			if errors.Is(err, service.ErrAttemptNotActive) {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, session *timer.Session, learnerID string, req *ws.Request) error {
	attemptID := session.AttemptID()

	switch req.Action {
	case ws.ActionSelect:
		questionID, err1 := uuid.Parse(req.QuestionID)
		optionID, err2 := uuid.Parse(req.OptionID)
		if err1 != nil || err2 != nil {
			return conn.SendError(string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
		}
		selected, err := h.attempts.SelectAnswer(ctx, attemptID, learnerID, questionID, optionID)
		if err != nil {
			return err
		}
		return conn.Send(ws.EventSaved, ws.SavedPayload{QuestionID: req.QuestionID, OptionIDs: idStrings(selected)})

	case ws.ActionMark:
		questionID, err := uuid.Parse(req.QuestionID)
		if err != nil {
			return conn.SendError(string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
		}
		marked, err := h.attempts.ToggleMark(ctx, attemptID, learnerID, questionID)
		if err != nil {
			return err
		}
		return conn.Send(ws.EventMarked, ws.MarkedPayload{QuestionID: req.QuestionID, Marked: marked})

	case ws.ActionNavigate:
		index, err := h.attempts.Navigate(ctx, attemptID, learnerID, req.Index)
		if err != nil {
			return err
		}
		return conn.Send(ws.EventNavigated, ws.NavigatedPayload{Index: index})

	case ws.ActionCheat:
		if h.cheats != nil && !h.cheats.Allow(learnerID+":"+attemptID.String()) {
			return conn.SendError(string(response.ErrRateLimitExceeded), response.GetMessage(response.ErrRateLimitExceeded))
		}
		result, err := h.anticheat.Log(ctx, attemptID, learnerID, model.EventKind(req.Kind))
		if err != nil {
			return err
		}
		return conn.Send(ws.EventCheat, result)

	case ws.ActionSubmit:
		// The result reaches the client through the session as EventSubmitted.
		if _, err := h.attempts.Submit(ctx, attemptID, learnerID, req.TimeRemainingSeconds); err != nil {
			return err
		}
		return errStreamDone

	case ws.ActionPing:
		return conn.Send(ws.EventPong, nil)

	default:
		return conn.SendError(string(response.ErrInvalidPayload), "unknown action: "+string(req.Action))
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
