package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/korenlms/portal/internal/debounce"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	ws "github.com/korenlms/portal/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler handles the attempt stream and the roster search stream.
type WSHandler struct {
	failer
	attemptService *service.AttemptService
	studentService *service.StudentService
	searchDelay    time.Duration
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attemptService *service.AttemptService,
	studentService *service.StudentService,
	sessions *session.Manager,
	searchDelay time.Duration,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		failer:         failer{sessions: sessions, log: logger.Component(log, "ws_handler")},
		attemptService: attemptService,
		studentService: studentService,
		searchDelay:    searchDelay,
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:id/stream
// Drives an attempt over one connection: every action answers with the
// new state, submit answers with the grading.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	sess := middleware.GetSession(c)
	attemptID := c.Param("id")
	ctx := c.Request.Context()

	// Reject unknown attempts before upgrading so the client gets a status code.
	a, err := h.attemptService.Get(ctx, sess, attemptID)
	if err != nil {
		h.fail(c, err)
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
		Str("attempt_id", attemptID).
		Int64("user_id", int64(sess.User.ID)).
		Logger()
	wsLog.Info().Msg("Student connected")

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Attempt: a.View()})

	for {
		var msg ws.AttemptRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSelect:
			if msg.QuestionID == 0 || msg.OptionIndex == nil {
				conn.WriteError(string(response.ErrValidation), "questionId and optionIndex are required")
				continue
			}
			a, err = h.attemptService.Select(ctx, sess, attemptID, msg.QuestionID, *msg.OptionIndex)
		case ws.ActionNext:
			a, err = h.attemptService.Next(ctx, sess, attemptID)
		case ws.ActionPrevious:
			a, err = h.attemptService.Previous(ctx, sess, attemptID)
		case ws.ActionJump:
			if msg.Index == nil {
				conn.WriteError(string(response.ErrValidation), "index is required")
				continue
			}
			a, err = h.attemptService.Jump(ctx, sess, attemptID, *msg.Index)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, sess, attemptID)
			continue
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
			continue
		}

		if err != nil {
			conn.WriteTyped(h.event(ctx, sess, err))
			continue
		}
		conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Attempt: a.View()})
	}
}

// handleSubmit grades the attempt. On failure the client gets the error and
// the attempt state, which is back in progress with its answers.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, sess *session.Data, attemptID string) {
	a, err := h.attemptService.Submit(ctx, sess, attemptID)
	if err != nil {
		conn.WriteTyped(h.event(ctx, sess, err))
		if a != nil {
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Attempt: a.View()})
		}
		return
	}

	wsLog.Info().
		Int("correct", a.Result.Summary.Correct).
		Int("total", a.Result.Summary.Total).
		Float64("percentage", a.Result.Summary.Percentage).
		Msg("Attempt submitted and graded")

	conn.WriteTyped(ws.GradedResponse{
		Event:       ws.EventGraded,
		Attempt:     a.View(),
		Result:      a.Result,
		Performance: model.PerformanceFor(a.Result.Summary.Percentage),
	})
}

// StudentSearchStream godoc
// WS /ws/v1/admin/students/search
// Streams roster search results for typed terms. Terms are debounced and
// results of superseded terms are never sent.
func (h *WSHandler) StudentSearchStream(c *gin.Context) {
	sess := middleware.GetSession(c)

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	d := debounce.New(ctx, h.searchDelay, h.studentService.Searcher(sess))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range d.Results() {
			if res.Err != nil {
				conn.WriteTyped(h.event(ctx, sess, res.Err))
				continue
			}
			students := res.Value
			if students == nil {
				students = []model.Student{}
			}
			conn.WriteTyped(ws.ResultsResponse{Event: ws.EventResults, Term: res.Term, Students: students})
		}
	}()
	defer wg.Wait()
	defer d.Close()

	for {
		var msg ws.SearchRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close on search stream")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSearch:
			d.Submit(strings.TrimSpace(msg.Term))
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}
