package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/validator"
	"github.com/rs/zerolog"
)

// AttemptHandler handles the practice exam flow.
type AttemptHandler struct {
	failer
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, sessions *session.Manager, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		failer:         failer{sessions: sessions, log: logger.Component(log, "attempt_handler")},
		attemptService: attemptService,
	}
}

// StartAttempt godoc
// POST /api/v1/student/attempts
// Draws a practice exam and returns the attempt.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.attemptService.Start(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attempt": a.View()})
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	a, err := h.attemptService.Get(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": a.View()})
}

// SelectAnswer godoc
// PUT /api/v1/student/attempts/:id/answers
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.attemptService.Select(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req.QuestionID, *req.OptionIndex)
	h.respond(c, a, err)
}

// Next godoc
// POST /api/v1/student/attempts/:id/next
func (h *AttemptHandler) Next(c *gin.Context) {
	a, err := h.attemptService.Next(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	h.respond(c, a, err)
}

// Previous godoc
// POST /api/v1/student/attempts/:id/previous
func (h *AttemptHandler) Previous(c *gin.Context) {
	a, err := h.attemptService.Previous(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	h.respond(c, a, err)
}

// Jump godoc
// POST /api/v1/student/attempts/:id/jump
func (h *AttemptHandler) Jump(c *gin.Context) {
	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.attemptService.Jump(c.Request.Context(), middleware.GetSession(c), c.Param("id"), *req.Index)
	h.respond(c, a, err)
}

// Submit godoc
// POST /api/v1/student/attempts/:id/submit
// Sends the answers for grading. A failed grading leaves the attempt in
// progress with its answers.
func (h *AttemptHandler) Submit(c *gin.Context) {
	a, err := h.attemptService.Submit(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	v := a.View()
	response.Success(c, http.StatusOK, gin.H{
		"attempt":     v,
		"result":      a.Result,
		"performance": v.Performance,
	})
}

// Export godoc
// GET /api/v1/student/attempts/:id/export
// Downloads the result document of a completed attempt.
func (h *AttemptHandler) Export(c *gin.Context) {
	exp, err := h.attemptService.Export(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("exam-results-%s.json", c.Param("id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.IndentedJSON(http.StatusOK, exp)
}

func (h *AttemptHandler) respond(c *gin.Context, a *attempt.Attempt, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": a.View()})
}
