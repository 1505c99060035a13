package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/validator"
	"github.com/rs/zerolog"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	failer
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, sessions *session.Manager, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		failer:          failer{sessions: sessions, log: logger.Component(log, "question_handler")},
		questionService: questionService,
	}
}

// ListQuestions godoc
// GET /api/v1/admin/questions?search=
// Lists the question bank, filtered by text, category or difficulty.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.List(c.Request.Context(), middleware.GetSession(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetQuestion godoc
// GET /api/v1/admin/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.questionService.Get(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.questionService.Create(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, nil, msg)
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.questionService.Update(c.Request.Context(), middleware.GetSession(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.questionService.Delete(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}

// ToggleCorrectAnswer godoc
// PATCH /api/v1/admin/questions/:id/correct-answers
// Flips one option in or out of the correct answers. Single-answer
// questions replace their answer instead.
func (h *QuestionHandler) ToggleCorrectAnswer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.ToggleCorrectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.ToggleCorrect(c.Request.Context(), middleware.GetSession(c), id, *req.Index)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}
