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

// ExamHandler handles exam definitions and exam-builder drafts.
type ExamHandler struct {
	failer
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, sessions *session.Manager, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		failer:      failer{sessions: sessions, log: logger.Component(log, "exam_handler")},
		examService: examService,
	}
}

// ListExams godoc
// GET /api/v1/admin/exams?search=
// Lists exams whose name matches search, with display labels.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context(), middleware.GetSession(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

type eligibleQuery struct {
	ExamType model.ExamType `form:"examType" binding:"omitempty,oneof=mcq voice both"`
}

// ListEligibleQuestions godoc
// GET /api/v1/admin/exams/eligible-questions?examType=
func (h *ExamHandler) ListEligibleQuestions(c *gin.Context) {
	var q eligibleQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.examService.EligibleQuestions(c.Request.Context(), middleware.GetSession(c), q.ExamType)
	if err != nil {
		h.fail(c, err)
		return
	}
	if questions == nil {
		questions = []model.EligibleQuestion{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.examService.Create(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, nil, msg)
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.examService.Update(c.Request.Context(), middleware.GetSession(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.examService.Delete(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}

// ─── Drafts ───────────────────────────────────────────────────────────

// CreateDraft godoc
// POST /api/v1/admin/exam-drafts
// Starts a builder draft, blank or from an existing exam (fromExamId).
func (h *ExamHandler) CreateDraft(c *gin.Context) {
	var req model.ExamDraftCreateRequest
	// A blank draft may be requested without a body.
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	v, err := h.examService.CreateDraft(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"draft": v})
}

// GetDraft godoc
// GET /api/v1/admin/exam-drafts/:id
func (h *ExamHandler) GetDraft(c *gin.Context) {
	v, err := h.examService.GetDraft(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": v})
}

// PatchDraft godoc
// PATCH /api/v1/admin/exam-drafts/:id
// Changes exam type and/or question cap.
func (h *ExamHandler) PatchDraft(c *gin.Context) {
	var req model.ExamDraftSettings
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v, err := h.examService.PatchDraft(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": v})
}

// ToggleDraftQuestion godoc
// POST /api/v1/admin/exam-drafts/:id/toggle
func (h *ExamHandler) ToggleDraftQuestion(c *gin.Context) {
	var req model.ExamDraftToggleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v, err := h.examService.ToggleDraftQuestion(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req.QuestionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": v})
}

// SubmitDraft godoc
// POST /api/v1/admin/exam-drafts/:id/submit
// Saves the draft as an exam and discards it.
func (h *ExamHandler) SubmitDraft(c *gin.Context) {
	var req model.ExamDraftSubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.examService.SubmitDraft(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, nil, msg)
}

// DiscardDraft godoc
// DELETE /api/v1/admin/exam-drafts/:id
func (h *ExamHandler) DiscardDraft(c *gin.Context) {
	if err := h.examService.DiscardDraft(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
