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

// StudentHandler handles the student roster endpoints.
type StudentHandler struct {
	failer
	studentService *service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService *service.StudentService, sessions *session.Manager, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		failer:         failer{sessions: sessions, log: logger.Component(log, "student_handler")},
		studentService: studentService,
	}
}

// ListStudents godoc
// GET /api/v1/admin/students?search=
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.studentService.List(c.Request.Context(), middleware.GetSession(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// CreateStudent godoc
// POST /api/v1/admin/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req model.StudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.studentService.Create(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, nil, msg)
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.StudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.studentService.Update(c.Request.Context(), middleware.GetSession(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.studentService.Delete(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, msg)
}
