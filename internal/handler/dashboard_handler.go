package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/rs/zerolog"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	failer
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, sessions *session.Manager, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		failer:           failer{sessions: sessions, log: logger.Component(log, "dashboard_handler")},
		dashboardService: dashboardService,
	}
}

// GetDashboardData godoc
// GET /api/v1/admin/dashboard
// Returns the student, question and exam counters.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	data, err := h.dashboardService.Stats(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
