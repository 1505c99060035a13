package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/rs/zerolog"
)

// ResultHandler serves the stored exam result history.
type ResultHandler struct {
	failer
	resultService *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		failer:        failer{log: logger.Component(log, "result_handler")},
		resultService: resultService,
	}
}

// ListMyResults godoc
// GET /api/v1/student/results?page=&per_page=
func (h *ResultHandler) ListMyResults(c *gin.Context) {
	page, perPage := pageParams(c)
	p, err := h.resultService.ListMine(c.Request.Context(), middleware.GetSession(c), page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": p.Results},
		response.NewPagination(p.Page, p.PerPage, int(p.Total)))
}

// ListAllResults godoc
// GET /api/v1/admin/results?page=&per_page=
func (h *ResultHandler) ListAllResults(c *gin.Context) {
	page, perPage := pageParams(c)
	p, err := h.resultService.ListAll(c.Request.Context(), page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": p.Results},
		response.NewPagination(p.Page, p.PerPage, int(p.Total)))
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}
