package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/rs/zerolog"
)

// multipart headers and the boundary ride on top of the file itself
const uploadEnvelopeSlack = 1 << 20

type MediaHandler struct {
	failer
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		failer: failer{log: logger.Component(log, "media_handler")},
		media:  media,
	}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload
// Stores a question image or listening clip sent as the "file" form field.
// The body is capped before parsing so an oversized clip never reaches disk.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.media.MaxBytes()+uploadEnvelopeSlack)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(c, service.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	up, err := h.media.SaveUpload(c.Request.Context(), file, header)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info().
		Str("name", header.Filename).
		Int64("size", header.Size).
		Msg("Media stored")
	response.Success(c, http.StatusOK, up)
}
