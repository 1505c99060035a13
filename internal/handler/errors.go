package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/builder"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	ws "github.com/korenlms/portal/internal/websocket"
	"github.com/rs/zerolog"
)

// failer turns service errors into portal responses. Handlers embed it.
type failer struct {
	sessions *session.Manager
	log      zerolog.Logger
}

// problem is how a service error is shown to the client. The HTTP envelope
// and the websocket error event are both rendered from it.
type problem struct {
	status  int
	code    response.ErrCode
	message string // empty means the catalogue message for code
	fields  model.FieldErrors
	errs    []string
	data    gin.H

	unanswered []model.ID
	// retryable: the same request may succeed later (upstream 5xx or
	// unreachable, a lost write race).
	retryable bool
	// endSession: the upstream no longer accepts the login.
	endSession bool
	// unhandled errors are logged; the client only sees INTERNAL_ERROR.
	unhandled bool
}

func (p problem) text() string {
	if p.message != "" {
		return p.message
	}
	return response.GetMessage(p.code)
}

func classify(err error) problem {
	var (
		fields     model.FieldErrors
		incomplete *attempt.IncompleteError
		overLimit  *builder.OverLimitError
		apiErr     *phpapi.APIError
		netErr     *phpapi.NetworkError
	)

	switch {
	case errors.As(err, &fields):
		return problem{status: http.StatusBadRequest, code: response.ErrValidation, fields: fields}

	case errors.Is(err, service.ErrSessionExpired), phpapi.IsUnauthorized(err):
		return problem{status: http.StatusUnauthorized, code: response.ErrSessionExpired,
			data: gin.H{"redirect": session.PathSignIn}, endSession: true}

	case errors.As(err, &incomplete):
		return problem{status: http.StatusBadRequest, code: response.ErrIncompleteAttempt,
			data: gin.H{"unanswered": incomplete.Missing}, unanswered: incomplete.Missing}

	case errors.As(err, &overLimit), errors.Is(err, builder.ErrSelectionFull):
		return problem{status: http.StatusConflict, code: response.ErrSelectionFull, message: err.Error()}
	case errors.Is(err, builder.ErrSelectionEmpty):
		return problem{status: http.StatusBadRequest, code: response.ErrSelectionEmpty}
	case errors.Is(err, builder.ErrTypeMismatch), errors.Is(err, builder.ErrUnknownQuestion):
		return problem{status: http.StatusBadRequest, code: response.ErrQuestionMismatch, message: err.Error()}

	case errors.Is(err, service.ErrSubmitInProgress):
		return problem{status: http.StatusConflict, code: response.ErrSubmitInProgress}
	case errors.Is(err, repository.ErrAttemptConflict):
		return problem{status: http.StatusConflict, code: response.ErrAttemptConflict, retryable: true}
	case errors.Is(err, attempt.ErrNotInProgress), errors.Is(err, attempt.ErrNotSubmitting):
		return problem{status: http.StatusConflict, code: response.ErrAttemptNotActive}
	case errors.Is(err, attempt.ErrNotCompleted):
		return problem{status: http.StatusConflict, code: response.ErrAttemptFinished}
	case errors.Is(err, attempt.ErrIndexOutOfRange),
		errors.Is(err, attempt.ErrBadOption),
		errors.Is(err, attempt.ErrUnknownQuestion),
		errors.Is(err, model.ErrOptionIndex):
		return problem{status: http.StatusBadRequest, code: response.ErrValidation, message: err.Error()}
	case errors.Is(err, attempt.ErrNoQuestions):
		return problem{status: http.StatusBadGateway, code: response.ErrUpstream, message: err.Error()}

	case errors.Is(err, repository.ErrAttemptNotFound),
		errors.Is(err, repository.ErrDraftNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrExamNotFound):
		return problem{status: http.StatusNotFound, code: response.ErrNotFound}

	case errors.Is(err, service.ErrUnsupportedFileType):
		return problem{status: http.StatusBadRequest, code: response.ErrUnsupportedFile, message: err.Error()}
	case errors.Is(err, service.ErrFileTooLarge):
		return problem{status: http.StatusRequestEntityTooLarge, code: response.ErrFileTooLarge, message: err.Error()}

	case errors.As(err, &apiErr):
		return problem{status: http.StatusBadGateway, code: response.ErrUpstream,
			message: apiErr.Message, errs: apiErr.Errors, retryable: apiErr.Status >= 500}
	case errors.As(err, &netErr), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return problem{status: http.StatusServiceUnavailable, code: response.ErrUpstreamUnavailable, retryable: true}
	}
	return problem{status: http.StatusInternalServerError, code: response.ErrInternal, unhandled: true}
}

// fail maps err onto a status and error code. Field errors render inline,
// upstream errors carry the server's message, and an upstream 401 ends the
// local login as well.
func (f failer) fail(c *gin.Context, err error) {
	p := classify(err)
	if p.endSession {
		middleware.ClearSessionCookie(c)
		f.endSession(c.Request.Context(), middleware.GetSession(c))
	}
	if p.unhandled {
		f.log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.GetRequestID(c)).
			Msg("Unhandled error")
	}

	switch {
	case p.fields != nil:
		response.FailWithFields(c, p.status, p.code, p.fields)
	case p.data != nil:
		response.AbortFailWithData(c, p.status, p.code, p.data)
	default:
		response.FailWithMessage(c, p.status, p.code, p.message, p.errs)
	}
}

// event maps err onto a websocket error event.
func (f failer) event(ctx context.Context, sess *session.Data, err error) ws.ErrorResponse {
	p := classify(err)
	if p.endSession {
		f.endSession(ctx, sess)
	}
	if p.unhandled {
		f.log.Error().Err(err).Msg("Stream action failed")
	}
	return ws.ErrorResponse{
		Event:      ws.EventError,
		Code:       string(p.code),
		Error:      p.text(),
		Fields:     p.fields,
		Unanswered: p.unanswered,
		Retryable:  p.retryable,
	}
}

func (f failer) endSession(ctx context.Context, sess *session.Data) {
	if sess == nil || f.sessions == nil {
		return
	}
	if err := f.sessions.Clear(context.WithoutCancel(ctx), sess.ID); err != nil {
		f.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to clear rejected session")
	}
}

// pathID parses a numeric path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (model.ID, bool) {
	id, err := model.ParseID(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func asAPIError(err error) *phpapi.APIError {
	var apiErr *phpapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
