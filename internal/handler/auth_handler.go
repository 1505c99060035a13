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

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	failer
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, sessions *session.Manager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		failer:      failer{sessions: sessions, log: logger.Component(log, "auth_handler")},
		authService: authService,
	}
}

// SignUp godoc
// POST /api/v1/auth/signup
// Registers an account. Invalid input never reaches the PHP API.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req model.SignUpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.authService.SignUp(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, gin.H{"redirect": session.PathSignIn}, msg)
}

// SignIn godoc
// POST /api/v1/auth/signin
// Authenticates with the PHP API and sets the session cookie.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.Unauthorized() {
			response.FailWithMessage(c, http.StatusUnauthorized, response.ErrInvalidCredentials, apiErr.Message, apiErr.Errors)
			return
		}
		h.fail(c, err)
		return
	}

	middleware.SetSessionCookie(c, res.Token, res.MaxAge)

	response.Success(c, http.StatusOK, gin.H{
		"token":      res.Token,
		"user":       res.Session.User,
		"scope":      res.Session.Scope,
		"redirect":   session.PathHome,
		"expires_in": int(res.MaxAge.Seconds()),
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the upstream session (best effort) and the local one.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetSession(c)); err != nil {
		h.log.Warn().Err(err).Msg("Logout failed to clear local session")
	}
	middleware.ClearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"redirect": session.PathSignIn})
}

// Session godoc
// GET /api/v1/auth/session
// Returns the stored user and where the admin area would send them.
func (h *AuthHandler) Session(c *gin.Context) {
	sess := middleware.GetSession(c)
	d := session.Guard(sess)
	response.Success(c, http.StatusOK, gin.H{
		"user":         sess.User,
		"scope":        sess.Scope,
		"role":         sess.RoleHint,
		"admin_access": d.Allow,
		"redirect":     d.Redirect,
	})
}

// GetProfile godoc
// GET /api/v1/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	u, err := h.authService.Profile(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": u})
}

// UpdateProfile godoc
// PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	u, err := h.authService.UpdateProfile(c.Request.Context(), middleware.GetSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, gin.H{"user": u}, "Profile updated successfully")
}
