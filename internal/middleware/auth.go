package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/rs/zerolog"
)

const (
	// SessionCookie carries the portal token in browsers.
	SessionCookie = "lms_session"

	ContextKeyClaims  = "claims"
	ContextKeySession = "session"
)

// RequireSession resolves the portal token (cookie, bearer header or
// ?token= for WebSocket upgrades) to the stored login.
func RequireSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFailWithData(c, http.StatusUnauthorized, response.ErrSessionRequired,
				gin.H{"redirect": session.PathSignIn})
			return
		}

		sess, claims, err := authService.Authenticate(c.Request.Context(), tokenStr)
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			ClearSessionCookie(c)
			response.AbortFailWithData(c, http.StatusUnauthorized, response.ErrSessionExpired,
				gin.H{"redirect": session.PathSignIn})
			return
		case err != nil:
			ClearSessionCookie(c)
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeySession, sess)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAdmin must run after RequireSession. The stored role only routes
// the request; access needs the server's confirmation.
func RequireAdmin(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "admin_guard").Logger()
	return func(c *gin.Context) {
		sess := GetSession(c)
		d := session.Guard(sess)
		if !d.Allow {
			status := http.StatusForbidden
			code := response.ErrAdminAccessOnly
			if d.Redirect == session.PathSignIn {
				status, code = http.StatusUnauthorized, response.ErrSessionRequired
			}
			response.AbortFailWithData(c, status, code, gin.H{"redirect": d.Redirect})
			return
		}

		err := authService.ConfirmAdmin(c.Request.Context(), sess)
		if err == nil {
			c.Next()
			return
		}

		var apiErr *phpapi.APIError
		var netErr *phpapi.NetworkError
		switch {
		case errors.Is(err, service.ErrNotAdmin):
			response.AbortFailWithData(c, http.StatusForbidden, response.ErrAdminAccessOnly,
				gin.H{"redirect": session.PathHome})
		case errors.Is(err, service.ErrSessionExpired):
			ClearSessionCookie(c)
			response.AbortFailWithData(c, http.StatusUnauthorized, response.ErrSessionExpired,
				gin.H{"redirect": session.PathSignIn})
		case errors.As(err, &netErr):
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("Role confirmation unavailable")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable)
		case errors.As(err, &apiErr):
			response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, apiErr.Message, apiErr.Errors)
			c.Abort()
		default:
			log.Error().Err(err).Str("session_id", sess.ID).Msg("Role confirmation failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}

// GetSession retrieves the login resolved by RequireSession.
func GetSession(c *gin.Context) *session.Data {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, _ := val.(*session.Data)
	return sess
}

// GetClaims retrieves the token claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}

// SetSessionCookie stores the portal token. A zero maxAge makes a
// browser-session cookie.
func SetSessionCookie(c *gin.Context, token string, maxAge time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	// WebSocket clients cannot set headers on the upgrade request.
	return c.Query("token")
}
