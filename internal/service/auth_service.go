package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/validator"
	"github.com/rs/zerolog"
)

// Common auth errors.
var (
	ErrSessionExpired = errors.New("session expired")
	ErrNotAdmin       = errors.New("administrator role not confirmed by the server")
)

// Claims extends JWT standard claims with the portal session reference.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string        `json:"sid"`
	Scope     session.Scope `json:"scope"`
	UserID    model.ID      `json:"user_id"`
	// RoleHint mirrors the stored role for UI routing only.
	RoleHint string `json:"role_hint,omitempty"`
}

// SignInResult is what a successful sign-in hands the transport layer.
type SignInResult struct {
	Token   string
	MaxAge  time.Duration
	Session *session.Data
}

// AuthService handles sign-up, sign-in, logout, profiles and the portal JWT.
type AuthService struct {
	cfg      *config.Config
	api      *phpapi.Client
	sessions *session.Manager
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, api *phpapi.Client, sessions *session.Manager, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		log:      log.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

// SignUp registers a new account with the PHP API.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (string, error) {
	req.PhoneNumber = validator.DigitsOnly(req.PhoneNumber)
	msg, err := s.api.SignUp(ctx, req)
	if err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}
	return msg, nil
}

// SignIn authenticates against the PHP API, stores the login in the scope
// rememberMe selects and issues a portal token for it.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest) (*SignInResult, error) {
	res, err := s.api.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	user := res.Data.ToUser()
	role := res.Data.Role
	if role == "" {
		role = res.Data.UserType
	}
	sess := &session.Data{
		Credentials: res.Credentials,
		User:        user,
		RoleHint:    role,
	}
	if err := s.sessions.Save(ctx, sess, req.RememberMe); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, maxAge, err := s.GenerateToken(sess)
	if err != nil {
		_ = s.sessions.Clear(ctx, sess.ID)
		return nil, err
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("scope", string(sess.Scope)).
		Int64("user_id", int64(user.ID)).
		Msg("User signed in")
	return &SignInResult{Token: token, MaxAge: maxAge, Session: sess}, nil
}

// Logout ends the upstream PHP session on a best-effort basis and always
// clears the local login.
func (s *AuthService) Logout(ctx context.Context, sess *session.Data) error {
	if sess == nil {
		return nil
	}
	if err := s.api.WithCredentials(sess.Credentials).Logout(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Upstream logout failed, clearing local session anyway")
	}
	if err := s.sessions.Clear(ctx, sess.ID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Profile fetches the caller's profile from the server.
func (s *AuthService) Profile(ctx context.Context, sess *session.Data) (*model.User, error) {
	u, err := s.api.WithCredentials(sess.Credentials).Profile(ctx)
	if err != nil {
		return nil, s.upstream(ctx, sess, "get profile", err)
	}
	return u, nil
}

// UpdateProfile edits the caller's profile and refreshes the stored user.
func (s *AuthService) UpdateProfile(ctx context.Context, sess *session.Data, req model.UpdateProfileRequest) (*model.User, error) {
	req.Phone = validator.DigitsOnly(req.Phone)
	u, err := s.api.WithCredentials(sess.Credentials).UpdateProfile(ctx, req)
	if err != nil {
		return nil, s.upstream(ctx, sess, "update profile", err)
	}
	if u.ID == 0 {
		// Some deployments answer the update without echoing the profile.
		merged := sess.User
		merged.FirstName, merged.LastName = req.FirstName, req.LastName
		merged.Email, merged.Phone = req.Email, req.Phone
		u = &merged
	}
	sess.User = *u
	if err := s.sessions.Update(ctx, sess); err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return u, nil
}

// ConfirmAdmin asks the server whether the caller is an administrator. The
// answer is cached on the session for RoleConfirmTTL.
func (s *AuthService) ConfirmAdmin(ctx context.Context, sess *session.Data) error {
	now := s.now()
	if !sess.RoleConfirmed(now, s.cfg.RoleConfirmTTL) {
		u, err := s.api.WithCredentials(sess.Credentials).Profile(ctx)
		if err != nil {
			return s.upstream(ctx, sess, "confirm role", err)
		}
		sess.User = *u
		sess.ConfirmedAdmin = u.IsAdmin()
		sess.RoleConfirmedAt = now
		if u.Role != "" {
			sess.RoleHint = u.Role
		}
		if err := s.sessions.Update(ctx, sess); err != nil && !errors.Is(err, session.ErrNotFound) {
			s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to cache role confirmation")
		}
	}
	if !sess.ConfirmedAdmin {
		return ErrNotAdmin
	}
	return nil
}

// Authenticate resolves a portal token to its stored login.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*session.Data, *Claims, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.sessions.Load(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, claims, ErrSessionExpired
	}
	if err != nil {
		return nil, claims, err
	}
	return sess, claims, nil
}

// GenerateToken signs a portal JWT for sess. The returned cookie max-age is
// zero for session-scoped logins, which makes the cookie end with the
// browser session.
func (s *AuthService) GenerateToken(sess *session.Data) (string, time.Duration, error) {
	lifetime := s.cfg.JWTExpiry
	if sess.Scope == session.ScopeDurable {
		if ttl := s.sessions.TTL(sess.Scope); ttl < lifetime {
			lifetime = ttl
		}
	}
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   sess.User.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		SessionID: sess.ID,
		Scope:     sess.Scope,
		UserID:    sess.User.ID,
		RoleHint:  sess.RoleHint,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	var maxAge time.Duration
	if sess.Scope == session.ScopeDurable {
		maxAge = lifetime
	}
	return signed, maxAge, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// upstream wraps an upstream failure. A 401 means the PHP session is gone,
// so the local login is cleared as well.
func (s *AuthService) upstream(ctx context.Context, sess *session.Data, op string, err error) error {
	if phpapi.IsUnauthorized(err) {
		if cerr := s.sessions.Clear(ctx, sess.ID); cerr != nil {
			s.log.Warn().Err(cerr).Str("session_id", sess.ID).Msg("Failed to clear rejected session")
		}
		return fmt.Errorf("%s: %w", op, errors.Join(ErrSessionExpired, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
