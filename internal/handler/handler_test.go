package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/validator"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Message string                 `json:"message"`
	Errors  []string               `json:"errors"`
	Error   *response.ErrorBody    `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestFailMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{"field errors", model.FieldErrors{"options": "exactly 4 options required"}, http.StatusBadRequest, response.ErrValidation},
		{"upstream rejection", fmt.Errorf("list exams: %w", &phpapi.APIError{Status: 422, Message: "Exam name taken"}), http.StatusBadGateway, response.ErrUpstream},
		{"upstream 401", &phpapi.APIError{Status: 401, Message: "Session expired"}, http.StatusUnauthorized, response.ErrSessionExpired},
		{"network", &phpapi.NetworkError{Path: "/exam.php", Err: errors.New("connection refused")}, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable},
		{"incomplete", &attempt.IncompleteError{Missing: []model.ID{3}}, http.StatusBadRequest, response.ErrIncompleteAttempt},
		{"submit lock", service.ErrSubmitInProgress, http.StatusConflict, response.ErrSubmitInProgress},
		{"missing attempt", repository.ErrAttemptNotFound, http.StatusNotFound, response.ErrNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}

	f := failer{log: zerolog.Nop()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			f.fail(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decode(t, w)
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("body = %s, want code %s", w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestFailCarriesUpstreamMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	failer{log: zerolog.Nop()}.fail(c, &phpapi.APIError{Status: 400, Message: "Invalid NIC", Errors: []string{"nic_number"}})

	env := decode(t, w)
	if env.Message != "Invalid NIC" || len(env.Errors) != 1 {
		t.Errorf("message = %q errors = %v", env.Message, env.Errors)
	}
}

func TestFailUnauthorizedClearsSession(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, 24*time.Hour)
	sess := &session.Data{User: model.User{ID: 7}}
	if err := sessions.Save(context.Background(), sess, false); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.ContextKeySession, sess)

	failer{sessions: sessions, log: zerolog.Nop()}.fail(c, &phpapi.APIError{Status: 401})

	if _, err := sessions.Load(context.Background(), sess.ID); err == nil {
		t.Error("session survived an upstream 401")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=;") {
		t.Errorf("cookie not cleared: %q", w.Header().Get("Set-Cookie"))
	}
}

func newAuthHandler(t *testing.T, signin http.HandlerFunc) *AuthHandler {
	t.Helper()
	php := httptest.NewServer(signin)
	t.Cleanup(php.Close)

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: 90 * 24 * time.Hour, RoleConfirmTTL: time.Minute}
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, 30*24*time.Hour)
	api := phpapi.New(php.URL, 2*time.Second, zerolog.Nop())
	return NewAuthHandler(service.NewAuthService(cfg, api, sessions, zerolog.Nop()), sessions, zerolog.Nop())
}

func postJSON(h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	return w
}

func TestSignInSetsCookie(t *testing.T) {
	h := newAuthHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"session_token":"php-token","id":7,"email":"nimal@koren.lk","role":"admin"}}`))
	})

	w := postJSON(h.SignIn, `{"email":"nimal@koren.lk","password":"secret1","remember_me":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	env := decode(t, w)
	if env.Data["redirect"] != session.PathHome || env.Data["scope"] != string(session.ScopeDurable) {
		t.Errorf("data = %v", env.Data)
	}
	cookie := w.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, middleware.SessionCookie+"=") || !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("Set-Cookie = %q", cookie)
	}
	if !strings.Contains(cookie, "Max-Age=2592000") {
		t.Errorf("remembered login should persist for 30 days: %q", cookie)
	}
}

func TestSignInRejectedCredentials(t *testing.T) {
	h := newAuthHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid email or password"}`))
	})

	w := postJSON(h.SignIn, `{"email":"nimal@koren.lk","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	env := decode(t, w)
	if env.Error.Code != response.ErrInvalidCredentials || env.Message != "Invalid email or password" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSignInValidationSkipsUpstream(t *testing.T) {
	called := false
	h := newAuthHandler(t, func(w http.ResponseWriter, _ *http.Request) { called = true })

	w := postJSON(h.SignIn, `{"email":"not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if env := decode(t, w); len(env.Error.Fields) == 0 {
		t.Errorf("expected field errors: %s", w.Body.String())
	}
	if called {
		t.Error("invalid input reached the PHP API")
	}
}

func TestEventSharesHTTPMapping(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      response.ErrCode
		wantRetryable bool
	}{
		{"upstream rejection", &phpapi.APIError{Status: 422, Message: "Invalid answers"}, response.ErrUpstream, false},
		{"upstream failure", &phpapi.APIError{Status: 500, Message: "Database error"}, response.ErrUpstream, true},
		{"network", &phpapi.NetworkError{Path: "/takeExam.php", Err: errors.New("reset")}, response.ErrUpstreamUnavailable, true},
		{"lost write race", fmt.Errorf("save attempt: %w", repository.ErrAttemptConflict), response.ErrAttemptConflict, true},
		{"field errors", model.FieldErrors{"term": "too long"}, response.ErrValidation, false},
		{"not completed", attempt.ErrNotCompleted, response.ErrAttemptFinished, false},
		{"incomplete", &attempt.IncompleteError{Missing: []model.ID{4}}, response.ErrIncompleteAttempt, false},
	}

	f := failer{log: zerolog.Nop()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := f.event(context.Background(), nil, tt.err)
			if ev.Code != string(tt.wantCode) || ev.Retryable != tt.wantRetryable {
				t.Errorf("event = %+v, want %s retryable=%v", ev, tt.wantCode, tt.wantRetryable)
			}
			if ev.Error == "" {
				t.Error("event has no message")
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			f.fail(c, tt.err)
			if env := decode(t, w); env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("HTTP body = %s, want %s", w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestEventCarriesFieldsAndUnanswered(t *testing.T) {
	f := failer{log: zerolog.Nop()}

	ev := f.event(context.Background(), nil, model.FieldErrors{"optionIndex": "required"})
	if ev.Fields["optionIndex"] != "required" {
		t.Errorf("fields = %v", ev.Fields)
	}
	ev = f.event(context.Background(), nil, &attempt.IncompleteError{Missing: []model.ID{4, 9}})
	if len(ev.Unanswered) != 2 || ev.Unanswered[1] != 9 {
		t.Errorf("unanswered = %v", ev.Unanswered)
	}
}

func TestEventUnauthorizedClearsSession(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, 24*time.Hour)
	sess := &session.Data{User: model.User{ID: 7}}
	if err := sessions.Save(context.Background(), sess, false); err != nil {
		t.Fatal(err)
	}

	ev := failer{sessions: sessions, log: zerolog.Nop()}.event(context.Background(), sess, &phpapi.APIError{Status: 401})
	if ev.Code != string(response.ErrSessionExpired) {
		t.Errorf("code = %s", ev.Code)
	}
	if _, err := sessions.Load(context.Background(), sess.ID); err == nil {
		t.Error("session survived an upstream 401 on the stream")
	}
}
