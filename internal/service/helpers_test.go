package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/session"
	"github.com/rs/zerolog"
)

// fakePHP routes requests by "METHOD /path" or "METHOD /path?action".
type fakePHP struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
}

func newFakePHP(t *testing.T) (*fakePHP, *phpapi.Client) {
	t.Helper()
	f := &fakePHP{t: t, routes: map[string]http.HandlerFunc{}, calls: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, phpapi.New(srv.URL, 2*time.Second, zerolog.Nop())
}

func (f *fakePHP) handle(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = h
}

func (f *fakePHP) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakePHP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if a := r.URL.Query().Get("action"); a != "" {
		key += "?" + a
	}
	f.mu.Lock()
	f.calls[key]++
	h, ok := f.routes[key]
	f.mu.Unlock()
	if !ok {
		f.t.Errorf("unexpected upstream call %s", key)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func ok(data interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": data, "message": "ok"})
	}
}

func fail(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, status, map[string]interface{}{"success": false, "message": message})
	}
}

func writeEnvelope(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testSession(userID model.ID) *session.Data {
	return &session.Data{
		ID:          "sess-1",
		Scope:       session.ScopeSession,
		Credentials: phpapi.Credentials{SessionToken: "php-token"},
		User:        model.User{ID: userID, Email: "a@koren.lk"},
	}
}

type memDrafts struct {
	mu     sync.Mutex
	drafts map[string]model.ExamDraft
}

func newMemDrafts() *memDrafts { return &memDrafts{drafts: map[string]model.ExamDraft{}} }

func (m *memDrafts) Save(_ context.Context, d *model.ExamDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.SelectedQuestions = append([]model.ID(nil), d.SelectedQuestions...)
	m.drafts[d.ID] = cp
	return nil
}

func (m *memDrafts) Get(_ context.Context, id string) (*model.ExamDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	d.SelectedQuestions = append([]model.ID(nil), d.SelectedQuestions...)
	return &d, nil
}

func (m *memDrafts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

type memAttempts struct {
	mu       sync.Mutex
	attempts map[string][]byte
	locks    map[string]bool
	// beforeSave, when set, runs once ahead of the next Save.
	beforeSave func()
}

func newMemAttempts() *memAttempts {
	return &memAttempts{attempts: map[string][]byte{}, locks: map[string]bool{}}
}

func (m *memAttempts) Save(_ context.Context, a *attempt.Attempt) error {
	m.mu.Lock()
	hook := m.beforeSave
	m.beforeSave = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var stored int64
	if raw, ok := m.attempts[a.ID]; ok {
		var head attempt.Attempt
		if err := json.Unmarshal(raw, &head); err != nil {
			return err
		}
		stored = head.Version
	}
	if stored != a.Version {
		return repository.ErrAttemptConflict
	}

	next := *a
	next.Version++
	raw, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	m.attempts[a.ID] = raw
	a.Version = next.Version
	return nil
}

// put stores a as-is, bypassing the revision check.
func (m *memAttempts) put(t *testing.T, a *attempt.Attempt) {
	t.Helper()
	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = raw
}

func (m *memAttempts) Get(_ context.Context, id string) (*attempt.Attempt, error) {
	m.mu.Lock()
	raw, ok := m.attempts[id]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	var a attempt.Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *memAttempts) AcquireSubmitLock(_ context.Context, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return false, nil
	}
	m.locks[id] = true
	return true, nil
}

func (m *memAttempts) ReleaseSubmitLock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
	return nil
}

type memQueue struct {
	mu   sync.Mutex
	rows []model.ExamResult
}

func (q *memQueue) Enqueue(_ context.Context, res model.ExamResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = append(q.rows, res)
	return nil
}
