package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
)

func newManager() (*Manager, *MemoryStore) {
	st := NewMemoryStore()
	return NewManager(st, time.Hour, 30*24*time.Hour), st
}

func TestSaveRememberMeUsesDurableOnly(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	d := &Data{User: model.User{ID: 1}, Credentials: phpapi.Credentials{SessionToken: "tok"}}
	if err := m.Save(ctx, d, true); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Get(ctx, ScopeDurable, d.ID); err != nil {
		t.Errorf("durable scope empty: %v", err)
	}
	if _, err := st.Get(ctx, ScopeSession, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("session scope written: %v", err)
	}
}

func TestSaveWithoutRememberMeUsesSessionOnly(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	d := &Data{ID: "fixed"}
	_ = m.Save(ctx, d, true)
	_ = m.Save(ctx, d, false)

	if _, err := st.Get(ctx, ScopeSession, "fixed"); err != nil {
		t.Errorf("session scope empty: %v", err)
	}
	if _, err := st.Get(ctx, ScopeDurable, "fixed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("durable scope still holds the login: %v", err)
	}
}

func TestLoadPrefersSessionScope(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()

	_ = st.Put(ctx, ScopeDurable, "x", []byte(`{"id":"x","role_hint":"student"}`), time.Hour)
	_ = st.Put(ctx, ScopeSession, "x", []byte(`{"id":"x","role_hint":"admin"}`), time.Hour)

	d, err := m.Load(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if d.RoleHint != "admin" || d.Scope != ScopeSession {
		t.Errorf("loaded %+v", d)
	}
}

func TestLoadSlidesIdleTimeout(t *testing.T) {
	m, st := newManager()
	now := time.Now()
	st.now = func() time.Time { return now }
	ctx := context.Background()

	d := &Data{ID: "s"}
	_ = m.Save(ctx, d, false)

	now = now.Add(50 * time.Minute)
	if _, err := m.Load(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(50 * time.Minute)
	if _, err := m.Load(ctx, "s"); err != nil {
		t.Fatalf("login expired despite activity: %v", err)
	}
	now = now.Add(61 * time.Minute)
	if _, err := m.Load(ctx, "s"); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle login survived: %v", err)
	}
}

func TestClearRemovesBothScopes(t *testing.T) {
	m, st := newManager()
	ctx := context.Background()
	_ = st.Put(ctx, ScopeDurable, "c", []byte(`{}`), 0)
	_ = st.Put(ctx, ScopeSession, "c", []byte(`{}`), 0)

	if err := m.Clear(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Clear = %v", err)
	}
}

func TestUpdateKeepsScope(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()
	d := &Data{ID: "u", RoleHint: "admin"}
	_ = m.Save(ctx, d, true)

	d.ConfirmedAdmin = true
	d.RoleConfirmedAt = time.Now()
	if err := m.Update(ctx, d); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Load(ctx, "u")
	if !got.ConfirmedAdmin || got.Scope != ScopeDurable {
		t.Errorf("got %+v", got)
	}

	if err := m.Update(ctx, &Data{ID: "missing", Scope: ScopeSession}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update of missing login = %v", err)
	}
}

func TestGuard(t *testing.T) {
	if d := Guard(nil); d.Allow || d.Redirect != PathSignIn {
		t.Errorf("Guard(nil) = %+v", d)
	}
	if d := Guard(&Data{RoleHint: "student"}); d.Allow || d.Redirect != PathHome {
		t.Errorf("Guard(student) = %+v", d)
	}
	if d := Guard(&Data{RoleHint: "admin"}); !d.Allow || !d.ConfirmWithServer {
		t.Errorf("Guard(admin) = %+v", d)
	}
}

func TestRoleConfirmed(t *testing.T) {
	now := time.Now()
	d := &Data{RoleConfirmedAt: now.Add(-30 * time.Second)}
	if !d.RoleConfirmed(now, time.Minute) {
		t.Error("fresh confirmation rejected")
	}
	if d.RoleConfirmed(now, 10*time.Second) {
		t.Error("stale confirmation accepted")
	}
}
