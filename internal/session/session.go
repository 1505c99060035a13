// Package session keeps the signed-in user's context explicitly instead of
// in ambient browser storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
)

// Data is everything the portal remembers about one login.
type Data struct {
	ID          string             `json:"id"`
	Scope       Scope              `json:"scope"`
	Credentials phpapi.Credentials `json:"credentials"`
	User        model.User         `json:"user"`
	// RoleHint is the role reported at sign-in. It only steers navigation;
	// admin routes re-confirm it with the server.
	RoleHint        string    `json:"role_hint"`
	RoleConfirmedAt time.Time `json:"role_confirmed_at,omitempty"`
	ConfirmedAdmin  bool      `json:"confirmed_admin"`
	CreatedAt       time.Time `json:"created_at"`
}

// RoleConfirmed reports whether a server confirmation younger than ttl exists.
func (d *Data) RoleConfirmed(now time.Time, ttl time.Duration) bool {
	return !d.RoleConfirmedAt.IsZero() && now.Sub(d.RoleConfirmedAt) < ttl
}

// Manager saves, loads and clears logins across both scopes.
type Manager struct {
	store       Store
	idleTTL     time.Duration
	rememberTTL time.Duration
}

func NewManager(store Store, idleTTL, rememberTTL time.Duration) *Manager {
	return &Manager{store: store, idleTTL: idleTTL, rememberTTL: rememberTTL}
}

// TTL returns the lifetime of a login in scope.
func (m *Manager) TTL(scope Scope) time.Duration {
	if scope == ScopeDurable {
		return m.rememberTTL
	}
	return m.idleTTL
}

// Save stores d in the durable scope when rememberMe is set and in the
// session scope otherwise, never both. A missing id is generated.
func (m *Manager) Save(ctx context.Context, d *Data, rememberMe bool) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	d.Scope = ScopeSession
	other := ScopeDurable
	if rememberMe {
		d.Scope, other = ScopeDurable, ScopeSession
	}

	buf, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Put(ctx, d.Scope, d.ID, buf, m.TTL(d.Scope)); err != nil {
		return err
	}
	return m.store.Delete(ctx, other, d.ID)
}

// Update rewrites an existing login in place, keeping its scope and expiry.
func (m *Manager) Update(ctx context.Context, d *Data) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Replace(ctx, d.Scope, d.ID, buf)
}

// Load returns the login under id, looking at the session scope before the
// durable one. Session-scoped logins get their idle timeout extended.
func (m *Manager) Load(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	for _, scope := range []Scope{ScopeSession, ScopeDurable} {
		buf, err := m.store.Get(ctx, scope, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var d Data
		if err := json.Unmarshal(buf, &d); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		d.Scope = scope
		if scope == ScopeSession {
			_ = m.store.Touch(ctx, scope, id, m.idleTTL)
		}
		return &d, nil
	}
	return nil, ErrNotFound
}

// Clear removes the login from both scopes.
func (m *Manager) Clear(ctx context.Context, id string) error {
	errS := m.store.Delete(ctx, ScopeSession, id)
	errD := m.store.Delete(ctx, ScopeDurable, id)
	return errors.Join(errS, errD)
}

// Redirect targets used by the navigation guard.
const (
	PathSignIn = "/signin"
	PathHome   = "/home"
)

// Decision is the navigation guard's verdict for an admin-only page.
type Decision struct {
	Allow bool
	// Redirect is set when Allow is false.
	Redirect string
	// ConfirmWithServer is set when access rests on the role hint alone.
	ConfirmWithServer bool
}

// Guard decides admin-page access from the stored login alone: no login
// goes to sign-in, a non-admin hint goes home, and an admin hint is let
// through pending server confirmation.
func Guard(d *Data) Decision {
	if d == nil {
		return Decision{Redirect: PathSignIn}
	}
	u := model.User{Role: d.RoleHint, UserType: d.User.UserType}
	if !u.IsAdmin() {
		return Decision{Redirect: PathHome}
	}
	return Decision{Allow: true, ConfirmWithServer: true}
}
