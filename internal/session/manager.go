// Package session maps browser sessions to flow controllers. Each
// visitor gets one controller, addressed by a signed cookie; idle
// controllers are swept out on an interval.
package session

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-app/rollcall/internal/flow"
	"github.com/rollcall-app/rollcall/internal/identity"
)

// ControllerFactory builds a flow controller for a new session, seeded
// with a provider session recovered from the cookie when one exists.
type ControllerFactory func(initial *identity.Session) *flow.Controller

type entry struct {
	ctrl     *flow.Controller
	lastSeen time.Time
}

// Manager owns the live flow controllers.
type Manager struct {
	tokens  *TokenManager
	cookies CookieConfig
	factory ControllerFactory
	ttl     time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a session manager.
func NewManager(tokens *TokenManager, cookies CookieConfig, factory ControllerFactory, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		tokens:   tokens,
		cookies:  cookies,
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Attach resolves the request's flow controller: an existing one when
// the cookie names a live session, a fresh one otherwise. A valid
// cookie whose session is gone (server restart) seeds the new
// controller with the cookie's provider session so the flow can
// restore it silently.
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request) (*flow.Controller, string) {
	var claims *Claims
	if token, err := GetSessionCookie(r); err == nil {
		if parsed, err := m.tokens.Parse(token); err == nil {
			claims = parsed
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if claims != nil {
		if e, ok := m.sessions[claims.SID]; ok {
			e.lastSeen = time.Now()
			return e.ctrl, claims.SID
		}
	}

	var initial *identity.Session
	sid := uuid.New().String()
	if claims != nil {
		initial = claims.Provider
		sid = claims.SID
	}

	ctrl := m.factory(initial)
	m.sessions[sid] = &entry{ctrl: ctrl, lastSeen: time.Now()}
	m.writeCookie(w, sid, ctrl)
	return ctrl, sid
}

// Refresh re-issues the session cookie so it carries the controller's
// current provider session. Call after any operation that may change
// it.
func (m *Manager) Refresh(w http.ResponseWriter, sid string, ctrl *flow.Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[sid]; ok {
		e.lastSeen = time.Now()
	}
	m.writeCookie(w, sid, ctrl)
}

func (m *Manager) writeCookie(w http.ResponseWriter, sid string, ctrl *flow.Controller) {
	token, err := m.tokens.Generate(sid, ctrl.CurrentSession())
	if err != nil {
		m.logger.Error("failed to sign session cookie", slog.Any("error", err))
		return
	}
	SetSessionCookie(w, token, m.ttl, m.cookies)
}

// SweepExpired drops sessions idle past the TTL and returns how many
// were removed.
func (m *Manager) SweepExpired() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for sid, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, sid)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
