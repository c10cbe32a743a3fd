// Package session holds the bearer credential for the current client
// session. The session is injected into the API client explicitly rather
// than read from a global: it is populated on login, cleared on logout, and
// cleared exactly once when the server rejects the token.
package session

import (
	"sync"
	"time"

	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/events"
)

// test hook
var timeNow = time.Now

// Session is the process-wide holder of the bearer token. Safe for use from
// concurrent requests.
type Session struct {
	mu        sync.RWMutex
	token     string
	tokenPath string // durable storage; "" disables persistence
	expired   bool   // set when the server rejected the token
	eventBus  *events.EventBus
}

// New creates a session backed by the token file at tokenPath. Pass "" for
// an in-memory session (tests, --token flag).
func New(token, tokenPath string, bus *events.EventBus) *Session {
	return &Session{
		token:     token,
		tokenPath: tokenPath,
		eventBus:  bus,
	}
}

// Token returns the current bearer token, or "" if unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Expired reports whether the server rejected the token during this session.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

// SetToken installs a new token (successful login) and persists it.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.expired = false
	path := s.tokenPath
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	return config.WriteTokenFile(path, token)
}

// Clear drops the token (logout) and removes the persisted copy.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	path := s.tokenPath
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	return config.RemoveTokenFile(path)
}

// Invalidate is called when the server answers 401. It clears the token so
// no component can retry with a stale credential, and publishes a single
// session-expired event. Subsequent calls are no-ops.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.token = ""
	path := s.tokenPath
	bus := s.eventBus
	s.mu.Unlock()

	if path != "" {
		// Best effort: the in-memory clear is what prevents stale retries.
		_ = config.RemoveTokenFile(path)
	}
	if bus != nil {
		bus.Publish(&events.SessionExpiredEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventSessionExpired, Time: timeNow()},
		})
	}
}
