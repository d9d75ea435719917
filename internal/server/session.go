package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapmerge/internal/engine"
)

const (
	sessionName  = "leapmerge"
	sessionIDKey = "id"
)

// session is one browser session's engine. The engine has no locking of
// its own, so every use holds mu.
type session struct {
	id  string
	mu  sync.Mutex
	eng *engine.Engine

	lastUsed time.Time
}

// registry maps session IDs to sessions.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	cfg      engine.Config
	ttl      time.Duration
	now      func() time.Time
}

func newRegistry(cfg engine.Config, ttl time.Duration) *registry {
	return &registry{
		sessions: make(map[string]*session),
		cfg:      cfg,
		ttl:      ttl,
		now:      time.Now,
	}
}

// get returns the session for id, creating it when needed.
func (g *registry) get(id string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	if !ok {
		s = &session{id: id, eng: engine.New(g.cfg)}
		g.sessions[id] = s
	}
	s.lastUsed = g.now()
	return s
}

// drop forgets the session for id.
func (g *registry) drop(id string) {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
}

// sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (g *registry) sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, s := range g.sessions {
		if now.Sub(s.lastUsed) > g.ttl {
			delete(g.sessions, id)
			removed++
		}
	}
	return removed
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// sessionID returns the caller's session ID, issuing a new one in the
// session cookie on first contact.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		// An undecodable cookie (for example after a secret change) starts
		// a new session.
		s.logger.Debug("discarding invalid session cookie")
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// withSession runs fn with the caller's engine locked. It reports the
// session ID so handlers can notify its listeners.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(eng *engine.Engine) error) (string, error) {
	id, err := s.sessionID(w, r)
	if err != nil {
		return "", err
	}

	sess := s.sessions.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return id, fn(sess.eng)
}
