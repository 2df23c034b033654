package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
	"time"
)

// Session is the per-connection state owned by the transport task.
// It only moves forward: Anonymous -> Authenticated -> Closed.
type Session struct {
	mu       sync.Mutex
	conn     contract.Connection
	state    domain.SessionState
	identity domain.Username
	openedAt time.Time
}

func NewSession(conn contract.Connection) *Session {
	return &Session{conn: conn, state: domain.Anonymous, openedAt: time.Now().UTC()}
}

func (s *Session) ID() domain.ConnectionID {
	return s.conn.ID()
}

func (s *Session) Conn() contract.Connection {
	return s.conn
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the username once authenticated.
func (s *Session) Identity() (domain.Username, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.state == domain.Authenticated
}

func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// close marks the session closed and returns the previous state.
func (s *Session) close() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = domain.Closed
	return prev
}
