package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.ConnectionID]struct{}

type binding struct {
	conn     contract.Connection
	identity domain.Username
}

// ConnectionRegistry is the authoritative map between live connections and
// authenticated identities. An identity may own several connections.
type ConnectionRegistry struct {
	mu         sync.RWMutex
	sessions   map[domain.ConnectionID]binding // map connection -> identity
	identities map[domain.Username]Set         // map identity to its connections
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions:   make(map[domain.ConnectionID]binding),
		identities: make(map[domain.Username]Set),
	}
}

// Bind attaches an identity to a connection.
// A connection is bound at most once; a second Bind fails with ErrAlreadyBound
// even for the same identity.
func (r *ConnectionRegistry) Bind(conn contract.Connection, identity domain.Username) error {
	if !identity.IsValid() {
		return errors.ErrInvalidUsername
	}
	id := conn.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return errors.ErrAlreadyBound
	}
	r.sessions[id] = binding{conn: conn, identity: identity}

	if _, ok := r.identities[identity]; !ok {
		r.identities[identity] = make(Set)
	}
	r.identities[identity][id] = struct{}{}
	return nil
}

// Unbind detaches the connection and returns the identity it had.
// Unbinding an unknown connection is a no-op reported by ok=false.
func (r *ConnectionRegistry) Unbind(id domain.ConnectionID) (domain.Username, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	delete(r.sessions, id)

	if conns, ok := r.identities[b.identity]; ok {
		delete(conns, id)

		// Last device gone, the identity is offline
		if len(conns) == 0 {
			delete(r.identities, b.identity)
		}
	}
	return b.identity, true
}

func (r *ConnectionRegistry) IdentityOf(id domain.ConnectionID) (domain.Username, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.sessions[id]
	return b.identity, ok
}

// ConnectionsOf returns every live connection of an identity.
// The slice is a snapshot: callers deliver outside the lock.
func (r *ConnectionRegistry) ConnectionsOf(identity domain.Username) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.identities[identity]
	if !ok {
		return nil
	}
	active := make([]contract.Connection, 0, len(conns))
	for id := range conns {
		if b, exists := r.sessions[id]; exists {
			active = append(active, b.conn)
		}
	}
	return active
}

// Connections returns a snapshot of every bound connection.
func (r *ConnectionRegistry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.sessions, func(_ domain.ConnectionID, b binding) contract.Connection {
		return b.conn
	})
}

func (r *ConnectionRegistry) Count() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions), len(r.identities)
}
