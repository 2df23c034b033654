package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
)

// TokenIssuer signs the session token pushed to a client after login.
type TokenIssuer interface {
	Issue(identity domain.Username) (string, error)
}

// SessionLifecycle drives a connection through login, logout and disconnect.
// Logout and Disconnect share the same cleanup path and both are idempotent.
type SessionLifecycle struct {
	log        *slog.Logger
	auth       contract.AuthStore
	registry   contract.IConnectionRegistry
	membership contract.IGroupMembership
	router     contract.IRouter
	tokens     TokenIssuer
}

func NewSessionLifecycle(
	log *slog.Logger,
	auth contract.AuthStore,
	registry contract.IConnectionRegistry,
	membership contract.IGroupMembership,
	router contract.IRouter,
	tokens TokenIssuer,
) *SessionLifecycle {
	return &SessionLifecycle{
		log:        log,
		auth:       auth,
		registry:   registry,
		membership: membership,
		router:     router,
		tokens:     tokens,
	}
}

// Open starts tracking a freshly accepted connection.
func (l *SessionLifecycle) Open(conn contract.Connection) *Session {
	l.log.Debug("Connection opened", "connection_id", conn.ID())
	return NewSession(conn)
}

// Login authenticates the credentials and binds the session on success.
// Wrong credentials are a regular false result. Store failures are wrapped
// into ErrOperationFailed.
func (l *SessionLifecycle) Login(ctx context.Context, session *Session, username domain.Username, password string) (bool, error) {
	switch session.State() {
	case domain.Closed:
		return false, errors.ErrSessionClosed
	case domain.Authenticated:
		return false, errors.ErrAlreadyBound
	}
	if !username.IsValid() || password == "" {
		return false, nil
	}

	ok, err := l.auth.Authenticate(ctx, username, password)
	if err != nil {
		l.log.Error("Authentication store failure", "user", username, "error", err)
		return false, fmt.Errorf("%w: %v", errors.ErrOperationFailed, err)
	}
	if !ok {
		l.log.Info("Login refused", "user", username, "connection_id", session.ID())
		return false, nil
	}

	// The state is checked again under the session lock: a disconnect may
	// have happened while the store was answering.
	session.mu.Lock()
	switch session.state {
	case domain.Closed:
		session.mu.Unlock()
		return false, errors.ErrSessionClosed
	case domain.Authenticated:
		session.mu.Unlock()
		return false, errors.ErrAlreadyBound
	}
	if err = l.registry.Bind(session.conn, username); err != nil {
		session.mu.Unlock()
		return false, err
	}
	session.state = domain.Authenticated
	session.identity = username
	session.mu.Unlock()

	l.log.Info("User logged in", "user", username, "connection_id", session.ID())
	l.pushToken(ctx, session, username)
	l.router.BroadcastSystem(ctx, domain.ReceiveSystemMessage, domain.LoggedInMessage(username))
	return true, nil
}

// Register creates an account. It never binds the connection.
func (l *SessionLifecycle) Register(ctx context.Context, username domain.Username, password string) (bool, error) {
	if !username.IsValid() || password == "" {
		return false, nil
	}
	ok, err := l.auth.Register(ctx, username, password)
	if err != nil {
		l.log.Error("Registration store failure", "user", username, "error", err)
		return false, fmt.Errorf("%w: %v", errors.ErrOperationFailed, err)
	}
	if ok {
		l.log.Info("User registered", "user", username)
	}
	return ok, nil
}

// Logout is the graceful path requested by the client.
func (l *SessionLifecycle) Logout(ctx context.Context, session *Session) {
	l.cleanup(ctx, session, "logout")
}

// Disconnect is the abrupt path triggered by the transport.
func (l *SessionLifecycle) Disconnect(ctx context.Context, session *Session) {
	l.cleanup(ctx, session, "disconnect")
}

// cleanup runs at most once per session:
// 1. Unbind the connection and remember who it was.
// 2. Remove it from every group.
// 3. Tell the remaining members of each group.
// 4. Announce the logout to everyone still bound.
// 5. Push the new group list if a group disappeared.
func (l *SessionLifecycle) cleanup(ctx context.Context, session *Session, reason string) {
	if prev := session.close(); prev == domain.Closed {
		return
	}
	id := session.ID()

	identity, bound := l.registry.Unbind(id)
	changes := l.membership.RemoveConnectionFromAllGroups(id)
	if !bound {
		l.log.Debug("Anonymous connection closed", "connection_id", id, "reason", reason)
		return
	}

	groupRemoved := false
	for _, change := range changes {
		if change.Removed {
			groupRemoved = true
			continue
		}
		l.router.SendGroupSystem(ctx, change.Group, domain.LeftGroupMessage(identity, change.Group))
	}

	l.router.BroadcastSystem(ctx, domain.ReceiveSystemMessage, domain.LoggedOutMessage(identity))
	if groupRemoved {
		l.router.BroadcastGroupList(ctx)
	}
	l.log.Info("User logged out",
		"user", identity,
		"connection_id", id,
		"reason", reason,
		"groups_left", len(changes))
}

func (l *SessionLifecycle) pushToken(ctx context.Context, session *Session, username domain.Username) {
	if l.tokens == nil {
		return
	}
	token, err := l.tokens.Issue(username)
	if err != nil {
		l.log.Warn("Session token not issued", "user", username, "error", err)
		return
	}
	if err = session.conn.Deliver(ctx, domain.NewEvent(domain.ReceiveSessionToken, "", token)); err != nil {
		l.log.Debug("Session token not delivered", "user", username, "error", err)
	}
}
