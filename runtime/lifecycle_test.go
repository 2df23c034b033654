package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type staticIssuer struct{}

func (staticIssuer) Issue(identity domain.Username) (string, error) {
	return "token-" + identity.String(), nil
}

func newLifecycle(t *testing.T) (relay, *mocks.MockAuthStore, *SessionLifecycle) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAuthStore(ctrl)
	r := newRelay()
	lifecycle := NewSessionLifecycle(r.log, store, r.registry, r.membership, r.router, staticIssuer{})
	return r, store, lifecycle
}

// login opens a session for conn and authenticates it against the mocked store.
func login(t *testing.T, store *mocks.MockAuthStore, lifecycle *SessionLifecycle, conn *recorder, user domain.Username) *Session {
	t.Helper()
	store.EXPECT().Authenticate(gomock.Any(), user, "secret").Return(true, nil)
	session := lifecycle.Open(conn)
	ok, err := lifecycle.Login(context.Background(), session, user, "secret")
	require.NoError(t, err)
	require.True(t, ok)
	return session
}

func TestLifecycle_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("should bind and announce on success", func(t *testing.T) {
		req := require.New(t)
		r, store, lifecycle := newLifecycle(t)
		bob := newRecorder("bob-1")
		alice := newRecorder("alice-1")
		login(t, store, lifecycle, bob, "bob")
		bob.Reset()

		session := login(t, store, lifecycle, alice, "alice")

		identity, ok := session.Identity()
		req.True(ok)
		req.Equal(domain.Username("alice"), identity)
		req.Equal(domain.Authenticated, session.State())
		_, bound := r.registry.IdentityOf(alice.ID())
		req.True(bound)
		req.Equal([]string{"alice has logged in."}, bob.SystemTexts())
		req.Equal([]string{"alice has logged in."}, alice.SystemTexts())
		req.Equal([][]any{{"token-alice"}}, alice.Named(domain.ReceiveSessionToken))
	})

	t.Run("should return false on wrong credentials", func(t *testing.T) {
		req := require.New(t)
		r, store, lifecycle := newLifecycle(t)
		alice := newRecorder("alice-1")
		store.EXPECT().Authenticate(gomock.Any(), domain.Username("alice"), "wrong").Return(false, nil)
		session := lifecycle.Open(alice)

		ok, err := lifecycle.Login(ctx, session, "alice", "wrong")

		req.NoError(err)
		req.False(ok)
		req.Equal(domain.Anonymous, session.State())
		_, bound := r.registry.IdentityOf(alice.ID())
		req.False(bound)
		req.Empty(alice.Events())
	})

	t.Run("should reject empty credentials before the store", func(t *testing.T) {
		req := require.New(t)
		_, store, lifecycle := newLifecycle(t)
		store.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		session := lifecycle.Open(newRecorder("c1"))

		ok, err := lifecycle.Login(ctx, session, "", "secret")
		req.NoError(err)
		req.False(ok)

		ok, err = lifecycle.Login(ctx, session, "alice", "")
		req.NoError(err)
		req.False(ok)
	})

	t.Run("should wrap store failures", func(t *testing.T) {
		req := require.New(t)
		_, store, lifecycle := newLifecycle(t)
		store.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, fmt.Errorf("disk on fire"))
		session := lifecycle.Open(newRecorder("c1"))

		ok, err := lifecycle.Login(ctx, session, "alice", "secret")

		req.False(ok)
		req.ErrorIs(err, errors.ErrOperationFailed)
	})

	t.Run("should refuse a second login on the same connection", func(t *testing.T) {
		req := require.New(t)
		_, store, lifecycle := newLifecycle(t)
		session := login(t, store, lifecycle, newRecorder("c1"), "alice")

		ok, err := lifecycle.Login(ctx, session, "bob", "secret")

		req.False(ok)
		req.ErrorIs(err, errors.ErrAlreadyBound)
	})

	t.Run("should refuse login once closed", func(t *testing.T) {
		req := require.New(t)
		_, _, lifecycle := newLifecycle(t)
		session := lifecycle.Open(newRecorder("c1"))
		lifecycle.Disconnect(ctx, session)

		ok, err := lifecycle.Login(ctx, session, "alice", "secret")

		req.False(ok)
		req.ErrorIs(err, errors.ErrSessionClosed)
	})
}

func TestLifecycle_Register(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, store, lifecycle := newLifecycle(t)

	store.EXPECT().Register(gomock.Any(), domain.Username("alice"), "secret").Return(true, nil)
	store.EXPECT().Register(gomock.Any(), domain.Username("alice"), "secret").Return(false, nil)

	// First registration succeeds, the duplicate is a plain false
	ok, err := lifecycle.Register(ctx, "alice", "secret")
	req.NoError(err)
	req.True(ok)
	ok, err = lifecycle.Register(ctx, "alice", "secret")
	req.NoError(err)
	req.False(ok)

	// Invalid input never reaches the store
	ok, err = lifecycle.Register(ctx, "", "secret")
	req.NoError(err)
	req.False(ok)
}

// alice and bob share team, alice disconnects abruptly.
func TestLifecycle_Disconnect_Cleans_Up(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r, store, lifecycle := newLifecycle(t)
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	aliceSession := login(t, store, lifecycle, alice, "alice")
	bobSession := login(t, store, lifecycle, bob, "bob")
	for _, c := range []*recorder{alice, bob} {
		_, err := r.membership.Join("team", c)
		req.NoError(err)
	}
	bob.Reset()

	// When alice's connection drops
	lifecycle.Disconnect(ctx, aliceSession)

	// Then bob is told, team survives, alice is gone everywhere
	req.Equal([]string{"alice has left the group team.", "alice has logged out."}, bob.SystemTexts())
	req.Empty(bob.Named(domain.ReceiveGroupList))
	req.Equal([]domain.GroupName{"team"}, r.membership.OpenGroups())
	req.Len(r.membership.Members("team"), 1)
	_, bound := r.registry.IdentityOf(alice.ID())
	req.False(bound)
	req.Equal(domain.Closed, aliceSession.State())

	// When bob leaves too, team disappears
	lifecycle.Logout(ctx, bobSession)
	req.Empty(r.membership.OpenGroups())
	connections, identities := r.registry.Count()
	req.Zero(connections)
	req.Zero(identities)
}

func TestLifecycle_Disconnect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, store, lifecycle := newLifecycle(t)
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	aliceSession := login(t, store, lifecycle, alice, "alice")
	login(t, store, lifecycle, bob, "bob")
	bob.Reset()

	// When the graceful and the abrupt paths both fire
	lifecycle.Logout(ctx, aliceSession)
	lifecycle.Disconnect(ctx, aliceSession)
	lifecycle.Disconnect(ctx, aliceSession)

	// Then the logout is announced once
	req.Equal([]string{"alice has logged out."}, bob.SystemTexts())
}

func TestLifecycle_Disconnect_Pushes_Group_List_When_Group_Removed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r, store, lifecycle := newLifecycle(t)
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	aliceSession := login(t, store, lifecycle, alice, "alice")
	login(t, store, lifecycle, bob, "bob")
	_, err := r.membership.Join("solo", alice)
	req.NoError(err)
	bob.Reset()

	lifecycle.Disconnect(ctx, aliceSession)

	req.Equal([]string{"alice has logged out."}, bob.SystemTexts())
	req.Equal([][]any{{[]string{}}}, bob.Named(domain.ReceiveGroupList))
}

func TestLifecycle_Disconnect_Anonymous_Is_Silent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	_, store, lifecycle := newLifecycle(t)
	bob := newRecorder("bob-1")
	login(t, store, lifecycle, bob, "bob")
	bob.Reset()

	session := lifecycle.Open(newRecorder("anon"))
	lifecycle.Disconnect(ctx, session)

	req.Empty(bob.Events())
	req.Equal(domain.Closed, session.State())
}
