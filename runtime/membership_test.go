package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMembership_Join_Requires_Binding(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	anonymous := newRecorder("anon")

	// When an unbound connection joins
	_, err := r.membership.Join("team", anonymous)

	// Then it is refused and no group is created
	req.ErrorIs(err, errors.ErrNotAuthenticated)
	req.Empty(r.membership.OpenGroups())
}

func TestMembership_Join_Rejects_Empty_Name(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	req.NoError(r.registry.Bind(alice, "alice"))

	_, err := r.membership.Join("  ", alice)

	req.ErrorIs(err, errors.ErrInvalidGroupName)
	req.Empty(r.membership.OpenGroups())
}

func TestMembership_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	req.NoError(r.registry.Bind(alice, "alice"))

	// When alice joins team twice
	first, err := r.membership.Join("team", alice)
	req.NoError(err)
	second, err := r.membership.Join("team", alice)
	req.NoError(err)

	// Then only the first join counts
	req.Equal(domain.JoinResult{Joined: true, Created: true}, first)
	req.Equal(domain.JoinResult{}, second)
	req.Len(r.membership.Members("team"), 1)
}

func TestMembership_Leave_Deletes_Empty_Group(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	req.NoError(r.registry.Bind(alice, "alice"))
	req.NoError(r.registry.Bind(bob, "bob"))

	// Given alice and bob in team
	_, err := r.membership.Join("team", alice)
	req.NoError(err)
	res, err := r.membership.Join("team", bob)
	req.NoError(err)
	req.False(res.Created)

	// When alice leaves, team survives with bob
	req.Equal(domain.LeaveResult{Left: true}, r.membership.Leave("team", alice.ID()))
	req.Equal([]contract.Connection{bob}, r.membership.Members("team"))
	req.Equal([]domain.GroupName{"team"}, r.membership.OpenGroups())

	// When bob leaves, team is gone
	req.Equal(domain.LeaveResult{Left: true, Removed: true}, r.membership.Leave("team", bob.ID()))
	req.Empty(r.membership.Members("team"))
	req.Empty(r.membership.OpenGroups())
}

func TestMembership_Leave_Non_Member_Is_Noop(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	req.NoError(r.registry.Bind(alice, "alice"))
	req.NoError(r.registry.Bind(bob, "bob"))
	_, err := r.membership.Join("team", alice)
	req.NoError(err)

	req.Equal(domain.LeaveResult{}, r.membership.Leave("team", bob.ID()))
	req.Equal(domain.LeaveResult{}, r.membership.Leave("unknown", alice.ID()))
	req.Len(r.membership.Members("team"), 1)
}

func TestMembership_OpenGroups_Sorted(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	req.NoError(r.registry.Bind(alice, "alice"))

	for _, g := range []domain.GroupName{"zeta", "Alpha", "beta", "alpha"} {
		_, err := r.membership.Join(g, alice)
		req.NoError(err)
	}

	// Group names are case-sensitive and listed in lexical order
	req.Equal([]domain.GroupName{"Alpha", "alpha", "beta", "zeta"}, r.membership.OpenGroups())
	req.Equal([]domain.GroupName{"Alpha", "alpha", "beta", "zeta"}, r.membership.GroupsOf(alice.ID()))
}

func TestMembership_RemoveConnectionFromAllGroups(t *testing.T) {
	req := require.New(t)
	r := newRelay()
	alice := newRecorder("alice-1")
	bob := newRecorder("bob-1")
	req.NoError(r.registry.Bind(alice, "alice"))
	req.NoError(r.registry.Bind(bob, "bob"))

	// Given alice alone in solo and with bob in team
	for _, g := range []domain.GroupName{"team", "solo"} {
		_, err := r.membership.Join(g, alice)
		req.NoError(err)
	}
	_, err := r.membership.Join("team", bob)
	req.NoError(err)

	// When alice is removed from everything
	changes := r.membership.RemoveConnectionFromAllGroups(alice.ID())

	// Then solo disappears and team stays
	req.Equal([]domain.GroupChange{
		{Group: "solo", Removed: true},
		{Group: "team", Removed: false},
	}, changes)
	req.Equal([]domain.GroupName{"team"}, r.membership.OpenGroups())
	req.Empty(r.membership.GroupsOf(alice.ID()))

	// And a second call finds nothing
	req.Nil(r.membership.RemoveConnectionFromAllGroups(alice.ID()))
}

func TestMembership_Concurrent_Join_And_Cleanup(t *testing.T) {
	req := require.New(t)
	r := newRelay()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		conn := newRecorder(fmt.Sprintf("c%d", i))
		req.NoError(r.registry.Bind(conn, domain.Username(fmt.Sprintf("user%d", i))))
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.membership.Join("team", conn)
			_, _ = r.membership.Join("other", conn)
		}()
		go func() {
			defer wg.Done()
			r.registry.Unbind(conn.ID())
			r.membership.RemoveConnectionFromAllGroups(conn.ID())
		}()
	}
	wg.Wait()

	// A join racing a disconnect either failed or got cleaned up
	req.Empty(r.membership.OpenGroups())
}
