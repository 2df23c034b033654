package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// IdentityResolver is the part of the registry membership needs:
// only bound connections may join a group.
type IdentityResolver interface {
	IdentityOf(id domain.ConnectionID) (domain.Username, bool)
}

// GroupMembership tracks which connections belong to which named group.
// A group exists only while it has members.
//
// Lock order is membership then registry: Join checks the binding while
// holding the membership lock, so a concurrent disconnect either sees the
// new member in RemoveConnectionFromAllGroups or makes Join fail.
type GroupMembership struct {
	mu       sync.RWMutex
	resolver IdentityResolver
	groups   map[domain.GroupName]map[domain.ConnectionID]contract.Connection
	joined   map[domain.ConnectionID]map[domain.GroupName]struct{} // reverse index for cleanup
}

func NewGroupMembership(resolver IdentityResolver) *GroupMembership {
	return &GroupMembership{
		resolver: resolver,
		groups:   make(map[domain.GroupName]map[domain.ConnectionID]contract.Connection),
		joined:   make(map[domain.ConnectionID]map[domain.GroupName]struct{}),
	}
}

// Join adds the connection to the group, creating the group on first join.
// Joining twice is not an error: the second call reports Joined=false so the
// caller does not announce it again.
func (m *GroupMembership) Join(group domain.GroupName, conn contract.Connection) (domain.JoinResult, error) {
	if !group.IsValid() {
		return domain.JoinResult{}, errors.ErrInvalidGroupName
	}
	id := conn.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resolver.IdentityOf(id); !ok {
		return domain.JoinResult{}, errors.ErrNotAuthenticated
	}

	members, exists := m.groups[group]
	if !exists {
		members = make(map[domain.ConnectionID]contract.Connection)
		m.groups[group] = members
	}
	if _, already := members[id]; already {
		return domain.JoinResult{}, nil
	}
	members[id] = conn

	if _, ok := m.joined[id]; !ok {
		m.joined[id] = make(map[domain.GroupName]struct{})
	}
	m.joined[id][group] = struct{}{}

	return domain.JoinResult{Joined: true, Created: !exists}, nil
}

// Leave removes the connection from the group. Leaving a group the connection
// is not part of does nothing.
func (m *GroupMembership) Leave(group domain.GroupName, id domain.ConnectionID) domain.LeaveResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.leave(group, id)
}

func (m *GroupMembership) leave(group domain.GroupName, id domain.ConnectionID) domain.LeaveResult {
	members, ok := m.groups[group]
	if !ok {
		return domain.LeaveResult{}
	}
	if _, member := members[id]; !member {
		return domain.LeaveResult{}
	}
	delete(members, id)

	if groups, ok := m.joined[id]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(m.joined, id)
		}
	}

	// If no one is left in the group, remove the group entirely
	if len(members) == 0 {
		delete(m.groups, group)
		return domain.LeaveResult{Left: true, Removed: true}
	}
	return domain.LeaveResult{Left: true}
}

// Members returns a snapshot of the group members, empty for unknown groups.
func (m *GroupMembership) Members(group domain.GroupName) []contract.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.groups[group]
	if !ok {
		return nil
	}
	return lo.Values(members)
}

// OpenGroups lists every non-empty group in lexical order.
func (m *GroupMembership) OpenGroups() []domain.GroupName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := lo.Keys(m.groups)
	slices.Sort(names)
	return names
}

// RemoveConnectionFromAllGroups is the disconnect cleanup. It is idempotent:
// a second call finds nothing and returns nil.
func (m *GroupMembership) RemoveConnectionFromAllGroups(id domain.ConnectionID) []domain.GroupChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.joined[id]
	if !ok {
		return nil
	}
	names := lo.Keys(groups)
	slices.Sort(names)

	changes := make([]domain.GroupChange, 0, len(names))
	for _, group := range names {
		res := m.leave(group, id)
		if res.Left {
			changes = append(changes, domain.GroupChange{Group: group, Removed: res.Removed})
		}
	}
	return changes
}

// GroupsOf returns the groups a connection belongs to, sorted.
func (m *GroupMembership) GroupsOf(id domain.ConnectionID) []domain.GroupName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := lo.Keys(m.joined[id])
	slices.Sort(names)
	return names
}
