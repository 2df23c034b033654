package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/samber/lo"
)

// RouterStats counts enqueue outcomes since start.
type RouterStats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Private   uint64 `json:"private"`
	Group     uint64 `json:"group"`
	System    uint64 `json:"system"`
}

// Router resolves destinations and hands events to connections.
// It never holds a registry or membership lock while delivering: targets are
// snapshots, and a slow or closing recipient only fails its own delivery.
type Router struct {
	log        *slog.Logger
	registry   contract.IConnectionRegistry
	membership contract.IGroupMembership

	delivered atomic.Uint64
	failed    atomic.Uint64
	private   atomic.Uint64
	group     atomic.Uint64
	system    atomic.Uint64
}

func NewRouter(log *slog.Logger, registry contract.IConnectionRegistry, membership contract.IGroupMembership) *Router {
	return &Router{log: log, registry: registry, membership: membership}
}

// SendPrivate delivers to every live connection of target.
// The sending connection itself is never a recipient, other devices of the
// same identity are. An offline target is not an error: the count is 0.
func (r *Router) SendPrivate(ctx context.Context, from domain.ConnectionID, target domain.Username,
	name domain.EventName, args ...any) (int, error) {
	sender, ok := r.registry.IdentityOf(from)
	if !ok {
		return 0, errors.ErrNotAuthenticated
	}
	r.private.Add(1)

	targets := lo.Filter(r.registry.ConnectionsOf(target), func(c contract.Connection, _ int) bool {
		return c.ID() != from
	})
	if len(targets) == 0 {
		r.log.Debug("Private target offline", "user", sender, "target", target)
		return 0, nil
	}
	return r.deliver(ctx, targets, domain.NewEvent(name, sender, args...)), nil
}

// SendGroup delivers to every member of the group, the sender included when
// it is a member. Unknown groups yield 0.
func (r *Router) SendGroup(ctx context.Context, from domain.ConnectionID, group domain.GroupName,
	name domain.EventName, args ...any) (int, error) {
	sender, ok := r.registry.IdentityOf(from)
	if !ok {
		return 0, errors.ErrNotAuthenticated
	}
	r.group.Add(1)

	members := r.membership.Members(group)
	if len(members) == 0 {
		return 0, nil
	}
	return r.deliver(ctx, members, domain.NewEvent(name, sender, args...)), nil
}

// SendGroupSystem pushes a system text to the current members of a group.
func (r *Router) SendGroupSystem(ctx context.Context, group domain.GroupName, text string) int {
	members := r.membership.Members(group)
	if len(members) == 0 {
		return 0
	}
	return r.deliver(ctx, members, domain.NewEvent(domain.ReceiveSystemMessage, "", text))
}

// BroadcastSystem delivers to every bound connection. It never fails for
// routing reasons.
func (r *Router) BroadcastSystem(ctx context.Context, name domain.EventName, args ...any) int {
	r.system.Add(1)
	return r.deliver(ctx, r.registry.Connections(), domain.NewEvent(name, "", args...))
}

// BroadcastGroupList pushes the current open-group list to everyone.
func (r *Router) BroadcastGroupList(ctx context.Context) int {
	groups := lo.Map(r.membership.OpenGroups(), func(g domain.GroupName, _ int) string {
		return g.String()
	})
	return r.BroadcastSystem(ctx, domain.ReceiveGroupList, groups)
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
		Private:   r.private.Load(),
		Group:     r.group.Load(),
		System:    r.system.Load(),
	}
}

// deliver enqueues one event per target, in slice order.
// A failing target is logged and skipped, the others still receive.
func (r *Router) deliver(ctx context.Context, targets []contract.Connection, evt domain.Event) int {
	delivered := 0
	for _, conn := range targets {
		if err := conn.Deliver(ctx, evt); err != nil {
			r.failed.Add(1)
			r.log.Debug("Delivery skipped",
				"connection_id", conn.ID(),
				"event", evt.Name,
				"error", err)
			continue
		}
		delivered++
	}
	r.delivered.Add(uint64(delivered))
	return delivered
}
