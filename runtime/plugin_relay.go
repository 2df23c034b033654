package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

// PluginRelay forwards the three-step plugin transfer between two users.
// The server keeps no handshake state: every step is a plain private send,
// so a step may arrive out of order or be repeated and is still relayed.
type PluginRelay struct {
	log    *slog.Logger
	router contract.IRouter
}

func NewPluginRelay(log *slog.Logger, router contract.IRouter) *PluginRelay {
	return &PluginRelay{log: log, router: router}
}

// RequestTransfer asks target to share its whiteboard plugin.
func (p *PluginRelay) RequestTransfer(ctx context.Context, from domain.ConnectionID, target domain.Username) (int, error) {
	return p.relay(ctx, "request", from, target, domain.ReceiveWhiteboardPluginRequest)
}

// AcceptTransfer tells the requester that the target agreed to send the file.
func (p *PluginRelay) AcceptTransfer(ctx context.Context, from domain.ConnectionID, requester domain.Username) (int, error) {
	return p.relay(ctx, "accept", from, requester, domain.ReceivePluginFileRequest)
}

// TransferPayload carries the plugin bytes to target as is.
func (p *PluginRelay) TransferPayload(ctx context.Context, from domain.ConnectionID, target domain.Username, payload []byte) (int, error) {
	return p.relay(ctx, "payload", from, target, domain.ReceivePluginFile, payload)
}

// SendWhiteboardLine relays one stroke either to a user or to a group.
// Group strokes echo back to the sender like any group message.
func (p *PluginRelay) SendWhiteboardLine(ctx context.Context, from domain.ConnectionID, target string, isGroup bool, line domain.Line) (int, error) {
	if isGroup {
		return p.router.SendGroup(ctx, from, domain.GroupName(target), domain.ReceiveWhiteboardLine, line.Args()...)
	}
	return p.router.SendPrivate(ctx, from, domain.Username(target), domain.ReceiveWhiteboardLine, line.Args()...)
}

func (p *PluginRelay) relay(ctx context.Context, step string, from domain.ConnectionID, target domain.Username,
	name domain.EventName, args ...any) (int, error) {
	delivered, err := p.router.SendPrivate(ctx, from, target, name, args...)
	if err != nil {
		return 0, err
	}
	p.log.Debug("Plugin transfer relayed", "step", step, "target", target, "delivered", delivered)
	return delivered, nil
}
