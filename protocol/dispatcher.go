package protocol

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/runtime"
	"context"
	"log/slog"
)

type Method string

const (
	Login                 Method = "Login"
	Register              Method = "Register"
	Logout                Method = "Logout"
	SendPrivateMessage    Method = "SendPrivateMessage"
	JoinGroup             Method = "JoinGroup"
	LeaveGroup            Method = "LeaveGroup"
	SendGroupMessage      Method = "SendGroupMessage"
	GetOpenGroups         Method = "GetOpenGroups"
	RequestPluginTransfer Method = "RequestPluginTransfer"
	AcceptPluginTransfer  Method = "AcceptPluginTransfer"
	TransferPluginPayload Method = "TransferPluginPayload"
	SendWhiteboardLine    Method = "SendWhiteboardLine"
	UploadDocument        Method = "UploadDocument"
	DownloadDocument      Method = "DownloadDocument"
	SearchDocuments       Method = "SearchDocuments"
	GetPlugins            Method = "GetPlugins"
)

// Handler is the set of chat operations a client may invoke.
type Handler interface {
	Login(ctx context.Context, s *runtime.Session, username domain.Username, password string) (bool, error)
	Register(ctx context.Context, username domain.Username, password string) (bool, error)
	Logout(ctx context.Context, s *runtime.Session)
	SendPrivateMessage(ctx context.Context, s *runtime.Session, target domain.Username, text string) (int, error)
	JoinGroup(ctx context.Context, s *runtime.Session, group domain.GroupName) (bool, error)
	LeaveGroup(ctx context.Context, s *runtime.Session, group domain.GroupName) (bool, error)
	SendGroupMessage(ctx context.Context, s *runtime.Session, group domain.GroupName, text string) (int, error)
	GetOpenGroups(ctx context.Context) []domain.GroupName
	RequestPluginTransfer(ctx context.Context, s *runtime.Session, target domain.Username) (int, error)
	AcceptPluginTransfer(ctx context.Context, s *runtime.Session, requester domain.Username) (int, error)
	TransferPluginPayload(ctx context.Context, s *runtime.Session, target domain.Username, payload []byte) (int, error)
	SendWhiteboardLine(ctx context.Context, s *runtime.Session, target string, isGroup bool, line domain.Line) (int, error)
	UploadDocument(ctx context.Context, s *runtime.Session, filename string, content []byte, author string, metadataJSON string) (string, error)
	DownloadDocument(ctx context.Context, s *runtime.Session, id string) (*domain.DownloadedDocument, error)
	SearchDocuments(ctx context.Context, s *runtime.Session, query string) ([]domain.DocumentSummary, error)
	GetPlugins(ctx context.Context) []domain.PluginInfo
}

type route func(ctx context.Context, s *runtime.Session, f Frame) (any, error)

// Dispatcher decodes invocations and calls the matching Handler operation.
// It runs on the connection reader goroutine, so invocations of one
// connection are handled strictly one after the other.
type Dispatcher struct {
	log     *slog.Logger
	handler Handler
	routes  map[Method]route
}

func NewDispatcher(log *slog.Logger, handler Handler) *Dispatcher {
	d := &Dispatcher{log: log, handler: handler}
	d.routes = map[Method]route{
		Login:                 d.login,
		Register:              d.register,
		Logout:                d.logout,
		SendPrivateMessage:    d.sendPrivateMessage,
		JoinGroup:             d.joinGroup,
		LeaveGroup:            d.leaveGroup,
		SendGroupMessage:      d.sendGroupMessage,
		GetOpenGroups:         d.getOpenGroups,
		RequestPluginTransfer: d.requestPluginTransfer,
		AcceptPluginTransfer:  d.acceptPluginTransfer,
		TransferPluginPayload: d.transferPluginPayload,
		SendWhiteboardLine:    d.sendWhiteboardLine,
		UploadDocument:        d.uploadDocument,
		DownloadDocument:      d.downloadDocument,
		SearchDocuments:       d.searchDocuments,
		GetPlugins:            d.getPlugins,
	}
	return d
}

// Dispatch handles one inbound frame and returns the reply to enqueue.
// closeAfter is set once the client asked to log out.
func (d *Dispatcher) Dispatch(ctx context.Context, s *runtime.Session, f Frame) (reply Frame, closeAfter bool) {
	if f.Kind != KindInvoke {
		return ErrorFrame(f.ID, f.Method, errors.ErrInvalidArgument), false
	}
	r, ok := d.routes[Method(f.Method)]
	if !ok {
		d.log.Debug("Unknown method", "method", f.Method, "connection_id", s.ID())
		return ErrorFrame(f.ID, f.Method, errors.ErrUnknownMethod), false
	}

	result, err := r(ctx, s, f)
	if err != nil {
		if errors.Code(err) == errors.CodeOperationFailed {
			d.log.Error("Invocation failed", "method", f.Method, "connection_id", s.ID(), "error", err)
		}
		return ErrorFrame(f.ID, f.Method, err), false
	}

	reply, err = ResultFrame(f.ID, f.Method, result)
	if err != nil {
		d.log.Error("Result encoding failed", "method", f.Method, "error", err)
		return ErrorFrame(f.ID, f.Method, err), false
	}
	return reply, Method(f.Method) == Logout
}

func (d *Dispatcher) login(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var username, password string
	if err := f.DecodeArgs(&username, &password); err != nil {
		return nil, err
	}
	return d.handler.Login(ctx, s, domain.Username(username), password)
}

func (d *Dispatcher) register(ctx context.Context, _ *runtime.Session, f Frame) (any, error) {
	var username, password string
	if err := f.DecodeArgs(&username, &password); err != nil {
		return nil, err
	}
	return d.handler.Register(ctx, domain.Username(username), password)
}

func (d *Dispatcher) logout(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	if err := f.DecodeArgs(); err != nil {
		return nil, err
	}
	d.handler.Logout(ctx, s)
	return true, nil
}

func (d *Dispatcher) sendPrivateMessage(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var target, text string
	if err := f.DecodeArgs(&target, &text); err != nil {
		return nil, err
	}
	return d.handler.SendPrivateMessage(ctx, s, domain.Username(target), text)
}

func (d *Dispatcher) joinGroup(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var group string
	if err := f.DecodeArgs(&group); err != nil {
		return nil, err
	}
	return d.handler.JoinGroup(ctx, s, domain.GroupName(group))
}

func (d *Dispatcher) leaveGroup(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var group string
	if err := f.DecodeArgs(&group); err != nil {
		return nil, err
	}
	return d.handler.LeaveGroup(ctx, s, domain.GroupName(group))
}

func (d *Dispatcher) sendGroupMessage(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var group, text string
	if err := f.DecodeArgs(&group, &text); err != nil {
		return nil, err
	}
	return d.handler.SendGroupMessage(ctx, s, domain.GroupName(group), text)
}

func (d *Dispatcher) getOpenGroups(ctx context.Context, _ *runtime.Session, f Frame) (any, error) {
	if err := f.DecodeArgs(); err != nil {
		return nil, err
	}
	groups := d.handler.GetOpenGroups(ctx)
	if groups == nil {
		groups = []domain.GroupName{}
	}
	return groups, nil
}

func (d *Dispatcher) requestPluginTransfer(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var target string
	if err := f.DecodeArgs(&target); err != nil {
		return nil, err
	}
	return d.handler.RequestPluginTransfer(ctx, s, domain.Username(target))
}

func (d *Dispatcher) acceptPluginTransfer(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var requester string
	if err := f.DecodeArgs(&requester); err != nil {
		return nil, err
	}
	return d.handler.AcceptPluginTransfer(ctx, s, domain.Username(requester))
}

// transferPluginPayload expects the bytes base64 encoded, which is how
// encoding/json carries a []byte.
func (d *Dispatcher) transferPluginPayload(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var target string
	var payload []byte
	if err := f.DecodeArgs(&target, &payload); err != nil {
		return nil, err
	}
	return d.handler.TransferPluginPayload(ctx, s, domain.Username(target), payload)
}

func (d *Dispatcher) sendWhiteboardLine(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var target string
	var isGroup bool
	var line domain.Line
	if err := f.DecodeArgs(&target, &isGroup, &line.X1, &line.Y1, &line.X2, &line.Y2); err != nil {
		return nil, err
	}
	return d.handler.SendWhiteboardLine(ctx, s, target, isGroup, line)
}

func (d *Dispatcher) uploadDocument(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var filename, author, metadata string
	var content []byte
	if err := f.DecodeArgs(&filename, &content, &author, &metadata); err != nil {
		return nil, err
	}
	return d.handler.UploadDocument(ctx, s, filename, content, author, metadata)
}

// downloadDocument answers null for an unknown id.
func (d *Dispatcher) downloadDocument(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var id string
	if err := f.DecodeArgs(&id); err != nil {
		return nil, err
	}
	doc, err := d.handler.DownloadDocument(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return doc, nil
}

func (d *Dispatcher) searchDocuments(ctx context.Context, s *runtime.Session, f Frame) (any, error) {
	var query string
	if err := f.DecodeArgs(&query); err != nil {
		return nil, err
	}
	hits, err := d.handler.SearchDocuments(ctx, s, query)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []domain.DocumentSummary{}
	}
	return hits, nil
}

func (d *Dispatcher) getPlugins(ctx context.Context, _ *runtime.Session, f Frame) (any, error) {
	if err := f.DecodeArgs(); err != nil {
		return nil, err
	}
	return d.handler.GetPlugins(ctx), nil
}
