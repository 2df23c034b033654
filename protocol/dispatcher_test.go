package protocol

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type noopConn struct{}

func (noopConn) ID() domain.ConnectionID                     { return "conn-1" }
func (noopConn) Deliver(context.Context, domain.Event) error { return nil }

// stubHandler records the last call and answers canned values.
type stubHandler struct {
	calls    []string
	lastArgs []any
	fail     error
}

func (h *stubHandler) record(name string, args ...any) {
	h.calls = append(h.calls, name)
	h.lastArgs = args
}

func (h *stubHandler) Login(_ context.Context, _ *runtime.Session, u domain.Username, pw string) (bool, error) {
	h.record("Login", u, pw)
	return pw == "good", h.fail
}

func (h *stubHandler) Register(_ context.Context, u domain.Username, pw string) (bool, error) {
	h.record("Register", u, pw)
	return true, h.fail
}

func (h *stubHandler) Logout(context.Context, *runtime.Session) { h.record("Logout") }

func (h *stubHandler) SendPrivateMessage(_ context.Context, _ *runtime.Session, target domain.Username, text string) (int, error) {
	h.record("SendPrivateMessage", target, text)
	return 2, h.fail
}

func (h *stubHandler) JoinGroup(_ context.Context, _ *runtime.Session, g domain.GroupName) (bool, error) {
	h.record("JoinGroup", g)
	return true, h.fail
}

func (h *stubHandler) LeaveGroup(_ context.Context, _ *runtime.Session, g domain.GroupName) (bool, error) {
	h.record("LeaveGroup", g)
	return true, h.fail
}

func (h *stubHandler) SendGroupMessage(_ context.Context, _ *runtime.Session, g domain.GroupName, text string) (int, error) {
	h.record("SendGroupMessage", g, text)
	return 3, h.fail
}

func (h *stubHandler) GetOpenGroups(context.Context) []domain.GroupName {
	h.record("GetOpenGroups")
	return nil
}

func (h *stubHandler) RequestPluginTransfer(_ context.Context, _ *runtime.Session, target domain.Username) (int, error) {
	h.record("RequestPluginTransfer", target)
	return 1, h.fail
}

func (h *stubHandler) AcceptPluginTransfer(_ context.Context, _ *runtime.Session, requester domain.Username) (int, error) {
	h.record("AcceptPluginTransfer", requester)
	return 1, h.fail
}

func (h *stubHandler) TransferPluginPayload(_ context.Context, _ *runtime.Session, target domain.Username, payload []byte) (int, error) {
	h.record("TransferPluginPayload", target, payload)
	return 1, h.fail
}

func (h *stubHandler) SendWhiteboardLine(_ context.Context, _ *runtime.Session, target string, isGroup bool, line domain.Line) (int, error) {
	h.record("SendWhiteboardLine", target, isGroup, line)
	return 1, h.fail
}

func (h *stubHandler) UploadDocument(_ context.Context, _ *runtime.Session, filename string, content []byte, author string, metadata string) (string, error) {
	h.record("UploadDocument", filename, content, author, metadata)
	return "doc-1", h.fail
}

func (h *stubHandler) DownloadDocument(_ context.Context, _ *runtime.Session, id string) (*domain.DownloadedDocument, error) {
	h.record("DownloadDocument", id)
	if id != "doc-1" {
		return nil, h.fail
	}
	return &domain.DownloadedDocument{Filename: "a.txt", Content: []byte("hi")}, h.fail
}

func (h *stubHandler) SearchDocuments(_ context.Context, _ *runtime.Session, query string) ([]domain.DocumentSummary, error) {
	h.record("SearchDocuments", query)
	return nil, h.fail
}

func (h *stubHandler) GetPlugins(context.Context) []domain.PluginInfo {
	h.record("GetPlugins")
	return []domain.PluginInfo{{ID: "commands"}}
}

func newDispatcher() (*Dispatcher, *stubHandler, *runtime.Session) {
	h := &stubHandler{}
	d := NewDispatcher(logs.GetLoggerFromLevel(slog.LevelDebug), h)
	return d, h, runtime.NewSession(noopConn{})
}

func invoke(t *testing.T, method Method, args ...any) Frame {
	t.Helper()
	f, err := InvokeFrame("42", method, args...)
	require.NoError(t, err)
	return f
}

func TestDispatcher_Routes_Arguments(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	d, h, s := newDispatcher()

	reply, closeAfter := d.Dispatch(ctx, s, invoke(t, Login, "alice", "good"))
	req.False(closeAfter)
	req.Equal("42", reply.ID)
	req.Equal(KindResult, reply.Kind)
	var ok bool
	req.NoError(reply.DecodeResult(&ok))
	req.True(ok)
	req.Equal([]any{domain.Username("alice"), "good"}, h.lastArgs)

	reply, _ = d.Dispatch(ctx, s, invoke(t, SendGroupMessage, "general", "hello"))
	var delivered int
	req.NoError(reply.DecodeResult(&delivered))
	req.Equal(3, delivered)
	req.Equal([]any{domain.GroupName("general"), "hello"}, h.lastArgs)

	reply, _ = d.Dispatch(ctx, s, invoke(t, TransferPluginPayload, "bob", []byte{1, 2, 3}))
	req.Nil(reply.Error)
	req.Equal([]any{domain.Username("bob"), []byte{1, 2, 3}}, h.lastArgs)

	reply, _ = d.Dispatch(ctx, s, invoke(t, SendWhiteboardLine, "general", true, 1.5, 2, 3, 4.25))
	req.Nil(reply.Error)
	req.Equal([]any{"general", true, domain.Line{X1: 1.5, Y1: 2, X2: 3, Y2: 4.25}}, h.lastArgs)

	reply, _ = d.Dispatch(ctx, s, invoke(t, UploadDocument, "a.txt", []byte("hi"), "", `{"k":"v"}`))
	var id string
	req.NoError(reply.DecodeResult(&id))
	req.Equal("doc-1", id)
}

func TestDispatcher_Empty_Lists_Are_Arrays(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	d, _, s := newDispatcher()

	reply, _ := d.Dispatch(ctx, s, invoke(t, GetOpenGroups))
	req.JSONEq(`[]`, string(reply.Result))

	reply, _ = d.Dispatch(ctx, s, invoke(t, SearchDocuments, "x"))
	req.JSONEq(`[]`, string(reply.Result))

	reply, _ = d.Dispatch(ctx, s, invoke(t, GetPlugins))
	var infos []domain.PluginInfo
	req.NoError(reply.DecodeResult(&infos))
	req.Len(infos, 1)
}

func TestDispatcher_Download(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	d, _, s := newDispatcher()

	reply, _ := d.Dispatch(ctx, s, invoke(t, DownloadDocument, "doc-1"))
	var doc *domain.DownloadedDocument
	req.NoError(reply.DecodeResult(&doc))
	req.Equal("a.txt", doc.Filename)
	req.Equal([]byte("hi"), doc.Content)

	// Unknown ids answer null
	reply, _ = d.Dispatch(ctx, s, invoke(t, DownloadDocument, "missing"))
	req.Nil(reply.Error)
	req.Equal("null", string(reply.Result))
}

func TestDispatcher_Logout_Closes(t *testing.T) {
	req := require.New(t)
	d, h, s := newDispatcher()

	reply, closeAfter := d.Dispatch(context.Background(), s, invoke(t, Logout))
	req.True(closeAfter)
	req.Nil(reply.Error)
	req.Equal([]string{"Logout"}, h.calls)
}

func TestDispatcher_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown method", func(t *testing.T) {
		req := require.New(t)
		d, h, s := newDispatcher()
		reply, closeAfter := d.Dispatch(ctx, s, Frame{ID: "1", Kind: KindInvoke, Method: "Dance"})
		req.False(closeAfter)
		req.Equal(errors.CodeUnknownMethod, reply.Error.Code)
		req.Empty(h.calls)
	})

	t.Run("wrong argument count", func(t *testing.T) {
		req := require.New(t)
		d, h, s := newDispatcher()
		reply, _ := d.Dispatch(ctx, s, invoke(t, Login, "alice"))
		req.Equal(errors.CodeInvalidArgument, reply.Error.Code)
		req.Empty(h.calls)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		req := require.New(t)
		d, _, s := newDispatcher()
		reply, _ := d.Dispatch(ctx, s, invoke(t, JoinGroup, 12))
		req.Equal(errors.CodeInvalidArgument, reply.Error.Code)
	})

	t.Run("not an invocation", func(t *testing.T) {
		req := require.New(t)
		d, _, s := newDispatcher()
		reply, _ := d.Dispatch(ctx, s, Frame{ID: "1", Kind: KindEvent, Method: string(Login)})
		req.Equal(errors.CodeInvalidArgument, reply.Error.Code)
	})

	t.Run("handler errors keep their code", func(t *testing.T) {
		req := require.New(t)
		d, h, s := newDispatcher()
		h.fail = errors.ErrNotAuthenticated
		reply, _ := d.Dispatch(ctx, s, invoke(t, JoinGroup, "general"))
		req.Equal(errors.CodeNotAuthenticated, reply.Error.Code)
		var target bool
		req.ErrorContains(reply.DecodeResult(&target), errors.CodeNotAuthenticated)
	})

	t.Run("internal errors do not leak", func(t *testing.T) {
		req := require.New(t)
		d, h, s := newDispatcher()
		h.fail = fmt.Errorf("badger: disk /var/lib/relay is full")
		reply, _ := d.Dispatch(ctx, s, invoke(t, Register, "alice", "password123"))
		req.Equal(errors.CodeOperationFailed, reply.Error.Code)
		req.NotContains(reply.Error.Message, "badger")
	})
}

func TestEventFrame(t *testing.T) {
	req := require.New(t)
	e := domain.NewEvent(domain.ReceiveGroupMessage, "alice", "hello")

	f, err := EventFrame(e)
	req.NoError(err)
	req.Equal(KindEvent, f.Kind)
	req.Equal(string(domain.ReceiveGroupMessage), f.Method)
	req.Equal(e.ID, f.ID)

	var sender, text string
	req.NoError(f.DecodeArgs(&sender, &text))
	req.Equal("alice", sender)
	req.Equal("hello", text)

	raw, err := json.Marshal(f)
	req.NoError(err)
	req.Contains(string(raw), `"kind":"event"`)
}
