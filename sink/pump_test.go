package sink_test

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// pipeConn feeds queued frames to the pump and records what it writes.
type pipeConn struct {
	in      chan protocol.Frame
	bad     chan struct{}
	mu      sync.Mutex
	out     []protocol.Frame
	closed  chan struct{}
	once    sync.Once
	failOut bool
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan protocol.Frame, 16),
		bad:    make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) ReadFrame() (protocol.Frame, error) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return protocol.Frame{}, io.EOF
		}
		return f, nil
	case <-c.bad:
		return protocol.Frame{}, fmt.Errorf("%w: not json", errors.ErrInvalidArgument)
	case <-c.closed:
		return protocol.Frame{}, io.ErrClosedPipe
	}
}

func (c *pipeConn) WriteFrame(f protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOut {
		return io.ErrClosedPipe
	}
	c.out = append(c.out, f)
	return nil
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) Written() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Frame(nil), c.out...)
}

type fakeLifecycle struct {
	mu           sync.Mutex
	opened       []contract.Connection
	disconnected int
}

func (l *fakeLifecycle) Open(conn contract.Connection) *runtime.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, conn)
	return runtime.NewSession(conn)
}

func (l *fakeLifecycle) Disconnect(_ context.Context, _ *runtime.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnected++
}

func (l *fakeLifecycle) Disconnected() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disconnected
}

// echoDispatcher answers every invocation with its method name.
type echoDispatcher struct{}

func (echoDispatcher) Dispatch(_ context.Context, _ *runtime.Session, f protocol.Frame) (protocol.Frame, bool) {
	reply, _ := protocol.ResultFrame(f.ID, f.Method, f.Method)
	return reply, protocol.Method(f.Method) == protocol.Logout
}

type counters struct {
	opened, closed, in, out atomic.Int64
}

func (c *counters) ConnectionOpened() { c.opened.Add(1) }
func (c *counters) ConnectionClosed() { c.closed.Add(1) }
func (c *counters) FrameIn()          { c.in.Add(1) }
func (c *counters) FrameOut()         { c.out.Add(1) }

func newPump(lifecycle *fakeLifecycle, metrics *counters) *sink.Pump {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return sink.NewPump(log, lifecycle, echoDispatcher{}, metrics, 8, time.Second)
}

func TestPump_Replies_In_Order_And_Stops_On_Logout(t *testing.T) {
	req := require.New(t)
	lifecycle := &fakeLifecycle{}
	metrics := &counters{}
	conn := newPipeConn()

	conn.in <- protocol.Frame{ID: "1", Kind: protocol.KindInvoke, Method: string(protocol.GetOpenGroups)}
	conn.in <- protocol.Frame{ID: "2", Kind: protocol.KindInvoke, Method: string(protocol.GetPlugins)}
	conn.in <- protocol.Frame{ID: "3", Kind: protocol.KindInvoke, Method: string(protocol.Logout)}
	conn.in <- protocol.Frame{ID: "4", Kind: protocol.KindInvoke, Method: string(protocol.GetPlugins)}

	req.NoError(newPump(lifecycle, metrics).Serve(context.Background(), conn))

	// The logout reply is flushed, the frame after it is never read
	written := conn.Written()
	req.Len(written, 3)
	for i, f := range written {
		req.Equal(fmt.Sprint(i+1), f.ID)
		req.Equal(protocol.KindResult, f.Kind)
	}
	req.Equal(1, lifecycle.Disconnected())
	req.EqualValues(3, metrics.in.Load())
	req.EqualValues(3, metrics.out.Load())
	req.EqualValues(1, metrics.opened.Load())
	req.EqualValues(1, metrics.closed.Load())
}

func TestPump_Malformed_Frame_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	lifecycle := &fakeLifecycle{}
	conn := newPipeConn()

	conn.bad <- struct{}{}
	done := make(chan error, 1)
	go func() { done <- newPump(lifecycle, &counters{}).Serve(context.Background(), conn) }()

	req.Eventually(func() bool { return len(conn.Written()) == 1 }, time.Second, 5*time.Millisecond)
	conn.in <- protocol.Frame{ID: "1", Kind: protocol.KindInvoke, Method: string(protocol.GetOpenGroups)}
	close(conn.in)

	req.NoError(<-done)
	written := conn.Written()
	req.Len(written, 2)
	req.NotNil(written[0].Error)
	req.Equal(errors.CodeInvalidArgument, written[0].Error.Code)
	req.Equal("1", written[1].ID)
	req.Nil(written[1].Error)
}

func TestPump_Context_Cancel_Disconnects(t *testing.T) {
	req := require.New(t)
	lifecycle := &fakeLifecycle{}
	conn := newPipeConn()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newPump(lifecycle, &counters{}).Serve(ctx, conn) }()

	req.Eventually(func() bool {
		lifecycle.mu.Lock()
		defer lifecycle.mu.Unlock()
		return len(lifecycle.opened) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("pump did not stop on cancel")
	}
	req.Equal(1, lifecycle.Disconnected())
}

func TestPump_Write_Failure_Ends_Session(t *testing.T) {
	req := require.New(t)
	lifecycle := &fakeLifecycle{}
	conn := newPipeConn()
	conn.failOut = true

	conn.in <- protocol.Frame{ID: "1", Kind: protocol.KindInvoke, Method: string(protocol.GetOpenGroups)}

	err := newPump(lifecycle, &counters{}).Serve(context.Background(), conn)
	req.ErrorIs(err, io.ErrClosedPipe)
	req.Equal(1, lifecycle.Disconnected())
	req.Empty(conn.Written())
}
