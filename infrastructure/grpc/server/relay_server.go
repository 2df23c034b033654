package server

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/infrastructure/grpc/relay"
	"chat-relay/observability"
	"chat-relay/protocol"
	"chat-relay/sink"
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"google.golang.org/grpc"
)

type StatsSource interface {
	GetLatest() observability.MonitoringStats
}

// RelayServer serves the chat protocol over a gRPC bidirectional stream.
// Each stream is one connection: the pump owns its session.
type RelayServer struct {
	log   *slog.Logger
	pump  *sink.Pump
	stats StatsSource
}

var _ relay.RelayServer = (*RelayServer)(nil)

func NewRelayServer(log *slog.Logger, pump *sink.Pump, stats StatsSource) *RelayServer {
	return &RelayServer{log: log, pump: pump, stats: stats}
}

// Connect blocks until the client logs out, closes its side or goes away.
func (s *RelayServer) Connect(stream grpc.ServerStream) error {
	conn := newStreamConn(stream)
	if err := s.pump.Serve(stream.Context(), conn); err != nil {
		s.log.Debug("Stream ended with error", "error", err)
		return errors.MapToGRPCError(err)
	}
	return nil
}

func (s *RelayServer) Stats(ctx context.Context, _ *relay.StatsRequest) (*observability.MonitoringStats, error) {
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		s.log.Debug("Stats requested", "user", identity)
	}
	return lo.ToPtr(s.stats.GetLatest()), nil
}

type received struct {
	frame protocol.Frame
	err   error
}

// streamConn adapts a server stream to sink.FrameConn.
// A server stream cannot be closed from the handler, so reads go through a
// goroutine and Close releases the reader instead.
type streamConn struct {
	stream grpc.ServerStream
	frames chan received
	closed chan struct{}
	once   sync.Once
}

func newStreamConn(stream grpc.ServerStream) *streamConn {
	c := &streamConn{
		stream: stream,
		frames: make(chan received),
		closed: make(chan struct{}),
	}
	go c.receive()
	return c
}

func (c *streamConn) receive() {
	for {
		var f protocol.Frame
		err := c.stream.RecvMsg(&f)
		select {
		case c.frames <- received{frame: f, err: err}:
		case <-c.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *streamConn) ReadFrame() (protocol.Frame, error) {
	select {
	case r := <-c.frames:
		return r.frame, r.err
	case <-c.closed:
		return protocol.Frame{}, errors.ErrConnectionClosed
	}
}

func (c *streamConn) WriteFrame(f protocol.Frame) error {
	return c.stream.SendMsg(&f)
}

func (c *streamConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
