package client

import (
	"chat-relay/errors"
	"chat-relay/infrastructure/grpc/relay"
	"chat-relay/observability"
	"chat-relay/protocol"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rs/xid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RelayClient opens chat streams and queries stats on a relay server.
type RelayClient struct {
	log  *slog.Logger
	conn grpc.ClientConnInterface
}

func NewRelayClient(log *slog.Logger, conn grpc.ClientConnInterface) *RelayClient {
	return &RelayClient{log: log, conn: conn}
}

// Stats needs the session token pushed after login.
func (c *RelayClient) Stats(ctx context.Context, token string) (observability.MonitoringStats, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	var out observability.MonitoringStats
	err := c.conn.Invoke(ctx, relay.StatsMethod, &relay.StatsRequest{}, &out, grpc.CallContentSubtype(relay.CodecName))
	return out, err
}

// Connect opens one chat connection. Events must be drained by the caller,
// the stream stops reading while the events buffer is full.
func (c *RelayClient) Connect(ctx context.Context, eventBuffer int) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(ctx, relay.ConnectStreamDesc, relay.ConnectMethod, grpc.CallContentSubtype(relay.CodecName))
	if err != nil {
		cancel()
		return nil, err
	}
	s := &Stream{
		log:     c.log,
		stream:  stream,
		cancel:  cancel,
		pending: make(map[string]chan protocol.Frame),
		events:  make(chan protocol.Frame, eventBuffer),
		done:    make(chan struct{}),
	}
	go s.receive()
	return s, nil
}

// Stream is a client connection: invocations are matched to their results
// by id, events are forwarded on Events.
type Stream struct {
	log    *slog.Logger
	stream grpc.ClientStream
	cancel context.CancelFunc

	sendMu  sync.Mutex
	mu      sync.Mutex
	pending map[string]chan protocol.Frame
	events  chan protocol.Frame
	done    chan struct{}
	err     error
}

func (s *Stream) Events() <-chan protocol.Frame {
	return s.events
}

// Done is closed once the server ended the stream.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err is the reason the stream ended, nil for a clean end.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Invoke sends one invocation and waits for its result.
// The result is decoded into out when out is not nil.
func (s *Stream) Invoke(ctx context.Context, method protocol.Method, out any, args ...any) error {
	id := xid.New().String()
	f, err := protocol.InvokeFrame(id, method, args...)
	if err != nil {
		return err
	}

	reply := make(chan protocol.Frame, 1)
	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	s.sendMu.Lock()
	err = s.stream.SendMsg(&f)
	s.sendMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case r := <-reply:
		return decode(r, out)
	case <-s.done:
		// The server may end the stream right after answering, as for Logout
		select {
		case r := <-reply:
			return decode(r, out)
		default:
			return errors.ErrConnectionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decode(r protocol.Frame, out any) error {
	if out == nil {
		if r.Error != nil {
			return r.Error
		}
		return nil
	}
	return r.DecodeResult(out)
}

// Close ends the sending side and releases the stream.
func (s *Stream) Close() error {
	s.sendMu.Lock()
	err := s.stream.CloseSend()
	s.sendMu.Unlock()
	s.cancel()
	return err
}

func (s *Stream) receive() {
	defer close(s.done)
	defer close(s.events)
	for {
		var f protocol.Frame
		if err := s.stream.RecvMsg(&f); err != nil {
			s.finish(err)
			return
		}
		switch f.Kind {
		case protocol.KindResult:
			s.mu.Lock()
			reply, ok := s.pending[f.ID]
			s.mu.Unlock()
			if !ok {
				s.log.Debug("Result without pending invocation", "id", f.ID, "method", f.Method)
				continue
			}
			reply <- f
		case protocol.KindEvent:
			select {
			case s.events <- f:
			case <-s.stream.Context().Done():
				s.finish(s.stream.Context().Err())
				return
			}
		}
	}
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !goerrors.Is(err, io.EOF) {
		s.err = err
	}
}
