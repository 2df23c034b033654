package sink

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConnectionSink is the outbound FIFO of one live connection.
// Producers (router, dispatcher) enqueue frames; the transport writer
// goroutine is the single consumer, so frames leave in enqueue order.
type ConnectionSink struct {
	id      domain.ConnectionID
	log     *slog.Logger
	outbox  chan protocol.Frame
	timeout time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewConnectionSink(log *slog.Logger, id domain.ConnectionID, bufferSize int, timeout time.Duration) *ConnectionSink {
	return &ConnectionSink{
		id:      id,
		log:     log,
		outbox:  make(chan protocol.Frame, bufferSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (s *ConnectionSink) ID() domain.ConnectionID {
	return s.id
}

// Deliver is called by the router.
// It encodes the event and waits at most the delivery timeout for room in
// the outbox, a full outbox means a stuck client and the event is dropped.
func (s *ConnectionSink) Deliver(ctx context.Context, e domain.Event) error {
	f, err := protocol.EventFrame(e)
	if err != nil {
		return err
	}
	return s.Reply(ctx, f)
}

// Reply enqueues an already built frame, used for invocation results.
func (s *ConnectionSink) Reply(ctx context.Context, f protocol.Frame) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case s.outbox <- f:
		return nil
	default:
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case s.outbox <- f:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Warn("Outbox full, frame dropped", "connection_id", s.id, "method", f.Method)
		return errors.ErrDeliveryTimeout
	}
}

// Outbox is drained by the transport writer goroutine.
func (s *ConnectionSink) Outbox() <-chan protocol.Frame {
	return s.outbox
}

// Done is closed once the connection is closing.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close makes every further delivery fail. Safe to call several times.
// The outbox channel itself is never closed so a late producer cannot panic.
func (s *ConnectionSink) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Pending is the number of frames waiting to be written.
func (s *ConnectionSink) Pending() int {
	return len(s.outbox)
}

func (s *ConnectionSink) Capacity() int {
	return cap(s.outbox)
}
