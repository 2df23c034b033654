package sink

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime"
	"context"
	goerrors "errors"
	"io"
	"log/slog"
	"time"
)

// FrameConn is what a transport exposes to the pump.
// ReadFrame wraps ErrInvalidArgument when the bytes received are not a frame.
type FrameConn interface {
	ReadFrame() (protocol.Frame, error)
	WriteFrame(f protocol.Frame) error
	Close() error
}

type Lifecycle interface {
	Open(conn contract.Connection) *runtime.Session
	Disconnect(ctx context.Context, session *runtime.Session)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, s *runtime.Session, f protocol.Frame) (protocol.Frame, bool)
}

type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	FrameIn()
	FrameOut()
}

// Pump runs one live connection: a reader loop on the calling goroutine
// and a writer goroutine, the only one touching the transport for writes.
type Pump struct {
	log        *slog.Logger
	lifecycle  Lifecycle
	dispatcher Dispatcher
	metrics    Metrics
	bufferSize int
	timeout    time.Duration
}

func NewPump(log *slog.Logger, lifecycle Lifecycle, dispatcher Dispatcher, metrics Metrics, bufferSize int, timeout time.Duration) *Pump {
	return &Pump{
		log:        log,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		metrics:    metrics,
		bufferSize: bufferSize,
		timeout:    timeout,
	}
}

// Serve blocks until the client leaves, the transport fails or ctx ends.
// The session is always disconnected before Serve returns.
func (p *Pump) Serve(ctx context.Context, conn FrameConn) error {
	sink := NewConnectionSink(p.log, domain.NewConnectionID(), p.bufferSize, p.timeout)
	session := p.lifecycle.Open(sink)
	p.metrics.ConnectionOpened()
	defer p.metrics.ConnectionClosed()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		p.write(conn, sink)
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err := p.read(ctx, conn, sink, session)

	p.lifecycle.Disconnect(context.WithoutCancel(ctx), session)
	sink.Close()
	<-writerDone
	_ = conn.Close()

	if err == nil || goerrors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *Pump) read(ctx context.Context, conn FrameConn, sink *ConnectionSink, session *runtime.Session) error {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			if goerrors.Is(err, errors.ErrInvalidArgument) {
				p.log.Debug("Malformed frame", "connection_id", sink.ID(), "error", err)
				if err = sink.Reply(ctx, protocol.ErrorFrame("", "", err)); err != nil {
					return err
				}
				continue
			}
			return err
		}
		p.metrics.FrameIn()

		reply, closeAfter := p.dispatcher.Dispatch(ctx, session, f)
		if err = sink.Reply(ctx, reply); err != nil {
			p.log.Debug("Reply not queued", "connection_id", sink.ID(), "method", f.Method, "error", err)
		}
		if closeAfter {
			return nil
		}
	}
}

// write drains the outbox until the sink is closed, then flushes what is
// already queued so a logout reply still reaches the client.
func (p *Pump) write(conn FrameConn, sink *ConnectionSink) {
	for {
		select {
		case f := <-sink.Outbox():
			if !p.send(conn, sink, f) {
				return
			}
		case <-sink.Done():
			for {
				select {
				case f := <-sink.Outbox():
					if !p.send(conn, sink, f) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (p *Pump) send(conn FrameConn, sink *ConnectionSink, f protocol.Frame) bool {
	if err := conn.WriteFrame(f); err != nil {
		p.log.Debug("Write failed, closing connection", "connection_id", sink.ID(), "error", err)
		sink.Close()
		_ = conn.Close()
		return false
	}
	p.metrics.FrameOut()
	return true
}
