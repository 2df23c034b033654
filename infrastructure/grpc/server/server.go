package server

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/grpc/relay"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
)

// NewGRPCServer builds the server with logging and token checks on unary
// calls. The stream itself authenticates through Login.
func NewGRPCServer(log *slog.Logger, relayServer *RelayServer, tokens *auth.TokenIssuer, maxFrameSize int) *grpc.Server {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxFrameSize),
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(log),
			auth.AuthInterceptor(tokens),
		))
	relay.RegisterRelayServer(s, relayServer)
	return s
}

// Open streams only end when their client leaves, so a graceful stop is
// cut short after this delay.
const shutdownGrace = 5 * time.Second

// Worker runs the gRPC server under the supervisor.
type Worker struct {
	log     *slog.Logger
	server  *grpc.Server
	address string
}

func NewWorker(log *slog.Logger, server *grpc.Server, address string) *Worker {
	return &Worker{log: log, server: server, address: address}
}

func (w *Worker) Name() string {
	return "grpc-server"
}

func (w *Worker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	return w.Serve(ctx, listener)
}

// Serve blocks until ctx ends, then stops gracefully.
func (w *Worker) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", listener.Addr().String(), "at", time.Now().UTC())
		for serviceName := range w.server.GetServiceInfo() {
			w.log.Debug("gRPC exposed service", "name", serviceName)
		}
		errChan <- w.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping gRPC server")
		w.stop()
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil && !goerrors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	}
}

func (w *Worker) stop() {
	stopped := make(chan struct{})
	go func() {
		w.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		w.log.Warn("Graceful stop timed out, closing open streams")
		w.server.Stop()
	}
}
