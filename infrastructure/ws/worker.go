package ws

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownGrace = 5 * time.Second

// Worker runs the HTTP server under the supervisor.
type Worker struct {
	log     *slog.Logger
	handler http.Handler
	address string
}

func NewWorker(log *slog.Logger, handler http.Handler, address string) *Worker {
	return &Worker{log: log, handler: handler, address: address}
}

func (w *Worker) Name() string {
	return "http-server"
}

func (w *Worker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	return w.Serve(ctx, listener)
}

// Serve blocks until ctx ends. Hijacked websockets are not tracked by
// Shutdown, their pumps stop through the request context.
func (w *Worker) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP shutdown incomplete", "error", err)
		}
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}
}
