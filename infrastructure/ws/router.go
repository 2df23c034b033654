// Package ws serves the chat protocol over WebSocket next to a few plain
// HTTP endpoints: health, stats and document download.
package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/sink"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type DocumentLoader interface {
	Load(ctx context.Context, id string) (domain.Document, error)
}

type TokenValidator interface {
	Validate(token string) (domain.Username, error)
}

type StatsSource interface {
	GetLatest() observability.MonitoringStats
}

type Server struct {
	log          *slog.Logger
	pump         *sink.Pump
	stats        StatsSource
	documents    DocumentLoader
	tokens       TokenValidator
	maxFrameSize int64
	upgrader     websocket.Upgrader
}

func NewServer(log *slog.Logger, pump *sink.Pump, stats StatsSource, documents DocumentLoader, tokens TokenValidator, maxFrameSize int) *Server {
	return &Server{
		log:          log,
		pump:         pump,
		stats:        stats,
		documents:    documents,
		tokens:       tokens,
		maxFrameSize: int64(maxFrameSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers and native clients are both served, there is no origin to trust
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router exposes /ws, /healthz, /stats and /documents/{id}.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.serveWebSocket)
	r.Get("/healthz", s.health)
	r.Get("/stats", s.serveStats)
	r.Get("/documents/{id}", s.download)
	return r
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.log.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.log.Debug("WebSocket connected", "remote", r.RemoteAddr, "request_id", middleware.GetReqID(r.Context()))

	if err = s.pump.Serve(r.Context(), newFrameConn(conn, s.maxFrameSize)); err != nil {
		s.log.Debug("WebSocket closed with error", "remote", r.RemoteAddr, "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) serveStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats.GetLatest()); err != nil {
		s.log.Error("Stats encoding failed", "error", err)
	}
}

// download needs the session token pushed to the client after login.
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "authorization token is missing", http.StatusUnauthorized)
		return
	}
	identity, err := s.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := s.documents.Load(r.Context(), id)
	switch {
	case goerrors.Is(err, errors.ErrDocumentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("Document download failed", "id", id, "user", identity, "error", err)
		http.Error(w, errors.ErrOperationFailed.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("Document downloaded", "id", id, "user", identity)
	w.Header().Set("Content-Type", string(doc.MimeType))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	_, _ = w.Write(doc.Content)
}
