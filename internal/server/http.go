package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/chatterm/internal/metrics"
	"github.com/raphaelgruber/chatterm/internal/models"
	"github.com/raphaelgruber/chatterm/internal/tools"
)

// Session is the conversation served to websocket clients.
type Session interface {
	tools.Session
	Subscribe(fn func(models.Snapshot)) (cancel func())
}

// Server serves a single shared session over HTTP.
//
//	GET /ws      websocket: snapshots out, submit/reset commands in
//	GET /health  liveness probe
//	GET /stats   collaborator metrics as JSON
type Server struct {
	session Session
	stats   *metrics.Collector
	logger  *slog.Logger

	// ctx scopes submissions. They outlive the websocket that sent them so
	// other clients still see the reply.
	ctx context.Context

	upgrader websocket.Upgrader
}

// NewHTTP creates the HTTP server. stats may be nil, in which case /stats
// responds 404.
func NewHTTP(session Session, stats *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		session: session,
		stats:   stats,
		logger:  logger,
		ctx:     context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", s.handleStats)
	return HTTPLogging(s.logger, mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.ctx = ctx

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket endpoint available", "url", fmt.Sprintf("ws://%s/ws", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats.Snapshot()); err != nil {
		s.logger.Warn("encode stats failed", "error", err)
	}
}
