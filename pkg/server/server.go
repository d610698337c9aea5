// Package server offers autumn REPL sessions over WebSocket.
//
// A client first obtains a token by posting the server password to /token,
// then opens /session with that token. Every text message sent on the
// session is evaluated in the session's own environment; see Result and
// Output for the replies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("autumn.server")
}

type Config struct {
	Addr         string
	Secret       []byte        // HMAC key for session tokens
	PasswordHash string        // bcrypt hash of the server password
	TokenTTL     time.Duration // defaults to one hour
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	nextID   atomic.Int64
	active   atomic.Int64
}

func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("no token secret configured (serve.secret)")
	}
	if cfg.PasswordHash == "" {
		return nil, errors.New("no password hash configured (serve.password_hash)")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/token", s.handleToken)
	s.mux.HandleFunc("/session", s.handleSession)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Active returns the number of open sessions.
func (s *Server) Active() int64 {
	return s.active.Load()
}

// ListenAndServe serves until ctx is cancelled. Open sessions are not
// interrupted by the shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		tracer().Infof("listening on %s", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !VerifyPassword(s.cfg.PasswordHash, r.FormValue("password")) {
		tracer().Infof("token refused for %s", r.RemoteAddr)
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return
	}
	token, err := SignToken(s.cfg.Secret, s.cfg.TokenTTL)
	if err != nil {
		tracer().Errorf("signing token: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if err := VerifyToken(requestToken(r), s.cfg.Secret); err != nil {
		tracer().Infof("session refused for %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		tracer().Errorf("websocket upgrade failed: %v", err)
		return
	}

	id := s.nextID.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)
	tracer().Infof("session %d opened from %s", id, r.RemoteAddr)
	newSession(id, conn).serve()
	tracer().Infof("session %d closed", id)
}
