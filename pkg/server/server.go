package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/supervisor"
	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
)

// Auth headers checked on the websocket upgrade request.
const (
	headerUserID   = "X-User-Id"
	headerRole     = "X-User-Role"
	headerProjects = "X-Assigned-Projects"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server exposes the query pipeline over a websocket endpoint plus a
// health probe.
type Server struct {
	sup  *supervisor.Supervisor
	http *http.Server

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// New builds the HTTP server bound to addr.
func New(addr string, sup *supervisor.Supervisor) *Server {
	s := &Server{
		sup:   sup,
		conns: make(map[*conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *Server) Serve() error {
	logging.Default().Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return goerr.Wrap(err, "server terminated")
	}
	return nil
}

// Shutdown stops accepting upgrades and closes every live connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.mu.Unlock()

	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromRequest(r)
	if err != nil {
		logging.From(r.Context()).Warn("rejected websocket upgrade", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.From(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(ws, claims, s.sup)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	c.run(r.Context())
}

// claimsFromRequest builds auth claims from the upgrade headers. An
// unknown role yields deny-everything claims rather than a rejected
// upgrade, so the caller still receives well-formed error frames.
func claimsFromRequest(r *http.Request) (*model.AuthClaims, error) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		return nil, goerr.New("missing user id header")
	}

	rawRole := r.Header.Get(headerRole)
	// Unrecognized roles keep RoleUnknown, which denies everything
	// downstream; the upgrade itself succeeds so the client gets
	// well-formed error frames.
	role, _ := model.ParseRole(rawRole)
	claims := &model.AuthClaims{
		UserID:  userID,
		Role:    role,
		RawRole: rawRole,
	}

	for _, p := range strings.Split(r.Header.Get(headerProjects), ",") {
		if p = strings.TrimSpace(p); p != "" {
			claims.AssignedProjects = append(claims.AssignedProjects, p)
		}
	}
	return claims, nil
}
