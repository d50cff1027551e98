package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sipeed/picochat/pkg/auth"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
	"github.com/sipeed/picochat/pkg/session"
)

const sessionCookie = "picochat_session"

// Server is the HTTP front of the chat widget: login gate, chat page, JSON
// API and a WebSocket feed of surface events.
type Server struct {
	addr      string
	gate      *auth.Gate
	sessions  *session.Registry
	cookieTTL time.Duration
	upgrader  websocket.Upgrader
	server    *http.Server
	handler   http.Handler
}

func NewServer(addr string, gate *auth.Gate, sessions *session.Registry, cookieTTL time.Duration) *Server {
	s := &Server{
		addr:      addr,
		gate:      gate,
		sessions:  sessions,
		cookieTTL: cookieTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.requireAuth(s.handleUI))
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/state", s.requireAuthAPI(s.handleState))
	mux.HandleFunc("POST /api/chat/send", s.requireAuthAPI(s.handleSend))
	mux.HandleFunc("POST /api/chat/new", s.requireAuthAPI(s.handleNewChat))
	mux.HandleFunc("GET /api/history", s.requireAuthAPI(s.handleHistory))
	mux.HandleFunc("POST /api/history/toggle", s.requireAuthAPI(s.handleToggleHistory))
	mux.HandleFunc("POST /api/history/{index}/load", s.requireAuthAPI(s.handleLoadHistory))
	mux.HandleFunc("POST /api/folders", s.requireAuthAPI(s.handleNewFolder))
	mux.HandleFunc("POST /api/files", s.requireAuthAPI(s.handleUpload))
	mux.HandleFunc("POST /api/profile/show", s.requireAuthAPI(s.handleProfile(true)))
	mux.HandleFunc("POST /api/profile/hide", s.requireAuthAPI(s.handleProfile(false)))
	mux.HandleFunc("GET /ws", s.requireAuthAPI(s.handleWS))

	return instrument(mux)
}

// Handler exposes the routes without a listener, e.g. for serverless hosts.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoCF("webchat", "WebChat started", map[string]interface{}{"addr": ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.InfoC("webchat", "WebChat stopped")
		return nil
	}
}

// currentSession resolves the request's session cookie.
func (s *Server) currentSession(r *http.Request) (*session.Session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(cookie.Value)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// requireAuth redirects anonymous browsers to the login page.
func (s *Server) requireAuth(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}

// requireAuthAPI is like requireAuth but returns 401 JSON for API endpoints.
func (s *Server) requireAuthAPI(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, sess)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnCF("webchat", "Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}
