package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corvid/transcriptkeeper/internal/activitylog"
	"github.com/corvid/transcriptkeeper/internal/session"
)

// Server is the Bridge Server: authenticated REST + WebSocket endpoints
// layered over a Session Facade, plus one managed hub per session that has
// ever been attached to.
type Server struct {
	Facade      *session.Facade
	Auth        *Authenticator
	Config      *Config
	ConfigPath  string
	ActivityDir string
	Command     string
	Notifier    *NotificationTrigger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	hubs map[string]*hub
}

// NewServer wires a Server from its collaborators. command is the
// external assistant binary PTY-mode sessions spawn (e.g. "claude").
func NewServer(facade *session.Facade, auth *Authenticator, cfg *Config, configPath, activityDir, command string) *Server {
	return &Server{
		Facade:      facade,
		Auth:        auth,
		Config:      cfg,
		ConfigPath:  configPath,
		ActivityDir: activityDir,
		Command:     command,
		Notifier:    NewNotificationTrigger(CompilePatterns(DefaultNotificationPatterns)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		hubs: make(map[string]*hub),
	}
}

// Routes builds the Server's http.Handler: REST endpoints plus the two
// WebSocket upgrade paths.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/status", s.handleAuthStatus)
	mux.HandleFunc("/api/sessions", s.requireAuth(s.handleListSessions))
	mux.HandleFunc("/api/push/vapid-key", s.requireAuth(s.handleVapidKey))
	mux.HandleFunc("/api/push/subscribe", s.requireAuth(s.handleSubscribePush))
	mux.HandleFunc("/ws/session/", s.handleWSTerminal)
	mux.HandleFunc("/ws/v2/session/", s.handleWSV2)
	return mux
}

func (s *Server) logEvent(kind, sessionID, remoteIP, reason string) {
	_, _ = activitylog.Append(s.ActivityDir, &activitylog.Entry{
		Kind: kind, SessionID: sessionID, RemoteIP: remoteIP, Reason: reason,
	})
}

// requireAuth wraps a REST handler, rejecting requests without a valid
// bearer token with 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || s.Auth.Verify(token) != nil {
			s.logEvent("auth_failure", "", r.RemoteAddr, "missing or invalid token")
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	token, expiresAt, err := s.Auth.Login(req.Password)
	if err != nil {
		s.logEvent("auth_failure", "", r.RemoteAddr, "bad password")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresIn: int64(time.Until(expiresAt).Seconds())})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"passwordSet": s.Config.PasswordSet()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Facade.Discover(r.Context(), session.DiscoverOptions{})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleVapidKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": s.Config.PushVapidPublic})
}

func (s *Server) handleSubscribePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var sub PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.Config.PushSubscriptions = append(s.Config.PushSubscriptions, sub)
	if err := s.Config.Save(s.ConfigPath); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every call site marshals a map of known, JSON-safe fields; a
		// failure here means a programming error, not a runtime condition
		// callers should recover from.
		panic(err)
	}
	return b
}

// hubFor returns the hub for sessionID, creating it on first reference.
func (s *Server) hubFor(sessionID string) *hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hubs[sessionID]; ok {
		return h
	}
	h := newHub(sessionID, s.Facade, s.Command, s.Notifier)
	s.hubs[sessionID] = h
	return h
}

func (s *Server) sessionExists(ctx context.Context, sessionID string) bool {
	_, err := s.Facade.Store.GetFileBySessionID(ctx, sessionID)
	return err == nil
}
