package bridge

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientFrame is the union of every shape a client can send on either
// streaming path; fields unused by a given `type` are simply zero.
type clientFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	Text string `json:"text"`
	Key  string `json:"key"`
	Mode string `json:"mode"`
}

func newConnID() string {
	return uuid.NewString()
}

// handleWSTerminal serves the legacy `/ws/session/<id>` terminal-mode
// attach: frames are exactly the terminal-mode subset described in §6.
func (s *Server) handleWSTerminal(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/session/")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}
	s.serveTerminalStream(w, r, sessionID)
}

// handleWSV2 serves `/ws/v2/session/<id>?mode=chat|terminal`, switching
// between the two fan-outs per the mode query parameter (default chat).
func (s *Server) handleWSV2(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/v2/session/")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "chat"
	}
	switch mode {
	case "terminal":
		s.serveTerminalStream(w, r, sessionID)
	default:
		s.serveChatStream(w, r, sessionID)
	}
}

// authorizeUpgrade verifies the token carried as a query parameter,
// rejecting the upgrade outright (not after it) on failure, per spec
// §4.7: "Unauthorized subscribers are rejected at upgrade time."
func (s *Server) authorizeUpgrade(w http.ResponseWriter, r *http.Request) bool {
	token := r.URL.Query().Get("token")
	if token == "" || s.Auth.Verify(token) != nil {
		s.logEvent("auth_failure", "", r.RemoteAddr, "websocket upgrade without valid token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) serveTerminalStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !s.authorizeUpgrade(w, r) {
		return
	}
	if !s.sessionExists(r.Context(), sessionID) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	h := s.hubFor(sessionID)
	sub := newSubscriber(newConnID())
	scrollback, err := h.AttachTerminal(r.Context(), sub, 80, 24)
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "status", "error": err.Error()})
		s.logEvent("spawn_failure", sessionID, r.RemoteAddr, err.Error())
		return
	}
	defer h.DetachTerminal(sub)
	s.logEvent("terminal_attach", sessionID, r.RemoteAddr, "")
	defer s.logEvent("terminal_detach", sessionID, r.RemoteAddr, "")

	if len(scrollback) > 0 {
		_ = conn.WriteMessage(websocket.TextMessage, mustMarshal(map[string]any{"type": "scrollback", "data": string(scrollback)}))
	}

	done := make(chan struct{})
	go writePump(conn, sub, done)
	readTerminalFrames(conn, h, sessionID)
	sub.close()
	<-done
}

func (s *Server) serveChatStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !s.authorizeUpgrade(w, r) {
		return
	}
	if !s.sessionExists(r.Context(), sessionID) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	h := s.hubFor(sessionID)
	sub := newSubscriber(newConnID())
	history := h.AttachChat(sub)
	defer h.DetachChat(sub)
	s.logEvent("chat_attach", sessionID, r.RemoteAddr, "")
	defer s.logEvent("chat_detach", sessionID, r.RemoteAddr, "")

	for _, msg := range history {
		_ = conn.WriteMessage(websocket.TextMessage, mustMarshal(map[string]any{"type": "message", "data": msg}))
	}
	_ = conn.WriteMessage(websocket.TextMessage, h.statusFrame(r.Context()))

	done := make(chan struct{})
	go writePump(conn, sub, done)
	readChatFrames(conn, h, sessionID)
	sub.close()
	<-done
}

// writePump drains sub's queue onto the connection until it is closed.
func writePump(conn *websocket.Conn, sub *subscriber, done chan struct{}) {
	defer close(done)
	for frame := range sub.send {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// readTerminalFrames blocks reading client->server terminal-mode frames
// (input/resize/spawn) until the connection closes.
func readTerminalFrames(conn *websocket.Conn, h *hub, sessionID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case "input":
			_ = h.Input([]byte(f.Data))
		case "resize":
			_ = h.Resize(f.Cols, f.Rows)
		case "spawn":
			// The hub already spawns on first attach; an explicit spawn
			// frame is accepted but has nothing further to do once live.
		}
	}
}

// readChatFrames blocks reading client->server v2 frames (send/key/
// cancel/mode) until the connection closes. send/key inject input into
// the attached process the same way terminal-mode input does; this
// assumes the session also has (or will have) a live terminal attached,
// matching the "synchronous side channels" contract of spec §4.7.
func readChatFrames(conn *websocket.Conn, h *hub, sessionID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case "send":
			_ = h.Input([]byte(f.Text + "\n"))
		case "key":
			_ = h.Input(keyBytes(f.Key))
		case "cancel":
			_ = h.Cancel()
		}
	}
}

// keyBytes maps a handful of named keys to the bytes a terminal would
// send for them; anything unrecognized is passed through literally.
func keyBytes(name string) []byte {
	switch name {
	case "enter":
		return []byte("\r")
	case "escape":
		return []byte{0x1b}
	case "tab":
		return []byte("\t")
	case "up":
		return []byte{0x1b, '[', 'A'}
	case "down":
		return []byte{0x1b, '[', 'B'}
	case "left":
		return []byte{0x1b, '[', 'D'}
	case "right":
		return []byte{0x1b, '[', 'C'}
	case "ctrl-c":
		return []byte{0x03}
	default:
		return []byte(name)
	}
}
