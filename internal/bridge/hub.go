package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/corvid/transcriptkeeper/internal/ptyattach"
	"github.com/corvid/transcriptkeeper/internal/session"
	"github.com/corvid/transcriptkeeper/internal/watch"
)

// State is one of a managed session's three states, per spec §4.7: idle
// (nothing attached), live (a PTY is running), dead (the process exited
// and nothing has cleared the diagnostic).
type State string

const (
	StateIdle State = "idle"
	StateLive State = "live"
	StateDead State = "dead"
)

// subscriber is one client's outbound queue for a hub. Sends never block:
// a full queue drops the oldest frame, and three consecutive drops close
// the subscriber so a slow client can never stall the others or the PTY.
type subscriber struct {
	id   string
	send chan []byte

	mu             sync.Mutex
	closed         bool
	consecutiveDrops int
}

func newSubscriber(id string) *subscriber {
	return &subscriber{id: id, send: make(chan []byte, 64)}
}

func (s *subscriber) trySend(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
		s.consecutiveDrops = 0
		return
	default:
	}
	// Drop the oldest queued frame to make room, per the backpressure
	// contract: a slow subscriber loses history, it never blocks others.
	select {
	case <-s.send:
	default:
	}
	select {
	case s.send <- frame:
	default:
	}
	s.consecutiveDrops++
	if s.consecutiveDrops >= 3 {
		s.closed = true
		close(s.send)
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// hub is the per-session actor: the only place a session's subscriber
// set, watcher, PTY, and ring buffer are mutated. Every exported method
// takes the lock briefly, and broadcast is always snapshot-then-send so a
// slow subscriber's write never happens while the lock is held.
type hub struct {
	sessionID string
	facade    *session.Facade
	command   string
	notifier  *NotificationTrigger

	mu            sync.Mutex
	state         State
	pty           *ptyattach.Session
	ring          *ringBuffer
	termSubs      map[*subscriber]struct{}
	chatSubs      map[*subscriber]struct{}
	chatHistory   []ChatMessage
	watcherCancel context.CancelFunc
	lastExitCode  int
}

func newHub(sessionID string, facade *session.Facade, command string, notifier *NotificationTrigger) *hub {
	return &hub{
		sessionID: sessionID,
		facade:    facade,
		command:   command,
		notifier:  notifier,
		state:     StateIdle,
		ring:      newRingBuffer(),
		termSubs:  make(map[*subscriber]struct{}),
		chatSubs:  make(map[*subscriber]struct{}),
	}
}

// AttachTerminal adds sub to the terminal-mode fan-out, spawning the PTY
// on the first subscriber (idle -> live). The caller still owns sending
// sub the scrollback snapshot this method returns.
func (h *hub) AttachTerminal(ctx context.Context, sub *subscriber, cols, rows int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pty == nil {
		desc, err := h.facade.BuildDescriptor(ctx, h.sessionID, session.LaunchOptions{Command: h.command})
		if err != nil {
			return nil, fmt.Errorf("build launch descriptor for session %s: %w", h.sessionID, err)
		}
		p, err := ptyattach.Spawn(ctx, desc.Cwd, desc.Command, desc.Args, cols, rows)
		if err != nil {
			h.state = StateDead
			return nil, fmt.Errorf("spawn terminal for session %s: %w", h.sessionID, err)
		}
		h.pty = p
		h.state = StateLive
		go h.pumpTerminalOutput(p)
		go h.awaitExit(p)
	}
	h.termSubs[sub] = struct{}{}
	return h.ring.Snapshot(), nil
}

// DetachTerminal removes sub from the fan-out. The PTY keeps running even
// if this was the last subscriber: persistence across reconnects is a
// feature, not a leak.
func (h *hub) DetachTerminal(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.termSubs, sub)
}

// AttachChat adds sub to the chat-mode fan-out, starting the JSONL
// watcher on the first subscriber. It returns the history replayed so
// far so the caller can send it before the live tail starts.
func (h *hub) AttachChat(sub *subscriber) []ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.chatSubs) == 0 {
		ctx, cancel := context.WithCancel(context.Background())
		h.watcherCancel = cancel
		h.chatHistory = nil
		go h.runWatcher(ctx)
	}
	h.chatSubs[sub] = struct{}{}

	history := make([]ChatMessage, len(h.chatHistory))
	copy(history, h.chatHistory)
	return history
}

// DetachChat removes sub from the chat-mode fan-out, stopping the watcher
// if it was the last one.
func (h *hub) DetachChat(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.chatSubs, sub)
	if len(h.chatSubs) == 0 && h.watcherCancel != nil {
		h.watcherCancel()
		h.watcherCancel = nil
	}
}

// Input writes bytes to the PTY's stdin.
func (h *hub) Input(p []byte) error {
	h.mu.Lock()
	pty := h.pty
	h.mu.Unlock()
	if pty == nil {
		return fmt.Errorf("session %s has no active terminal", h.sessionID)
	}
	_, err := pty.Write(p)
	return err
}

// Resize adjusts the PTY window size.
func (h *hub) Resize(cols, rows int) error {
	h.mu.Lock()
	pty := h.pty
	h.mu.Unlock()
	if pty == nil {
		return nil
	}
	return pty.Resize(cols, rows)
}

// Cancel writes ETX (the byte a terminal's Ctrl-C keypress sends) to the
// PTY, interrupting whatever the child is doing without touching the
// bridge process's own signal handling.
func (h *hub) Cancel() error {
	return h.Input([]byte{0x03})
}

// Snapshot reports the hub's current state for status frames.
func (h *hub) Snapshot() (state State, exitCode int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.lastExitCode
}

func (h *hub) pumpTerminalOutput(p *ptyattach.Session) {
	buf := make([]byte, 4096)
	for {
		n, err := p.Reader().Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			h.ring.Write(chunk)
			frame := mustMarshal(map[string]any{"type": "output", "data": string(chunk)})
			h.broadcastTerminal(frame)
			if h.notifier != nil {
				// Scan's result is discarded: the hub sends no notification
				// event when a trigger fires.
				h.notifier.Scan(h.sessionID, string(chunk))
			}
		}
		if err != nil {
			return
		}
	}
}

func (h *hub) awaitExit(p *ptyattach.Session) {
	<-p.Done()
	h.mu.Lock()
	h.state = StateDead
	h.lastExitCode = p.ExitCode()
	code := h.lastExitCode
	h.mu.Unlock()
	h.broadcastTerminal(mustMarshal(map[string]any{"type": "exit", "code": code}))
}

func (h *hub) broadcastTerminal(frame []byte) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.termSubs))
	for s := range h.termSubs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.trySend(frame)
	}
}

func (h *hub) runWatcher(ctx context.Context) {
	row, err := h.facade.Store.GetFileBySessionID(ctx, h.sessionID)
	if err != nil {
		return
	}
	w := watch.New(row.FilePath, true)
	go w.Run(ctx)

	for ev := range w.Events() {
		if ev.Kind != watch.EventMessage {
			continue
		}
		msg := toChatMessage(ev.Record)
		frame := mustMarshal(map[string]any{"type": "message", "data": msg})

		h.mu.Lock()
		h.chatHistory = append(h.chatHistory, msg)
		subs := make([]*subscriber, 0, len(h.chatSubs))
		for s := range h.chatSubs {
			subs = append(subs, s)
		}
		h.mu.Unlock()

		for _, s := range subs {
			s.trySend(frame)
		}
	}
}

// statusFrame builds the v2 {type:"status", ...} frame for a session.
func (h *hub) statusFrame(ctx context.Context) []byte {
	summary, err := h.facade.Find(ctx, h.sessionID)
	title, cwd := h.sessionID, ""
	if err == nil {
		title, cwd = summary.Title, summary.WorkingDirectory
	}
	state, _ := h.Snapshot()
	return mustMarshal(map[string]any{
		"type":             "status",
		"sessionId":        h.sessionID,
		"title":            title,
		"workingDirectory": cwd,
		"running":          state == StateLive,
	})
}
