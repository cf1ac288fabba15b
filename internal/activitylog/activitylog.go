// Package activitylog is a process-local append-only JSONL log of Bridge
// Server events (terminal and chat attach/detach, auth failure, spawn
// failure).
package activitylog

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the activity log file name stored under the config directory.
const FileName = "events.jsonl"

const idPrefix = "evt-"

// Entry is a generic append-only event. Kind plus the typed fields cover
// common cases; Extra carries anything else.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	SessionID string `json:"session_id,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`
	Reason    string `json:"reason,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// EnsureFile creates the activity log file under dir if it does not
// already exist, creating dir as needed.
func EnsureFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create activity log directory %s: %w", dir, err)
	}
	p := filepath.Join(dir, FileName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat activity log %s: %w", p, err)
	}
	if err := os.WriteFile(p, []byte{}, 0644); err != nil { // nolint:gosec // shared log, intended permissions
		return "", fmt.Errorf("create activity log %s: %w", p, err)
	}
	return p, nil
}

// Append appends one event as a single JSON line.
func Append(dir string, e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if e.Kind == "" {
		return "", fmt.Errorf("kind is required")
	}

	p, err := EnsureFile(dir)
	if err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID, err = newID()
		if err != nil {
			return "", err
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // nolint:gosec // intended permissions
	if err != nil {
		return "", fmt.Errorf("open activity log %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("write activity log entry: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flush activity log: %w", err)
	}

	return e.ID, nil
}

func newID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate activity log id: %w", err)
	}
	return idPrefix + hex.EncodeToString(b[:]), nil
}
