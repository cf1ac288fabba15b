// Package ptyattach spawns a child process under a pseudo-terminal and
// relays raw bytes between it and any number of subscribers, backing the
// Bridge Server's terminal-mode session streams.
package ptyattach

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// Session wraps one spawned child process attached to a PTY. Output is
// read from Reader() as it is produced; callers own broadcasting it
// further (see internal/bridge), which keeps this package free of any
// knowledge of WebSocket framing.
type Session struct {
	cmd *exec.Cmd
	pty *os.File

	mu       sync.Mutex
	exited   bool
	exitCode int
	waitErr  error
	done     chan struct{}
}

// Spawn starts command in dir under a new PTY of the given size.
func Spawn(ctx context.Context, dir, command string, args []string, cols, rows int) (*Session, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, fmt.Errorf("spawn pty for %s: %w", command, err)
	}

	s := &Session{cmd: cmd, pty: f, done: make(chan struct{})}
	go s.wait()
	return s, nil
}

func (s *Session) wait() {
	err := s.cmd.Wait()
	s.mu.Lock()
	s.exited = true
	s.waitErr = err
	if exitErr, ok := err.(*exec.ExitError); ok {
		s.exitCode = exitErr.ExitCode()
	} else if err == nil {
		s.exitCode = 0
	} else {
		s.exitCode = -1
	}
	s.mu.Unlock()
	close(s.done)
}

// Reader exposes the PTY's output stream for copying into a broadcaster.
func (s *Session) Reader() io.Reader { return s.pty }

// Write sends bytes to the child's stdin (the PTY master).
func (s *Session) Write(p []byte) (int, error) { return s.pty.Write(p) }

// Resize adjusts the PTY window size.
func (s *Session) Resize(cols, rows int) error {
	return pty.Setsize(s.pty, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// Done is closed once the child process has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitCode is valid only after Done is closed.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Close terminates the child process and releases the PTY file
// descriptor. Safe to call multiple times.
func (s *Session) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.pty.Close()
}
