package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsStartedThenMessages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	w := New(path, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	first := <-w.Events()
	require.Equal(t, EventStarted, first.Kind)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","message":{"content":"hi"}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case ev := <-w.Events():
		require.Equal(t, EventMessage, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message event")
	}

	w.Stop()
	drainUntilStopped(t, w)
}

func TestWatcherEmitsDeletedWhenFileVanishes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	w := New(path, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	<-w.Events() // started

	require.NoError(t, os.Remove(path))

	select {
	case ev := <-w.Events():
		require.Equal(t, EventDeleted, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deleted event")
	}

	w.Stop()
	drainUntilStopped(t, w)
}

func drainUntilStopped(t *testing.T, w *Watcher) {
	t.Helper()
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if ev.Kind == EventStopped {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stopped event")
		}
	}
}
