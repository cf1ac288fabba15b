// Package watch tails a transcript file and emits each newly-appended
// record to subscribers, per session.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corvid/transcriptkeeper/internal/transcript"
)

// EventKind tags a Watcher event.
type EventKind string

const (
	EventStarted     EventKind = "started"
	EventMessage     EventKind = "message"
	EventParseError  EventKind = "parse_error"
	EventTruncated   EventKind = "truncated"
	EventDeleted     EventKind = "deleted"
	EventError       EventKind = "error"
	EventStopped     EventKind = "stopped"
)

// Event is one item emitted by a Watcher.
type Event struct {
	Kind   EventKind
	Record transcript.Record
	Line   string
	Err    error
}

// pollInterval is the fsnotify-miss fallback poll interval. fsnotify
// delivers most changes immediately; the poll runs alongside it and
// catches changes fsnotify misses or cannot watch at all (e.g. a
// networked filesystem that doesn't support inotify).
const pollInterval = 150 * time.Millisecond

// Watcher tails one transcript file. It does not own de-duplication
// across subscribers; callers fan events out themselves (see
// internal/bridge).
type Watcher struct {
	Path          string
	ReadFromStart bool

	events chan Event
	stop   chan struct{}
}

// New creates a Watcher for path. Events begin flowing only after Run is
// called.
func New(path string, readFromStart bool) *Watcher {
	return &Watcher{
		Path:          path,
		ReadFromStart: readFromStart,
		events:        make(chan Event, 64),
		stop:          make(chan struct{}),
	}
}

// Events returns the channel events are delivered on. It is closed after
// the EventStopped event.
func (w *Watcher) Events() <-chan Event { return w.events }

// Stop asks Run to emit `stopped` and exit.
func (w *Watcher) Stop() { close(w.stop) }

// Run tails the file until ctx is cancelled or Stop is called. It emits
// `started`, then zero or more `message`/`parse_error`/`truncated`/
// `deleted`/`error` events, then exactly one `stopped` event, and closes
// the Events channel.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	var offset int64
	var nextLine int = 1
	deletedSeen := false

	w.emit(Event{Kind: EventStarted})

	if w.ReadFromStart {
		if res, err := transcript.Parse(w.Path); err == nil {
			for _, rec := range res.Records {
				w.emit(Event{Kind: EventMessage, Record: rec})
			}
			offset = res.NextOffset
			nextLine = len(res.Records) + 1
		}
	} else if info, err := os.Stat(w.Path); err == nil {
		offset = info.Size()
	}

	notify, err := fsnotify.NewWatcher()
	if err == nil {
		if err := notify.Add(filepath.Dir(w.Path)); err != nil {
			_ = notify.Close()
			notify = nil
		}
		if notify != nil {
			defer notify.Close()
		}
	} else {
		notify = nil
	}

	// The fallback ticker runs regardless of whether fsnotify is active:
	// fsnotify can silently miss events on some filesystems, and this
	// catches anything it drops.
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	check := func() {
		info, err := os.Stat(w.Path)
		if err != nil {
			if os.IsNotExist(err) {
				if !deletedSeen {
					w.emit(Event{Kind: EventDeleted})
					deletedSeen = true
				}
				return
			}
			w.emit(Event{Kind: EventError, Err: err})
			return
		}
		if deletedSeen {
			deletedSeen = false
			offset = 0
			nextLine = 1
		}
		size := info.Size()
		switch {
		case size < offset:
			w.emit(Event{Kind: EventTruncated})
			offset = 0
			nextLine = 1
		case size > offset:
			res, err := transcript.ParseIncremental(w.Path, offset, nextLine)
			if err != nil {
				w.emit(Event{Kind: EventError, Err: err})
				return
			}
			for _, rec := range res.Records {
				w.emit(Event{Kind: EventMessage, Record: rec})
			}
			if res.MalformedLines > 0 {
				w.emit(Event{Kind: EventParseError})
			}
			offset = res.NextOffset
			nextLine += len(res.Records) + res.MalformedLines
		}
	}

	var notifyEvents chan fsnotify.Event
	var notifyErrors chan error
	if notify != nil {
		notifyEvents = notify.Events
		notifyErrors = notify.Errors
	}

	for {
		select {
		case <-ctx.Done():
			w.emit(Event{Kind: EventStopped})
			return
		case <-w.stop:
			w.emit(Event{Kind: EventStopped})
			return
		case ev, ok := <-notifyEvents:
			if !ok {
				notifyEvents = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(w.Path) {
				check()
			}
		case err, ok := <-notifyErrors:
			if !ok {
				notifyErrors = nil
				continue
			}
			w.emit(Event{Kind: EventError, Err: err})
		case <-ticker.C:
			check()
		}
	}
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	default:
		// subscriber-side fan-out (internal/bridge) owns backpressure;
		// the watcher itself never blocks on a full internal buffer.
	}
}
