package bridge

import (
	"regexp"
	"sync"
	"time"
)

// DefaultNotificationPatterns mirrors the config package's defaults so the
// bridge can run standalone in tests without a config load.
var DefaultNotificationPatterns = []string{
	`\?\s*$`,
	`\(y/n\)`,
	`\(Y/n\)`,
	`\bdone\b\s*$`,
}

// duplicateWindow suppresses repeat notifications for the same session
// tag within this window.
const duplicateWindow = 10 * time.Second

// NotificationTrigger scans outgoing bytes for patterns suggesting the
// assistant is waiting for input or has announced completion, emitting at
// most one event per tag within duplicateWindow.
type NotificationTrigger struct {
	patterns []*regexp.Regexp

	mu   sync.Mutex
	seen map[string]time.Time
}

// CompilePatterns compiles raw regex strings, skipping any that fail to
// compile (a misconfigured pattern should not take down the bridge).
func CompilePatterns(raw []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}

func NewNotificationTrigger(patterns []*regexp.Regexp) *NotificationTrigger {
	return &NotificationTrigger{patterns: patterns, seen: make(map[string]time.Time)}
}

// Scan checks line against every configured pattern. tag scopes
// duplicate-suppression (normally the session id).
func (t *NotificationTrigger) Scan(tag, line string) bool {
	matched := false
	for _, re := range t.patterns {
		if re.MatchString(line) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.seen[tag]; ok && now.Sub(last) < duplicateWindow {
		return false
	}
	t.seen[tag] = now
	return true
}
