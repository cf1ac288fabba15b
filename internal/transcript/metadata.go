package transcript

import (
	"encoding/json"
	"strings"
	"time"
)

// Metadata summarizes a parsed set of records the way the index store
// caches them on a file row.
type Metadata struct {
	CreatedAt       time.Time
	LastAccessedAt  time.Time
	TotalMessages   int
	UserMessages    int
	AssistantMessages int
	InputTokens     int
	OutputTokens    int
	Model           string
	GitBranch       string
	AutoSlug        string
	FirstUserMessage string
}

// Derive computes Metadata from an ordered list of records. It never
// fails: absent data falls back to the current time or empty strings, per
// the contract used by every caller that stores the result.
func Derive(records []Record) Metadata {
	md := Metadata{}

	modelCounts := map[string]int{}
	modelLastSeen := map[string]time.Time{}

	for _, rec := range records {
		ts, tsOK := parseTimestamp(rec.Timestamp)

		if tsOK {
			if md.CreatedAt.IsZero() || ts.Before(md.CreatedAt) {
				md.CreatedAt = ts
			}
			if ts.After(md.LastAccessedAt) {
				md.LastAccessedAt = ts
			}
		}

		switch rec.Type {
		case TypeUser:
			md.TotalMessages++
			md.UserMessages++
			if md.FirstUserMessage == "" {
				if text := firstLine(ContentOf(rec)); text != "" {
					md.FirstUserMessage = text
				}
			}
		case TypeAssistant:
			md.TotalMessages++
			md.AssistantMessages++
			if rec.Message.Usage != nil {
				md.InputTokens += rec.Message.Usage.InputTokens
				md.OutputTokens += rec.Message.Usage.OutputTokens
			}
			if rec.Message.Model != "" {
				modelCounts[rec.Message.Model]++
				if tsOK {
					if prev, ok := modelLastSeen[rec.Message.Model]; !ok || ts.After(prev) {
						modelLastSeen[rec.Message.Model] = ts
					}
				}
			}
		}

		if rec.GitBranch != "" {
			md.GitBranch = rec.GitBranch
		}
		if rec.Slug != "" {
			md.AutoSlug = rec.Slug
		}
	}

	md.Model = mostFrequentModel(modelCounts, modelLastSeen)

	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now().UTC()
	}
	if md.LastAccessedAt.IsZero() {
		md.LastAccessedAt = md.CreatedAt
	}

	return md
}

func mostFrequentModel(counts map[string]int, lastSeen map[string]time.Time) string {
	best := ""
	bestCount := -1
	var bestTime time.Time
	for model, count := range counts {
		t := lastSeen[model]
		if count > bestCount || (count == bestCount && t.After(bestTime)) {
			best = model
			bestCount = count
			bestTime = t
		}
	}
	return best
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// ContentOf flattens a record's message content to a single string
// suitable for full-text indexing. Tool calls contribute their name and a
// short summary of their input; tool results contribute their text.
func ContentOf(rec Record) string {
	c := rec.Message.Content
	if c.Blocks == nil {
		return c.Text
	}
	var b strings.Builder
	for i, block := range c.Blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch block.Type {
		case "text":
			b.WriteString(block.Text)
		case "tool_use":
			b.WriteString(block.Name)
			if summary := summarizeInput(block.Input); summary != "" {
				b.WriteByte(' ')
				b.WriteString(summary)
			}
		case "tool_result":
			b.WriteString(flattenToolResult(block.Content))
		default:
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// summarizeInput renders a tool_use's input object as a short one-line
// summary for search, rather than the full JSON blob.
func summarizeInput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return string(raw)
	}
	var parts []string
	for k, v := range m {
		val := strings.Trim(string(v), `"`)
		if len(val) > 80 {
			val = val[:80]
		}
		parts = append(parts, k+"="+val)
	}
	return strings.Join(parts, " ")
}

func flattenToolResult(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var b strings.Builder
		for i, block := range blocks {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(block.Text)
		}
		return b.String()
	}
	return string(raw)
}
