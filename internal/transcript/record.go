// Package transcript parses append-only JSONL conversation files and
// derives the session-level metadata the index store caches.
package transcript

import (
	"encoding/json"
	"fmt"
)

// Type is the record's tag field.
type Type string

const (
	TypeUser      Type = "user"
	TypeAssistant Type = "assistant"
	TypeSummary   Type = "summary"
	TypeInternal  Type = "internal"
)

// Record is one line of a transcript file.
type Record struct {
	ID        string  `json:"uuid,omitempty"`
	ParentID  string  `json:"parentUuid,omitempty"`
	SessionID string  `json:"sessionId"`
	Timestamp string  `json:"timestamp"`
	Type      Type    `json:"type"`
	Cwd       string  `json:"cwd,omitempty"`
	GitBranch string  `json:"gitBranch,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	Message   Message `json:"message"`

	// LineNumber is the 1-based position of this record within its file.
	// It is not part of the wire format; Parse fills it in.
	LineNumber int `json:"-"`
	// Raw is the original JSON line. It is not part of the wire format;
	// Parse fills it in.
	Raw json.RawMessage `json:"-"`
}

// Message is the assistant/user payload. Content is either a plain string
// or a list of typed blocks; Content.UnmarshalJSON keeps a string in Text
// and a list in Blocks.
type Message struct {
	Role    string  `json:"role,omitempty"`
	Model   string  `json:"model,omitempty"`
	Content Content `json:"content"`
	Usage   *Usage  `json:"usage,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Content is a tagged sum: either a bare string or a list of Blocks.
type Content struct {
	Text   string
	Blocks []Block
}

type Block struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content json.RawMessage `json:"content,omitempty"` // tool_result payload, string or blocks
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Blocks = nil
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content is neither a string nor a block list: %w", err)
	}
	c.Blocks = blocks
	c.Text = ""
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Blocks == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}
