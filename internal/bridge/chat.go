package bridge

import (
	"time"

	"github.com/corvid/transcriptkeeper/internal/transcript"
)

// ChatMessage is the normalised wire form of one transcript record: text
// plus flattened tool calls/results, ready to serialise straight onto a
// chat-mode stream.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// toChatMessage converts a transcript record into its wire form. Only
// user/assistant records carry a role; everything else still gets a text
// rendering so chat-mode subscribers see a complete history.
func toChatMessage(rec transcript.Record) ChatMessage {
	role := string(rec.Type)
	if rec.Message.Role != "" {
		role = rec.Message.Role
	}
	ts, _ := time.Parse(time.RFC3339Nano, rec.Timestamp)
	return ChatMessage{
		ID:        rec.ID,
		Role:      role,
		Text:      transcript.ContentOf(rec),
		Timestamp: ts,
	}
}
