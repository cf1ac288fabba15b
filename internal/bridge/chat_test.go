package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvid/transcriptkeeper/internal/transcript"
)

func TestToChatMessageParsesTimestampAndContent(t *testing.T) {
	rec := transcript.Record{
		ID:        "r1",
		Type:      transcript.TypeUser,
		Timestamp: "2024-01-01T00:00:00Z",
		Message:   transcript.Message{Role: "user", Content: transcript.Content{Text: "hello"}},
	}

	msg := toChatMessage(rec)
	require.Equal(t, "r1", msg.ID)
	require.Equal(t, "user", msg.Role)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), msg.Timestamp.UTC())
}

func TestToChatMessageFallsBackToRecordTypeWhenNoRole(t *testing.T) {
	rec := transcript.Record{ID: "r2", Type: transcript.TypeSummary, Timestamp: "2024-01-01T00:00:00Z"}
	msg := toChatMessage(rec)
	require.Equal(t, "summary", msg.Role)
}
