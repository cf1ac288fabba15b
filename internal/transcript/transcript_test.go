package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseBasicSession(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","cwd":"/tmp/a","message":{"role":"user","content":"hello"}}`,
		`{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"assistant","cwd":"/tmp/a","message":{"role":"assistant","model":"claude-x","content":"hi","usage":{"input_tokens":3,"output_tokens":5}}}`,
	})

	res, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Equal(t, 0, res.MalformedLines)

	md := Derive(res.Records)
	require.Equal(t, 2, md.TotalMessages)
	require.Equal(t, 1, md.UserMessages)
	require.Equal(t, 1, md.AssistantMessages)
	require.Equal(t, "hello", md.FirstUserMessage)
	require.Equal(t, "claude-x", md.Model)
	require.Equal(t, 3, md.InputTokens)
	require.Equal(t, 5, md.OutputTokens)
}

func TestDeriveAutoSlugUsesLastNonEmpty(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","slug":"first-slug","message":{"content":"hello"}}`,
		`{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"assistant","slug":"","message":{"content":"hi"}}`,
		`{"uuid":"r3","sessionId":"s1","timestamp":"2024-01-01T00:00:02Z","type":"user","slug":"later-slug","message":{"content":"more"}}`,
	})

	res, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	md := Derive(res.Records)
	require.Equal(t, "later-slug", md.AutoSlug)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","message":{"content":"ok"}}`,
		`not json at all`,
		`{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"user","message":{"content":"also ok"}}`,
	})

	res, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Equal(t, 1, res.MalformedLines)
}

func TestParseIncrementalResumesAtOffset(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","message":{"content":"first"}}`,
	})

	first, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, first.Records, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"assistant","message":{"content":"second"}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	second, err := ParseIncremental(path, first.NextOffset, len(first.Records)+1)
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	require.Equal(t, "second", ContentOf(second.Records[0]))
}

func TestContentOfFlattensBlocks(t *testing.T) {
	rec := Record{
		Message: Message{
			Content: Content{
				Blocks: []Block{
					{Type: "text", Text: "look at this"},
					{Type: "tool_use", Name: "grep", Input: []byte(`{"pattern":"foo"}`)},
					{Type: "tool_result", Content: []byte(`"matched 3 lines"`)},
				},
			},
		},
	}
	got := ContentOf(rec)
	require.Contains(t, got, "look at this")
	require.Contains(t, got, "grep")
	require.Contains(t, got, "pattern=foo")
	require.Contains(t, got, "matched 3 lines")
}

func TestDeriveEmptyRecordsFallsBackToNow(t *testing.T) {
	md := Derive(nil)
	require.False(t, md.CreatedAt.IsZero())
	require.Equal(t, md.CreatedAt, md.LastAccessedAt)
	require.Equal(t, 0, md.TotalMessages)
}
