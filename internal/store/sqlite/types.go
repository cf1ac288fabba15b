package sqlite

import "time"

// FileInfo is what the Sync Engine observes on disk for one transcript.
type FileInfo struct {
	Path       string
	SessionID  string
	EncodedDir string
	MtimeMS    int64
	SizeBytes  int64
}

// MessageInput is one user/assistant record ready to be stored, already
// flattened to searchable text by internal/transcript.
type MessageInput struct {
	RecordID   string
	LineNumber int
	Timestamp  time.Time
	Role       string
	Content    string
}

// Overlays are the user-owned attributes that survive a file row's
// rebuild: custom title and archive state. They are captured before a
// hard delete and restored on the following insert.
type Overlays struct {
	Title      string
	HasTitle   bool
	IsArchived bool
	ArchivedAt time.Time
}

// FileRow mirrors one row of the files table, joined with its title.
type FileRow struct {
	ID                int64
	FilePath          string
	SessionID         string
	EncodedDir        string
	MtimeMS           int64
	SizeBytes         int64
	CreatedAt         time.Time
	LastAccessedAt    time.Time
	TotalMessages     int
	UserMessages      int
	AssistantMessages int
	InputTokens       int
	OutputTokens      int
	Model             string
	GitBranch         string
	AutoSlug          string
	FirstUserMessage  string
	IsDeleted         bool
	DeletedAt         time.Time
	IsArchived        bool
	ArchivedAt        time.Time
	Title             string
	HasTitle          bool
}

// ListFilter controls ListSessions.
type ListFilter struct {
	MinMessages    int
	ExcludeEmpty   bool
	IncludeDeleted bool
	IncludeArchived bool
	ArchivedOnly   bool
}

// SearchLimits bounds a full-text search.
type SearchLimits struct {
	MaxSessions        int
	MaxMatchesPerSession int
}

// SearchMatch is one matching message within a session.
type SearchMatch struct {
	RecordID  string
	Timestamp time.Time
	Snippet   string
}

// SearchResult groups matches by session, the session with the
// best-ranked match first.
type SearchResult struct {
	SessionID string
	FilePath  string
	Title     string
	Matches   []SearchMatch
}

// Stats summarizes the store's contents for `tk stats`.
type Stats struct {
	SessionCount  int
	MessageCount  int
	DatabaseBytes int64
}
