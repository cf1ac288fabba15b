package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/config"
	"github.com/corvid/transcriptkeeper/internal/session"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	tksync "github.com/corvid/transcriptkeeper/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "tk",
	Short: "Manage AI-assistant session transcripts",
	Long: `tk indexes, searches, and manages locally-stored AI-assistant session
transcripts, and can serve a remote terminal bridge for resuming them
from another machine.

Examples:
  tk sync                    # reconcile the index against disk
  tk list                    # list sessions, newest first
  tk search "database lock"  # full-text search across all sessions
  tk show <id>               # render a session's first message
  tk resume <id>             # resume a session by launching the assistant
  tk serve                   # start the bridge server
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "views", Title: "View sessions:"},
		&cobra.Group{ID: "mutate", Title: "Change sessions:"},
		&cobra.Group{ID: "ops", Title: "Operate the index and bridge:"},
	)
}

// facadeHandle bundles everything a command needs to talk to the core and
// a cleanup func that must run before the command returns.
type facadeHandle struct {
	Facade *session.Facade
	Store  *sqlite.Store
	Engine *tksync.Engine
	close  func() error
}

// openFacade initializes configuration and opens the index database,
// returning a ready Session Facade. Every subcommand that touches the
// index calls this first thing in its RunE.
func openFacade(ctx context.Context) (*facadeHandle, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize configuration: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return nil, fmt.Errorf("create config directory %s: %w", configDir, err)
	}

	dbPath := filepath.Join(configDir, "index.sqlite3")
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index database %s: %w", dbPath, err)
	}

	root := config.GetString("transcript-root")
	engine := tksync.New(store, root)
	facade := session.New(store, engine, root)

	return &facadeHandle{
		Facade: facade,
		Store:  store,
		Engine: engine,
		close:  store.Close,
	}, nil
}

func (h *facadeHandle) Close() {
	if h == nil || h.close == nil {
		return
	}
	_ = h.close()
}
