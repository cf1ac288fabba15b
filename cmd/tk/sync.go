package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncRebuild bool

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "ops",
	Short:   "Reconcile the index against the transcript root",
	Long: `Sync walks the transcript root directory and reconciles it against the
index: new files are indexed, changed files are re-parsed, and files
removed from disk are marked deleted (soft delete, so overlays survive a
later restore).

With --rebuild, every known file is unconditionally re-parsed instead of
only those whose size or mtime changed.

Examples:
  tk sync
  tk sync --rebuild
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		if syncRebuild {
			t, err := h.Engine.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			printTally(t.Added, t.Updated, t.Deleted, t.Unchanged, t.Duration)
			return nil
		}

		t, err := h.Engine.Cycle(cmd.Context())
		if err != nil {
			return err
		}
		printTally(t.Added, t.Updated, t.Deleted, t.Unchanged, t.Duration)
		return nil
	},
}

func printTally(added, updated, deleted, unchanged int, dur fmt.Stringer) {
	fmt.Printf("added %d, updated %d, deleted %d, unchanged %d (%s)\n", added, updated, deleted, unchanged, dur)
}

func init() {
	syncCmd.Flags().BoolVar(&syncRebuild, "rebuild", false, "re-parse every file regardless of size or mtime")
	rootCmd.AddCommand(syncCmd)
}
