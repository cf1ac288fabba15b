package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/config"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	"github.com/corvid/transcriptkeeper/internal/sync"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: "ops",
	Short:   "Run idempotent repair passes over the index and transcript root",
	Long: `Doctor runs three independent, idempotent repair passes:

  scratch-dirs  recreate missing scratch working directories
  cwd-fields    rewrite mismatched cwd fields inside transcripts
  missing-index index any on-disk transcript the store doesn't know about

Each pass reports what it fixed and what it could not fix. Run with no
subcommand to run all three; "tk doctor migrations" instead lists the
registered schema migrations.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		scratchRoot := config.GetString("scratch-root")

		scratchRes, err := h.Engine.RepairScratchDirs(scratchRoot)
		if err != nil {
			return err
		}
		printRepair("scratch-dirs", scratchRes)

		cwdRes, err := h.Engine.RepairCwdFields()
		if err != nil {
			return err
		}
		printRepair("cwd-fields", cwdRes)

		indexRes, err := h.Engine.RepairMissingIndex(cmd.Context())
		if err != nil {
			return err
		}
		printRepair("missing-index", indexRes)
		return nil
	},
}

var doctorMigrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "List registered schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, m := range sqlite.ListMigrations() {
			fmt.Printf("%-24s %s\n", m.Name, m.Description)
		}
		return nil
	},
}

func printRepair(name string, res sync.RepairResult) {
	fmt.Printf("%s: fixed %d, unfixable %d\n", name, len(res.Fixed), len(res.Unfixable))
	for _, u := range res.Unfixable {
		fmt.Printf("  ! %s\n", u)
	}
}

func init() {
	doctorCmd.AddCommand(doctorMigrationsCmd)
	rootCmd.AddCommand(doctorCmd)
}
