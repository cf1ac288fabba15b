package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:     "move <query> <new-working-directory>",
	GroupID: "mutate",
	Short:   "Move a session to a new working directory",
	Long: `Move atomically relocates a session's transcript file to a new working
directory: it rewrites the "cwd" field of every record in place, renames
the file, and reindexes it at the new path while preserving its archive
flag and custom title.

Example:
  tk move a1b2c3d4 /home/alice/projects/new-repo
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		s, err := h.Facade.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := h.Facade.Move(cmd.Context(), s.SessionID, args[1]); err != nil {
			return err
		}
		fmt.Printf("moved %s to %s\n", s.SessionID, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
}
