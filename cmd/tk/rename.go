package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:     "rename <query> [title]",
	GroupID: "mutate",
	Short:   "Set a session's custom title",
	Long: `Rename sets the custom title overlay, which is preferred over the
first-user-message/auto-slug/id-prefix fallback chain everywhere a title
is shown, and survives any future re-index or rebuild.

If title is omitted and the terminal is interactive, an input prompt is
shown instead.

Examples:
  tk rename a1b2c3d4 "Fix the flaky build"
  tk rename a1b2c3d4
`,
	Args: cobra.RangeArgs(1, 2),
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

		title := ""
		if len(args) == 2 {
			title = args[1]
		} else {
			if err := huh.NewInput().
				Title("New title for " + s.SessionID[:minInt(8, len(s.SessionID))]).
				Value(&title).
				Run(); err != nil {
				return fmt.Errorf("prompt for title: %w", err)
			}
		}

		if err := h.Facade.Rename(cmd.Context(), s.SessionID, title); err != nil {
			return err
		}
		fmt.Printf("renamed %s to %q\n", s.SessionID, title)
		return nil
	},
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
