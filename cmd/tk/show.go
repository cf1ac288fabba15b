package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <query>",
	GroupID: "views",
	Short:   "Render a session's first message and metadata",
	Long: `Show resolves query the same way every other command does (exact id,
exact slug, id prefix, substring over slug, substring over title) and
renders the session's first user message as Markdown alongside its
metadata.

Examples:
  tk show a1b2c3d4
  tk show "fix the parser"
`,
	Args: cobra.ExactArgs(1),
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

		fmt.Printf("%s\n", titleStyle.Render(s.Title))
		fmt.Printf("%s\n", dimStyle.Render(fmt.Sprintf(
			"session %s · %d messages · %s · %s",
			s.SessionID, s.TotalMessages, s.Model, s.WorkingDirectory,
		)))
		fmt.Println()

		body := s.FirstUserMessage
		if body == "" {
			body = "*(no user message recorded)*"
		}
		rendered, err := glamour.Render(body, "dark")
		if err != nil {
			fmt.Println(body)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
