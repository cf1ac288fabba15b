package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <query>",
	GroupID: "mutate",
	Short:   "Remove a session from the index",
	Long: `Delete hard-removes a session's row from the index. It does not touch
the transcript file on disk; if the file still exists, the next sync
cycle will reindex it as a new session.

Examples:
  tk delete a1b2c3d4
  tk delete a1b2c3d4 --force
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

		if !deleteForce && !confirm(fmt.Sprintf("delete %s (%s)?", s.SessionID[:minInt(8, len(s.SessionID))], s.Title), false) {
			fmt.Println("aborted")
			return nil
		}

		if err := h.Facade.Delete(cmd.Context(), s.SessionID); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", s.SessionID)
		return nil
	},
}

func confirm(question string, defaultYes bool) bool {
	prompt := fmt.Sprintf("%s [y/N] ", question)
	if defaultYes {
		prompt = fmt.Sprintf("%s [Y/n] ", question)
	}
	fmt.Print(prompt)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return defaultYes
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
