package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/session"
)

var (
	listIncludeArchived bool
	listIncludeDeleted  bool
	listArchivedOnly    bool
	listExcludeEmpty    bool
	listMinMessages     int
)

var titleStyle = lipgloss.NewStyle().Bold(true)
var dimStyle = lipgloss.NewStyle().Faint(true)
var warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "views",
	Short:   "List sessions, newest first",
	Long: `List indexed sessions, active sessions first (most recently accessed
first within that group), then deleted sessions (most recently deleted
first).

Examples:
  tk list
  tk list --archived
  tk list --deleted
  tk list --archived-only
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		summaries, err := h.Facade.Discover(cmd.Context(), session.DiscoverOptions{
			IncludeArchived: listIncludeArchived,
			IncludeDeleted:  listIncludeDeleted,
			ArchivedOnly:    listArchivedOnly,
			ExcludeEmpty:    listExcludeEmpty,
			MinMessages:     listMinMessages,
		})
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println(dimStyle.Render("No sessions found."))
			return nil
		}
		for _, s := range summaries {
			printSessionLine(s)
		}
		return nil
	},
}

func printSessionLine(s session.Summary) {
	id := s.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	tags := []string{}
	if s.IsArchived {
		tags = append(tags, "archived")
	}
	if s.IsDeleted {
		tags = append(tags, "deleted")
	}
	tagText := ""
	if len(tags) > 0 {
		tagText = " " + warnStyle.Render("["+strings.Join(tags, ",")+"]")
	}
	fmt.Printf("%s  %s  %s%s\n",
		dimStyle.Render(id),
		titleStyle.Render(truncate(s.Title, 60)),
		dimStyle.Render(fmt.Sprintf("%d msgs, %s", s.TotalMessages, s.LastAccessedAt.Format("2006-01-02 15:04"))),
		tagText,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	listCmd.Flags().BoolVar(&listIncludeArchived, "archived", false, "include archived sessions")
	listCmd.Flags().BoolVar(&listIncludeDeleted, "deleted", false, "include soft-deleted sessions")
	listCmd.Flags().BoolVar(&listArchivedOnly, "archived-only", false, "show only archived sessions")
	listCmd.Flags().BoolVar(&listExcludeEmpty, "exclude-empty", false, "exclude sessions with zero messages")
	listCmd.Flags().IntVar(&listMinMessages, "min-messages", 0, "only show sessions with at least this many messages")
	rootCmd.AddCommand(listCmd)
}
