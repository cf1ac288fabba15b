package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
)

var (
	searchMaxSessions int
	searchMaxMatches  int
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	GroupID: "views",
	Short:   "Full-text search across all sessions",
	Long: `Search runs a full-text query over every indexed message and groups
matches by session, best match first.

A bare query is treated as an implicit AND over its terms (a single term
gets a trailing prefix match); quote a phrase, or use explicit OR/AND/-
operators, to control matching yourself.

Examples:
  tk search database lock
  tk search "exact phrase"
  tk search foo OR bar
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		query := strings.Join(args, " ")
		results, err := h.Facade.Search(cmd.Context(), query, sqlite.SearchLimits{
			MaxSessions:          searchMaxSessions,
			MaxMatchesPerSession: searchMaxMatches,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println(dimStyle.Render("No matches."))
			return nil
		}
		for _, r := range results {
			id := r.SessionID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s\n", dimStyle.Render(id), titleStyle.Render(r.Title))
			for _, m := range r.Matches {
				fmt.Printf("    %s\n", m.Snippet)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxSessions, "max-sessions", 0, "cap the number of sessions returned (0 = default)")
	searchCmd.Flags().IntVar(&searchMaxMatches, "max-matches", 0, "cap matches shown per session (0 = default)")
	rootCmd.AddCommand(searchCmd)
}
