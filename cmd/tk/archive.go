package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:     "archive <query>",
	GroupID: "mutate",
	Short:   "Archive a session",
	Long:    `Archive sets the archive overlay, which survives any future re-index or rebuild of the same session id.`,
	Args:    cobra.ExactArgs(1),
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
		if err := h.Facade.Archive(cmd.Context(), s.SessionID); err != nil {
			return err
		}
		fmt.Printf("archived %s\n", s.SessionID)
		return nil
	},
}

var unarchiveCmd = &cobra.Command{
	Use:     "unarchive <query>",
	GroupID: "mutate",
	Short:   "Clear a session's archive overlay",
	Args:    cobra.ExactArgs(1),
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
		if err := h.Facade.Unarchive(cmd.Context(), s.SessionID); err != nil {
			return err
		}
		fmt.Printf("unarchived %s\n", s.SessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(unarchiveCmd)
}
