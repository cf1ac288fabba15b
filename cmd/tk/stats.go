package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "views",
	Short:   "Show index totals",
	Long:    `Stats reports the number of indexed sessions and messages, and the index database's on-disk size.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		st, err := h.Store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("sessions: %d\n", st.SessionCount)
		fmt.Printf("messages: %d\n", st.MessageCount)
		fmt.Printf("database: %.1f MiB\n", float64(st.DatabaseBytes)/(1024*1024))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
