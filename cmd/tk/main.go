// Command tk is the transcriptkeeper CLI: the collaborator that drives
// the Session Index and Remote Session Bridge from a terminal. It owns
// none of the core's hard engineering; every command here is a thin
// wrapper over internal/session, internal/sync, and internal/bridge.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tk: %v\n", err)
		os.Exit(1)
	}
}
