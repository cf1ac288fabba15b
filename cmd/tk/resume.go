package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/session"
)

var (
	resumeCommand         string
	resumeSkipPermissions bool
	resumePrompt          string
	resumeDryRun          bool
)

var resumeCmd = &cobra.Command{
	Use:     "resume <query>",
	GroupID: "ops",
	Short:   "Resume a session by launching the assistant in its working directory",
	Long: `Resume resolves query the same way every other command does (exact id,
exact slug, id prefix, substring over slug, substring over title), builds
the launch descriptor for it, and runs the assistant inheriting the
current terminal's standard I/O. The parent ignores SIGINT while the
child runs, so the child's own foreground process group receives it.

Examples:
  tk resume a1b2c3d4
  tk resume "fix the parser" --command claude
  tk resume a1b2c3d4 --dry-run
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

		desc, err := h.Facade.BuildDescriptor(cmd.Context(), s.SessionID, session.LaunchOptions{
			Command:         resumeCommand,
			SkipPermissions: resumeSkipPermissions,
			Prompt:          resumePrompt,
		})
		if err != nil {
			return err
		}

		if resumeDryRun {
			fmt.Printf("%s %v (cwd %s)\n", desc.Command, desc.Args, desc.Cwd)
			return nil
		}

		_, code, err := session.Launch(cmd.Context(), desc, false)
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeCommand, "command", "claude", "assistant binary to launch")
	resumeCmd.Flags().BoolVar(&resumeSkipPermissions, "skip-permissions", false, "pass --dangerously-skip-permissions to the assistant")
	resumeCmd.Flags().StringVar(&resumePrompt, "prompt", "", "initial prompt to pass to the assistant")
	resumeCmd.Flags().BoolVar(&resumeDryRun, "dry-run", false, "print the command that would run without executing it")
	rootCmd.AddCommand(resumeCmd)
}
