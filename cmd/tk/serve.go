package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corvid/transcriptkeeper/internal/activitylog"
	"github.com/corvid/transcriptkeeper/internal/bridge"
	"github.com/corvid/transcriptkeeper/internal/config"
)

var (
	serveAddr    string
	serveCommand string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "ops",
	Short:   "Run the Remote Session Bridge server",
	Long: `Serve starts the Remote Session Bridge: an authenticated HTTP and
WebSocket server exposing the session index, live terminal streams, and
live chat-mode streams to a remote client (for example a phone browser).

Run "tk login" first to set the bridge password; serve refuses to start
without one configured.

Examples:
  tk serve
  tk serve --addr :8443 --command claude
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		configPath := dir + "/" + bridge.ConfigFileName

		cfg, err := bridge.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if !cfg.PasswordSet() {
			return fmt.Errorf("no bridge password configured; run %q first", "tk login")
		}
		if cfg.TokenSecret == "" {
			secret, err := bridge.GenerateSecret()
			if err != nil {
				return err
			}
			cfg.TokenSecret = string(secret)
			if err := cfg.Save(configPath); err != nil {
				return err
			}
		}

		if _, err := activitylog.EnsureFile(dir); err != nil {
			return err
		}

		auth := bridge.NewAuthenticator([]byte(cfg.PasswordHash), []byte(cfg.TokenSecret))
		server := bridge.NewServer(h.Facade, auth, cfg, configPath, dir, serveCommand)
		server.Notifier = bridge.NewNotificationTrigger(bridge.CompilePatterns(config.GetStringSlice("notification.patterns")))

		fmt.Printf("bridge listening on %s\n", serveAddr)
		return http.ListenAndServe(serveAddr, server.Routes())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8787", "address to listen on")
	serveCmd.Flags().StringVar(&serveCommand, "command", "claude", "assistant binary spawned for live terminal sessions")
	rootCmd.AddCommand(serveCmd)
}
