package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/corvid/transcriptkeeper/internal/bridge"
	"github.com/corvid/transcriptkeeper/internal/config"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "ops",
	Short:   "Set the Remote Session Bridge password",
	Long: `Login sets (or replaces) the password the bridge server checks before
handing out a bearer token, and generates a fresh HMAC token secret if
one is not already configured. It does not itself contact a running
bridge; restart "tk serve" for a changed password to take effect.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		path := dir + "/" + bridge.ConfigFileName

		cfg, err := bridge.LoadConfig(path)
		if err != nil {
			return err
		}

		password, err := readPassword()
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		hash, err := bridge.HashPassword(password)
		if err != nil {
			return err
		}
		cfg.PasswordHash = hash

		if cfg.TokenSecret == "" {
			secret, err := bridge.GenerateSecret()
			if err != nil {
				return err
			}
			cfg.TokenSecret = string(secret)
		}

		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Println("bridge password set")
		return nil
	},
}

// readPassword prompts on a real terminal; piped input (scripts, CI) is
// read as a single plain line instead, since there is no tty to mask.
func readPassword() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	var password string
	if err := huh.NewInput().
		Title("Bridge password").
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run(); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
