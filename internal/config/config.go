// Package config is the layered Viper-based configuration singleton:
// project .tk/config.yaml, then a user config directory, then the home
// directory, with TK_-prefixed environment overrides on top of all of
// them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".tk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "tk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".tk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("TK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("transcript-root", defaultTranscriptRoot())
	v.SetDefault("scratch-root", defaultScratchRoot())
	v.SetDefault("bridge-addr", "127.0.0.1:8787")
	v.SetDefault("bridge-password-hash", "")
	v.SetDefault("push-vapid-public", "")
	v.SetDefault("push-vapid-private", "")
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("notification.patterns", defaultNotificationPatterns())

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return migrateLegacyRenames()
}

func defaultTranscriptRoot() string {
	if override := os.Getenv("TK_TRANSCRIPT_ROOT"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude")
}

func defaultScratchRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tk", "scratch")
}

func defaultNotificationPatterns() []string {
	return []string{
		`\?\s*$`,
		`\(y/n\)`,
		`\(Y/n\)`,
		`\bdone\b\s*$`,
	}
}

// ConfigDir returns the directory the active config file lives in (or
// would live in, if none was found), for siblings like the activity log
// and the server secrets file.
func ConfigDir() (string, error) {
	if v != nil && v.ConfigFileUsed() != "" {
		return filepath.Dir(v.ConfigFileUsed()), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(configDir, "tk"), nil
}

func GetString(key string) string        { return v.GetString(key) }
func GetBool(key string) bool            { return v.GetBool(key) }
func GetStringSlice(key string) []string { return v.GetStringSlice(key) }

func Set(key string, value any) { v.Set(key, value) }
