package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ConfigFileName is the server configuration file name, stored alongside
// the rest of the per-user config.
const ConfigFileName = "bridge.json"

// PushSubscription is an opaque subscription payload handed back to the
// push collaborator; its shape is whatever the client's push library
// sends, so it is stored and returned verbatim.
type PushSubscription struct {
	Endpoint string            `json:"endpoint"`
	Keys     map[string]string `json:"keys"`
}

// Config is the Bridge Server's persisted configuration. It is written
// atomically and guarded by a file lock across concurrent writers, though
// in practice writes are rare (password set, a new push subscription).
type Config struct {
	PasswordHash     string             `json:"passwordHash"`
	TokenSecret      string             `json:"tokenSecret"`
	PushVapidPublic  string             `json:"pushVapidPublic"`
	PushVapidPrivate string             `json:"pushVapidPrivate"`
	PushSubscriptions []PushSubscription `json:"pushSubscriptions"`
}

// LoadConfig reads the configuration file at path, returning a zero-value
// Config if it does not yet exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read bridge config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse bridge config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (write to a temp sibling, then
// rename), holding an advisory file lock for the duration so concurrent
// writers (e.g. two CLI invocations) do not interleave.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create bridge config directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire bridge config lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another process is writing the bridge config")
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bridge config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write bridge config temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename bridge config into place: %w", err)
	}
	return nil
}

// PasswordSet reports whether a password hash has been configured.
func (c *Config) PasswordSet() bool { return c.PasswordHash != "" }
