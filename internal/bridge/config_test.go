package bridge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigReturnsZeroValueWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.False(t, cfg.PasswordSet())
}

func TestConfigSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bridge.json")

	cfg := &Config{PasswordHash: "hash", TokenSecret: "secret"}
	require.NoError(t, cfg.Save(path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, reloaded.PasswordSet())
	require.Equal(t, "hash", reloaded.PasswordHash)
	require.Equal(t, "secret", reloaded.TokenSecret)
}

func TestConfigSavePersistsPushSubscriptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	cfg := &Config{}
	cfg.PushSubscriptions = append(cfg.PushSubscriptions, PushSubscription{
		Endpoint: "https://push.example/abc",
		Keys:     map[string]string{"p256dh": "key"},
	})
	require.NoError(t, cfg.Save(path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, reloaded.PushSubscriptions, 1)
	require.Equal(t, "https://push.example/abc", reloaded.PushSubscriptions[0].Endpoint)
}
