package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 60*time.Second, cfg.Game.GracePeriod)
	assert.Equal(t, 800*time.Millisecond, cfg.Game.BotDelayMin)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
database:
  url: "postgres://localhost/loveletter"
auth:
  audience: "client-id-1"
game:
  grace_period: 30s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "postgres://localhost/loveletter", cfg.Database.URL)
	assert.Equal(t, "client-id-1", cfg.Auth.Audience)
	assert.Equal(t, 30*time.Second, cfg.Game.GracePeriod)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Game.BotDelayMax)
}

func TestLoadRejectsInvertedBotDelays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
game:
  bot_delay_min: 3s
  bot_delay_max: 1s
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_delay_max")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOVELETTER_SERVER_ADDRESS", ":7777")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Address)
}
