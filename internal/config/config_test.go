package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://edu.tatar.ru/index.htm", cfg.Scraper.BaseURL)
	assert.Equal(t, 15, cfg.Scraper.TimeoutSeconds)
	assert.False(t, cfg.Scraper.IgnoreRobots)
	assert.Equal(t, "institutions.csv", cfg.Store.Path)
	assert.False(t, cfg.Telegram.Enabled)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
scraper:
  user_agent: custom-agent/1.0
  timeout_seconds: 30
store:
  path: /tmp/catalog.csv
telegram:
  enabled: true
  token: test-token
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "custom-agent/1.0", cfg.Scraper.UserAgent)
	assert.Equal(t, 30, cfg.Scraper.TimeoutSeconds)
	assert.Equal(t, "/tmp/catalog.csv", cfg.Store.Path)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "test-token", cfg.Telegram.Token)
	// Unset keys fall back to defaults.
	assert.Equal(t, "https://edu.tatar.ru/index.htm", cfg.Scraper.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("telegram enabled without token", func(t *testing.T) {
		cfg := base()
		cfg.Telegram.Enabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty base url", func(t *testing.T) {
		cfg := base()
		cfg.Scraper.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty store path", func(t *testing.T) {
		cfg := base()
		cfg.Store.Path = ""
		assert.Error(t, cfg.Validate())
	})
}
