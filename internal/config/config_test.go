package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("reads values from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		content := `
server:
  port: "9090"
storage:
  backend: postgres
  database_url: postgres://localhost/derrite
alerts:
  distance_meters: 500
  sweep_interval_seconds: 30
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "postgres", cfg.Storage.Backend)
		assert.Equal(t, "postgres://localhost/derrite", cfg.Storage.DatabaseURL)
		assert.Equal(t, 500.0, cfg.Alerts.DistanceMeters)
		assert.Equal(t, int64(30), cfg.Alerts.SweepIntervalSeconds)
	})

	t.Run("applies defaults for unset fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "file", cfg.Storage.Backend)
		assert.Equal(t, "data", cfg.Storage.Path)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})

	t.Run("environment overrides the database url", func(t *testing.T) {
		t.Setenv("DERRITE_DATABASE_URL", "postgres://env/derrite")

		cfg := Default()
		assert.Equal(t, "postgres://env/derrite", cfg.Storage.DatabaseURL)
	})
}
