package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should fall back to defaults when the file is missing", func(t *testing.T) {
		// when
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.NoError(t, err)
		assert.Equal(t, Defaults(), cfg)
		assert.Equal(t, 500*time.Millisecond, cfg.Picker.Debounce)
		assert.Equal(t, 24*time.Hour, cfg.Forms.TTL)
		assert.False(t, cfg.Cache.Persist)
	})

	t.Run("should layer file and environment over defaults", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := []byte(`
backend:
  baseurl: https://finance.example.com/api/v1
picker:
  debounce: 250ms
forms:
  ttl: 2h
cache:
  persist: true
db:
  port: 6543
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))
		t.Setenv("MONEYBOARD_DB_HOST", "db.internal")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "https://finance.example.com/api/v1", cfg.Backend.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 250*time.Millisecond, cfg.Picker.Debounce)
		assert.Equal(t, 2*time.Hour, cfg.Forms.TTL)
		assert.Equal(t, 10*time.Minute, cfg.Forms.Sweep)
		assert.True(t, cfg.Cache.Persist)
		assert.Equal(t, 6543, cfg.Database.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, "moneyboard", cfg.Database.Name)
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		require.NoError(t, os.WriteFile(path, []byte("picker: [unclosed"), 0o600))

		// when
		_, err := Load(path)

		// then
		assert.Error(t, err)
	})
}
