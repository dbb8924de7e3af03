package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, "telegram:\n  bot_token: \"abc\"\nstorage:\n  sqlite:\n    path: \""+filepath.Join(dir, "db", "x.db")+"\"\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "abc", cfg.Telegram.BotToken)
		assert.Equal(t, "Room Booking Bot", cfg.Bot.Name)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "data/audit", cfg.Audit.Path)
		assert.Equal(t, 180*time.Minute, cfg.MaxBookingDuration())
		assert.Equal(t, 10*time.Minute, cfg.JanitorSweepInterval())
	})

	t.Run("EnvExpansion", func(t *testing.T) {
		t.Setenv("SLOTBOT_TEST_TOKEN", "secret-token")
		dir := t.TempDir()
		path := writeConfig(t, "telegram:\n  bot_token: \"${SLOTBOT_TEST_TOKEN}\"\nstorage:\n  sqlite:\n    path: \""+filepath.Join(dir, "x.db")+"\"\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	})

	t.Run("ExplicitValues", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, `
telegram:
  bot_token: "abc"
bot:
  name: "Meeting Rooms"
storage:
  backend: "memory"
  sqlite:
    path: "`+filepath.Join(dir, "x.db")+`"
booking:
  max_duration_minutes: 60
janitor:
  sweep_interval_minutes: 5
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Meeting Rooms", cfg.Bot.Name)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, time.Hour, cfg.MaxBookingDuration())
		assert.Equal(t, 5*time.Minute, cfg.JanitorSweepInterval())
	})

	t.Run("NoFilesystemSideEffects", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "nested", "x.db")
		path := writeConfig(t, "telegram:\n  bot_token: \"abc\"\nstorage:\n  backend: \"memory\"\n  sqlite:\n    path: \""+dbPath+"\"\n")

		_, err := Load(path)
		require.NoError(t, err)

		// The sqlite directory belongs to the sqlite backend, not to config
		// loading.
		_, err = os.Stat(filepath.Dir(dbPath))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
