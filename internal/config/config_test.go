package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEVPILOT_HOME", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "08:00", cfg.DailyTime)
	assert.Equal(t, filepath.Join(dir, "devpilot.db"), cfg.DBPath)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, 30*time.Minute, cfg.Recheck())
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEVPILOT_HOME", dir)

	cfg := DefaultConfig()
	require.NoError(t, cfg.Set("daily_time", "07:30"))
	require.NoError(t, cfg.Set("gemini_timeout", "15s"))
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "07:30", loaded.DailyTime)
	assert.Equal(t, 15*time.Second, loaded.Timeout())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEVPILOT_HOME", t.TempDir())
	t.Setenv("DEVPILOT_DAILY_TIME", "09:15")
	t.Setenv("DEVPILOT_GEMINI_TIMEOUT", "nonsense")

	cfg := DefaultConfig()
	assert.Equal(t, "09:15", cfg.DailyTime)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Set("daily_time", "25:99"))
	assert.Error(t, cfg.Set("confirm_delete", "maybe"))
	assert.Error(t, cfg.Set("colour", "blue"))
}

func TestParseDailyTime(t *testing.T) {
	h, m, err := ParseDailyTime("08:00")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 0, m)

	_, _, err = ParseDailyTime("8am")
	assert.Error(t, err)
}
