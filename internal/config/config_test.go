package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart)

	info, err := os.Stat(path)
	require.NoError(t, err, "config file not written")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
listen: ":9090"
week_start: Monday
task_due_fallback: nowhere
default_times:
  order: "18:30"
  task: "later"
ics:
  - url: https://example.com/cal.ics
    name: Work
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, time.Monday, cfg.Weekday())
	assert.Equal(t, "today", cfg.TaskDueFallback)
	assert.Equal(t, "18:30", cfg.DefaultTimes.Order)
	assert.Equal(t, "09:00", cfg.DefaultTimes.Task, "malformed time falls back")
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "Work", cfg.ICS[0].SourceID())
	assert.NotEmpty(t, cfg.RenewalCron)
	assert.Positive(t, cfg.ICSHorizonDays)
}

func TestCronSpecs_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh: \"-\"\nrenewal_cron: \"@daily\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, CronDisabled, cfg.RefreshCron, "opt-out value survives Normalize")
	assert.Empty(t, cfg.RefreshSpec())
	assert.Equal(t, "@daily", cfg.RenewalSpec())

	defaults := DefaultConfig()
	assert.Equal(t, defaults.RefreshCron, defaults.RefreshSpec())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	cfg.CacheTTLSeconds = -1
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	require.NoError(t, cfg.Save(path))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", got.Timezone)
	require.NotNil(t, got.BasicAuth)
	assert.Equal(t, "u", got.BasicAuth.Username)
	assert.Negative(t, got.CacheTTL(), "negative ttl disables caching")
}

func TestLocation_Fallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	loc, err := cfg.Location()
	require.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}
