package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a remote calendar whose events are imported as meetings.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID tags imported entries so a re-sync can replace them.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DefaultTimes are display times (HH:MM) for events whose source carries none.
type DefaultTimes struct {
	Task         string `yaml:"task" json:"task"`
	Order        string `yaml:"order" json:"order"`
	Subscription string `yaml:"subscription" json:"subscription"`
	Invoice      string `yaml:"invoice" json:"invoice"`
	Calendar     string `yaml:"calendar" json:"calendar"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Database is the SQLite file path (or DSN).
	Database string `yaml:"database" json:"database"`

	// Timezone is the IANA timezone dates are rendered in (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first grid column: "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron schedules ICS re-sync. CronDisabled keeps the job out of
	// the schedule; it still runs with -once.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// RenewalCron schedules rolling lapsed subscription renewals forward.
	// Accepts CronDisabled like RefreshCron.
	RenewalCron string `yaml:"renewal_cron" json:"renewal_cron"`

	// TaskDueFallback decides where undated tasks go: "today" or "skip".
	TaskDueFallback string `yaml:"task_due_fallback" json:"task_due_fallback"`

	// CacheTTLSeconds bounds how long aggregated events are reused between
	// mutations. Negative disables the cache.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	DefaultTimes DefaultTimes `yaml:"default_times" json:"default_times"`

	// ICS is the list of imported calendars.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// ICSCacheDir stores ETag/Last-Modified metadata and bodies per feed.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// ICSBackfillDays / ICSHorizonDays bound recurring-event expansion.
	ICSBackfillDays int `yaml:"ics_backfill_days" json:"ics_backfill_days"`
	ICSHorizonDays  int `yaml:"ics_horizon_days" json:"ics_horizon_days"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// CronDisabled as a cron value turns the scheduled run of that job off.
const CronDisabled = "-"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Database:        "./var/opscal.db",
		Timezone:        "UTC",
		WeekStart:       "sunday",
		LogLevel:        "info",
		RefreshCron:     "*/15 * * * *",
		RenewalCron:     "5 0 * * *",
		TaskDueFallback: "today",
		CacheTTLSeconds: 30,
		DefaultTimes: DefaultTimes{
			Task:         "09:00",
			Order:        "17:00",
			Subscription: "09:00",
			Invoice:      "12:00",
			Calendar:     "09:00",
		},
		ICS:             []ICSConfig{},
		ICSCacheDir:     "./var/ics-cache",
		ICSBackfillDays: 31,
		ICSHorizonDays:  366,
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = d.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.RenewalCron == "" {
		c.RenewalCron = d.RenewalCron
	}
	switch c.TaskDueFallback {
	case "today", "skip":
	default:
		c.TaskDueFallback = d.TaskDueFallback
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = d.CacheTTLSeconds
	}
	fillTime(&c.DefaultTimes.Task, d.DefaultTimes.Task)
	fillTime(&c.DefaultTimes.Order, d.DefaultTimes.Order)
	fillTime(&c.DefaultTimes.Subscription, d.DefaultTimes.Subscription)
	fillTime(&c.DefaultTimes.Invoice, d.DefaultTimes.Invoice)
	fillTime(&c.DefaultTimes.Calendar, d.DefaultTimes.Calendar)
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = d.ICSCacheDir
	}
	if c.ICSBackfillDays < 0 {
		c.ICSBackfillDays = 0
	}
	if c.ICSHorizonDays <= 0 {
		c.ICSHorizonDays = d.ICSHorizonDays
	}
}

// fillTime replaces empty or malformed HH:MM values with def.
func fillTime(v *string, def string) {
	if _, err := time.Parse("15:04", *v); err != nil {
		*v = def
	}
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// RefreshSpec returns the ICS sync cron spec, empty when disabled.
func (c *Config) RefreshSpec() string {
	return cronSpec(c.RefreshCron)
}

// RenewalSpec returns the renewal rollover cron spec, empty when disabled.
func (c *Config) RenewalSpec() string {
	return cronSpec(c.RenewalCron)
}

func cronSpec(v string) string {
	v = strings.TrimSpace(v)
	if v == CronDisabled {
		return ""
	}
	return v
}

// Weekday maps WeekStart to a time.Weekday.
func (c *Config) Weekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// CacheTTL converts CacheTTLSeconds; negative values disable caching.
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds < 0 {
		return -1
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".opscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
