// Package config loads and persists the daemon's YAML configuration.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drewfead/statusboard/internal/status"
)

// StatusStyle is how one status renders on the dashboard.
type StatusStyle struct {
	Class string `yaml:"class" json:"class"`
	Text  string `yaml:"text" json:"text"`
}

// CalendarConfig describes one tracked calendar.
type CalendarConfig struct {
	// ID is the internal identifier used as cache key and in API responses.
	ID string `yaml:"id" json:"id"`
	// CalendarID is the identifier at the provider ("primary" or a group
	// calendar address).
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
	// Name is the label shown on the dashboard.
	Name string `yaml:"name" json:"name"`

	// PendingMinutes is the short lookahead window before an event starts.
	PendingMinutes int `yaml:"pending_minutes" json:"pending_minutes"`
	// PrepareMinutes is the longer, optional lookahead window. It only takes
	// effect when the Statuses map contains a PREPARE entry and the window
	// is strictly longer than PendingMinutes.
	PrepareMinutes int `yaml:"prepare_minutes,omitempty" json:"prepare_minutes,omitempty"`

	// Statuses maps a status name (FREE, PENDING, PREPARE, BUSY, ERROR) to
	// its display style.
	Statuses map[string]StatusStyle `yaml:"statuses" json:"statuses"`
}

// SchedulerConfig tunes the background re-evaluation loop.
type SchedulerConfig struct {
	MinIntervalSeconds  int `yaml:"min_interval_seconds" json:"min_interval_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	MaxIntervalSeconds  int `yaml:"max_interval_seconds" json:"max_interval_seconds"`
}

// GameStatusConfig describes the optional third-party game-server status
// poller shown alongside the calendars.
type GameStatusConfig struct {
	// URL is the realm-status JSON endpoint.
	URL string `yaml:"url" json:"url"`
	// PollSeconds is the fixed polling interval.
	PollSeconds int `yaml:"poll_seconds" json:"poll_seconds"`
	// Realms maps the realm key in the API response to the display name
	// shown on the dashboard.
	Realms map[string]string `yaml:"realms" json:"realms"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard.
	Listen string `yaml:"listen" json:"listen"`

	// CredentialsFile and TokenFile locate the Google credential material.
	// Empty values fall back to the ~/.config/statusboard defaults.
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	TokenFile       string `yaml:"token_file,omitempty" json:"token_file,omitempty"`

	// MaxFetchIntervalSeconds bounds how stale the raw event cache may get
	// before a provider refresh is required.
	MaxFetchIntervalSeconds int `yaml:"max_fetch_interval_seconds" json:"max_fetch_interval_seconds"`

	// RefreshCooldownSeconds rate-limits the manual refresh endpoint.
	RefreshCooldownSeconds int `yaml:"refresh_cooldown_seconds" json:"refresh_cooldown_seconds"`

	// FetchBackHours / FetchAheadHours define the event window requested
	// from the provider on each refresh.
	FetchBackHours  int `yaml:"fetch_back_hours" json:"fetch_back_hours"`
	FetchAheadHours int `yaml:"fetch_ahead_hours" json:"fetch_ahead_hours"`

	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// GameStatus, if non-nil, enables the game-server status poller.
	GameStatus *GameStatusConfig `yaml:"game_status,omitempty" json:"game_status,omitempty"`

	// Calendars is the list of tracked calendars, in display order.
	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`
}

// DefaultConfig returns an in-memory default configuration with a single
// primary calendar.
func DefaultConfig() *Config {
	return &Config{
		Listen:                  "127.0.0.1:8080",
		MaxFetchIntervalSeconds: 12 * 3600,
		RefreshCooldownSeconds:  30,
		FetchBackHours:          4,
		FetchAheadHours:         48,
		Scheduler: SchedulerConfig{
			MinIntervalSeconds:  60,
			PollIntervalSeconds: 300,
			MaxIntervalSeconds:  3600,
		},
		Calendars: []CalendarConfig{
			{
				ID:             "primary",
				CalendarID:     "primary",
				Name:           "Primary Calendar",
				PendingMinutes: 15,
				Statuses: map[string]StatusStyle{
					"FREE":    {Class: "status-green", Text: "FREE"},
					"PENDING": {Class: "status-yellow", Text: "SOON"},
					"BUSY":    {Class: "status-red", Text: "BUSY"},
					"ERROR":   {Class: "status-orange", Text: "ERROR"},
				},
			},
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.MaxFetchIntervalSeconds <= 0 {
		c.MaxFetchIntervalSeconds = 12 * 3600
	}
	if c.RefreshCooldownSeconds <= 0 {
		c.RefreshCooldownSeconds = 30
	}
	if c.FetchBackHours <= 0 {
		c.FetchBackHours = 4
	}
	if c.FetchAheadHours <= 0 {
		c.FetchAheadHours = 48
	}
	if c.Scheduler.MinIntervalSeconds <= 0 {
		c.Scheduler.MinIntervalSeconds = 60
	}
	if c.Scheduler.PollIntervalSeconds <= 0 {
		c.Scheduler.PollIntervalSeconds = 300
	}
	if c.Scheduler.MaxIntervalSeconds <= 0 {
		c.Scheduler.MaxIntervalSeconds = 3600
	}
	if c.GameStatus != nil && c.GameStatus.PollSeconds <= 0 {
		c.GameStatus.PollSeconds = 60
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		if c.Calendars[i].PendingMinutes <= 0 {
			c.Calendars[i].PendingMinutes = 15
		}
		if c.Calendars[i].CalendarID == "" {
			c.Calendars[i].CalendarID = c.Calendars[i].ID
		}
	}
}

// StatusConfigs converts the calendar list into the resolver's configuration
// type, translating minute counts into durations and status names into typed
// statuses.
func (c *Config) StatusConfigs() []status.CalendarConfig {
	out := make([]status.CalendarConfig, 0, len(c.Calendars))
	for _, cal := range c.Calendars {
		styles := make(map[status.Status]status.Style, len(cal.Statuses))
		for name, style := range cal.Statuses {
			styles[status.Status(name)] = status.Style{
				Class: style.Class,
				Text:  style.Text,
			}
		}
		out = append(out, status.CalendarConfig{
			ID:         cal.ID,
			ProviderID: cal.CalendarID,
			Name:       cal.Name,
			Pending:    time.Duration(cal.PendingMinutes) * time.Minute,
			Prepare:    time.Duration(cal.PrepareMinutes) * time.Minute,
			Styles:     styles,
		})
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (creating
// the parent directory if needed) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
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

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermMode); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".statusboard-config-*.tmp")
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
