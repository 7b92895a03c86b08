package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// MaxRecent is how many performances Recent remembers
const MaxRecent = 8

// Duration is a time.Duration written as "2s", "500ms"
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain numbers are milliseconds
		var ms int64
		if err2 := json.Unmarshal(data, &ms); err2 != nil {
			return fault.Wrap(err, fmsg.With("duration"), ftag.With(ftag.InvalidArgument))
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fault.Wrap(err, fmsg.With("duration "+s), ftag.With(ftag.InvalidArgument))
	}
	*d = Duration(v)
	return nil
}

// Config is the main configuration structure
type Config struct {
	Performance  string   `json:"performance,omitempty"` // last descriptor path or URL
	LogLevel     string   `json:"logLevel,omitempty"`
	Headless     bool     `json:"headless,omitempty"`
	PollInterval Duration `json:"pollInterval,omitempty"` // hot-plug rescan
	FetchTimeout Duration `json:"fetchTimeout,omitempty"`
	Palette      string   `json:"palette,omitempty"` // GPL file, "" for the built-in one
	Launchpad    bool     `json:"launchpad"`
	Recent       []string `json:"recent,omitempty"` // most recent first
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		PollInterval: Duration(2 * time.Second),
		FetchTimeout: Duration(30 * time.Second),
		Launchpad:    true,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("home directory"))
	}
	return filepath.Join(home, ".config", "solo-orchestra"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns where the debug log is written
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Fields missing from the file keep their defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fault.Wrap(err, fmsg.With("read config"))
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.With("parse "+path), ftag.With(ftag.InvalidArgument))
	}
	if len(cfg.Recent) > MaxRecent {
		cfg.Recent = cfg.Recent[:MaxRecent]
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		return fault.Wrap(err, fmsg.With("write config"))
	}
	return nil
}

// AddRecent moves ref to the front of Recent and makes it the current
// performance
func (c *Config) AddRecent(ref string) {
	if ref == "" {
		return
	}
	c.Performance = ref
	recent := []string{ref}
	for _, r := range c.Recent {
		if r != ref && len(recent) < MaxRecent {
			recent = append(recent, r)
		}
	}
	c.Recent = recent
}
