package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rowlog/xtime"
)

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Sessions Sessions
	Shell    Shell

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Sessions defines configuration options for rowing sessions.
type Sessions struct {
	// DefaultDuration is the estimated duration of a session unless specified
	// by the user. It serializes from/to xtime.Duration string values.
	// Minimum value: 1 minute.
	DefaultDuration sql.Null[time.Duration] `json:"default_duration"`
}

// Shell defines configuration options for running external programs.
type Shell struct {
	// Allow is the list of glob patterns of programs the application may run,
	// e.g. for opening exported files.
	Allow []string `json:"allow"`
}

type cfgWrapper struct {
	Sessions sessionsCfgWrapper `json:"sessions"`
	Shell    shellCfgWrapper    `json:"shell"`
}
type sessionsCfgWrapper struct {
	DefaultDuration string `json:"default_duration,omitempty"`
}
type shellCfgWrapper struct {
	Allow []string `json:"allow,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Sessions.DefaultDuration.Valid {
		w.Sessions.DefaultDuration = xtime.FormatDuration(c.Sessions.DefaultDuration.V, time.Minute)
	}
	w.Shell.Allow = c.Shell.Allow

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Sessions.DefaultDuration != "" {
		dur, err := xtime.ParseDuration(w.Sessions.DefaultDuration)
		if err != nil {
			return fmt.Errorf("failed parsing default session duration: %w", err)
		}
		if dur < time.Minute {
			return fmt.Errorf("default session duration must be at least 1 minute, got '%s'",
				w.Sessions.DefaultDuration)
		}
		c.Sessions.DefaultDuration = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	if len(w.Shell.Allow) > 0 {
		c.Shell.Allow = w.Shell.Allow
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Sessions.DefaultDuration.Valid {
		c.Sessions.DefaultDuration = sql.Null[time.Duration]{V: time.Hour, Valid: true}
	}
	if len(c.Shell.Allow) == 0 {
		c.Shell.Allow = []string{"xdg-open", "open"}
	}
}
