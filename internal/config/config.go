package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHeading  = "Google Calendar"
	DefaultListen   = "127.0.0.1:8080"
	DefaultRefresh  = "*/15 * * * *"
	DefaultCacheDir = "./cache/ics-cache"
	DefaultLogLevel = "info"
)

// ErrEmptyPath is returned by Load and Save for an empty path.
var ErrEmptyPath = errors.New("config path is empty")

// SourceConfig describes one calendar to convert.
type SourceConfig struct {
	// ID is an internal identifier used in logs and the HTTP API.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is a local path, file:// URL or http(s)/webcal subscription.
	URL string `yaml:"url" json:"url"`
	// Output is the Org file written by `watch`. Empty derives it from URL.
	Output string `yaml:"output" json:"output"`
}

// Key returns ID, falling back to Name and then URL.
func (s SourceConfig) Key() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	default:
		return s.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for `serve`.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Heading is the top-level Org heading.
	Heading string `yaml:"heading" json:"heading"`

	// IncludeTime adds the time of day to SCHEDULED timestamps.
	IncludeTime bool `yaml:"include_time" json:"include_time"`

	// Details renders location, organizer and description under each event.
	Details bool `yaml:"details" json:"details"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Listen is the HTTP listen address for `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Refresh is a cron spec (e.g. "*/15 * * * *") for `watch`.
	Refresh string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the HTTP cache for remote sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Sources is the list of calendars used by `watch` and `serve`.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Heading:  DefaultHeading,
		LogLevel: DefaultLogLevel,
		Listen:   DefaultListen,
		Refresh:  DefaultRefresh,
		CacheDir: DefaultCacheDir,
		Sources:  []SourceConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Heading) == "" {
		c.Heading = DefaultHeading
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = DefaultLogLevel
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("sources[%d]: url is empty", i)
		}
		key := s.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate sources
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller may still run on the defaults.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
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

	tmp, err := os.CreateTemp(dir, ".ics2org-config-*.tmp")
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

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
