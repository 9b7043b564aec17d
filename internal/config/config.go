package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// NOTE: YAML is the primary configuration surface. A missing file is
// created with defaults and 0600 permissions on first run. TIMETABLE_*
// environment variables override the file after it is read.

const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultTimezone       = "Asia/Kuching"
	DefaultDataDir        = "./data"
	DefaultCacheDir       = "./var/timetable-cache"
	DefaultRefreshCron    = "0 */6 * * *"
	DefaultFilenamePrefix = "swinburne-timetable"
	DefaultLogLevel       = "info"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the class times are published in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir holds "<CODE>_timetable.json" files. Used when SourceURL is empty.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// SourceURL, if set, is the base URL timetables are fetched from.
	SourceURL string `yaml:"source_url" json:"source_url"`

	// CacheDir is the disk cache for fetched timetables.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// used by the server to reload cached timetables.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FilenamePrefix starts every exported .ics filename.
	FilenamePrefix string `yaml:"filename_prefix" json:"filename_prefix"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// overrides are the environment variables read on top of the YAML file.
// Unset variables leave the file's value alone.
type overrides struct {
	Listen    string `env:"TIMETABLE_LISTEN"`
	Timezone  string `env:"TIMETABLE_TIMEZONE"`
	DataDir   string `env:"TIMETABLE_DATA_DIR"`
	SourceURL string `env:"TIMETABLE_SOURCE_URL"`
	CacheDir  string `env:"TIMETABLE_CACHE_DIR"`
	Refresh   string `env:"TIMETABLE_REFRESH"`
	LogLevel  string `env:"TIMETABLE_LOG_LEVEL"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		Timezone:       DefaultTimezone,
		DataDir:        DefaultDataDir,
		CacheDir:       DefaultCacheDir,
		RefreshCron:    DefaultRefreshCron,
		FilenamePrefix: DefaultFilenamePrefix,
		LogLevel:       DefaultLogLevel,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.FilenamePrefix == "" {
		c.FilenamePrefix = DefaultFilenamePrefix
	}
	c.SourceURL = strings.TrimRight(c.SourceURL, "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overrides fields from TIMETABLE_* environment variables.
func (c *Config) ApplyEnv() error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.Timezone, o.Timezone)
	set(&c.DataDir, o.DataDir)
	set(&c.SourceURL, o.SourceURL)
	set(&c.CacheDir, o.CacheDir)
	set(&c.RefreshCron, o.Refresh)
	set(&c.LogLevel, o.LogLevel)
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path and applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are never written back to disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			_ = cfg.ApplyEnv()
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".timetable-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
