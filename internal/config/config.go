package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const appName = "duet"

// Config is the client configuration. Values come from DefaultConfig, then
// the YAML file, then DUET_* environment variables.
type Config struct {
	// BaseURL is the backend origin; API paths (/api/v1/...) are appended to it.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`

	// Token is the bearer token attached to every request.
	Token string `yaml:"token" envconfig:"TOKEN"`

	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	// CachePath is the SQLite snapshot cache location.
	CachePath string `yaml:"cache_path" envconfig:"CACHE_PATH"`

	LogFile  string `yaml:"log_file" envconfig:"LOG_FILE"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// Timezone is an IANA name; empty keeps the system zone.
	Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`

	// WeekStart is "monday" or "sunday".
	WeekStart string `yaml:"week_start" envconfig:"WEEK_START"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dir := defaultDir()
	return &Config{
		BaseURL:   "http://127.0.0.1:8080",
		Timeout:   30 * time.Second,
		CachePath: filepath.Join(dir, "cache.db"),
		LogFile:   filepath.Join(dir, "duet.log"),
		LogLevel:  "info",
		WeekStart: "monday",
	}
}

// DefaultPath returns ~/.config/duet/config.yaml (or the OS equivalent).
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(cfg, appName)
}

// Load builds the configuration. A missing file at path is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("DUET", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize fills zero values so partially written files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.CachePath == "" {
		c.CachePath = def.CachePath
	}
	if c.LogFile == "" {
		c.LogFile = def.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %v", c.Timeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, defaulting to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
