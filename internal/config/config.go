// Package config loads the docview command-line configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCacheMaxBytes bounds the disk cache when the file does not.
const DefaultCacheMaxBytes int64 = 1 << 30

// ErrUnknownServer is returned by Config.Server for an ID not in the file.
var ErrUnknownServer = errors.New("config: unknown server")

// Config is the decoded configuration file.
type Config struct {
	Servers []Server `yaml:"servers"`
	Cache   Cache    `yaml:"cache"`
	Log     Log      `yaml:"log"`

	// MaxConcurrentPreviews bounds the number of concurrent first-entry reads.
	MaxConcurrentPreviews int `yaml:"max_concurrent_previews"`
}

// Server describes one WebDAV endpoint.
type Server struct {
	ID       string `yaml:"id"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// PasswordEnv names an environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`
}

// Cache configures the on-disk content cache.
type Cache struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `yaml:"level"`
	// File, when set, receives logs through a rotating writer.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Cache: Cache{
			Dir:      defaultCacheDir(),
			MaxBytes: DefaultCacheMaxBytes,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		MaxConcurrentPreviews: 2,
	}
}

// DefaultPath is the configuration file consulted when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "docview.yaml"
	}
	return filepath.Join(dir, "docview", "config.yaml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "docview")
	}
	return filepath.Join(dir, "docview")
}

// Load reads path and layers it over Default. A missing file yields the
// defaults when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks server entries for missing or duplicated fields.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Servers))
	var errs []error
	for i, s := range c.Servers {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: id is required", i))
			continue
		}
		if _, dup := seen[s.ID]; dup {
			errs = append(errs, fmt.Errorf("servers[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = struct{}{}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("server %q: url is required", s.ID))
		}
	}
	if c.Cache.MaxBytes < 0 {
		errs = append(errs, errors.New("cache.max_bytes must be >= 0"))
	}
	if c.MaxConcurrentPreviews < 0 {
		errs = append(errs, errors.New("max_concurrent_previews must be >= 0"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Server returns the server with the given ID.
func (c *Config) Server(id string) (Server, error) {
	for _, s := range c.Servers {
		if s.ID == id {
			return s, nil
		}
	}
	return Server{}, fmt.Errorf("%w: %q", ErrUnknownServer, id)
}

// Credentials returns the user name and resolved password. PasswordEnv
// takes precedence over an inline password when the variable is set.
func (s Server) Credentials() (username, password string) {
	password = s.Password
	if s.PasswordEnv != "" {
		if v, ok := os.LookupEnv(s.PasswordEnv); ok {
			password = v
		}
	}
	return s.Username, password
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
