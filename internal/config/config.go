package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"restkv/internal/logging"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Tokens  TokensConfig  `toml:"tokens"`
	Keys    KeysConfig    `toml:"keys"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Listen       string `toml:"listen"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	// NewTokenRate is the per-client limit on POST /new, in requests per
	// second. Zero disables the limit.
	NewTokenRate float64 `toml:"new_token_rate"`
}

type StoreConfig struct {
	Path     string `toml:"path"`
	ReadOnly bool   `toml:"read_only"`
	// NoSync trades per-commit fsync for a periodic flush every
	// FlushInterval. A power loss can then corrupt the file.
	NoSync        bool     `toml:"no_sync"`
	FlushInterval Duration `toml:"flush_interval"`
	OpenTimeout   Duration `toml:"open_timeout"`
}

type TokensConfig struct {
	MaxAttempts int  `toml:"max_attempts"`
	FailOpen    bool `toml:"fail_open"`
}

type KeysConfig struct {
	// SubstringMatch accepts any key containing an alphanumeric run
	// instead of requiring the whole key to be alphanumeric.
	SubstringMatch bool `toml:"substring_match"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "0.0.0.0:8080",
			MaxBodyBytes: 4 * 1024,
			NewTokenRate: 5,
		},
		Store: StoreConfig{
			Path:          "~/.restkv/kv.db",
			FlushInterval: Duration{30 * time.Second},
			OpenTimeout:   Duration{time.Second},
		},
		Tokens: TokensConfig{
			MaxAttempts: 16,
			FailOpen:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file and returns the parsed Config.
// If path is empty, the default location is tried and defaults are
// returned when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = expandHome("~/.restkv/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks field values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error

	if err := validateListen(c.Server.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.NewTokenRate < 0 {
		errs = append(errs, fmt.Errorf("server.new_token_rate must not be negative, got %v", c.Server.NewTokenRate))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.FlushInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("store.flush_interval must not be negative, got %s", c.Store.FlushInterval))
	}
	if c.Store.OpenTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("store.open_timeout must not be negative, got %s", c.Store.OpenTimeout))
	}
	if c.Tokens.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("tokens.max_attempts must be at least 1, got %d", c.Tokens.MaxAttempts))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateListen(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return errors.New("missing port")
	}
	return nil
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
