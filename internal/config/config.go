// Package config loads editor configuration from a TOML file with
// SUBTEXT_* environment overrides. A missing file is not an error;
// defaults are compiled in.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "30s" or "1.5m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full editor configuration.
type Config struct {
	Autosave AutosaveConfig `toml:"autosave"`
	Undo     UndoConfig     `toml:"undo"`
	Search   SearchConfig   `toml:"search"`
	Encoding EncodingConfig `toml:"encoding"`
	Logging  LoggingConfig  `toml:"logging"`
}

// AutosaveConfig controls the crash-recovery snapshot loop.
type AutosaveConfig struct {
	// Interval between snapshot ticks.
	Interval Duration `toml:"interval"`
	// SessionDir is where session.json and buffer snapshots live.
	// Empty means a subtext directory under the user cache dir.
	SessionDir string `toml:"session_dir"`
}

// UndoConfig controls undo log coalescing and depth.
type UndoConfig struct {
	CoalesceWindow   Duration `toml:"coalesce_window"`
	CoalesceMaxBytes int      `toml:"coalesce_max_bytes"`
	MaxEntries       int      `toml:"max_entries"`
}

// SearchConfig holds default search options.
type SearchConfig struct {
	CaseSensitive bool `toml:"case_sensitive"`
	WholeWord     bool `toml:"whole_word"`
}

// EncodingConfig controls file decoding behavior.
type EncodingConfig struct {
	// AllowLatin1 permits loading non-UTF-8 files as Latin-1 instead
	// of failing.
	AllowLatin1 bool `toml:"allow_latin1"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Autosave: AutosaveConfig{
			Interval: Duration(30 * time.Second),
		},
		Undo: UndoConfig{
			CoalesceWindow:   Duration(time.Second),
			CoalesceMaxBytes: 64,
			MaxEntries:       1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ParseError reports a malformed config file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads path over the defaults and applies environment overrides.
// A nonexistent file yields defaults plus env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, &ParseError{Path: path, Err: err}
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SUBTEXT_* environment variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("SUBTEXT_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("SUBTEXT_SESSION_DIR"); ok {
		c.Autosave.SessionDir = v
	}
	if v, ok := os.LookupEnv("SUBTEXT_AUTOSAVE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SUBTEXT_AUTOSAVE_INTERVAL: %w", err)
		}
		c.Autosave.Interval = Duration(d)
	}
	if v, ok := os.LookupEnv("SUBTEXT_UNDO_MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUBTEXT_UNDO_MAX_ENTRIES: %w", err)
		}
		c.Undo.MaxEntries = n
	}
	if v, ok := os.LookupEnv("SUBTEXT_ALLOW_LATIN1"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SUBTEXT_ALLOW_LATIN1: %w", err)
		}
		c.Encoding.AllowLatin1 = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.Autosave.Interval <= 0 {
		return fmt.Errorf("autosave.interval must be positive, got %v", c.Autosave.Interval.Std())
	}
	if c.Undo.MaxEntries <= 0 {
		return fmt.Errorf("undo.max_entries must be positive, got %d", c.Undo.MaxEntries)
	}
	if c.Undo.CoalesceMaxBytes < 0 {
		return fmt.Errorf("undo.coalesce_max_bytes must be non-negative, got %d", c.Undo.CoalesceMaxBytes)
	}
	return nil
}

// ResolveSessionDir returns the configured session directory or the
// platform default under the user cache dir.
func (c *Config) ResolveSessionDir() (string, error) {
	if c.Autosave.SessionDir != "" {
		return c.Autosave.SessionDir, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve session dir: %w", err)
	}
	return filepath.Join(cache, "subtext"), nil
}
