// Package config loads the keventdir command configuration from flags,
// environment variables and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

// Config holds the command configuration.
type Config struct {
	Roots []string `arg:"" name:"root" help:"Directories to watch recursively."`

	App     AppConfig     `embed:""`
	Logger  LoggerConfig  `embed:"" prefix:"log-"`
	Watch   WatchConfig   `embed:""`
	Metrics MetricsConfig `embed:"" prefix:"metrics-"`

	EnvFile string `help:"Path to .env file." default:".env" env:"KEVENTDIR_ENV_FILE"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `name:"env" help:"Environment (development, staging, production)." default:"development" env:"KEVENTDIR_ENV"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level   string `help:"Log level (debug, info, warn, error)." default:"info" env:"KEVENTDIR_LOG_LEVEL"`
	Format  string `help:"Log format (json, pretty). Empty picks one from the environment." env:"KEVENTDIR_LOG_FORMAT"`
	NoColor bool   `help:"Disable colored pretty log output." env:"KEVENTDIR_LOG_NO_COLOR"`
}

// WatchConfig holds the event loop configuration.
type WatchConfig struct {
	// MaxEvents of 0 runs until interrupted.
	MaxEvents    int           `help:"Stop after this many events, 0 for no limit." default:"20" env:"KEVENTDIR_MAX_EVENTS"`
	PollTimeout  time.Duration `help:"Longest single wait for events." default:"1s" env:"KEVENTDIR_POLL_TIMEOUT"`
	ChunkSize    int           `help:"Maximum interest registrations per kevent call." default:"4096" env:"KEVENTDIR_CHUNK_SIZE"`
	Ignore       []string      `help:"Glob patterns of base names to skip." env:"KEVENTDIR_IGNORE"`
	IgnoreHidden bool          `help:"Skip dot-files and dot-directories." env:"KEVENTDIR_IGNORE_HIDDEN"`
}

// MetricsConfig holds the metrics endpoint configuration.
type MetricsConfig struct {
	// Listen is empty when the endpoint is disabled.
	Listen       string        `help:"Serve /metrics and /healthz on this address." env:"KEVENTDIR_METRICS_LISTEN"`
	ReadTimeout  time.Duration `help:"HTTP read timeout." default:"5s" env:"KEVENTDIR_METRICS_READ_TIMEOUT"`
	WriteTimeout time.Duration `help:"HTTP write timeout." default:"10s" env:"KEVENTDIR_METRICS_WRITE_TIMEOUT"`
}

// LoadConfig parses args (without the program name) with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string, options ...kong.Option) (*Config, error) {
	// The first pass only locates the .env file; its values must be in the
	// environment before the real parse reads env tags.
	var probe Config
	if err := parse(&probe, args, options); err != nil {
		return nil, err
	}
	if err := loadEnvFile(probe.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", probe.EnvFile, err)
	}

	cfg := &Config{}
	if err := parse(cfg, args, options); err != nil {
		return nil, err
	}

	for i, root := range cfg.Roots {
		expanded, err := expandPath(root)
		if err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", root, err)
		}
		cfg.Roots[i] = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func parse(cfg *Config, args []string, options []kong.Option) error {
	options = append([]kong.Option{
		kong.Name("keventdir"),
		kong.Description("Watch directory trees with kqueue and print every change."),
	}, options...)

	parser, err := kong.New(cfg, options...)
	if err != nil {
		return fmt.Errorf("failed to build parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return err
	}
	return nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if len(c.Roots) == 0 {
		return errors.New("at least one root is required")
	}
	if c.Watch.MaxEvents < 0 {
		return fmt.Errorf("max events cannot be negative: %d", c.Watch.MaxEvents)
	}
	if c.Watch.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive: %s", c.Watch.PollTimeout)
	}
	if c.Watch.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", c.Watch.ChunkSize)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Variables already in the environment win over the file.
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
