// Package config resolves client settings from .env, an optional YAML file,
// the environment, and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment names the deployment context used to pick a default base URL.
const (
	EnvDevelopment = "development"
	EnvHosted      = "hosted"
)

const (
	// DevBaseURL is the scoring service address during local development.
	DevBaseURL = "http://127.0.0.1:8000/api/tasks"
	// HostedPath is the service path relative to the hosting origin.
	HostedPath = "/api/tasks"

	// DefaultFile is read when present and no other config file is named.
	DefaultFile = "taskrank.yaml"
)

// DefaultStrategies is the strategy set used when none is configured.
var DefaultStrategies = []string{"smart", "fastest", "impact", "deadline"}

// Config is the resolved client configuration.
type Config struct {
	BaseURL         string   `yaml:"base_url"`
	Environment     string   `yaml:"environment"`
	Origin          string   `yaml:"origin"`
	Strategies      []string `yaml:"strategies"`
	DefaultStrategy string   `yaml:"default_strategy"`
	UseAI           bool     `yaml:"use_ai"`
	LogLevel        string   `yaml:"log_level"`
	JournalDir      string   `yaml:"journal_dir"` // "" disables the session journal
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment:     EnvDevelopment,
		Strategies:      slices.Clone(DefaultStrategies),
		DefaultStrategy: "smart",
		LogLevel:        "warn",
	}
}

// Load builds a Config.
// path names a YAML file; when empty, TASKRANK_CONFIG is consulted and then
// DefaultFile, which may be absent. A named file that cannot be read is an error.
//
// Expectations:
//   - Loads .env first without overriding variables already set
//   - YAML values replace defaults; environment variables replace YAML values
//   - TASKRANK_STRATEGIES is a comma-separated list; blank entries are dropped
//   - Returns an error for an unreadable named file or malformed YAML
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv("TASKRANK_CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultFile
		}
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return Config{}, err
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := os.Getenv("TASKRANK_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("TASKRANK_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("TASKRANK_ORIGIN"); v != "" {
		c.Origin = v
	}
	if v := os.Getenv("TASKRANK_STRATEGIES"); v != "" {
		c.Strategies = SplitList(v)
	}
	if v := os.Getenv("TASKRANK_STRATEGY"); v != "" {
		c.DefaultStrategy = v
	}
	if v := os.Getenv("TASKRANK_USE_AI"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: TASKRANK_USE_AI: %w", err)
		}
		c.UseAI = b
	}
	if v := os.Getenv("TASKRANK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TASKRANK_JOURNAL_DIR"); v != "" {
		c.JournalDir = v
	}
	return nil
}

// SplitList splits a comma-separated list, trimming entries and dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the strategy set and the default strategy.
func (c Config) Validate() error {
	if len(c.Strategies) == 0 {
		return fmt.Errorf("config: no strategies configured")
	}
	if !slices.Contains(c.Strategies, c.DefaultStrategy) {
		return fmt.Errorf("config: default strategy %q not in %v", c.DefaultStrategy, c.Strategies)
	}
	return nil
}

// JournalPath returns JournalDir with a leading "~" expanded to the home directory.
// It returns "" when journaling is disabled.
func (c Config) JournalPath() (string, error) {
	dir := c.JournalDir
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: journal_dir %q: %w", dir, err)
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
}

// ResolveBaseURL picks the service base URL.
//
// Expectations:
//   - An explicit BaseURL wins in every environment
//   - Development (or empty) environment falls back to DevBaseURL
//   - Hosted environment joins HostedPath onto Origin
//   - Hosted environment without Origin is an error
//   - Unknown environment names are an error
func (c Config) ResolveBaseURL() (string, error) {
	if c.BaseURL != "" {
		return c.BaseURL, nil
	}
	switch c.Environment {
	case "", EnvDevelopment:
		return DevBaseURL, nil
	case EnvHosted:
		if c.Origin == "" {
			return "", fmt.Errorf("config: hosted environment needs an origin (TASKRANK_ORIGIN)")
		}
		origin, err := url.Parse(c.Origin)
		if err != nil || origin.Scheme == "" || origin.Host == "" {
			return "", fmt.Errorf("config: invalid origin %q", c.Origin)
		}
		return origin.JoinPath(HostedPath).String(), nil
	}
	return "", fmt.Errorf("config: unknown environment %q", c.Environment)
}
