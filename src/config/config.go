// Package config provides configuration management for azdo-monitor.
//
// Settings are read from $XDG_CONFIG_HOME/azdo-monitor/config.yaml (defaults to
// ~/.config/azdo-monitor/config.yaml) and then overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"azdo-monitor/src/azdevops"
)

const (
	envOrganization = "AZDO_ORG"
	envToken        = "AZDO_PAT"
	envUser         = "AZDO_USER"
	envBaseURL      = "AZDO_BASE_URL"
	envArtifactDir  = "AZDO_ARTIFACT_DIR"
	envPageSize     = "AZDO_PAGE_SIZE"
	envPostgresDSN  = "POSTGRES_DSN"
	envBrokers      = "REDPANDA_BROKERS"
)

// Config holds the application configuration.
type Config struct {
	// Organization is the Azure DevOps organization name.
	Organization string `yaml:"organization"`
	// Token is the personal access token. It is never written to the config file.
	Token string `yaml:"-"`
	// User is the optional user name paired with the token for basic auth.
	User string `yaml:"user,omitempty"`
	// BaseURL overrides https://dev.azure.com/.
	BaseURL string `yaml:"base_url,omitempty"`
	// ArtifactDir is where artifacts are downloaded to.
	ArtifactDir string `yaml:"artifact_dir,omitempty"`
	// PageSize overrides the default page size of paginated lists. Zero keeps the defaults.
	PageSize int `yaml:"page_size,omitempty"`
	// PostgresDSN enables the Postgres preset/run store when set.
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	// Brokers enables Redpanda event publishing when set.
	Brokers []string `yaml:"brokers,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/azdo-monitor/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "azdo-monitor", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "azdo-monitor", "config.yaml")
}

// Load reads the config file, if any, and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile(Path())
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = defaultArtifactDir()
	}
	return cfg, nil
}

// LoadFile reads a config file. A missing file yields an empty Config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv builds a Config from environment variables only.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envOrganization); v != "" {
		c.Organization = v
	}
	if v := os.Getenv(envToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(envUser); v != "" {
		c.User = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envArtifactDir); v != "" {
		c.ArtifactDir = v
	}
	if v := os.Getenv(envPostgresDSN); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv(envBrokers); v != "" {
		c.Brokers = splitList(v)
	}
	if v := os.Getenv(envPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", envPageSize, v)
		}
		c.PageSize = n
	}
	return nil
}

// Validate checks that the settings needed to reach the API are present.
func (c *Config) Validate() error {
	if c.Organization == "" {
		return fmt.Errorf("%s environment variable or organization setting is required", envOrganization)
	}
	if c.Token == "" {
		return fmt.Errorf("%s environment variable is required", envToken)
	}
	return nil
}

// Session returns the session credentials used for every API request.
func (c *Config) Session() azdevops.Session {
	return azdevops.Session{
		Organization:  c.Organization,
		Authorization: azdevops.BasicToken(c.User, c.Token),
	}
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Keys lists the settings accepted by Set, in file order.
var Keys = []string{"organization", "user", "base_url", "artifact_dir", "page_size", "postgres_dsn", "brokers"}

// Set assigns a setting by its file key. The token cannot be set this way so
// that it never reaches the file.
func (c *Config) Set(key, value string) error {
	switch key {
	case "organization":
		c.Organization = value
	case "user":
		c.User = value
	case "base_url":
		c.BaseURL = value
	case "artifact_dir":
		c.ArtifactDir = value
	case "page_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("page_size must be a non-negative integer, got %q", value)
		}
		c.PageSize = n
	case "postgres_dsn":
		c.PostgresDSN = value
	case "brokers":
		c.Brokers = splitList(value)
	case "token", "pat":
		return fmt.Errorf("the token is only read from %s", envToken)
	default:
		return fmt.Errorf("unknown setting %q (one of %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// MustLoad loads configuration and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func defaultArtifactDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "artifacts"
	}
	return filepath.Join(home, "Downloads")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
