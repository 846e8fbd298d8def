package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/chriserin/ftspec/internal/isolation"
)

// DefaultPath is where commands look for the configuration file.
const DefaultPath = "ftspec.yaml"

// Config holds all ftspec configuration.
type Config struct {
	// Database is the sqlite file that stores run history.
	Database string `yaml:"database"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	Reporter  ReporterConfig  `yaml:"reporter"`
	Isolation IsolationConfig `yaml:"isolation"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ReporterConfig struct {
	Color bool `yaml:"color"`
}

type IsolationConfig struct {
	// Enabled runs isolated suites in a child process. When false they run in
	// process like any other suite.
	Enabled bool `yaml:"enabled"`

	// LostResultPolicy is "fail" or "pass".
	LostResultPolicy string `yaml:"lost_result_policy"`
}

type MetricsConfig struct {
	// Textfile is written after every run when set.
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: filepath.Join(".ftspec", "ftspec.db"),
		LogLevel: "info",
		Reporter: ReporterConfig{
			Color: true,
		},
		Isolation: IsolationConfig{
			Enabled:          true,
			LostResultPolicy: string(isolation.PolicyFail),
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FTSPEC_DATABASE"); path != "" {
		c.Database = path
	}
	if level := os.Getenv("FTSPEC_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if policy := os.Getenv("FTSPEC_LOST_RESULT_POLICY"); policy != "" {
		c.Isolation.LostResultPolicy = policy
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path not configured")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if _, err := isolation.ParsePolicy(c.Isolation.LostResultPolicy); err != nil {
		return err
	}
	return nil
}

// Policy returns the parsed lost result policy. Call Validate first.
func (c *Config) Policy() isolation.LostResultPolicy {
	p, err := isolation.ParsePolicy(c.Isolation.LostResultPolicy)
	if err != nil {
		return isolation.PolicyFail
	}
	return p
}

// Level returns the configured log level, falling back to info.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
