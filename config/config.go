package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the token counter.
type Config struct {
	Document DocumentConfig `yaml:"document"`
	Encoding EncodingConfig `yaml:"encoding"`
	Cache    CacheConfig    `yaml:"cache"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DocumentConfig names the file that gets counted.
type DocumentConfig struct {
	Path  string `yaml:"path"`  // relative paths resolve against --dir
	Title string `yaml:"title"` // used in the summary line
}

// EncodingConfig selects the tokenizer encoding.
type EncodingConfig struct {
	Name    string `yaml:"name"`    // e.g., "cl100k_base"
	Offline bool   `yaml:"offline"` // load BPE ranks from the embedded loader instead of the network
}

// CacheConfig holds count cache configuration.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OutputConfig holds terminal output configuration.
type OutputConfig struct {
	Progress bool `yaml:"progress"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Document: DocumentConfig{
			Path:  "./DOCS.md",
			Title: "Interval",
		},
		Encoding: EncodingConfig{
			Name:    "cl100k_base",
			Offline: true,
		},
		Cache: CacheConfig{
			Enabled: false,
		},
		Output: OutputConfig{
			Progress: false,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for tokcount.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "tokcount.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".tokcount", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects configurations the counter cannot run with.
func (c *Config) Validate() error {
	if c.Document.Path == "" {
		return errors.New("document.path must not be empty")
	}
	if c.Encoding.Name == "" {
		return errors.New("encoding.name must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DocumentPath resolves the configured document against dir.
func (c *Config) DocumentPath(dir string) string {
	if filepath.IsAbs(c.Document.Path) {
		return c.Document.Path
	}
	return filepath.Join(dir, c.Document.Path)
}

// CacheDBPath returns the path to the count cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".tokcount", "cache.db")
}

// EnsureStateDir ensures the .tokcount directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".tokcount"), 0755)
}
