package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvUser    = "AINOTE_USER"
	EnvAdapter = "AINOTE_ADAPTER"
	EnvURI     = "AINOTE_URI"
)

// Config is the on-disk project configuration (ainote.yaml).
type Config struct {
	Adapter   string          `yaml:"adapter"`
	URI       string          `yaml:"uri"`
	Database  string          `yaml:"database,omitempty"`
	User      string          `yaml:"user,omitempty"`
	LogLevel  string          `yaml:"log_level,omitempty"`
	Assistant AssistantConfig `yaml:"assistant"`

	// Dir is the directory the file was loaded from; relative fs and sqlite
	// URIs resolve against it.
	Dir string `yaml:"-"`
}

// AssistantConfig selects the Gemini model and where its key comes from.
type AssistantConfig struct {
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// DefaultConfig is used when no file is found.
func DefaultConfig() Config {
	return Config{
		Adapter:  AdapterFS,
		URI:      "notes",
		LogLevel: "info",
		Assistant: AssistantConfig{
			APIKeyEnv: "GEMINI_API_KEY",
		},
	}
}

// LoadConfig reads path over the defaults and applies environment
// overrides. A missing file is not an error. An empty path searches upwards
// from the working directory with FindRoot.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if root, err := FindRoot("."); err == nil {
			path = filepath.Join(root, ConfigFileName)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
		abs, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return Config{}, err
		}
		cfg.Dir = abs
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvUser); v != "" {
		c.User = v
	}
	if v := getenv(EnvAdapter); v != "" {
		c.Adapter = v
	}
	if v := getenv(EnvURI); v != "" {
		c.URI = v
	}
}

// Validate checks the adapter name and log level.
func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterMemory, AdapterFS, AdapterSQLite, AdapterMongo:
	default:
		return fmt.Errorf("config: unknown adapter %q", c.Adapter)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ResolvedURI returns the store URI, making file-based URIs relative to the
// config file's directory.
func (c Config) ResolvedURI() string {
	switch c.Adapter {
	case AdapterFS, AdapterSQLite:
		if c.URI != "" && c.Dir != "" && !filepath.IsAbs(c.URI) && !strings.HasPrefix(c.URI, "file:") {
			return filepath.Join(c.Dir, c.URI)
		}
	}
	return c.URI
}

// Options converts the config into service options. The Gemini key is read
// from the configured environment variable; without one the service has no
// assistant.
func (c Config) Options(logger *slog.Logger) []Option {
	opts := []Option{
		WithAdapter(c.Adapter),
		WithLogger(logger),
	}
	if c.Database != "" {
		opts = append(opts, WithDatabase(c.Database))
	}
	if c.Assistant.APIKeyEnv != "" {
		if key := os.Getenv(c.Assistant.APIKeyEnv); key != "" {
			opts = append(opts, WithGemini(key, c.Assistant.Model))
		}
	}
	return opts
}

// ParseLevel maps a config log level to slog. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}
