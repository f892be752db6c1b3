package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys. The first three are required.
const (
	EnvOpenAIAccount   = "AZURE_OPENAI_ACCOUNT"
	EnvSearchService   = "AZURE_SEARCH_SERVICE"
	EnvDeploymentModel = "AZURE_DEPLOYMENT_MODEL"

	// EnvConfigPath points at an optional YAML file with tunables.
	EnvConfigPath = "SEARCHRAG_CONFIG"
	// DefaultConfigPath is used when EnvConfigPath is unset.
	DefaultConfigPath = "searchrag.yaml"
)

// Completion providers.
const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	// Models used by the non-Azure providers when completion.model is unset.
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOllamaModel = "llama3.2"
)

// ErrMissingConfiguration matches any *MissingConfigurationError.
var ErrMissingConfiguration = errors.New("config: missing required configuration")

// MissingConfigurationError names the required environment keys that were
// absent or empty.
type MissingConfigurationError struct {
	Keys []string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfiguration.Error(), strings.Join(e.Keys, ", "))
}

func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// Config holds all configuration for a run.
type Config struct {
	Endpoints  Endpoints        `yaml:"-"`
	Search     SearchConfig     `yaml:"search"`
	Completion CompletionConfig `yaml:"completion"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Endpoints are the three required service identifiers. They only come from
// the environment.
type Endpoints struct {
	OpenAIAccount   string
	SearchService   string
	DeploymentModel string
}

// SearchConfig holds retrieval configuration.
type SearchConfig struct {
	Index      string        `yaml:"index"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CompletionConfig holds chat-completion configuration.
type CompletionConfig struct {
	Provider    string        `yaml:"provider"`    // "azure", "gemini", "ollama"
	APIVersion  string        `yaml:"api_version"` // Azure OpenAI only
	Model       string        `yaml:"model"`       // defaults per provider
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"` // sent when positive
	OllamaURL   string        `yaml:"ollama_url"`  // empty means OLLAMA_HOST or the local default
	APIKeyEnv   string        `yaml:"api_key_env"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration without endpoints.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Index:      "product-index",
			APIVersion: "2024-07-01",
			Timeout:    30 * time.Second,
		},
		Completion: CompletionConfig{
			Provider:   ProviderAzure,
			APIVersion: "2024-06-01",
			Timeout:    2 * time.Minute,
			APIKeyEnv:  "GEMINI_API_KEY",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FromEnv resolves the required endpoints through getenv on top of the
// defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load applies defaults, the YAML file at path when it exists, and the
// environment, then validates the result.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	lookup := func(key string, dst *string, missing *[]string) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			*missing = append(*missing, key)
			return
		}
		*dst = v
	}

	var missing []string
	lookup(EnvOpenAIAccount, &c.Endpoints.OpenAIAccount, &missing)
	lookup(EnvSearchService, &c.Endpoints.SearchService, &missing)
	lookup(EnvDeploymentModel, &c.Endpoints.DeploymentModel, &missing)

	if len(missing) > 0 {
		return &MissingConfigurationError{Keys: missing}
	}
	return nil
}

// Validate checks the tunables. Endpoints are checked when they are read.
func (c *Config) Validate() error {
	switch c.Completion.Provider {
	case ProviderAzure, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("config: unknown completion provider %q", c.Completion.Provider)
	}
	if c.Search.Index == "" {
		return errors.New("config: search index cannot be empty")
	}
	if c.Search.Timeout <= 0 || c.Completion.Timeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if c.Completion.Temperature < 0 {
		return errors.New("config: temperature cannot be negative")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	return nil
}

// CompletionModel returns the model name sent to the completion provider.
// Azure uses the deployment identifier; the other providers have their own
// defaults.
func (c *Config) CompletionModel() string {
	if c.Completion.Model != "" {
		return c.Completion.Model
	}
	switch c.Completion.Provider {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOllama:
		return DefaultOllamaModel
	default:
		return c.Endpoints.DeploymentModel
	}
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}
