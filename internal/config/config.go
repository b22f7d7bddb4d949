// Package config loads service configuration from the environment and an
// optional YAML file, including the registry of job board sources.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/job-ingest/internal/ats"
	"github.com/jonathan/job-ingest/internal/fetch"
	"github.com/jonathan/job-ingest/internal/llm"
)

// Config is the merged service configuration. API keys are only read from
// the environment and never from a file.
type Config struct {
	DatabaseURL string `yaml:"database_url,omitempty"`

	LLMProvider     string `yaml:"llm_provider,omitempty"`
	LLMModel        string `yaml:"llm_model,omitempty"`
	OllamaHost      string `yaml:"ollama_host,omitempty"`
	GeminiAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`

	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`

	FetchTimeoutSeconds int  `yaml:"fetch_timeout_seconds,omitempty"`
	UseBrowser          bool `yaml:"use_browser,omitempty"`

	WorkflowQueueSize int `yaml:"workflow_queue_size,omitempty"`
	Port              int `yaml:"port,omitempty"`

	SourcesFile string       `yaml:"sources_file,omitempty"`
	Sources     []ats.Source `yaml:"sources,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LLMProvider:         string(llm.ProviderGemini),
		LogLevel:            "info",
		FetchTimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
		WorkflowQueueSize:   16,
		Port:                8080,
	}
}

// Load reads configuration from environment variables. Unset variables
// leave fields at their zero value so file and built-in defaults can fill
// them in.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LLMProvider:     os.Getenv("LLM_PROVIDER"),
		LLMModel:        os.Getenv("LLM_MODEL"),
		OllamaHost:      os.Getenv("OLLAMA_HOST"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFile:         os.Getenv("LOG_FILE"),
		SourcesFile:     os.Getenv("SOURCES_FILE"),
	}

	var err error
	if cfg.FetchTimeoutSeconds, err = envInt("FETCH_TIMEOUT_SECONDS"); err != nil {
		return nil, err
	}
	if cfg.WorkflowQueueSize, err = envInt("WORKFLOW_QUEUE_SIZE"); err != nil {
		return nil, err
	}
	if cfg.Port, err = envInt("PORT"); err != nil {
		return nil, err
	}
	if v := os.Getenv("USE_BROWSER"); v != "" {
		cfg.UseBrowser, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid USE_BROWSER: %w", err)
		}
	}
	return cfg, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// LoadFile loads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// Resolve merges environment, the optional file at path and built-in
// defaults, in that order of precedence, then loads sources from
// SourcesFile when no sources were given inline.
func Resolve(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	merged := *cfg
	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		merged = merged.MergeWithDefaults(*file)
	}
	merged = merged.MergeWithDefaults(Defaults())

	if len(merged.Sources) == 0 && merged.SourcesFile != "" {
		file, err := LoadFile(merged.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load sources: %w", err)
		}
		merged.Sources = file.Sources
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// MergeWithDefaults returns a copy of c with zero fields taken from
// defaults.
func (c Config) MergeWithDefaults(defaults Config) Config {
	result := c

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.LLMProvider, defaults.LLMProvider},
		{&result.LLMModel, defaults.LLMModel},
		{&result.OllamaHost, defaults.OllamaHost},
		{&result.GeminiAPIKey, defaults.GeminiAPIKey},
		{&result.OpenAIAPIKey, defaults.OpenAIAPIKey},
		{&result.AnthropicAPIKey, defaults.AnthropicAPIKey},
		{&result.LogLevel, defaults.LogLevel},
		{&result.LogFile, defaults.LogFile},
		{&result.SourcesFile, defaults.SourcesFile},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}

	if result.FetchTimeoutSeconds == 0 {
		result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if result.WorkflowQueueSize == 0 {
		result.WorkflowQueueSize = defaults.WorkflowQueueSize
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.Sources) == 0 {
		result.Sources = defaults.Sources
	}

	// Bools cannot tell unset from false, so either side can enable.
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser

	return result
}

// Validate checks value ranges, the provider name and every source entry.
func (c *Config) Validate() error {
	if _, err := llm.ParseProvider(c.LLMProvider); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'fetch_timeout_seconds' must be non-negative")
	}
	if c.WorkflowQueueSize < 0 {
		return fmt.Errorf("config error: 'workflow_queue_size' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if seen[s.Name] {
			return fmt.Errorf("config error: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// LLMConfig returns the provider configuration with LLM_MODEL applied to
// every tier.
func (c *Config) LLMConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.LLMProvider)
	if err != nil {
		return nil, err
	}
	cfg := llm.DefaultConfigFor(provider)
	if c.LLMModel != "" {
		cfg = cfg.WithModel("", c.LLMModel)
	}
	if c.OllamaHost != "" {
		cfg.ServerURL = c.OllamaHost
	}
	return cfg, nil
}

// Credentials returns the provider API keys.
func (c *Config) Credentials() llm.Credentials {
	return llm.Credentials{
		GeminiAPIKey:    c.GeminiAPIKey,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		AnthropicAPIKey: c.AnthropicAPIKey,
	}
}

// FetchOptions returns page fetch options.
func (c *Config) FetchOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	if c.FetchTimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	}
	return opts
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
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
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
