// Package llm wraps the AI extraction backends behind a single client
// interface: Gemini through the Google SDK and OpenAI, Anthropic and Ollama
// through langchaingo.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the capability level requested for a call
type ModelTier string

const (
	// TierLite is used for company enrichment and other short prompts
	TierLite ModelTier = "lite"
	// TierStandard is used for job posting extraction
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for long or messy pages
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Supported providers
const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// ParseProvider maps a config string to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return p, nil
	case "":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported LLM provider: %q", s)
	}
}

// Config holds provider selection and per-tier model names
type Config struct {
	Provider  Provider
	Models    map[ModelTier]string
	ServerURL string // ollama only
}

// DefaultConfig returns the Gemini configuration
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderGemini)
}

// DefaultConfigFor returns default tier models for a provider
func DefaultConfigFor(p Provider) *Config {
	switch p {
	case ProviderOpenAI:
		return &Config{Provider: p, Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		}}
	case ProviderAnthropic:
		return &Config{Provider: p, Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-3-5-haiku-latest",
			TierAdvanced: "claude-3-5-sonnet-latest",
		}}
	case ProviderOllama:
		return &Config{Provider: p, ServerURL: "http://localhost:11434", Models: map[ModelTier]string{
			TierStandard: "llama3.1",
		}}
	default:
		return &Config{Provider: ProviderGemini, Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		}}
	}
}

// GetModel returns the model name for a tier, falling back to standard
// and then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of c with every tier pinned to one model
// when tier is empty, or just that tier otherwise.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{Provider: c.Provider, ServerURL: c.ServerURL, Models: make(map[ModelTier]string)}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	if tier == "" {
		for _, t := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
			out.Models[t] = model
		}
		return out
	}
	out.Models[tier] = model
	return out
}
