package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const jsonSystemPrompt = "You are a precise information extraction engine. Respond with a single JSON object and nothing else."

// LangChainClient implements Client over langchaingo models. One model is
// built per distinct model name in the config.
type LangChainClient struct {
	config *Config
	models map[string]llms.Model
}

// NewLangChainClient builds langchaingo models for each configured tier.
func NewLangChainClient(config *Config, creds Credentials) (*LangChainClient, error) {
	c := &LangChainClient{config: config, models: make(map[string]llms.Model)}
	for _, name := range config.Models {
		if _, ok := c.models[name]; ok {
			continue
		}
		m, err := newLangChainModel(config, creds, name)
		if err != nil {
			return nil, err
		}
		c.models[name] = m
	}
	return c, nil
}

func newLangChainModel(config *Config, creds Credentials, name string) (llms.Model, error) {
	switch config.Provider {
	case ProviderOllama:
		m, err := ollama.New(ollama.WithModel(name), ollama.WithServerURL(config.ServerURL))
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return m, nil
	case ProviderOpenAI:
		if creds.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		m, err := openai.New(openai.WithToken(creds.OpenAIAPIKey), openai.WithModel(name))
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return m, nil
	case ProviderAnthropic:
		if creds.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		m, err := anthropic.New(anthropic.WithToken(creds.AnthropicAPIKey), anthropic.WithModel(name))
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return m, nil
	default:
		return nil, &Error{Kind: ErrUnsupportedModel, Provider: config.Provider, Message: "provider not available through langchaingo"}
	}
}

func (c *LangChainClient) model(tier ModelTier) (llms.Model, error) {
	name := c.config.GetModel(tier)
	m, ok := c.models[name]
	if !ok {
		return nil, &Error{Kind: ErrUnsupportedModel, Provider: c.config.Provider, Message: fmt.Sprintf("no model configured for tier %s", tier)}
	}
	return m, nil
}

// GenerateContent generates free text.
func (c *LangChainClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	m, err := c.model(tier)
	if err != nil {
		return "", err
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, m, prompt, llms.WithTemperature(0.1))
	if err != nil {
		return "", classify(c.config.Provider, "generate content", err)
	}
	return out, nil
}

// GenerateJSON generates a JSON document.
func (c *LangChainClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	m, err := c.model(tier)
	if err != nil {
		return "", err
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, jsonSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := m.GenerateContent(ctx, messages, llms.WithTemperature(0.1), llms.WithJSONMode())
	if err != nil {
		return "", classify(c.config.Provider, "generate json", err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: ErrProvider, Provider: c.config.Provider, Message: "no response choices"}
	}
	return CleanJSONBlock(resp.Choices[0].Content), nil
}

// GetModel returns the model name for a tier.
func (c *LangChainClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; langchaingo models hold no long-lived connections.
func (c *LangChainClient) Close() error {
	return nil
}
