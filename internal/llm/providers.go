package llm

import (
	"context"
	"log"

	"docuchat-backend/internal/config"
)

// NewRegistryFromConfig registers every provider that has an API key.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	r := NewRegistry()
	opts := Options{Temperature: cfg.LLMTemperature, MaxTokens: cfg.LLMMaxTokens}

	if cfg.OpenAIAPIKey != "" {
		o := opts
		o.Model = cfg.OpenAIModel
		r.Register(ProviderOpenAI, NewOpenAIGenerator(ProviderOpenAI, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, o))
	}
	if cfg.GroqAPIKey != "" {
		o := opts
		o.Model = cfg.GroqModel
		r.Register(ProviderGroq, NewGroqGenerator(cfg.GroqAPIKey, o))
	}
	if cfg.GeminiAPIKey != "" {
		o := opts
		o.Model = cfg.GeminiModel
		r.Register(ProviderGemini, NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiBaseURL, o))
	}
	return r
}

// Select returns the generator for name, or one that always fails with
// ErrNotConfigured so chat still works without an LLM key.
func (r *Registry) Select(name string) Generator {
	g, err := r.Get(name)
	if err != nil {
		log.Printf("WARN [LLMRegistry] %v (registered: %v). Replies will fall back to an apology.", err, r.Names())
		return unconfigured{name: name}
	}
	return g
}

type unconfigured struct{ name string }

func (u unconfigured) Name() string { return u.name }

func (u unconfigured) Generate(context.Context, []Message) (string, error) {
	return "", ErrNotConfigured
}
