// Package llm generates assistant replies through a pluggable chat provider.
package llm

import (
	"context"
	"errors"
)

// Chat roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

var (
	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrNotConfigured is returned for a provider that has no API key.
	ErrNotConfigured = errors.New("llm: provider not configured")
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Options are generation parameters shared by all providers.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator produces the assistant's next message for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	Name() string
}
