package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIGenerator talks to any OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	name   string
	client *openai.Client
	opts   Options
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a generator for the OpenAI API, or for another
// compatible endpoint when baseURL is set.
func NewOpenAIGenerator(name, apiKey, baseURL string, opts Options) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{name: name, client: openai.NewClientWithConfig(cfg), opts: opts}
}

// NewGroqGenerator creates a generator for Groq's OpenAI-compatible API.
func NewGroqGenerator(apiKey string, opts Options) *OpenAIGenerator {
	return NewOpenAIGenerator(ProviderGroq, apiKey, GroqBaseURL, opts)
}

func (g *OpenAIGenerator) Name() string { return g.name }

func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.opts.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", g.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
