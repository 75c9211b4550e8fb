package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"docuchat-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversation = []Message{
	{Role: RoleSystem, Content: "You are helpful."},
	{Role: RoleUser, Content: "Hi"},
	{Role: RoleAssistant, Content: "Hello!"},
	{Role: RoleUser, Content: "What is Go?"},
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Go is a language."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(ProviderOpenAI, "test-key", srv.URL+"/v1", Options{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 100})
	out, err := g.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "What is Go?", msgs[3].(map[string]any)["content"])
}

func TestOpenAIGenerator_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(ProviderOpenAI, "k", srv.URL, Options{Model: "m"})
	_, err := g.Generate(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(ProviderGroq, "k", srv.URL, Options{Model: "m"})
	_, err := g.Generate(context.Background(), conversation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groq chat completion")
}

func TestGeminiGenerator_Generate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Go is "},{"text":"great."}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("gk", srv.URL, Options{Model: "gemini-1.5-flash", Temperature: 0.5, MaxTokens: 50})
	out, err := g.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Go is great.", out)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are helpful.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, 50, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiGenerator_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("gk", srv.URL, Options{Model: "m"})
	out, err := g.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGeminiGenerator_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("gk", srv.URL, Options{Model: "m"})
	_, err := g.Generate(context.Background(), conversation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	g := NewGroqGenerator("k", Options{Model: "m"})
	r.Register(ProviderGroq, g)

	got, err := r.Get(ProviderGroq)
	require.NoError(t, err)
	assert.Same(t, g, got)

	_, err = r.Get(ProviderGemini)
	assert.Error(t, err)
	assert.Equal(t, []string{ProviderGroq}, r.Names())

	fallback := r.Select(ProviderGemini)
	_, err = fallback.Generate(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewRegistryFromConfig_OnlyKeyedProviders(t *testing.T) {
	cfg := &config.Config{
		OpenAIAPIKey: "o", OpenAIModel: "gpt-4o-mini",
		GeminiAPIKey: "g", GeminiModel: "gemini-1.5-flash", GeminiBaseURL: "https://example.invalid",
	}
	r := NewRegistryFromConfig(cfg)
	assert.Equal(t, []string{ProviderGemini, ProviderOpenAI}, r.Names())
	assert.Equal(t, ProviderOpenAI, r.Select(ProviderOpenAI).Name())
}
