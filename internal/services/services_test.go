package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"docuchat-backend/internal/auth"
	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/queue"
	"docuchat-backend/internal/rag"
	"docuchat-backend/internal/storage"
	"docuchat-backend/internal/store/memory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// keywordEmbedder places text on a "cat" axis and a "dog" axis.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		v := []float32{0, 0, 0.1}
		if strings.Contains(t, "cat") {
			v[0] = 1
		}
		if strings.Contains(t, "dog") {
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, msgs)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) last() []llm.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}

type testEnv struct {
	store  *memory.Store
	tokens *auth.TokenService
	blobs  *storage.LocalStore
	gen    *fakeGenerator

	auth  *AuthService
	convs *ConversationService
	chat  *ChatService
	docs  *DocumentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memory.New()
	tokens := auth.NewTokenService("test-secret", time.Minute)
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	emb := keywordEmbedder{}
	retriever := rag.NewRetriever(s, emb, 5, 0)
	indexer := rag.NewIndexer(s, emb, 1000, 200)
	q := queue.NewInline()
	q.Register(rag.TaskIndexDocument, indexer.HandleTask)
	gen := &fakeGenerator{reply: "Here is what I found."}

	return &testEnv{
		store:  s,
		tokens: tokens,
		blobs:  blobs,
		gen:    gen,
		auth:   NewAuthService(s, auth.NewHasher(bcrypt.MinCost, 2), tokens),
		convs:  NewConversationService(s),
		chat:   NewChatService(s, retriever, gen),
		docs: NewDocumentService(s, blobs, q, retriever, nil, DocumentServiceConfig{
			MaxFileSize:       1024,
			AllowedExtensions: []string{"txt", "md", "html"},
		}),
	}
}
