package rag

import (
	"context"
	"fmt"
	"strings"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

// Retriever finds the chunks of a user's documents most similar to a query.
type Retriever struct {
	store     store.DocumentStore
	embedder  Embedder
	topK      int
	threshold float64
}

// NewRetriever creates a Retriever. A nil embedder disables retrieval;
// a threshold of zero keeps every hit.
func NewRetriever(s store.DocumentStore, e Embedder, topK int, threshold float64) *Retriever {
	return &Retriever{store: s, embedder: e, topK: topK, threshold: threshold}
}

// Retrieve returns up to topK chunks ranked by similarity. topK <= 0 uses
// the configured default.
func (r *Retriever) Retrieve(ctx context.Context, userID uuid.UUID, query string, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}
	query = strings.TrimSpace(query)
	if r.embedder == nil || query == "" {
		return []models.ScoredChunk{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.store.SearchChunks(ctx, userID, vectors[0], topK)
	if err != nil {
		return nil, err
	}
	if r.threshold <= 0 {
		return hits, nil
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= r.threshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}
