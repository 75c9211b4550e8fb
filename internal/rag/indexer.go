package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/queue"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

// TaskIndexDocument is the queue task type that chunks and embeds a document.
const TaskIndexDocument = "document:index"

// IndexPayload is the payload of a TaskIndexDocument task.
type IndexPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	UserID     uuid.UUID `json:"user_id"`
}

// NewIndexTask builds the queue task that indexes a document.
func NewIndexTask(documentID, userID uuid.UUID) (queue.Task, error) {
	payload, err := json.Marshal(IndexPayload{DocumentID: documentID, UserID: userID})
	if err != nil {
		return queue.Task{}, err
	}
	return queue.Task{Type: TaskIndexDocument, Payload: payload}, nil
}

// Indexer splits a document into chunks, embeds them and stores them.
type Indexer struct {
	store     store.DocumentStore
	embedder  Embedder
	chunkSize int
	overlap   int
}

// NewIndexer creates an Indexer. With a nil embedder chunks are stored
// without vectors and are not searchable.
func NewIndexer(s store.DocumentStore, e Embedder, chunkSize, overlap int) *Indexer {
	return &Indexer{store: s, embedder: e, chunkSize: chunkSize, overlap: overlap}
}

// IndexDocument (re)builds the chunks of one document.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, userID uuid.UUID) error {
	doc, err := ix.store.GetDocument(ctx, documentID, userID)
	if err != nil {
		return err
	}

	texts := SplitText(doc.Content, ix.chunkSize, ix.overlap)
	chunks := make([]models.DocumentChunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.DocumentChunk{ChunkIndex: i, Content: t}
	}

	if ix.embedder != nil && len(texts) > 0 {
		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", documentID, err)
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	} else if ix.embedder == nil {
		log.Printf("WARN [Indexer] No embedder configured; document %s will not be searchable", documentID)
	}

	if err := ix.store.ReplaceDocumentChunks(ctx, documentID, userID, chunks); err != nil {
		return err
	}
	log.Printf("[Indexer] Indexed document %s into %d chunks", documentID, len(chunks))
	return nil
}

// HandleTask is the queue handler for TaskIndexDocument. A document deleted
// before the task ran is not an error.
func (ix *Indexer) HandleTask(ctx context.Context, t queue.Task) error {
	var p IndexPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	err := ix.IndexDocument(ctx, p.DocumentID, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[Indexer] Document %s no longer exists, skipping", p.DocumentID)
		return nil
	}
	return err
}
