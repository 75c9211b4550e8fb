package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// --- Document Methods ---

const documentColumns = `id, user_id, title, content, file_type, file_size, storage_key, is_processed, chunk_count, created_at, updated_at`

// CreateDocument inserts a new, not yet processed document.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	log.Printf("[PostgresStore] CreateDocument called for UserID: %s, Title: %s", doc.UserID, doc.Title)
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	query := `
		INSERT INTO documents (id, user_id, title, content, file_type, file_size, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_processed, chunk_count, created_at, updated_at`

	err := s.db.QueryRow(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Title,
		doc.Content,
		doc.FileType,
		doc.FileSize,
		doc.StorageKey,
	).Scan(&doc.IsProcessed, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateDocument: Failed insert for UserID %s: %v", doc.UserID, err)
		return fmt.Errorf("database error creating document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document the user owns.
func (s *PostgresStore) GetDocument(ctx context.Context, id, userID uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`

	doc, err := scanDocument(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetDocument: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the user's documents, newest created first.
func (s *PostgresStore) ListDocuments(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListDocuments: Failed query for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			log.Printf("ERROR [PostgresStore] ListDocuments: Failed scanning row for UserID %s: %v", userID, err)
			return nil, fmt.Errorf("database error scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Content,
		&doc.FileType,
		&doc.FileSize,
		&doc.StorageKey,
		&doc.IsProcessed,
		&doc.ChunkCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document; its chunks go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id, userID uuid.UUID) error {
	log.Printf("[PostgresStore] DeleteDocument called for ID: %s, UserID: %s", id, userID)
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteDocument: Failed delete for ID %s: %v", id, err)
		return fmt.Errorf("database error deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ReplaceDocumentChunks swaps a document's chunks in one transaction and
// marks the document processed.
func (s *PostgresStore) ReplaceDocumentChunks(ctx context.Context, documentID, userID uuid.UUID, chunks []models.DocumentChunk) error {
	log.Printf("[PostgresStore] ReplaceDocumentChunks called for DocumentID: %s (%d chunks)", documentID, len(chunks))
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM documents WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			documentID, userID,
		).Scan(&one)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrNotFound
			}
			return fmt.Errorf("database error locking document: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("database error clearing chunks: %w", err)
		}

		for i := range chunks {
			c := &chunks[i]
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			c.DocumentID = documentID
			var embedding any
			if len(c.Embedding) > 0 {
				embedding = pgvector.NewVector(c.Embedding)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, documentID, c.ChunkIndex, c.Content, embedding,
			); err != nil {
				log.Printf("ERROR [PostgresStore] ReplaceDocumentChunks: Failed inserting chunk %d of %s: %v", c.ChunkIndex, documentID, err)
				return fmt.Errorf("database error inserting chunk: %w", err)
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE documents SET is_processed = TRUE, chunk_count = $2, updated_at = NOW() WHERE id = $1`,
			documentID, len(chunks),
		); err != nil {
			return fmt.Errorf("database error marking document processed: %w", err)
		}
		return nil
	})
}

// SearchChunks ranks the user's chunks by cosine similarity using pgvector.
func (s *PostgresStore) SearchChunks(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	if len(embedding) == 0 || limit <= 0 {
		return []models.ScoredChunk{}, nil
	}
	query := `
		SELECT c.id, c.document_id, d.title, c.chunk_index, c.content, 1 - (c.embedding <=> $2) AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = $1 AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $2
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, userID, pgvector.NewVector(embedding), limit)
	if err != nil {
		log.Printf("ERROR [PostgresStore] SearchChunks: Failed query for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error searching chunks: %w", err)
	}
	defer rows.Close()

	hits := []models.ScoredChunk{}
	for rows.Next() {
		h := models.ScoredChunk{}
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.DocumentTitle, &h.ChunkIndex, &h.Content, &h.Score); err != nil {
			return nil, fmt.Errorf("database error scanning chunk: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chunks: %w", err)
	}
	return hits, nil
}
