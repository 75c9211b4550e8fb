package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	FullName       string    `db:"full_name"`
	HashedPassword string    `db:"hashed_password"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Conversation is a chat thread owned by exactly one user.
type Conversation struct {
	ID        uuid.UUID `db:"id"`
	Title     string    `db:"title"`
	UserID    uuid.UUID `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Document is an uploaded or imported source the assistant can ground answers in.
type Document struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"` // extracted plain text
	FileType    string    `db:"file_type"`
	FileSize    int64     `db:"file_size"`
	StorageKey  string    `db:"storage_key"` // empty for imported documents
	IsProcessed bool      `db:"is_processed"`
	ChunkCount  int       `db:"chunk_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// DocumentChunk is an embedded slice of a document's content.
type DocumentChunk struct {
	ID         uuid.UUID `db:"id"`
	DocumentID uuid.UUID `db:"document_id"`
	ChunkIndex int       `db:"chunk_index"`
	Content    string    `db:"content"`
	Embedding  []float32 `db:"embedding"`
	CreatedAt  time.Time `db:"created_at"`
}

// ScoredChunk is a search hit: a chunk, the document it came from, and its
// cosine similarity to the query.
type ScoredChunk struct {
	ChunkID       uuid.UUID
	DocumentID    uuid.UUID
	DocumentTitle string
	ChunkIndex    int
	Content       string
	Score         float64
}

// SourceID is the identifier recorded in an assistant message's source list.
func (c ScoredChunk) SourceID() string {
	return c.ChunkID.String()
}
