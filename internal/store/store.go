package store

import (
	"context"
	"errors"

	"docuchat-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found, or when it
// exists but belongs to another user.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts user. ID must be set by the caller; timestamps are
	// filled in by the store.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ConversationStore persists conversations and their messages. Every method
// taking a userID enforces ownership: a conversation owned by someone else
// is reported as ErrNotFound.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	// ListConversations returns the user's conversations, newest created first.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)
	// DeleteConversation removes the conversation and all its messages atomically.
	DeleteConversation(ctx context.Context, id, userID uuid.UUID) error

	// AppendMessage assigns msg.Seq and msg.CreatedAt (and msg.ID when nil)
	// while holding a lock on the conversation, and touches its UpdatedAt.
	AppendMessage(ctx context.Context, userID uuid.UUID, msg *models.Message) error
	// ListMessages returns all messages ordered by Seq.
	ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]models.Message, error)
	// RecentMessages returns at most limit of the latest messages, ordered by
	// Seq. A non-positive limit returns all of them.
	RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]models.Message, error)
}

// DocumentStore persists documents and their embedded chunks, with the same
// ownership rule as ConversationStore.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id, userID uuid.UUID) (*models.Document, error)
	// ListDocuments returns the user's documents, newest created first.
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
	// DeleteDocument removes the document and its chunks.
	DeleteDocument(ctx context.Context, id, userID uuid.UUID) error

	// ReplaceDocumentChunks swaps the document's chunks for chunks and marks
	// it processed.
	ReplaceDocumentChunks(ctx context.Context, documentID, userID uuid.UUID, chunks []models.DocumentChunk) error
	// SearchChunks returns the user's chunks closest to embedding by cosine
	// similarity, best first.
	SearchChunks(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]models.ScoredChunk, error)
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	UserStore
	ConversationStore
	DocumentStore
}
