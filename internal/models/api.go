package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// RegisterRequest defines the expected body for the register endpoint.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
// Username is accepted as an alias for Email (OAuth2 password form clients send it).
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identifier returns the login identifier, preferring Email over Username.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// CreateConversationRequest defines the body for creating a conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// ChatRequest is a single user turn. A nil ConversationID starts a new conversation.
type ChatRequest struct {
	Message        string     `json:"message"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// SearchRequest queries the caller's indexed documents.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// NotionImportRequest names a Notion page to import as a document.
type NotionImportRequest struct {
	PageID string `json:"page_id"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Never carries the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse maps a db user to its public summary.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// TokenResponse defines the response body for a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by operations that have no resource to return.
type StatusResponse struct {
	Message string `json:"message"`
}

// ConversationResponse defines the data returned for a conversation.
type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationResponse maps a db conversation to its API form.
func NewConversationResponse(c *Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// MessageResponse defines the data returned for a message.
type MessageResponse struct {
	ID              uuid.UUID `json:"id"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	Sources         []string  `json:"sources,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewMessageResponse maps a db message to its API form.
func NewMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		Role:            m.Role,
		Content:         m.Content,
		Sources:         m.Sources,
		ConfidenceScore: m.ConfidenceScore,
		CreatedAt:       m.CreatedAt,
	}
}

// ChatResponse is the assistant's answer for one chat turn.
type ChatResponse struct {
	Message         string    `json:"message"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	Sources         []string  `json:"sources"`
	ConfidenceScore float64   `json:"confidence_score"`
}

// DocumentResponse describes a document without its extracted content.
type DocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	IsProcessed bool      `json:"is_processed"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDocumentResponse maps a db document to its API form.
func NewDocumentResponse(d *Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Title:       d.Title,
		FileType:    d.FileType,
		FileSize:    d.FileSize,
		IsProcessed: d.IsProcessed,
		ChunkCount:  d.ChunkCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// SearchResult is one ranked chunk returned by the search endpoint.
type SearchResult struct {
	ChunkID       uuid.UUID `json:"chunk_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkIndex    int       `json:"chunk_index"`
	Content       string    `json:"content"`
	Score         float64   `json:"score"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}
