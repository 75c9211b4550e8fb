package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role may be stored on a Message.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Message represents a single turn in a conversation.
// Seq is assigned by the store and strictly increases within a conversation;
// CreatedAt strictly increases along with it.
type Message struct {
	ID              uuid.UUID `db:"id"`
	ConversationID  uuid.UUID `db:"conversation_id"`
	Seq             int64     `db:"seq"`
	Role            string    `db:"role"`
	Content         string    `db:"content"`
	Sources         []string  `db:"sources"`
	ConfidenceScore *float64  `db:"confidence_score"`
	CreatedAt       time.Time `db:"created_at"`
}
