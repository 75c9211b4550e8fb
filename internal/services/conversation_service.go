package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

const maxTitleLength = 255

// ConversationService enforces input rules on top of the conversation store.
// Ownership is enforced by the store itself.
type ConversationService struct {
	store store.ConversationStore
}

func NewConversationService(s store.ConversationStore) *ConversationService {
	return &ConversationService{store: s}
}

func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}

	conv := &models.Conversation{ID: uuid.New(), Title: title, UserID: userID}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	log.Printf("[ConversationService] Created conversation %s for user %s", conv.ID, userID)
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

func (s *ConversationService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error) {
	return s.store.GetConversation(ctx, id, userID)
}

func (s *ConversationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteConversation(ctx, id, userID); err != nil {
		return err
	}
	log.Printf("[ConversationService] Deleted conversation %s for user %s", id, userID)
	return nil
}

func (s *ConversationService) Messages(ctx context.Context, userID, id uuid.UUID) ([]models.Message, error) {
	return s.store.ListMessages(ctx, id, userID)
}

// AppendMessage validates and stores one message. Seq and CreatedAt are
// assigned by the store.
func (s *ConversationService) AppendMessage(ctx context.Context, userID, conversationID uuid.UUID, role, content string, sources []string, confidence *float64) (*models.Message, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	msg := &models.Message{
		ConversationID:  conversationID,
		Role:            role,
		Content:         content,
		Sources:         sources,
		ConfidenceScore: confidence,
	}
	if err := s.store.AppendMessage(ctx, userID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
