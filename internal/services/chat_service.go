package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/models"
	"docuchat-backend/internal/rag"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

const (
	// historyWindow is how many earlier messages are loaded for a turn;
	// rag.BuildPrompt forwards the most recent of them to the model.
	historyWindow = 10

	newChatTitle   = "New Chat"
	apologyMessage = "I apologize, but I'm having trouble processing your request right now. Please try again later."
)

// ChatService runs one question/answer turn of a conversation.
type ChatService struct {
	store     store.ConversationStore
	retriever *rag.Retriever
	generator llm.Generator
}

func NewChatService(s store.ConversationStore, retriever *rag.Retriever, generator llm.Generator) *ChatService {
	return &ChatService{
		store:     s,
		retriever: retriever,
		generator: generator,
	}
}

// Chat stores the user's message, answers it from the user's documents and
// stores the answer. Without a conversation id a new conversation is started.
// A provider failure still produces an assistant message (an apology) so every
// user message is followed by a reply.
func (s *ChatService) Chat(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}

	conv, err := s.conversationFor(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: question}
	if err := s.store.AppendMessage(ctx, userID, userMsg); err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, userID, question, 0)
	if err != nil {
		log.Printf("WARN [ChatService] Retrieval failed for conversation %s, answering without context: %v", conv.ID, err)
		chunks = nil
	}

	history, err := s.history(ctx, userID, conv.ID, userMsg.ID)
	if err != nil {
		log.Printf("WARN [ChatService] History read failed for conversation %s, answering without it: %v", conv.ID, err)
		history = nil
	}

	sources := make([]string, 0, len(chunks))
	confidence := 0.0
	for _, c := range chunks {
		sources = append(sources, c.SourceID())
		if c.Score > confidence {
			confidence = c.Score
		}
	}

	reply, err := s.generator.Generate(ctx, rag.BuildPrompt(question, chunks, history))
	if err != nil {
		log.Printf("ERROR [ChatService] Provider %s failed for conversation %s: %v", s.generator.Name(), conv.ID, err)
		reply = apologyMessage
		sources = []string{}
		confidence = 0
	}

	assistantMsg := &models.Message{
		ConversationID:  conv.ID,
		Role:            models.RoleAssistant,
		Content:         reply,
		Sources:         sources,
		ConfidenceScore: &confidence,
	}
	// The user message is already stored; its reply is written even if the
	// client has gone away.
	if err := s.store.AppendMessage(context.WithoutCancel(ctx), userID, assistantMsg); err != nil {
		log.Printf("ERROR [ChatService] Failed storing reply for conversation %s: %v", conv.ID, err)
		return nil, err
	}

	return &models.ChatResponse{
		Message:         reply,
		ConversationID:  conv.ID,
		Sources:         sources,
		ConfidenceScore: confidence,
	}, nil
}

func (s *ChatService) conversationFor(ctx context.Context, userID uuid.UUID, id *uuid.UUID) (*models.Conversation, error) {
	if id != nil {
		return s.store.GetConversation(ctx, *id, userID)
	}
	conv := &models.Conversation{ID: uuid.New(), Title: newChatTitle, UserID: userID}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	log.Printf("[ChatService] Started conversation %s for user %s", conv.ID, userID)
	return conv, nil
}

// history returns up to historyWindow messages preceding the current one.
func (s *ChatService) history(ctx context.Context, userID, conversationID, currentID uuid.UUID) ([]models.Message, error) {
	recent, err := s.store.RecentMessages(ctx, conversationID, userID, historyWindow+1)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID != currentID {
			out = append(out, m)
		}
	}
	if len(out) > historyWindow {
		out = out[len(out)-historyWindow:]
	}
	return out, nil
}
