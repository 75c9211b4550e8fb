package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Conversation Methods ---

// CreateConversation inserts a new conversation owned by conv.UserID.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	log.Printf("[PostgresStore] CreateConversation called for UserID: %s", conv.UserID)
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	query := `
		INSERT INTO conversations (id, title, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := s.db.QueryRow(ctx, query, conv.ID, conv.Title, conv.UserID).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateConversation: Failed insert for UserID %s: %v", conv.UserID, err)
		return fmt.Errorf("database error creating conversation: %w", err)
	}
	return nil
}

// ListConversations returns the user's conversations, newest created first.
func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	query := `
		SELECT id, title, user_id, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListConversations: Failed query for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		c := models.Conversation{}
		if err := rows.Scan(&c.ID, &c.Title, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			log.Printf("ERROR [PostgresStore] ListConversations: Failed scanning row for UserID %s: %v", userID, err)
			return nil, fmt.Errorf("database error scanning conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating conversations: %w", err)
	}
	return convs, nil
}

// GetConversation retrieves a conversation the user owns.
func (s *PostgresStore) GetConversation(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, title, user_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`

	c := &models.Conversation{}
	err := s.db.QueryRow(ctx, query, id, userID).Scan(&c.ID, &c.Title, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetConversation: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}
	return c, nil
}

// DeleteConversation removes a conversation and its messages in one transaction.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id, userID uuid.UUID) error {
	log.Printf("[PostgresStore] DeleteConversation called for ID: %s, UserID: %s", id, userID)
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockConversation(ctx, tx, id, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
			log.Printf("ERROR [PostgresStore] DeleteConversation: Failed deleting messages for ID %s: %v", id, err)
			return fmt.Errorf("database error deleting messages: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
			log.Printf("ERROR [PostgresStore] DeleteConversation: Failed deleting conversation %s: %v", id, err)
			return fmt.Errorf("database error deleting conversation: %w", err)
		}
		return nil
	})
}

// lockConversation takes a row lock on the user's conversation for the rest
// of tx. A conversation deleted while we waited for the lock is not found.
func lockConversation(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM conversations WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("database error locking conversation: %w", err)
	}
	return nil
}

// --- Message Methods ---

// AppendMessage stores msg as the next message of its conversation.
func (s *PostgresStore) AppendMessage(ctx context.Context, userID uuid.UUID, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockConversation(ctx, tx, msg.ConversationID, userID); err != nil {
			return err
		}

		var lastSeq int64
		var lastAt *time.Time
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0), MAX(created_at) FROM messages WHERE conversation_id = $1`,
			msg.ConversationID,
		).Scan(&lastSeq, &lastAt)
		if err != nil {
			log.Printf("ERROR [PostgresStore] AppendMessage: Failed reading last message of %s: %v", msg.ConversationID, err)
			return fmt.Errorf("database error reading last message: %w", err)
		}

		// Postgres keeps microseconds.
		createdAt := s.now().UTC().Truncate(time.Microsecond)
		if lastAt != nil && !createdAt.After(*lastAt) {
			createdAt = lastAt.UTC().Add(time.Microsecond)
		}
		msg.Seq = lastSeq + 1
		msg.CreatedAt = createdAt

		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, seq, role, content, sources, confidence_score, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, msg.ConversationID, msg.Seq, msg.Role, msg.Content, msg.Sources, msg.ConfidenceScore, msg.CreatedAt,
		)
		if err != nil {
			log.Printf("ERROR [PostgresStore] AppendMessage: Failed insert into %s: %v", msg.ConversationID, err)
			return fmt.Errorf("database error inserting message: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
			msg.ConversationID, msg.CreatedAt,
		); err != nil {
			return fmt.Errorf("database error touching conversation: %w", err)
		}
		return nil
	})
}

// ListMessages returns every message of the user's conversation in Seq order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, conversation_id, seq, role, content, sources, confidence_score, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq ASC`
	return s.queryMessages(ctx, query, conversationID)
}

// RecentMessages returns the last limit messages of the conversation in Seq
// order. A non-positive limit returns every message.
func (s *PostgresStore) RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return s.ListMessages(ctx, conversationID, userID)
	}
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, conversation_id, seq, role, content, sources, confidence_score, created_at
		FROM (
			SELECT id, conversation_id, seq, role, content, sources, confidence_score, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`
	return s.queryMessages(ctx, query, conversationID, limit)
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] queryMessages: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		m := models.Message{}
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.Seq,
			&m.Role,
			&m.Content,
			&m.Sources,
			&m.ConfidenceScore,
			&m.CreatedAt,
		); err != nil {
			log.Printf("ERROR [PostgresStore] queryMessages: Failed scanning row: %v", err)
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}
	return msgs, nil
}
