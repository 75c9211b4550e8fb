// Package memory is an in-process implementation of store.Store used for
// local development (STORE_DRIVER=memory) and tests. A single lock guards
// all state, so every operation is atomic.
package memory

import (
	"bytes"
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users     map[uuid.UUID]models.User
	emails    map[string]uuid.UUID
	convs     map[uuid.UUID]models.Conversation
	messages  map[uuid.UUID][]models.Message // by conversation, in Seq order
	documents map[uuid.UUID]models.Document
	chunks    map[uuid.UUID][]models.DocumentChunk // by document
}

func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[uuid.UUID]models.User),
		emails:    make(map[string]uuid.UUID),
		convs:     make(map[uuid.UUID]models.Conversation),
		messages:  make(map[uuid.UUID][]models.Message),
		documents: make(map[uuid.UUID]models.Document),
		chunks:    make(map[uuid.UUID][]models.DocumentChunk),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// --- Users ---

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[user.Email]; exists {
		log.Printf("WARN [MemoryStore] CreateUser: Duplicate email %s", user.Email)
		return store.ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := s.timestamp()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// SetUserActive flips a user's active flag. The service layer never
// deactivates accounts; this exists for administration and tests.
func (s *Store) SetUserActive(id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = s.timestamp()
	s.users[id] = u
	return nil
}

// --- Conversations ---

func (s *Store) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	now := s.timestamp()
	conv.CreatedAt, conv.UpdatedAt = now, now
	s.convs[conv.ID] = *conv
	return nil
}

func (s *Store) ListConversations(_ context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Conversation{}
	for _, c := range s.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) GetConversation(_ context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.ownedConversation(id, userID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteConversation(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedConversation(id, userID); err != nil {
		return err
	}
	delete(s.messages, id)
	delete(s.convs, id)
	return nil
}

// ownedConversation must be called with s.mu held.
func (s *Store) ownedConversation(id, userID uuid.UUID) (models.Conversation, error) {
	c, ok := s.convs[id]
	if !ok || c.UserID != userID {
		return models.Conversation{}, store.ErrNotFound
	}
	return c, nil
}

// --- Messages ---

func (s *Store) AppendMessage(_ context.Context, userID uuid.UUID, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.ownedConversation(msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	createdAt := s.timestamp()
	msg.Seq = 1
	if existing := s.messages[conv.ID]; len(existing) > 0 {
		last := existing[len(existing)-1]
		msg.Seq = last.Seq + 1
		if !createdAt.After(last.CreatedAt) {
			createdAt = last.CreatedAt.Add(time.Microsecond)
		}
	}
	msg.CreatedAt = createdAt

	stored := *msg
	stored.Sources = append([]string(nil), msg.Sources...)
	s.messages[conv.ID] = append(s.messages[conv.ID], stored)

	conv.UpdatedAt = createdAt
	s.convs[conv.ID] = conv
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID, userID uuid.UUID) ([]models.Message, error) {
	return s.RecentMessages(context.Background(), conversationID, userID, 0)
}

// RecentMessages returns the last limit messages; limit <= 0 means all.
func (s *Store) RecentMessages(_ context.Context, conversationID, userID uuid.UUID, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedConversation(conversationID, userID); err != nil {
		return nil, err
	}
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// --- Documents ---

func (s *Store) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := s.timestamp()
	doc.CreatedAt, doc.UpdatedAt = now, now
	doc.IsProcessed, doc.ChunkCount = false, 0
	s.documents[doc.ID] = *doc
	return nil
}

func (s *Store) GetDocument(_ context.Context, id, userID uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.ownedDocument(id, userID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDocuments(_ context.Context, userID uuid.UUID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Document{}
	for _, d := range s.documents {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) DeleteDocument(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedDocument(id, userID); err != nil {
		return err
	}
	delete(s.chunks, id)
	delete(s.documents, id)
	return nil
}

func (s *Store) ReplaceDocumentChunks(_ context.Context, documentID, userID uuid.UUID, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.ownedDocument(documentID, userID)
	if err != nil {
		return err
	}
	now := s.timestamp()
	stored := make([]models.DocumentChunk, len(chunks))
	for i := range chunks {
		if chunks[i].ID == uuid.Nil {
			chunks[i].ID = uuid.New()
		}
		chunks[i].DocumentID = documentID
		chunks[i].CreatedAt = now
		stored[i] = chunks[i]
		stored[i].Embedding = append([]float32(nil), chunks[i].Embedding...)
	}
	s.chunks[documentID] = stored

	doc.IsProcessed = true
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = now
	s.documents[documentID] = doc
	return nil
}

func (s *Store) SearchChunks(_ context.Context, userID uuid.UUID, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []models.ScoredChunk{}
	if len(embedding) == 0 || limit <= 0 {
		return hits, nil
	}
	for docID, chunks := range s.chunks {
		doc := s.documents[docID]
		if doc.UserID != userID {
			continue
		}
		for _, c := range chunks {
			if len(c.Embedding) != len(embedding) {
				continue
			}
			hits = append(hits, models.ScoredChunk{
				ChunkID:       c.ID,
				DocumentID:    docID,
				DocumentTitle: doc.Title,
				ChunkIndex:    c.ChunkIndex,
				Content:       c.Content,
				Score:         CosineSimilarity(embedding, c.Embedding),
			})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return bytes.Compare(hits[i].ChunkID[:], hits[j].ChunkID[:]) < 0
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ownedDocument must be called with s.mu held.
func (s *Store) ownedDocument(id, userID uuid.UUID) (models.Document, error) {
	d, ok := s.documents[id]
	if !ok || d.UserID != userID {
		return models.Document{}, store.ErrNotFound
	}
	return d, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func newerFirst(ta, tb time.Time, ida, idb uuid.UUID) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return bytes.Compare(ida[:], idb[:]) > 0
}
