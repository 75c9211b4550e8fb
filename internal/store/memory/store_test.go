package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, HashedPassword: "x", IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newConversation(t *testing.T, s *Store, owner uuid.UUID, title string) *models.Conversation {
	t.Helper()
	c := &models.Conversation{Title: title, UserID: owner}
	require.NoError(t, s.CreateConversation(context.Background(), c))
	return c
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := New()
	newUser(t, s, "alice@example.com")

	err := s.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "alice@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	// Emails are case-sensitive as stored.
	require.NoError(t, s.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "Alice@example.com"}))
}

func TestGetUser(t *testing.T) {
	s := New()
	u := newUser(t, s, "alice@example.com")

	got, err := s.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = s.GetUserByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConversations_OwnershipIsNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	bob := newUser(t, s, "bob@example.com")
	conv := newConversation(t, s, alice.ID, "Private")

	_, err := s.GetConversation(ctx, conv.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ListMessages(ctx, conv.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.AppendMessage(ctx, bob.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, bob.ID), store.ErrNotFound)

	list, err := s.ListConversations(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Still intact for the owner.
	got, err := s.GetConversation(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestListConversations_NewestCreatedFirst(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return clock })
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")

	first := newConversation(t, s, alice.ID, "first")
	clock = clock.Add(time.Minute)
	second := newConversation(t, s, alice.ID, "second")

	// Appending to the older one must not reorder the list.
	clock = clock.Add(time.Minute)
	require.NoError(t, s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: first.ID, Role: models.RoleUser, Content: "bump"}))

	list, err := s.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.True(t, list[1].UpdatedAt.After(list[1].CreatedAt))
}

func TestListConversations_TiebreakByIDDescending(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return frozen })
	alice := newUser(t, s, "alice@example.com")

	a := &models.Conversation{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Title: "a", UserID: alice.ID}
	b := &models.Conversation{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Title: "b", UserID: alice.ID}
	require.NoError(t, s.CreateConversation(context.Background(), a))
	require.NoError(t, s.CreateConversation(context.Background(), b))

	list, err := s.ListConversations(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestAppendMessage_SeqAndStrictlyIncreasingTime(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return frozen })
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	conv := newConversation(t, s, alice.ID, "Test")

	for _, content := range []string{"Hi", "Hello", "How are you?"} {
		require.NoError(t, s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: content}))
	}

	msgs, err := s.ListMessages(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		if i > 0 {
			assert.True(t, m.CreatedAt.After(msgs[i-1].CreatedAt))
		}
	}
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, "How are you?", msgs[2].Content)
}

func TestRecentMessages(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	conv := newConversation(t, s, alice.ID, "Test")
	for _, content := range []string{"1", "2", "3", "4"} {
		require.NoError(t, s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: content}))
	}

	recent, err := s.RecentMessages(ctx, conv.ID, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].Content)
	assert.Equal(t, "4", recent[1].Content)

	all, err := s.RecentMessages(ctx, conv.ID, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteConversation_Cascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	conv := newConversation(t, s, alice.ID, "Test")
	require.NoError(t, s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: "Hi"}))

	require.NoError(t, s.DeleteConversation(ctx, conv.ID, alice.ID))

	_, err := s.GetConversation(ctx, conv.ID, alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ListMessages(ctx, conv.ID, alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, s.messages)
	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, alice.ID), store.ErrNotFound)
}

func TestConcurrentAppendAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	conv := newConversation(t, s, alice.ID, "Race")

	var wg sync.WaitGroup
	var mu sync.Mutex
	appended := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleUser, Content: "x"})
			if err == nil {
				mu.Lock()
				appended++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, store.ErrNotFound)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.DeleteConversation(ctx, conv.ID, alice.ID))
	}()
	wg.Wait()

	// Whatever was appended before the delete went with it.
	_, err := s.ListMessages(ctx, conv.ID, alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, s.messages)
	assert.LessOrEqual(t, appended, 50)
}

func TestConcurrentAppends_UniqueContiguousSeq(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	conv := newConversation(t, s, alice.ID, "Busy")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AppendMessage(ctx, alice.ID, &models.Message{ConversationID: conv.ID, Role: models.RoleAssistant, Content: "y"}))
		}()
	}
	wg.Wait()

	msgs, err := s.ListMessages(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 40)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
	}
}

func TestDocuments_OwnershipAndCascade(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	bob := newUser(t, s, "bob@example.com")

	doc := &models.Document{UserID: alice.ID, Title: "notes.txt", Content: "hello", FileType: "txt"}
	require.NoError(t, s.CreateDocument(ctx, doc))
	assert.False(t, doc.IsProcessed)

	_, err := s.GetDocument(ctx, doc.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceDocumentChunks(ctx, doc.ID, bob.ID, nil), store.ErrNotFound)

	chunks := []models.DocumentChunk{
		{ChunkIndex: 0, Content: "hello", Embedding: []float32{1, 0}},
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, doc.ID, alice.ID, chunks))

	got, err := s.GetDocument(ctx, doc.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	assert.Equal(t, 1, got.ChunkCount)

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID, bob.ID), store.ErrNotFound)
	require.NoError(t, s.DeleteDocument(ctx, doc.ID, alice.ID))
	assert.Empty(t, s.chunks)

	list, err := s.ListDocuments(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSearchChunks_RankedAndIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := newUser(t, s, "alice@example.com")
	bob := newUser(t, s, "bob@example.com")

	aliceDoc := &models.Document{UserID: alice.ID, Title: "a.txt", FileType: "txt"}
	bobDoc := &models.Document{UserID: bob.ID, Title: "b.txt", FileType: "txt"}
	require.NoError(t, s.CreateDocument(ctx, aliceDoc))
	require.NoError(t, s.CreateDocument(ctx, bobDoc))

	require.NoError(t, s.ReplaceDocumentChunks(ctx, aliceDoc.ID, alice.ID, []models.DocumentChunk{
		{ChunkIndex: 0, Content: "near", Embedding: []float32{1, 0.1}},
		{ChunkIndex: 1, Content: "far", Embedding: []float32{0, 1}},
		{ChunkIndex: 2, Content: "mid", Embedding: []float32{1, 1}},
	}))
	require.NoError(t, s.ReplaceDocumentChunks(ctx, bobDoc.ID, bob.ID, []models.DocumentChunk{
		{ChunkIndex: 0, Content: "bob's exact match", Embedding: []float32{1, 0}},
	}))

	hits, err := s.SearchChunks(ctx, alice.ID, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Content)
	assert.Equal(t, "mid", hits[1].Content)
	assert.Equal(t, "a.txt", hits[0].DocumentTitle)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
}
