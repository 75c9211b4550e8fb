package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestCreateUser_FillsTimestamps(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("INSERT INTO users")).
		WithArgs(pgxmock.AnyArg(), "alice@example.com", "Alice", "hash", true).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	u := &models.User{ID: uuid.New(), Email: "alice@example.com", FullName: "Alice", HashedPassword: "hash", IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, created, u.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "alice@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_OtherErrorIsWrapped(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(q("INSERT INTO users")).WillReturnError(boom)

	err := s.CreateUser(context.Background(), &models.User{ID: uuid.New(), Email: "alice@example.com"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("FROM users")).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_Found(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM users")).
		WithArgs("alice@example.com").
		WillReturnRows(mock.NewRows([]string{"id", "email", "full_name", "hashed_password", "is_active", "created_at", "updated_at"}).
			AddRow(id.String(), "alice@example.com", "Alice", "hash", true, now, now))

	u, err := s.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.IsActive)
}

func TestGetConversation_ForeignIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	convID, otherUser := uuid.New(), uuid.New()

	mock.ExpectQuery(q("FROM conversations")).
		WithArgs(convID, otherUser).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetConversation(context.Background(), convID, otherUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_AssignsSeqAndMonotonicTime(t *testing.T) {
	s, mock := newMockStore(t)
	convID, userID := uuid.New(), uuid.New()
	lastAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Clock is behind the last message.
	s.now = func() time.Time { return lastAt.Add(-time.Second) }

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM conversations WHERE id = $1 AND user_id = $2 FOR UPDATE")).
		WithArgs(convID, userID).
		WillReturnRows(mock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(q("SELECT COALESCE(MAX(seq), 0), MAX(created_at) FROM messages")).
		WithArgs(convID).
		WillReturnRows(mock.NewRows([]string{"coalesce", "max"}).AddRow(int64(3), &lastAt))
	mock.ExpectExec(q("INSERT INTO messages")).
		WithArgs(pgxmock.AnyArg(), convID, int64(4), models.RoleUser, "Hi", pgxmock.AnyArg(), pgxmock.AnyArg(), lastAt.Add(time.Microsecond)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q("UPDATE conversations SET updated_at")).
		WithArgs(convID, lastAt.Add(time.Microsecond)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	msg := &models.Message{ConversationID: convID, Role: models.RoleUser, Content: "Hi"}
	require.NoError(t, s.AppendMessage(context.Background(), userID, msg))
	assert.Equal(t, int64(4), msg.Seq)
	assert.Equal(t, lastAt.Add(time.Microsecond), msg.CreatedAt)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_ForeignConversationRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	convID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(convID, userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.AppendMessage(context.Background(), userID, &models.Message{ConversationID: convID, Role: models.RoleUser, Content: "Hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteConversation_CascadesInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	convID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(convID, userID).
		WillReturnRows(mock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(q("DELETE FROM messages WHERE conversation_id = $1")).
		WithArgs(convID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(q("DELETE FROM conversations WHERE id = $1")).
		WithArgs(convID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteConversation(context.Background(), convID, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteConversation_FailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	convID, userID := uuid.New(), uuid.New()
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(convID, userID).
		WillReturnRows(mock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(q("DELETE FROM messages")).WillReturnError(boom)
	mock.ExpectRollback()

	err := s.DeleteConversation(context.Background(), convID, userID)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMessages_NonPositiveLimitReturnsAll(t *testing.T) {
	s, mock := newMockStore(t)
	convID, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	cols := []string{"id", "conversation_id", "seq", "role", "content", "sources", "confidence_score", "created_at"}

	mock.ExpectQuery(q("FROM conversations")).
		WithArgs(convID, userID).
		WillReturnRows(mock.NewRows([]string{"id", "title", "user_id", "created_at", "updated_at"}).
			AddRow(convID, "Test", userID, now, now))
	mock.ExpectQuery(q("ORDER BY seq ASC")).
		WithArgs(convID).
		WillReturnRows(mock.NewRows(cols).
			AddRow(uuid.New(), convID, int64(1), models.RoleUser, "Hi", []string(nil), (*float64)(nil), now).
			AddRow(uuid.New(), convID, int64(2), models.RoleAssistant, "Hello", []string(nil), (*float64)(nil), now.Add(time.Microsecond)))

	msgs, err := s.RecentMessages(context.Background(), convID, userID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDocument_NotOwned(t *testing.T) {
	s, mock := newMockStore(t)
	docID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(q("DELETE FROM documents")).
		WithArgs(docID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteDocument(context.Background(), docID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchChunks_EmptyEmbeddingSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	hits, err := s.SearchChunks(context.Background(), uuid.New(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesGoose(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), "postgres://user:pw@localhost:5432/docuchat"))
	assert.Equal(t, ".", gotDir)

	boom := errors.New("boom")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}
	assert.ErrorIs(t, RunMigrations(context.Background(), "postgres://user:pw@localhost:5432/docuchat"), boom)
}
