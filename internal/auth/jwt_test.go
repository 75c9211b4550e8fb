package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokens(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
	return NewTokenService("super-secret", 30*time.Minute).WithClock(clock.Now), clock
}

func TestIssueAndVerify_Success(t *testing.T) {
	svc, _ := newTestTokens(t)

	tok, err := svc.Issue("alice@example.com", 0)
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC), claims.ExpiresAt.Time.UTC())
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("alice@example.com", 0)
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = svc.Verify(tok)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssue_ExplicitTTL(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("bob@example.com", time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	svc, _ := newTestTokens(t)
	other := NewTokenService("other-secret", time.Hour).WithClock(svc.now)

	tok, err := other.Issue("alice@example.com", 0)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_Garbage(t *testing.T) {
	svc, _ := newTestTokens(t)

	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc, clock := newTestTokens(t)

	claims := CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice@example.com",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("super-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_RequiresSubjectAndExpiry(t *testing.T) {
	svc, clock := newTestTokens(t)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(noSubject)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "alice@example.com",
	}}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(noExpiry)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
