package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"docuchat-backend/internal/auth"
	"docuchat-backend/internal/models"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for the service layer. Handlers map them to status codes.
var (
	ErrValidation         = errors.New("input validation failed")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
)

type AuthService struct {
	users  store.UserStore
	hasher *auth.Hasher
	tokens *auth.TokenService

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users store.UserStore, hasher *auth.Hasher, tokens *auth.TokenService) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// TokenTTL is the lifetime of issued tokens, also used as the cookie max-age.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates a new active user. The email is trimmed but otherwise
// stored exactly as given.
func (s *AuthService) Register(ctx context.Context, email, fullName, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}

	hashed, err := s.hasher.HashPassword(ctx, password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		log.Printf("ERROR [AuthService] Register: Failed hashing password for %s: %v", email, err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          email,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, err
		}
		log.Printf("ERROR [AuthService] Register: Failed creating user %s: %v", email, err)
		return nil, fmt.Errorf("creating user failed: %w", err)
	}

	log.Printf("[AuthService] Registered user %s (ID: %s)", email, user.ID)
	return user, nil
}

// VerifyCredentials returns the user when password matches the stored hash.
// Unknown email and wrong password are indistinguishable.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if _, err := s.hasher.CheckPasswordHash(ctx, password, s.unknownUserHash(ctx)); err != nil {
				return nil, err
			}
			return nil, ErrInvalidCredentials
		}
		log.Printf("ERROR [AuthService] VerifyCredentials: Failed retrieving user %s: %v", email, err)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	ok, err := s.hasher.CheckPasswordHash(ctx, password, user.HashedPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.Email, 0)
	if err != nil {
		log.Printf("ERROR [AuthService] Login: Failed generating token for user %s: %v", user.ID, err)
		return "", nil, fmt.Errorf("failed to create access token: %w", err)
	}

	log.Printf("[AuthService] Logged in user %s (ID: %s)", user.Email, user.ID)
	return token, user, nil
}

// ResolveToken maps a bearer token to its active user. Every failure,
// including an unknown or deactivated subject, is ErrUnauthenticated.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		log.Printf("ERROR [AuthService] ResolveToken: Failed retrieving user for token subject: %v", err)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !user.IsActive {
		log.Printf("WARN [AuthService] ResolveToken: Inactive user %s presented a token", user.ID)
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) unknownUserHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.HashPassword(ctx, uuid.NewString())
		if err != nil {
			log.Printf("WARN [AuthService] Failed creating placeholder hash: %v", err)
			return
		}
		s.dummyHash = hashed
	})
	return s.dummyHash
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q is not a valid email address", ErrValidation, email)
	}
	return nil
}
