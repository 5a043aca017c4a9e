// Package auth manages accounts and sessions.
//
// Accounts are either email/password users, whose passwords are stored as
// bcrypt hashes, or anonymous guests. Every successful sign-in yields a
// Session identified by an opaque token; sign-in and sign-out are published
// to subscribers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/cubediary/internal/backend/database"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoSession          = errors.New("no active session")
)

type Service struct {
	db       database.DatabaseService
	sessions SessionStore
	events   *Broadcaster
	validate *validator.Validate
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

// NewService creates the service. A non-positive ttl selects DefaultTTL.
func NewService(db database.DatabaseService, sessions SessionStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		db:       db,
		sessions: sessions,
		events:   NewBroadcaster(),
		validate: validator.New(),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers an email/password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{Email: email, PasswordHash: string(hash)}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	slog.Info("signUp: account created", "user_id", user.ID)
	return s.startSession(ctx, user)
}

// SignIn checks the credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if user == nil || user.IsGuest {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

// SignInAnonymously creates a guest account without credentials.
func (s *Service) SignInAnonymously(ctx context.Context) (*Session, error) {
	user := &database.User{IsGuest: true}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create guest account: %w", err)
	}
	return s.startSession(ctx, user)
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if session == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	s.events.Publish(Event{Kind: SignedOut, UserID: session.UserID, SessionToken: token, At: s.now().UTC()})
	return nil
}

// Session resolves token to its live session.
func (s *Service) Session(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if session == nil || session.IsExpired(s.now()) {
		return nil, ErrNoSession
	}
	return session, nil
}

// Subscribe delivers future sign-in and sign-out events.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

func (s *Service) startSession(ctx context.Context, user *database.User) (*Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	now := s.now().UTC()
	session := &Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		IsGuest:   user.IsGuest,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	s.events.Publish(Event{Kind: SignedIn, UserID: user.ID, SessionToken: token, At: now})
	return session, nil
}
