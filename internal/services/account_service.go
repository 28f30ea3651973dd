package services

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storegate/internal/models"
	"storegate/internal/repositories"
)

// AccountService is the credential/session collaborator of the login flow.
// VerifyCredentials has the side effect of establishing a live session; the
// orchestrator is responsible for tearing that session down between the two
// login phases.
type AccountService interface {
	VerifyCredentials(ctx context.Context, email, password string) (*models.Session, error)
	DestroySession(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	HashPassword(password string) (string, error)
}

type accountService struct {
	users      repositories.UserRepository
	sessions   *repositories.SessionRepository
	sessionTTL time.Duration
}

func NewAccountService(users repositories.UserRepository, sessions *repositories.SessionRepository, sessionTTL time.Duration) AccountService {
	return &accountService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

func (s *accountService) VerifyCredentials(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(email)
	if err != nil {
		log.Printf("[account][verify] lookup failed email=%q: %v", email, err)
		return nil, err
	}
	// unknown email and wrong password are indistinguishable to the caller
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	ph := strings.TrimSpace(user.PasswordHash)
	if ph == "" {
		log.Printf("[account][verify] empty password_hash for userID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ph), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Email, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *accountService) DestroySession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *accountService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *accountService) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
