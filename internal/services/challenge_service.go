package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"storegate/internal/config"
	"storegate/internal/repositories"
)

// ErrChallengeDeliveryFailed means the code was stored but could not be
// delivered in time. Distinct from the store being unavailable.
var ErrChallengeDeliveryFailed = errors.New("challenge delivery failed")

// ChallengeService mints login codes and delivers them out-of-band. It does
// not track the resend cooldown: that is UI-session state and lives in the
// orchestrator. The durable per-identifier issuance cap does belong here.
type ChallengeService struct {
	otps   *repositories.OtpRepository
	emails EmailService

	ttl           time.Duration
	digits        int
	maxIssues     int
	issueWindow   time.Duration
	sendTimeout   time.Duration
	debugDelivery bool
}

func NewChallengeService(otps *repositories.OtpRepository, emails EmailService, cfg config.AuthConfig) *ChallengeService {
	return &ChallengeService{
		otps:          otps,
		emails:        emails,
		ttl:           cfg.OTPTTL(),
		digits:        cfg.OTPDigits,
		maxIssues:     cfg.MaxIssuesPerWindow,
		issueWindow:   cfg.IssueWindow(),
		sendTimeout:   cfg.SendTimeout(),
		debugDelivery: cfg.DebugDelivery,
	}
}

// Issue generates a fresh code for identifier, replacing any live one, and
// delivers it. The code is drawn uniformly from the full numeric space.
func (s *ChallengeService) Issue(ctx context.Context, identifier string) error {
	allowed, err := s.otps.IssueAllowed(ctx, identifier, s.maxIssues, s.issueWindow)
	if err != nil {
		return err
	}
	if !allowed {
		return repositories.ErrIssueRateLimited
	}

	code, err := generateCode(s.digits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	if err := s.otps.Put(ctx, identifier, code, s.ttl); err != nil {
		return err
	}

	if s.debugDelivery {
		// operator-visible shortcut for local development; config.Validate
		// refuses this flag in production
		log.Printf("[challenge][debug] login code for %s: %s (expires in %s)", identifier, code, s.ttl)
		return nil
	}

	if err := s.sendWithTimeout(ctx, identifier, code); err != nil {
		log.Printf("[challenge][issue] delivery failed identifier=%s: %v", identifier, err)
		return fmt.Errorf("%w: %v", ErrChallengeDeliveryFailed, err)
	}
	log.Printf("[challenge][issue] code sent identifier=%s ttl=%s", identifier, s.ttl)
	return nil
}

// sendWithTimeout bounds the SMTP round trip so a slow relay cannot hang the
// state machine.
func (s *ChallengeService) sendWithTimeout(ctx context.Context, email, code string) error {
	done := make(chan error, 1)
	go func() {
		done <- s.emails.SendLoginCode(email, code, s.ttl)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.sendTimeout):
		return fmt.Errorf("delivery timed out after %s", s.sendTimeout)
	}
}

func generateCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
