package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storegate/internal/authz"
	"storegate/internal/config"
	"storegate/internal/middleware"
	"storegate/internal/models"
	"storegate/internal/repositories"
	"storegate/internal/utils"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeExpired        = errors.New("code expired")
	ErrTooManyAttempts    = errors.New("too many code attempts")
	ErrResendThrottled    = errors.New("resend throttled")
	ErrNoPendingLogin     = errors.New("no login in progress")
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit

	// pendingGrace keeps the pending login alive past the code expiry so an
	// expired code can be resent without re-collecting the password.
	pendingGrace = 10 * time.Minute
)

// pendingLogin is the volatile state between the two login phases. It lives
// only in process memory: the retained secret must never reach durable
// storage or a log line.
type pendingLogin struct {
	password     string
	nextResendAt time.Time
	expiresAt    time.Time
}

// LoginResult is returned to the UI shell after the second phase succeeds.
type LoginResult struct {
	User         *models.User
	Session      *models.Session
	AccessToken  string
	RefreshToken string
	RoleID       int
	Destination  string
}

// LoginService drives the two-factor login state machine:
//
//	credentials -> awaiting_code -> authenticated
//
// Every failure drops back to the credentials phase or stays in
// awaiting_code; no path leaves a session alive except the final one.
type LoginService struct {
	accounts   AccountService
	captcha    CaptchaVerifier
	challenges *ChallengeService
	otps       *repositories.OtpRepository
	roles      *RoleService
	users      repositories.UserRepository
	events     repositories.SignInEventRecorder
	notifier   *NotifyService

	jwtSecret      []byte
	accessTTL      time.Duration
	refreshTTL     time.Duration
	otpTTL         time.Duration
	resendCooldown time.Duration
	maxAttempts    int

	now func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingLogin
}

func NewLoginService(
	accounts AccountService,
	captcha CaptchaVerifier,
	challenges *ChallengeService,
	otps *repositories.OtpRepository,
	roles *RoleService,
	users repositories.UserRepository,
	events repositories.SignInEventRecorder,
	notifier *NotifyService,
	cfg config.AuthConfig,
) *LoginService {
	return &LoginService{
		accounts:       accounts,
		captcha:        captcha,
		challenges:     challenges,
		otps:           otps,
		roles:          roles,
		users:          users,
		events:         events,
		notifier:       notifier,
		jwtSecret:      []byte(cfg.JWTSecret),
		accessTTL:      cfg.AccessTTL(),
		refreshTTL:     cfg.RefreshTTL(),
		otpTTL:         cfg.OTPTTL(),
		resendCooldown: cfg.ResendCooldown(),
		maxAttempts:    cfg.MaxVerifyAttempts,
		now:            time.Now,
		pending:        make(map[string]*pendingLogin),
	}
}

// BeginLogin is the credentials -> awaiting_code transition: proof check,
// password check, immediate session teardown, then challenge dispatch.
func (s *LoginService) BeginLogin(ctx context.Context, email, password, proofToken, remoteIP string) error {
	email = normalizeEmail(email)
	if err := validateLoginInput(email, password); err != nil {
		return err
	}

	if err := s.captcha.Verify(ctx, proofToken, remoteIP); err != nil {
		return err
	}

	sess, err := s.accounts.VerifyCredentials(ctx, email, password)
	if err != nil {
		// the proof must not survive a failed attempt
		s.captcha.Reset(proofToken)
		s.recordEvent(email, "credentials", "denied")
		return err
	}

	// The credential check left a live session behind. Destroy it before
	// anything else: the code step must be the sole gate to a retained
	// session, otherwise intercepting this response bypasses the second
	// factor entirely.
	if err := s.accounts.DestroySession(ctx, sess.ID); err != nil {
		s.recordEvent(email, "credentials", "teardown_failed")
		return err
	}

	now := s.now()
	s.mu.Lock()
	s.sweepLocked(now)
	s.pending[email] = &pendingLogin{
		password:     password,
		nextResendAt: now.Add(s.resendCooldown),
		expiresAt:    now.Add(s.otpTTL + pendingGrace),
	}
	s.mu.Unlock()

	if err := s.challenges.Issue(ctx, email); err != nil {
		// do not leave a stale secret in memory
		s.dropPending(email)
		s.recordEvent(email, "credentials", "dispatch_failed")
		return err
	}

	s.recordEvent(email, "credentials", "code_sent")
	return nil
}

// CompleteLogin is the awaiting_code -> authenticated transition. On a code
// match it re-authenticates with the retained secret to materialize the real
// session, then resolves the role; accounts without one end up signed out.
func (s *LoginService) CompleteLogin(ctx context.Context, email, code string) (*LoginResult, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}

	s.mu.Lock()
	s.sweepLocked(s.now())
	p, ok := s.pending[email]
	var password string
	if ok {
		password = p.password
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoPendingLogin
	}

	rec, err := s.otps.Get(ctx, email)
	if err != nil {
		// store outage is never "verified"
		return nil, err
	}
	if rec == nil {
		s.recordEvent(email, "awaiting_code", "code_expired")
		return nil, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		exceeded, ferr := s.otps.RecordFailure(ctx, email, s.maxAttempts)
		if ferr != nil {
			return nil, ferr
		}
		s.recordEvent(email, "awaiting_code", "code_invalid")
		if exceeded {
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidCode
	}

	// single use: consume before anything can fail
	if err := s.otps.Consume(ctx, email); err != nil {
		return nil, err
	}

	// the retained secret is discarded unconditionally from here on
	s.dropPending(email)

	sess, err := s.accounts.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.recordEvent(email, "awaiting_code", "reauth_failed")
		return nil, err
	}

	roleID, err := s.roles.Resolve(sess.UserID)
	if err != nil {
		// valid credentials, valid code, but nothing to authorize: the
		// account must end up signed out, not signed in without privileges
		if derr := s.accounts.DestroySession(ctx, sess.ID); derr != nil {
			log.Printf("[login][complete] session teardown after role failure: %v", derr)
		}
		if errors.Is(err, ErrRoleNotAssigned) {
			s.recordEvent(email, "awaiting_code", "not_provisioned")
			return nil, err
		}
		return nil, err
	}

	accessToken, err := s.mintAccessToken(sess.UserID, roleID)
	if err != nil {
		_ = s.accounts.DestroySession(ctx, sess.ID)
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshToken, err := utils.NewRefreshToken(32)
	if err != nil {
		_ = s.accounts.DestroySession(ctx, sess.ID)
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	if err := s.users.UpdateRefresh(sess.UserID, refreshToken, s.now().Add(s.refreshTTL)); err != nil {
		_ = s.accounts.DestroySession(ctx, sess.ID)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	user, err := s.users.GetByID(sess.UserID)
	if err != nil {
		log.Printf("[login][complete] user load after auth userID=%d: %v", sess.UserID, err)
	}

	s.recordEvent(email, "awaiting_code", "success")
	if authz.IsElevated(roleID) && s.notifier != nil {
		go s.notifier.SignInAlert(email, roleID, s.now())
	}

	log.Printf("[login][complete] success email=%s role=%d", email, roleID)
	return &LoginResult{
		User:         user,
		Session:      sess,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RoleID:       roleID,
		Destination:  s.roles.DestinationFor(roleID),
	}, nil
}

// ResendCode re-issues a code for a pending login without re-collecting the
// password. The cooldown is enforced here, before the dispatcher is touched.
func (s *LoginService) ResendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	now := s.now()
	s.mu.Lock()
	s.sweepLocked(now)
	p, ok := s.pending[email]
	if !ok {
		s.mu.Unlock()
		return ErrNoPendingLogin
	}
	if now.Before(p.nextResendAt) {
		s.mu.Unlock()
		return ErrResendThrottled
	}
	p.nextResendAt = now.Add(s.resendCooldown)
	p.expiresAt = now.Add(s.otpTTL + pendingGrace)
	s.mu.Unlock()

	if err := s.challenges.Issue(ctx, email); err != nil {
		s.dropPending(email)
		s.recordEvent(email, "awaiting_code", "dispatch_failed")
		return err
	}

	s.recordEvent(email, "awaiting_code", "code_resent")
	return nil
}

// AbandonLogin drops any pending state for email. Safe at any phase: after
// the phase-one teardown the account is simply unauthenticated.
func (s *LoginService) AbandonLogin(email string) {
	s.dropPending(normalizeEmail(email))
}

// CooldownRemaining reports how long the resend action stays blocked.
func (s *LoginService) CooldownRemaining(email string) time.Duration {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	if !ok {
		return 0
	}
	d := p.nextResendAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *LoginService) mintAccessToken(userID, roleID int) (string, error) {
	claims := &middleware.Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *LoginService) dropPending(email string) {
	s.mu.Lock()
	delete(s.pending, email)
	s.mu.Unlock()
}

// sweepLocked evicts pending entries whose code window has passed so
// abandoned flows do not pile up secrets. Caller holds s.mu.
func (s *LoginService) sweepLocked(now time.Time) {
	for email, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, email)
		}
	}
}

func (s *LoginService) recordEvent(email, phase, outcome string) {
	if s.events == nil {
		return
	}
	ev := &models.SignInEvent{Email: email, Phase: phase, Outcome: outcome, At: s.now()}
	if err := s.events.Create(ev); err != nil {
		log.Printf("[login][audit] record event phase=%s outcome=%s: %v", phase, outcome, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateLoginInput(email, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password length out of bounds", ErrValidation)
	}
	return nil
}
