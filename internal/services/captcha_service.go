package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	// ErrCaptchaRequired means no valid, unused proof token accompanied the
	// attempt. The user has to solve a fresh challenge.
	ErrCaptchaRequired = errors.New("captcha verification required")
	// ErrCaptchaUnavailable means the provider could not be reached. The
	// token is not consumed; the user may simply retry.
	ErrCaptchaUnavailable = errors.New("captcha provider unavailable")
)

// CaptchaVerifier checks human-verification proof tokens and enforces their
// single use.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
	Reset(token string)
}

type captchaVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// CaptchaService verifies proof tokens against a reCAPTCHA-style siteverify
// endpoint. Each token passes verification at most once, no matter how many
// concurrent attempts carry it: the used-ledger is claimed before the
// provider round trip, so a second caller is rejected instead of racing a
// duplicate verification.
type CaptchaService struct {
	secret    string
	verifyURL string
	client    *http.Client

	mu   sync.Mutex
	used map[string]time.Time
}

// usedRetention bounds the consumed-token ledger; provider tokens are only
// valid for a couple of minutes anyway.
const usedRetention = 10 * time.Minute

func NewCaptchaService(secret, verifyURL string, timeout time.Duration) *CaptchaService {
	return &CaptchaService{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
		used:      make(map[string]time.Time),
	}
}

func (s *CaptchaService) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrCaptchaRequired
	}

	if !s.claim(token) {
		// replay of an already-consumed proof
		return ErrCaptchaRequired
	}

	ok, err := s.verifyRemote(ctx, token, remoteIP)
	if err != nil {
		// transient outage must not burn the proof
		s.release(token)
		return err
	}
	if !ok {
		return ErrCaptchaRequired
	}
	return nil
}

// Reset consumes a token without verifying it. Called after a failed login
// attempt so the same proof cannot accompany a second try.
func (s *CaptchaService) Reset(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	s.claim(token)
}

func (s *CaptchaService) claim(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for t, at := range s.used {
		if now.Sub(at) > usedRetention {
			delete(s.used, t)
		}
	}
	if _, seen := s.used[token]; seen {
		return false
	}
	s.used[token] = now
	return true
}

func (s *CaptchaService) release(token string) {
	s.mu.Lock()
	delete(s.used, token)
	s.mu.Unlock()
}

func (s *CaptchaService) verifyRemote(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{
		"secret":   {s.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrCaptchaUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	var vr captchaVerifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	if !vr.Success {
		log.Printf("[captcha][verify] rejected: codes=%v", vr.ErrorCodes)
	}
	return vr.Success, nil
}
