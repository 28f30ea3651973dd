package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storegate/internal/models"
)

var (
	// ErrChallengeStoreUnavailable means the store could not answer at all.
	// Callers must never treat it as "no code" or, worse, "verified".
	ErrChallengeStoreUnavailable = errors.New("challenge store unavailable")
	// ErrIssueRateLimited means the durable per-identifier issuance cap was hit.
	ErrIssueRateLimited = errors.New("code issuance rate limited")
)

// OtpRepository holds short-lived login codes in Redis, one live record per
// identifier. Expiry is enforced both by the Redis TTL and by an absolute
// expires_at re-checked on every read, so a lagging eviction can never hand
// out a stale code.
type OtpRepository struct {
	rdb    redis.UniversalClient
	prefix string

	now func() time.Time
}

func NewOtpRepository(rdb redis.UniversalClient, prefix string) *OtpRepository {
	if prefix == "" {
		prefix = "otp"
	}
	return &OtpRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *OtpRepository) key(identifier string) string {
	return r.prefix + ":" + identifier
}

func (r *OtpRepository) issueKey(identifier string) string {
	return r.prefix + ":issued:" + identifier
}

// Put replaces any live record for identifier with a fresh one.
func (r *OtpRepository) Put(ctx context.Context, identifier, code string, ttl time.Duration) error {
	now := r.now()
	rec := models.OtpRecord{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(identifier), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
	}
	return nil
}

// Get returns the live record for identifier, or nil if there is none or it
// has passed its absolute expiry.
func (r *OtpRepository) Get(ctx context.Context, identifier string) (*models.OtpRecord, error) {
	data, err := r.rdb.Get(ctx, r.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
	}

	var rec models.OtpRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	if r.now().After(rec.ExpiresAt) {
		_ = r.rdb.Del(ctx, r.key(identifier)).Err()
		return nil, nil
	}
	return &rec, nil
}

// Consume deletes the record. Idempotent: consuming an absent record is fine.
func (r *OtpRepository) Consume(ctx context.Context, identifier string) error {
	if err := r.rdb.Del(ctx, r.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
	}
	return nil
}

// RecordFailure bumps the attempt counter on the live record. When the cap is
// reached the record is consumed and exceeded=true is returned; the caller
// then forces a resend instead of allowing further guesses.
func (r *OtpRepository) RecordFailure(ctx context.Context, identifier string, maxAttempts int) (exceeded bool, err error) {
	rec, err := r.Get(ctx, identifier)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	rec.Attempts++
	if rec.Attempts >= maxAttempts {
		if err := r.Consume(ctx, identifier); err != nil {
			return false, err
		}
		return true, nil
	}

	ttl := rec.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		_ = r.Consume(ctx, identifier)
		return false, nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if err := r.rdb.Set(ctx, r.key(identifier), data, ttl).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
	}
	return false, nil
}

// IssueAllowed enforces the durable per-identifier issuance cap: at most max
// issues per window, independent of the UI-session resend cooldown.
func (r *OtpRepository) IssueAllowed(ctx context.Context, identifier string, max int, window time.Duration) (bool, error) {
	if max <= 0 {
		return true, nil
	}
	key := r.issueKey(identifier)
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
	}
	if n == 1 {
		if err := r.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
		}
	}
	return n <= int64(max), nil
}
