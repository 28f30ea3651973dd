package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storegate/internal/models"
)

var ErrSessionStoreUnavailable = errors.New("session store unavailable")

// SessionRepository holds server-side session records in Redis.
type SessionRepository struct {
	rdb    redis.UniversalClient
	prefix string

	now func() time.Time
}

func NewSessionRepository(rdb redis.UniversalClient, prefix string) *SessionRepository {
	if prefix == "" {
		prefix = "sess"
	}
	return &SessionRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *SessionRepository) key(id string) string {
	return r.prefix + ":" + id
}

func (r *SessionRepository) Create(ctx context.Context, userID int, email string, ttl time.Duration) (*models.Session, error) {
	now := r.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, r.key(sess.ID), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return sess, nil
}

// Get returns the session or nil when it does not exist or has expired.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if r.now().After(sess.ExpiresAt) {
		_ = r.rdb.Del(ctx, r.key(id)).Err()
		return nil, nil
	}
	return &sess, nil
}

// Delete is idempotent.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return nil
}
