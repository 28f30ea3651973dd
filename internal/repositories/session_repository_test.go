package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionTestRepo(t *testing.T) (*SessionRepository, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewSessionRepository(rdb, "sess")

	return repo, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestSessionCreateAndGet(t *testing.T) {
	repo, _, cleanup := newSessionTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	sess, err := repo.Create(ctx, 7, "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session id")
	}

	got, err := repo.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a live session")
	}
	if got.UserID != 7 || got.Email != "user@example.com" {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionGetAbsent(t *testing.T) {
	repo, _, cleanup := newSessionTestRepo(t)
	defer cleanup()

	got, err := repo.Get(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSessionDeleteIdempotent(t *testing.T) {
	repo, _, cleanup := newSessionTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	sess, err := repo.Create(ctx, 7, "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.Get(ctx, sess.ID); got != nil {
		t.Fatalf("session survived delete: %+v", got)
	}
	if err := repo.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSessionExpiryAtRead(t *testing.T) {
	repo, _, cleanup := newSessionTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now()
	repo.now = func() time.Time { return base }
	sess, err := repo.Create(ctx, 7, "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.now = func() time.Time { return base.Add(61 * time.Minute) }
	got, err := repo.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired session rejected, got %+v", got)
	}
}
