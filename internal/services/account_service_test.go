package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"storegate/internal/models"
	"storegate/internal/repositories"
)

func newAccountFixture(t *testing.T) (AccountService, *fakeUserRepo) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	users := newFakeUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users.add(&models.User{
		ID:           1,
		Email:        testEmail,
		PasswordHash: string(hash),
		IsActive:     true,
	})

	sessions := repositories.NewSessionRepository(rdb, "sess")
	return NewAccountService(users, sessions, time.Hour), users
}

func TestVerifyCredentialsSuccess(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	sess, err := svc.VerifyCredentials(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sess.UserID != 1 || sess.Email != testEmail {
		t.Errorf("session = %+v", sess)
	}

	got, err := svc.GetSession(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("get session: sess=%v err=%v", got, err)
	}
}

func TestVerifyCredentialsNormalizesEmail(t *testing.T) {
	svc, _ := newAccountFixture(t)

	if _, err := svc.VerifyCredentials(context.Background(), "  USER@Example.COM ", testPassword); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

// Unknown account, wrong password, deactivated account and a missing hash all
// collapse into the same answer.
func TestVerifyCredentialsIndistinguishableFailures(t *testing.T) {
	svc, users := newAccountFixture(t)
	ctx := context.Background()

	users.add(&models.User{ID: 2, Email: "inactive@example.com", PasswordHash: "x", IsActive: false})
	users.add(&models.User{ID: 3, Email: "nohash@example.com", PasswordHash: "  ", IsActive: true})

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", testEmail, "not-the-password"},
		{"unknown email", "ghost@example.com", testPassword},
		{"inactive account", "inactive@example.com", testPassword},
		{"missing hash", "nohash@example.com", testPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.VerifyCredentials(ctx, tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestDestroySession(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	sess, err := svc.VerifyCredentials(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.DestroySession(ctx, sess.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got, _ := svc.GetSession(ctx, sess.ID); got != nil {
		t.Fatalf("session survived destroy: %+v", got)
	}
	// destroying an already-gone session is fine
	if err := svc.DestroySession(ctx, sess.ID); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
}

func TestHashPasswordRoundtrip(t *testing.T) {
	svc, _ := newAccountFixture(t)

	h, err := svc.HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret-pw")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}
