package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newCaptchaProvider(t *testing.T, handler http.HandlerFunc) (*CaptchaService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCaptchaService("provider-secret", srv.URL, 2*time.Second), srv
}

func TestCaptchaVerifySuccess(t *testing.T) {
	var calls int32
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("secret") != "provider-secret" {
			t.Errorf("secret = %q", r.FormValue("secret"))
		}
		if r.FormValue("response") != "tok-1" {
			t.Errorf("response = %q", r.FormValue("response"))
		}
		if r.FormValue("remoteip") != "203.0.113.9" {
			t.Errorf("remoteip = %q", r.FormValue("remoteip"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})

	if err := svc.Verify(context.Background(), "tok-1", "203.0.113.9"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
}

func TestCaptchaTokenSingleUse(t *testing.T) {
	var calls int32
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"success":true}`))
	})
	ctx := context.Background()

	if err := svc.Verify(ctx, "tok-1", ""); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	// the replay is refused locally, without asking the provider again
	if err := svc.Verify(ctx, "tok-1", ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("replay err = %v, want ErrCaptchaRequired", err)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
}

func TestCaptchaEmptyToken(t *testing.T) {
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for an empty token")
	})

	if err := svc.Verify(context.Background(), "  ", ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("err = %v, want ErrCaptchaRequired", err)
	}
}

func TestCaptchaProviderRejects(t *testing.T) {
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})

	err := svc.Verify(context.Background(), "tok-1", "")
	if !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("err = %v, want ErrCaptchaRequired", err)
	}
	// a rejected token stays consumed
	if err := svc.Verify(context.Background(), "tok-1", ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("err = %v, want ErrCaptchaRequired", err)
	}
}

// A provider outage must not burn the token: the user retries with the same
// proof once the provider is back.
func TestCaptchaProviderOutageKeepsToken(t *testing.T) {
	var healthy atomic.Bool
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true}`))
	})
	ctx := context.Background()

	if err := svc.Verify(ctx, "tok-1", ""); !errors.Is(err, ErrCaptchaUnavailable) {
		t.Fatalf("err = %v, want ErrCaptchaUnavailable", err)
	}

	healthy.Store(true)
	if err := svc.Verify(ctx, "tok-1", ""); err != nil {
		t.Fatalf("retry after outage: %v", err)
	}
}

func TestCaptchaReset(t *testing.T) {
	svc, _ := newCaptchaProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("reset must not contact the provider")
	})

	svc.Reset("tok-1")
	if err := svc.Verify(context.Background(), "tok-1", ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("err = %v, want ErrCaptchaRequired", err)
	}
}
