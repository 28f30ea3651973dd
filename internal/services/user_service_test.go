package services

import (
	"testing"
	"time"

	"storegate/internal/authz"
	"storegate/internal/models"
)

func newUserFixture(t *testing.T) (UserService, *fakeUserRepo, *fakeRoleRepo, *fakeEmails) {
	t.Helper()

	accounts, users := newAccountFixture(t)
	roles := &fakeRoleRepo{roles: map[int]int{}}
	emails := &fakeEmails{}
	svc := NewUserService(users, roles, emails, accounts, 30*24*time.Hour)
	return svc, users, roles, emails
}

func TestCreateUserWithPassword(t *testing.T) {
	svc, users, _, emails := newUserFixture(t)

	u := &models.User{FullName: "New Hire", Email: "  New.Hire@Example.com ", RoleID: authz.RoleAdmin}
	if err := svc.CreateUserWithPassword(u, "initial-pw"); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, _ := users.GetByEmail("new.hire@example.com")
	if stored == nil {
		t.Fatal("user was not stored")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "initial-pw" {
		t.Error("password must be stored hashed")
	}
	if !stored.IsActive {
		t.Error("new accounts start active")
	}
	// provisioning is a separate admin step, whatever the request claimed
	if stored.RoleID != authz.RoleUnassigned {
		t.Errorf("role = %d, want unassigned", stored.RoleID)
	}
	if len(emails.welcome) != 1 || emails.welcome[0] != "new.hire@example.com" {
		t.Errorf("welcome emails = %v", emails.welcome)
	}
}

func TestCreateUserRequiresPassword(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	u := &models.User{FullName: "New Hire", Email: "new@example.com"}
	if err := svc.CreateUserWithPassword(u, "   "); err == nil {
		t.Fatal("expected an error for an empty password")
	}
}

func TestAssignRole(t *testing.T) {
	svc, _, roles, _ := newUserFixture(t)

	if err := svc.AssignRole(1, authz.RoleEmployee); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if roles.roles[1] != authz.RoleEmployee {
		t.Errorf("role = %d", roles.roles[1])
	}
	if err := svc.AssignRole(1, 99); err == nil {
		t.Fatal("expected unknown role to be refused")
	}
}

func TestRotateRefresh(t *testing.T) {
	svc, users, _, _ := newUserFixture(t)

	old := "old-refresh-token"
	exp := time.Now().Add(time.Hour)
	if err := users.UpdateRefresh(1, old, exp); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	u, err := svc.RotateRefresh(old)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if u.RefreshToken == nil || *u.RefreshToken == old {
		t.Error("token was not rotated")
	}

	// the old token is spent
	if _, err := svc.RotateRefresh(old); err == nil {
		t.Fatal("expected the old token to be refused")
	}
}

func TestRotateRefreshExpired(t *testing.T) {
	svc, users, _, _ := newUserFixture(t)

	if err := users.UpdateRefresh(1, "stale-token", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	if _, err := svc.RotateRefresh("stale-token"); err == nil {
		t.Fatal("expected an expired token to be refused")
	}
}

func TestRotateRefreshUnknown(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	if _, err := svc.RotateRefresh("never-issued"); err == nil {
		t.Fatal("expected an unknown token to be refused")
	}
	if _, err := svc.RotateRefresh("   "); err == nil {
		t.Fatal("expected an empty token to be refused")
	}
}
