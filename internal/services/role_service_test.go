package services

import (
	"errors"
	"testing"

	"storegate/internal/authz"
)

func TestRoleResolve(t *testing.T) {
	repo := &fakeRoleRepo{roles: map[int]int{
		1: authz.RoleAdmin,
		2: authz.RoleEmployee,
		3: 99, // outside the known set
	}}
	svc := NewRoleService(repo)

	if roleID, err := svc.Resolve(1); err != nil || roleID != authz.RoleAdmin {
		t.Errorf("admin: role=%d err=%v", roleID, err)
	}
	if roleID, err := svc.Resolve(2); err != nil || roleID != authz.RoleEmployee {
		t.Errorf("employee: role=%d err=%v", roleID, err)
	}

	// absence and an unknown role id both mean not provisioned
	if _, err := svc.Resolve(3); !errors.Is(err, ErrRoleNotAssigned) {
		t.Errorf("unknown role: err = %v, want ErrRoleNotAssigned", err)
	}
	if _, err := svc.Resolve(4); !errors.Is(err, ErrRoleNotAssigned) {
		t.Errorf("no assignment: err = %v, want ErrRoleNotAssigned", err)
	}
}

func TestRoleResolveLookupFailure(t *testing.T) {
	repo := &fakeRoleRepo{err: errors.New("connection reset")}
	svc := NewRoleService(repo)

	_, err := svc.Resolve(1)
	if !errors.Is(err, ErrRoleLookup) {
		t.Fatalf("err = %v, want ErrRoleLookup", err)
	}
	// a lookup failure is never reported as a missing assignment
	if errors.Is(err, ErrRoleNotAssigned) {
		t.Fatal("lookup failure must not look like a missing role")
	}
}

func TestRoleDestinations(t *testing.T) {
	svc := NewRoleService(&fakeRoleRepo{roles: map[int]int{}})

	if d := svc.DestinationFor(authz.RoleAdmin); d != "/admin" {
		t.Errorf("admin destination = %q", d)
	}
	if d := svc.DestinationFor(authz.RoleEmployee); d != "/workspace" {
		t.Errorf("employee destination = %q", d)
	}
	if d := svc.DestinationFor(authz.RoleUnassigned); d != "" {
		t.Errorf("unassigned destination = %q", d)
	}
}
