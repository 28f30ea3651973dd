package services

import (
	"errors"
	"fmt"

	"storegate/internal/authz"
	"storegate/internal/repositories"
)

var (
	// ErrRoleNotAssigned means the account legitimately has no role: it is
	// not provisioned and must not end up signed in.
	ErrRoleNotAssigned = errors.New("no role assigned")
	// ErrRoleLookup means the lookup itself failed; retryable, and distinct
	// from a legitimate absence.
	ErrRoleLookup = errors.New("role lookup failed")
)

// RoleService resolves an authenticated account's privilege level. Pure read.
type RoleService struct {
	roles repositories.RoleRepository
}

func NewRoleService(roles repositories.RoleRepository) *RoleService {
	return &RoleService{roles: roles}
}

func (s *RoleService) Resolve(userID int) (int, error) {
	roleID, assigned, err := s.roles.GetRoleByUserID(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRoleLookup, err)
	}
	if !assigned || !authz.IsKnown(roleID) {
		return 0, ErrRoleNotAssigned
	}
	return roleID, nil
}

// DestinationFor is the post-login route decision for a resolved role.
func (s *RoleService) DestinationFor(roleID int) string {
	return authz.DestinationFor(roleID)
}
