package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"storegate/internal/authz"
	"storegate/internal/models"
	"storegate/internal/repositories"
	"storegate/internal/utils"
)

type UserService interface {
	CreateUserWithPassword(user *models.User, plainPassword string) error
	GetUserByID(id int) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id int) error
	ListUsers(limit, offset int) ([]*models.User, error)
	GetUserCount() (int, error)
	AssignRole(userID, roleID int) error

	// RotateRefresh validates an opaque refresh token and replaces it.
	RotateRefresh(oldToken string) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	roles        repositories.RoleRepository
	emailService EmailService
	accounts     AccountService
	refreshTTL   time.Duration
}

func NewUserService(repo repositories.UserRepository, roles repositories.RoleRepository, emailService EmailService, accounts AccountService, refreshTTL time.Duration) UserService {
	return &userService{
		repo:         repo,
		roles:        roles,
		emailService: emailService,
		accounts:     accounts,
		refreshTTL:   refreshTTL,
	}
}

func (s *userService) CreateUserWithPassword(user *models.User, plainPassword string) error {
	if strings.TrimSpace(plainPassword) == "" {
		return fmt.Errorf("password is required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return fmt.Errorf("email is required")
	}

	hashed, err := s.accounts.HashPassword(plainPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	user.IsActive = true
	// new accounts start unprovisioned; an admin assigns the role later
	user.RoleID = authz.RoleUnassigned

	if err := s.repo.Create(user); err != nil {
		return err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.FullName); err != nil {
			// warn but do not fail creation
			log.Printf("[user][create] welcome email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

func (s *userService) GetUserByID(id int) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
}

func (s *userService) UpdateUser(user *models.User) error {
	return s.repo.Update(user)
}

func (s *userService) DeleteUser(id int) error {
	return s.repo.Delete(id)
}

func (s *userService) ListUsers(limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(limit, offset)
}

func (s *userService) GetUserCount() (int, error) {
	return s.repo.GetCount()
}

func (s *userService) AssignRole(userID, roleID int) error {
	if !authz.IsKnown(roleID) {
		return fmt.Errorf("unknown role id %d", roleID)
	}
	return s.roles.AssignRole(userID, roleID)
}

func (s *userService) RotateRefresh(oldToken string) (*models.User, error) {
	oldToken = strings.TrimSpace(oldToken)
	if oldToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	user, err := s.repo.GetByRefreshToken(oldToken)
	if err != nil || user == nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	if user.RefreshRevoked || user.RefreshExpiresAt == nil || time.Now().After(*user.RefreshExpiresAt) {
		return nil, fmt.Errorf("refresh token expired")
	}

	newToken, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, err
	}
	newExp := time.Now().Add(s.refreshTTL)
	rotated, err := s.repo.RotateRefresh(oldToken, newToken, newExp)
	if err != nil || rotated == nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	return rotated, nil
}
