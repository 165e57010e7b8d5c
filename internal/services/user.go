package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, role types.Role) ([]types.User, error)
	CreateIfAbsent(ctx context.Context, user types.User) (types.User, bool, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (types.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// SignIn records a user the first time their email is seen. New users always
// start with the user role; an existing record is returned untouched.
func (s *UserService) SignIn(ctx context.Context, user types.User) (types.User, bool, error) {
	user.Email = types.NormalizeEmail(user.Email)
	if user.Email == "" {
		return types.User{}, false, invalidInput("email is required")
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Role = types.RoleUser
	return s.repo.CreateIfAbsent(ctx, user)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, types.NormalizeEmail(email))
}

// List returns all users, optionally only those holding role.
func (s *UserService) List(ctx context.Context, role string) ([]types.User, error) {
	if strings.TrimSpace(role) == "" {
		return s.repo.List(ctx, "")
	}
	parsed, ok := types.ParseRole(role)
	if !ok {
		return nil, invalidInput("invalid role")
	}
	return s.repo.List(ctx, parsed)
}

// Role returns only the role of the user with email.
func (s *UserService) Role(ctx context.Context, email string) (types.Role, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *UserService) UpdateRole(ctx context.Context, id uuid.UUID, role string) (types.User, error) {
	parsed, ok := types.ParseRole(role)
	if !ok {
		return types.User{}, invalidInput("invalid role")
	}
	return s.repo.UpdateRole(ctx, id, parsed)
}

// Delete removes the user record only. Applications submitted by the user
// are kept.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
