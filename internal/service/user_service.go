package service

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/repository"
	"github.com/bongoexpress/cargo-api/pkg/logger"
)

// UserService is the admin-side account management surface.
type UserService interface {
	ListByRole(ctx context.Context, role, search string, page, limit int) ([]domain.User, domain.Pagination, error)
	CreateStaff(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	StaffSummary(ctx context.Context) (*domain.StaffSummary, error)
	StaffList(ctx context.Context) ([]domain.StaffListItem, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) ListByRole(ctx context.Context, role, search string, page, limit int) ([]domain.User, domain.Pagination, error) {
	if !domain.IsValidRole(role) {
		return nil, domain.Pagination{}, domain.NewValidationError("Invalid role: %s", role)
	}

	users, total, err := s.users.List(ctx, role, search, limit, (page-1)*limit)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list users: %w", err)
	}
	return users, domain.NewPagination(total, page, limit), nil
}

func (s *userService) CreateStaff(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	req.Role = domain.RoleStaff
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req, hash)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.NewValidationError("Email already in use")
		}
		return nil, fmt.Errorf("failed to create staff account: %w", err)
	}

	logger.InfoContext(ctx, "staff account created", "user_id", user.ID, "branch", user.Branch)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.Update(ctx, id, req)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.NewValidationError("Email already in use")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

func (s *userService) StaffSummary(ctx context.Context) (*domain.StaffSummary, error) {
	return s.users.StaffSummary(ctx)
}

func (s *userService) StaffList(ctx context.Context) ([]domain.StaffListItem, error) {
	return s.users.StaffList(ctx)
}
