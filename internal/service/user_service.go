package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest is the admin payload for provisioning accounts, usually for drivers.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"fullName" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN DRIVER USER"`
	NIC      string          `json:"nic" validate:"omitempty,len=12"`
	Phone    string          `json:"phone" validate:"omitempty,min=7,max=20"`
	Active   bool            `json:"active"`
	Password string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest is the admin payload for editing an account. Nil fields are left unchanged.
type UpdateUserRequest struct {
	FullName string          `json:"fullName" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN DRIVER USER"`
	Active   *bool           `json:"active"`
	NIC      *string         `json:"nic" validate:"omitempty,len=12"`
	Phone    *string         `json:"phone" validate:"omitempty,min=7,max=20"`
}

// UserService lets administrators manage accounts.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// Create provisions an account with an initial password. Emails are stored lowercased and must be unique.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid create user payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	switch _, err := s.repo.FindByEmail(ctx, email); {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case !isNoRows(err):
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		NIC:          optionalString(strings.ToUpper(req.NIC)),
		Phone:        optionalString(req.Phone),
		Active:       req.Active,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.UserID))
	return user, nil
}

// Update edits name, role, activation and contact details.
// Admins cannot change their own role or deactivate themselves.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actor.UserID {
		if req.Role != user.Role {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
		}
		if req.Active != nil && !*req.Active {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
		}
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.NIC != nil {
		user.NIC = optionalString(strings.ToUpper(*req.NIC))
	}
	if req.Phone != nil {
		user.Phone = optionalString(*req.Phone)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err, "user", "update")
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("actor_id", actor.UserID))
	return user, nil
}

// Delete deactivates an account.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "user", "deactivate")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("actor_id", actor.UserID))
	return nil
}
