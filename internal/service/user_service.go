package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/collegesync/collegesync-api/internal/models"
	"github.com/collegesync/collegesync-api/internal/repository"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
)

type userRepository interface {
	ListWithAdminFlag(ctx context.Context) ([]models.UserWithAdminFlag, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateWithProfile(ctx context.Context, user *models.User, role models.Role, registrationNumber string) (string, error)
	Update(ctx context.Context, user *models.User) error
	PromoteAdmin(ctx context.Context, userID string) error
	RevokeAdmin(ctx context.Context, userID string) error
	DeleteCascade(ctx context.Context, userID string) error
}

// CreateUserRequest is the admin-side user creation payload.
type CreateUserRequest struct {
	FullName           string      `json:"full_name" validate:"required"`
	Email              string      `json:"email" validate:"required,email"`
	BirthDate          *time.Time  `json:"birth_date"`
	Password           string      `json:"password" validate:"required,min=6"`
	Role               models.Role `json:"role" validate:"required,oneof=student teacher"`
	RegistrationNumber string      `json:"registration_number"`
}

// UpdateUserRequest is the admin-side user edit payload. An empty password
// keeps the current hash.
type UpdateUserRequest struct {
	FullName  string     `json:"full_name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	BirthDate *time.Time `json:"birth_date"`
	Password  string     `json:"password" validate:"omitempty,min=6"`
}

// UserService handles admin user management: listing, editing, admin
// grants and the cascading account deletion.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns every user with their admin flag.
func (s *UserService) List(ctx context.Context) ([]models.UserWithAdminFlag, error) {
	users, err := s.repo.ListWithAdminFlag(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user with a student or teacher profile.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		BirthDate:    req.BirthDate,
		PasswordHash: string(hash),
	}

	registrationNumber := strings.TrimSpace(req.RegistrationNumber)
	if req.Role == models.RoleStudent && registrationNumber == "" {
		registrationNumber = placeholderRegistrationNumber()
	}

	if _, err := s.repo.CreateWithProfile(ctx, user, req.Role, registrationNumber); err != nil {
		switch {
		case repository.IsUniqueViolation(err, "users_email_key"):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		case repository.IsUniqueViolation(err, "students_registration_number_key"):
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already registered")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
		}
	}
	return user, nil
}

// Update edits a user's account fields.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.BirthDate = req.BirthDate
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err, "users_email_key") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Delete removes a user and all dependent rows in one transaction.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// PromoteAdmin grants admin rights. Actors may not change their own grant.
func (s *UserService) PromoteAdmin(ctx context.Context, actorUserID, targetUserID string) error {
	if actorUserID == targetUserID {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot change your own admin status")
	}
	if _, err := s.repo.FindByID(ctx, targetUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.PromoteAdmin(ctx, targetUserID); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrConflict, "user is already an admin")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote user")
	}
	return nil
}

// RevokeAdmin removes admin rights. Actors may not change their own grant.
func (s *UserService) RevokeAdmin(ctx context.Context, actorUserID, targetUserID string) error {
	if actorUserID == targetUserID {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot change your own admin status")
	}
	if err := s.repo.RevokeAdmin(ctx, targetUserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke admin")
	}
	return nil
}
