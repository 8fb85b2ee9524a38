package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
}

// UserService manages the team directory.
type UserService struct {
	repo         userRepository
	validator    *validator.Validate
	logger       *zap.Logger
	onDeactivate func(userID string)
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// OnDeactivate registers fn to run after a user is deactivated, e.g. to drop
// the user's board working set.
func (s *UserService) OnDeactivate(fn func(userID string)) {
	s.onDeactivate = fn
}

// List returns directory entries, for example the active advisors offered
// when assigning a request.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.UserInfo, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user query")
	}
	users, err := s.repo.List(ctx, models.UserFilter{
		Role:       query.Role,
		ActiveOnly: !query.IncludeInactive,
		Search:     strings.TrimSpace(query.Search),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	result := make([]models.UserInfo, 0, len(users))
	for i := range users {
		result = append(result, userInfo(&users[i]))
	}
	return result, nil
}

// Create adds a password-login user.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Sugar().Infow("user created", "user_id", user.ID, "role", user.Role, "actor_id", derefString(userIDPtr(actor)))
	info := userInfo(user)
	return &info, nil
}

// SetActive activates or deactivates a user. Inactive users cannot sign in
// and stop receiving new-request notifications.
func (s *UserService) SetActive(ctx context.Context, id string, active bool, actor *models.JWTClaims) error {
	if actor != nil && actor.UserID == id && !active {
		return appErrors.Clone(appErrors.ErrConflict, "you cannot deactivate your own account")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return notFoundOr(err, "user not found", "failed to update user")
	}
	if !active && s.onDeactivate != nil {
		s.onDeactivate(id)
	}
	s.logger.Sugar().Infow("user active flag changed", "user_id", id, "active", active, "actor_id", derefString(userIDPtr(actor)))
	return nil
}
