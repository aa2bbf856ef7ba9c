package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/models"
	awspkg "github.com/yashrajoria/webook/pkg/aws"
	"github.com/yashrajoria/webook/repository"
)

// UserService defines the account administration operations. actorID is
// the id of the authenticated caller, or 0 when the request carries no
// identity.
type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, *apperrors.Error)
	// GetUser returns nil without error when the id does not exist.
	GetUser(ctx context.Context, id uint) (*models.User, *apperrors.Error)
	UpdateRole(ctx context.Context, actorID, id uint, role string) *apperrors.Error
	DeleteUser(ctx context.Context, actorID, id uint) *apperrors.Error
}

type userServiceImpl struct {
	repo   repository.UserRepository
	events *awspkg.EventPublisher
	logger *zap.Logger
}

func (s *userServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.With(ctx, s.logger)
}

// NewUserService creates a UserService.
func NewUserService(repo repository.UserRepository, events *awspkg.EventPublisher, logger *zap.Logger) UserService {
	return &userServiceImpl{repo: repo, events: events, logger: logger}
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]models.User, *apperrors.Error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log(ctx).Error("Failed to list users", zap.Error(err))
		return nil, internalError(err)
	}
	return users, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, id uint) (*models.User, *apperrors.Error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log(ctx).Error("Failed to get user", zap.Uint("user_id", id), zap.Error(err))
		return nil, internalError(err)
	}
	return u, nil
}

func (s *userServiceImpl) UpdateRole(ctx context.Context, actorID, id uint, role string) *apperrors.Error {
	if role != models.RoleAdmin && role != models.RoleUser {
		return apperrors.New(apperrors.ErrValidation.Code, "Role must be admin or user", nil)
	}
	if actorID != 0 && actorID == id {
		return apperrors.ErrSelfModification
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		s.log(ctx).Error("Failed to update role", zap.Uint("user_id", id), zap.Error(err))
		return internalError(err)
	}
	s.log(ctx).Info("User role updated", zap.Uint("user_id", id), zap.String("role", role))
	s.events.Emit(ctx, EventUserRoleChanged, models.UserEvent{
		EventType: EventUserRoleChanged,
		UserID:    id,
		Role:      role,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *userServiceImpl) DeleteUser(ctx context.Context, actorID, id uint) *apperrors.Error {
	if actorID != 0 && actorID == id {
		return apperrors.ErrSelfModification
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		s.log(ctx).Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return internalError(err)
	}
	s.log(ctx).Info("User deleted", zap.Uint("user_id", id))
	s.events.Emit(ctx, EventUserDeleted, models.UserEvent{
		EventType: EventUserDeleted,
		UserID:    id,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
