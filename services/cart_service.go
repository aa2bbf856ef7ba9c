package services

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/models"
	awspkg "github.com/yashrajoria/webook/pkg/aws"
	"github.com/yashrajoria/webook/repository"
)

// CartService defines the per-user cart operations.
type CartService interface {
	GetCart(ctx context.Context, userID uint) ([]models.CartLine, *apperrors.Error)
	SetQuantity(ctx context.Context, userID, bookID uint, quantity int) *apperrors.Error
	// RemoveItem deletes one line when bookID is set, otherwise the whole
	// cart. Missing lines are not an error.
	RemoveItem(ctx context.Context, userID uint, bookID *uint) *apperrors.Error
}

type cartServiceImpl struct {
	repo   repository.CartRepository
	events *awspkg.EventPublisher
	logger *zap.Logger
}

func (s *cartServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.With(ctx, s.logger)
}

// NewCartService creates a CartService.
func NewCartService(repo repository.CartRepository, events *awspkg.EventPublisher, logger *zap.Logger) CartService {
	return &cartServiceImpl{repo: repo, events: events, logger: logger}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID uint) ([]models.CartLine, *apperrors.Error) {
	lines, err := s.repo.FindLines(ctx, userID)
	if err != nil {
		s.log(ctx).Error("Failed to load cart", zap.Uint("user_id", userID), zap.Error(err))
		return nil, internalError(err)
	}
	return lines, nil
}

func (s *cartServiceImpl) SetQuantity(ctx context.Context, userID, bookID uint, quantity int) *apperrors.Error {
	if quantity <= 0 {
		return apperrors.New(apperrors.ErrValidation.Code, "Quantity must be greater than zero", nil)
	}
	item := &models.CartItem{UserID: userID, BookID: bookID, Quantity: quantity}
	if err := s.repo.Upsert(ctx, item); err != nil {
		s.log(ctx).Error("Failed to update cart", zap.Uint("user_id", userID), zap.Uint("book_id", bookID), zap.Error(err))
		return internalError(err)
	}
	s.events.Emit(ctx, EventCartUpdated, models.CartEvent{
		EventType: EventCartUpdated,
		UserID:    userID,
		BookID:    bookID,
		Quantity:  quantity,
	})
	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID uint, bookID *uint) *apperrors.Error {
	if bookID == nil {
		if err := s.repo.Clear(ctx, userID); err != nil {
			s.log(ctx).Error("Failed to clear cart", zap.Uint("user_id", userID), zap.Error(err))
			return internalError(err)
		}
		s.events.Emit(ctx, EventCartCleared, models.CartEvent{EventType: EventCartCleared, UserID: userID})
		return nil
	}

	if err := s.repo.Remove(ctx, userID, *bookID); err != nil {
		s.log(ctx).Error("Failed to remove cart item", zap.Uint("user_id", userID), zap.Uint("book_id", *bookID), zap.Error(err))
		return internalError(err)
	}
	s.events.Emit(ctx, EventCartItemRemoved, models.CartEvent{
		EventType: EventCartItemRemoved,
		UserID:    userID,
		BookID:    *bookID,
	})
	return nil
}
