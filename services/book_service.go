package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yashrajoria/webook/cache"
	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/models"
	awspkg "github.com/yashrajoria/webook/pkg/aws"
	"github.com/yashrajoria/webook/repository"
)

// BookService defines the catalog operations.
type BookService interface {
	ListBooks(ctx context.Context) ([]models.Book, *apperrors.Error)
	// GetBook returns nil without error when the id does not exist.
	GetBook(ctx context.Context, id uint) (*models.Book, *apperrors.Error)
	CreateBook(ctx context.Context, req *models.BookRequest) (*models.Book, *apperrors.Error)
	UpdateBook(ctx context.Context, id uint, req *models.BookRequest) *apperrors.Error
	DeleteBook(ctx context.Context, id uint) *apperrors.Error
}

type bookServiceImpl struct {
	repo   repository.BookRepository
	cache  *cache.CatalogCache
	events *awspkg.EventPublisher
	logger *zap.Logger
}

func (s *bookServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.With(ctx, s.logger)
}

// NewBookService creates a BookService. cache and events may be nil.
func NewBookService(
	repo repository.BookRepository,
	catalogCache *cache.CatalogCache,
	events *awspkg.EventPublisher,
	logger *zap.Logger,
) BookService {
	return &bookServiceImpl{repo: repo, cache: catalogCache, events: events, logger: logger}
}

func (s *bookServiceImpl) ListBooks(ctx context.Context) ([]models.Book, *apperrors.Error) {
	if books, ok := s.cache.Books(ctx); ok {
		return books, nil
	}
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log(ctx).Error("Failed to list books", zap.Error(err))
		return nil, internalError(err)
	}
	s.cache.SetBooks(ctx, books)
	return books, nil
}

func (s *bookServiceImpl) GetBook(ctx context.Context, id uint) (*models.Book, *apperrors.Error) {
	if b, ok := s.cache.Book(ctx, id); ok {
		return b, nil
	}
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log(ctx).Error("Failed to get book", zap.Uint("book_id", id), zap.Error(err))
		return nil, internalError(err)
	}
	s.cache.SetBook(ctx, b)
	return b, nil
}

func (s *bookServiceImpl) CreateBook(ctx context.Context, req *models.BookRequest) (*models.Book, *apperrors.Error) {
	book := req.ToBook()
	if err := s.repo.Create(ctx, &book); err != nil {
		s.log(ctx).Error("Failed to create book", zap.Error(err))
		return nil, internalError(err)
	}
	s.cache.Invalidate(ctx)
	s.log(ctx).Info("Book created", zap.Uint("book_id", book.ID), zap.String("title", book.Title))
	s.events.Emit(ctx, EventBookCreated, models.BookEvent{
		EventType: EventBookCreated,
		BookID:    book.ID,
		Stocks:    book.Stocks,
		Timestamp: time.Now().UTC(),
	})
	return &book, nil
}

func (s *bookServiceImpl) UpdateBook(ctx context.Context, id uint, req *models.BookRequest) *apperrors.Error {
	book := req.ToBook()
	if err := s.repo.Replace(ctx, id, &book); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBookNotFound
		}
		s.log(ctx).Error("Failed to update book", zap.Uint("book_id", id), zap.Error(err))
		return internalError(err)
	}
	s.cache.Invalidate(ctx)
	s.log(ctx).Info("Book updated", zap.Uint("book_id", id), zap.Int("stocks", book.Stocks))
	s.events.Emit(ctx, EventBookUpdated, models.BookEvent{
		EventType: EventBookUpdated,
		BookID:    id,
		Stocks:    book.Stocks,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *bookServiceImpl) DeleteBook(ctx context.Context, id uint) *apperrors.Error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBookNotFound
		}
		s.log(ctx).Error("Failed to delete book", zap.Uint("book_id", id), zap.Error(err))
		return internalError(err)
	}
	s.cache.Invalidate(ctx)
	s.log(ctx).Info("Book deleted", zap.Uint("book_id", id))
	s.events.Emit(ctx, EventBookDeleted, models.BookEvent{
		EventType: EventBookDeleted,
		BookID:    id,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
