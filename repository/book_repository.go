package repository

import (
	"context"

	"github.com/yashrajoria/webook/models"
	"gorm.io/gorm"
)

// BookRepository defines data-access operations for books.
type BookRepository interface {
	FindAll(ctx context.Context) ([]models.Book, error)
	FindByID(ctx context.Context, id uint) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	Replace(ctx context.Context, id uint, book *models.Book) error
	Delete(ctx context.Context, id uint) error
}

// GormBookRepository implements BookRepository using GORM.
type GormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GormBookRepository.
func NewGormBookRepository(db *gorm.DB) BookRepository {
	return &GormBookRepository{db: db}
}

// bookColumns are the fields a full replace writes.
var bookColumns = []string{"title", "author", "category", "price", "stocks", "cover"}

// FindAll returns every book, newest first.
func (r *GormBookRepository) FindAll(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *GormBookRepository) FindByID(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// Replace overwrites the six editable fields, zero values included.
// It returns gorm.ErrRecordNotFound when no row has the id.
func (r *GormBookRepository) Replace(ctx context.Context, id uint, book *models.Book) error {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Select(bookColumns).
		Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormBookRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
