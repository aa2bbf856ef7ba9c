package repository

import (
	"context"

	"github.com/yashrajoria/webook/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository defines data-access operations for cart items.
type CartRepository interface {
	FindLines(ctx context.Context, userID uint) ([]models.CartLine, error)
	Upsert(ctx context.Context, item *models.CartItem) error
	Remove(ctx context.Context, userID, bookID uint) error
	Clear(ctx context.Context, userID uint) error
}

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository.
func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

// FindLines joins the user's items with the current book rows. Items whose
// book has been deleted are not returned.
func (r *GormCartRepository) FindLines(ctx context.Context, userID uint) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("books.id AS id, cart_items.user_id, cart_items.book_id, cart_items.quantity, " +
			"books.title, books.author, books.category, books.price, books.stocks, books.cover").
		Joins("JOIN books ON books.id = cart_items.book_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Upsert inserts the line or replaces the quantity of an existing one.
func (r *GormCartRepository) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).
		Create(item).Error
}

// Remove deletes one line. A missing line is not an error.
func (r *GormCartRepository) Remove(ctx context.Context, userID, bookID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.CartItem{}).Error
}

// Clear deletes every line of the user.
func (r *GormCartRepository) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
