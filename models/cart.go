package models

import (
	"github.com/shopspring/decimal"
)

// CartItem is one (user, book) line. The pair is unique.
type CartItem struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_cart_user_book" json:"user_id"`
	BookID   uint `gorm:"not null;uniqueIndex:idx_cart_user_book" json:"book_id"`
	Quantity int  `gorm:"not null;default:1" json:"quantity"`
}

// CartLine is the read model of a cart item joined with its book.
type CartLine struct {
	ID       uint            `json:"id"`
	UserID   uint            `json:"user_id"`
	BookID   uint            `json:"book_id"`
	Quantity int             `json:"quantity"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stocks   int             `json:"stocks"`
	Cover    string          `json:"cover"`
}

// LineFromBook snapshots a book into a cart line. The line keeps these
// values even if the book is edited later.
func LineFromBook(userID uint, b Book, quantity int) CartLine {
	return CartLine{
		ID:       b.ID,
		UserID:   userID,
		BookID:   b.ID,
		Quantity: quantity,
		Title:    b.Title,
		Author:   b.Author,
		Category: b.Category,
		Price:    b.Price,
		Stocks:   b.Stocks,
		Cover:    b.Cover,
	}
}

// Subtotal is price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartUpsertRequest struct {
	UserID   uint `json:"user_id"`
	BookID   uint `json:"book_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

type CartDeleteRequest struct {
	BookID *uint `json:"book_id"`
}

// CartEvent is published when a cart changes.
type CartEvent struct {
	EventType string `json:"event_type"`
	UserID    uint   `json:"user_id"`
	BookID    uint   `json:"book_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}
