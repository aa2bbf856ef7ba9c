package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCoverLength is the storage limit of the cover URL column.
const MaxCoverLength = 255

// Book is a catalog entry. Stocks is the number of copies on hand.
type Book struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Author    string          `gorm:"type:varchar(255);not null" json:"author"`
	Category  string          `gorm:"type:varchar(100);not null;default:''" json:"category"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Stocks    int             `gorm:"not null;default:0" json:"stocks"`
	Cover     string          `gorm:"type:varchar(255);not null;default:''" json:"cover"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BookRequest is the payload of POST /api/books and PUT /api/books/:id.
// PUT replaces all six fields.
type BookRequest struct {
	Title    string          `json:"title" binding:"required"`
	Author   string          `json:"author" binding:"required"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stocks   int             `json:"stocks" binding:"gte=0"`
	Cover    string          `json:"cover" validate:"max=255"`
}

// ToBook copies the request fields onto a new Book.
func (r BookRequest) ToBook() Book {
	return Book{
		Title:    r.Title,
		Author:   r.Author,
		Category: r.Category,
		Price:    r.Price,
		Stocks:   r.Stocks,
		Cover:    r.Cover,
	}
}

// RequestFromBook builds the full-replace payload for an existing book.
func RequestFromBook(b Book) BookRequest {
	return BookRequest{
		Title:    b.Title,
		Author:   b.Author,
		Category: b.Category,
		Price:    b.Price,
		Stocks:   b.Stocks,
		Cover:    b.Cover,
	}
}

// BookEvent is published when the catalog changes.
type BookEvent struct {
	EventType string    `json:"event_type"`
	BookID    uint      `json:"book_id"`
	Stocks    int       `json:"stocks,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
