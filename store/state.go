package store

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yashrajoria/webook/models"
)

// View is the top-level screen.
type View string

const (
	ViewHome  View = "home"
	ViewAdmin View = "admin"
	ViewLogin View = "login"
	ViewCart  View = "cart"
)

// AdminSubView is the tab shown inside the admin view.
type AdminSubView string

const (
	AdminInventory AdminSubView = "inventory"
	AdminUsers     AdminSubView = "users"
)

// AuthMode selects the form shown in the login view.
type AuthMode string

const (
	AuthLogin  AuthMode = "login"
	AuthSignup AuthMode = "signup"
)

// BookForm is the admin add/edit draft.
type BookForm struct {
	Title    string
	Author   string
	Category string
	Price    decimal.Decimal
	Stocks   int
	Cover    string
}

// Request converts the draft to an API payload.
func (f BookForm) Request() models.BookRequest {
	return models.BookRequest{
		Title:    f.Title,
		Author:   f.Author,
		Category: f.Category,
		Price:    f.Price,
		Stocks:   f.Stocks,
		Cover:    f.Cover,
	}
}

// FormFromBook prefills a draft from an existing book.
func FormFromBook(b models.Book) BookForm {
	return BookForm{
		Title:    b.Title,
		Author:   b.Author,
		Category: b.Category,
		Price:    b.Price,
		Stocks:   b.Stocks,
		Cover:    b.Cover,
	}
}

// State is one immutable snapshot of the client. Transitions never modify
// a State in place: maps and slices are copied before they change, so a
// snapshot handed out by the Store stays valid.
//
// PendingStocks and PendingUserCart hold a key only while its proposed
// value differs from the confirmed one. Decremented maps a cart line whose
// stock was already taken by a checkout, but which could not be removed
// from the server cart, to the quantity taken.
type State struct {
	View         View
	AdminSubView AdminSubView
	AuthMode     AuthMode

	User  *models.User
	Users []models.User
	Books []models.Book
	Cart  []models.CartLine

	PendingStocks   map[uint]int
	PendingUserCart map[uint]int
	Decremented     map[uint]int

	SearchQuery   string
	EditingBookID uint
	FormDraft     BookForm

	Busy bool
}

// NewState returns the initial snapshot.
func NewState() State {
	return State{
		View:            ViewHome,
		AdminSubView:    AdminInventory,
		AuthMode:        AuthLogin,
		PendingStocks:   map[uint]int{},
		PendingUserCart: map[uint]int{},
	}
}

// Book looks up a confirmed book.
func (s State) Book(id uint) (models.Book, bool) {
	for _, b := range s.Books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

// CartQuantity is the confirmed quantity of a book in the cart, 0 if absent.
func (s State) CartQuantity(id uint) int {
	for _, l := range s.Cart {
		if l.BookID == id {
			return l.Quantity
		}
	}
	return 0
}

// DisplayedStock is the staged stock if any, otherwise the confirmed one.
func (s State) DisplayedStock(id uint) int {
	if v, ok := s.PendingStocks[id]; ok {
		return v
	}
	b, _ := s.Book(id)
	return b.Stocks
}

// DisplayedCartQuantity is the staged quantity if any, otherwise the
// confirmed one.
func (s State) DisplayedCartQuantity(id uint) int {
	if v, ok := s.PendingUserCart[id]; ok {
		return v
	}
	return s.CartQuantity(id)
}

// IsAdmin reports whether the signed-in user is an admin.
func (s State) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin()
}

// PendingStockCount is the number of staged stock edits.
func (s State) PendingStockCount() int { return len(s.PendingStocks) }

// PendingCartCount is the number of staged cart edits.
func (s State) PendingCartCount() int { return len(s.PendingUserCart) }

// CartTotal sums price times quantity over the confirmed cart.
func (s State) CartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Cart {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CartCount sums the quantities of the confirmed cart.
func (s State) CartCount() int {
	n := 0
	for _, l := range s.Cart {
		n += l.Quantity
	}
	return n
}

func sortedKeys(m map[uint]int) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func cloneMap(m map[uint]int) map[uint]int {
	out := make(map[uint]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
