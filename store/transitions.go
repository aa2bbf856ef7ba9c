package store

import (
	"strings"

	"github.com/yashrajoria/webook/models"
)

// ProposeStock stages a stock value for a book. Negative values clamp to
// 0 and a value equal to the confirmed stock removes the entry. Unknown
// books are ignored.
func ProposeStock(s State, bookID uint, value int) State {
	book, ok := s.Book(bookID)
	if !ok {
		return s
	}
	if value < 0 {
		value = 0
	}

	pending := cloneMap(s.PendingStocks)
	if value == book.Stocks {
		delete(pending, bookID)
	} else {
		pending[bookID] = value
	}
	s.PendingStocks = pending
	return s
}

// ProposeCartQuantity stages a cart quantity for a book, clamped to
// [0, book.Stocks]. A value equal to the confirmed quantity removes the
// entry. Unknown books are ignored.
func ProposeCartQuantity(s State, bookID uint, quantity int) State {
	book, ok := s.Book(bookID)
	if !ok {
		return s
	}
	quantity = clamp(quantity, 0, book.Stocks)

	pending := cloneMap(s.PendingUserCart)
	if quantity == s.CartQuantity(bookID) {
		delete(pending, bookID)
	} else {
		pending[bookID] = quantity
	}
	s.PendingUserCart = pending
	return s
}

// AdjustStock stages the displayed stock plus delta.
func AdjustStock(s State, bookID uint, delta int) State {
	return ProposeStock(s, bookID, s.DisplayedStock(bookID)+delta)
}

// AdjustCartQuantity stages the displayed quantity plus delta.
func AdjustCartQuantity(s State, bookID uint, delta int) State {
	return ProposeCartQuantity(s, bookID, s.DisplayedCartQuantity(bookID)+delta)
}

// DiscardStocks drops every staged stock edit.
func DiscardStocks(s State) State {
	s.PendingStocks = map[uint]int{}
	return s
}

// DiscardCart drops every staged cart edit.
func DiscardCart(s State) State {
	s.PendingUserCart = map[uint]int{}
	return s
}

// LeaveStagingContext drops both staging maps and the edit selection.
func LeaveStagingContext(s State) State {
	s = DiscardCart(DiscardStocks(s))
	s.EditingBookID = 0
	return s
}

// SetView navigates. Staged edits never survive a view change.
func SetView(s State, v View) State {
	s = LeaveStagingContext(s)
	s.View = v
	return s
}

// ApplyStock folds a persisted stock value into the confirmed books.
func ApplyStock(s State, bookID uint, value int) State {
	books := make([]models.Book, len(s.Books))
	copy(books, s.Books)
	for i := range books {
		if books[i].ID == bookID {
			books[i].Stocks = value
		}
	}
	s.Books = books
	return normalizePending(s)
}

// ApplyCartQuantity folds a persisted quantity into the confirmed cart. A
// zero quantity removes the line; a new line snapshots the book as it is
// now.
func ApplyCartQuantity(s State, bookID uint, quantity int) State {
	userID := uint(0)
	if s.User != nil {
		userID = s.User.ID
	}

	cart := make([]models.CartLine, 0, len(s.Cart)+1)
	found := false
	for _, l := range s.Cart {
		if l.BookID != bookID {
			cart = append(cart, l)
			continue
		}
		found = true
		if quantity > 0 {
			l.Quantity = quantity
			cart = append(cart, l)
		}
	}
	if !found && quantity > 0 {
		if book, ok := s.Book(bookID); ok {
			cart = append(cart, models.LineFromBook(userID, book, quantity))
		}
	}
	s.Cart = cart
	return normalizePending(s)
}

// ConfirmStocksLocally folds every staged stock into the confirmed books
// and empties the map.
func ConfirmStocksLocally(s State) State {
	pending := s.PendingStocks
	for _, id := range sortedKeys(pending) {
		s = ApplyStock(s, id, pending[id])
	}
	return DiscardStocks(s)
}

// ConfirmCartLocally folds every staged quantity into the confirmed cart
// and empties the map.
func ConfirmCartLocally(s State) State {
	pending := s.PendingUserCart
	for _, id := range sortedKeys(pending) {
		s = ApplyCartQuantity(s, id, pending[id])
	}
	return DiscardCart(s)
}

// ReplaceBook folds a whole book into the confirmed books.
func ReplaceBook(s State, book models.Book) State {
	books := make([]models.Book, len(s.Books))
	copy(books, s.Books)
	for i := range books {
		if books[i].ID == book.ID {
			books[i] = book
		}
	}
	s.Books = books
	return normalizePending(s)
}

// AddBook puts a new book first, matching the newest-first catalog order.
func AddBook(s State, book models.Book) State {
	books := make([]models.Book, 0, len(s.Books)+1)
	books = append(books, book)
	s.Books = append(books, s.Books...)
	return s
}

// UpdateBook applies a full-replace edit to a confirmed book.
func UpdateBook(s State, id uint, req models.BookRequest) State {
	book, ok := s.Book(id)
	if !ok {
		return s
	}
	book.Title, book.Author, book.Category = req.Title, req.Author, req.Category
	book.Price, book.Stocks, book.Cover = req.Price, req.Stocks, req.Cover
	return ReplaceBook(s, book)
}

// DeleteBook removes a book and any staged edits that reference it.
func DeleteBook(s State, id uint) State {
	books := make([]models.Book, 0, len(s.Books))
	for _, b := range s.Books {
		if b.ID != id {
			books = append(books, b)
		}
	}
	s.Books = books

	if _, ok := s.PendingStocks[id]; ok {
		s.PendingStocks = cloneMap(s.PendingStocks)
		delete(s.PendingStocks, id)
	}
	if _, ok := s.PendingUserCart[id]; ok {
		s.PendingUserCart = cloneMap(s.PendingUserCart)
		delete(s.PendingUserCart, id)
	}
	if s.EditingBookID == id {
		s.EditingBookID = 0
	}
	return s
}

// RemoveCartLines drops the given books from the confirmed cart.
func RemoveCartLines(s State, ids map[uint]bool) State {
	cart := make([]models.CartLine, 0, len(s.Cart))
	for _, l := range s.Cart {
		if !ids[l.BookID] {
			cart = append(cart, l)
		}
	}
	s.Cart = cart
	return normalizePending(s)
}

// SettleLines forgets the checkout charge of the removed lines and records
// the unsettled ones.
func SettleLines(s State, removed map[uint]bool, unsettled map[uint]int) State {
	dec := cloneMap(s.Decremented)
	for id := range removed {
		delete(dec, id)
	}
	for id, q := range unsettled {
		dec[id] = q
	}
	s.Decremented = dec
	return s
}

// SetUsers replaces the confirmed account list.
func SetUsers(s State, users []models.User) State {
	s.Users = append([]models.User(nil), users...)
	return s
}

// UpdateUserRole changes one account's role in the confirmed list.
func UpdateUserRole(s State, id uint, role string) State {
	users := make([]models.User, len(s.Users))
	copy(users, s.Users)
	for i := range users {
		if users[i].ID == id {
			users[i].Role = role
		}
	}
	s.Users = users
	return s
}

// DeleteUser removes one account from the confirmed list.
func DeleteUser(s State, id uint) State {
	users := make([]models.User, 0, len(s.Users))
	for _, u := range s.Users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	s.Users = users
	return s
}

// SignIn records the user and navigates to the view for their role.
func SignIn(s State, user models.User, cart []models.CartLine) State {
	if s.User == nil || s.User.ID != user.ID {
		s.Decremented = nil
	}
	s.User = &user
	s.Cart = append([]models.CartLine(nil), cart...)
	if user.IsAdmin() {
		return SetView(s, ViewAdmin)
	}
	return SetView(s, ViewHome)
}

// SignOut forgets the user and their cart.
func SignOut(s State) State {
	s.User = nil
	s.Cart = nil
	s.Users = nil
	s.Decremented = nil
	return SetView(s, ViewHome)
}

// Hydrate replaces the confirmed data loaded from the server and drops
// staged entries that no longer differ from it.
func Hydrate(s State, books []models.Book, cart []models.CartLine, users []models.User) State {
	s.Books = append([]models.Book(nil), books...)
	if cart != nil {
		s.Cart = append([]models.CartLine(nil), cart...)
		dec := map[uint]int{}
		for id, q := range s.Decremented {
			if s.CartQuantity(id) > 0 {
				dec[id] = q
			}
		}
		s.Decremented = dec
	}
	if users != nil {
		s.Users = append([]models.User(nil), users...)
	}

	stocks := map[uint]int{}
	for id, v := range s.PendingStocks {
		if _, ok := s.Book(id); ok {
			stocks[id] = v
		}
	}
	carts := map[uint]int{}
	for id, v := range s.PendingUserCart {
		if _, ok := s.Book(id); ok {
			carts[id] = v
		}
	}
	s.PendingStocks, s.PendingUserCart = stocks, carts
	return normalizePending(s)
}

// SetSearchQuery sets the catalog filter.
func SetSearchQuery(s State, q string) State {
	s.SearchQuery = q
	return s
}

// FilteredBooks returns the books whose title contains the search query,
// case-insensitively.
func FilteredBooks(s State) []models.Book {
	q := strings.ToLower(strings.TrimSpace(s.SearchQuery))
	if q == "" {
		return s.Books
	}
	out := make([]models.Book, 0, len(s.Books))
	for _, b := range s.Books {
		if strings.Contains(strings.ToLower(b.Title), q) {
			out = append(out, b)
		}
	}
	return out
}

// BeginEdit selects a book for editing and prefills the draft.
func BeginEdit(s State, id uint) State {
	book, ok := s.Book(id)
	if !ok {
		return s
	}
	s.EditingBookID = id
	s.FormDraft = FormFromBook(book)
	return s
}

// SetFormDraft replaces the admin draft.
func SetFormDraft(s State, draft BookForm) State {
	s.FormDraft = draft
	return s
}

// ResetFormDraft clears the draft and the edit selection.
func ResetFormDraft(s State) State {
	s.FormDraft = BookForm{}
	s.EditingBookID = 0
	return s
}

func SetAdminSubView(s State, v AdminSubView) State {
	s.AdminSubView = v
	return s
}

func SetAuthMode(s State, m AuthMode) State {
	s.AuthMode = m
	return s
}

// normalizePending re-clamps staged quantities to the confirmed stock and
// removes staged entries that equal the confirmed value.
func normalizePending(s State) State {
	var stocks map[uint]int
	for id, v := range s.PendingStocks {
		if b, ok := s.Book(id); ok && b.Stocks == v {
			if stocks == nil {
				stocks = cloneMap(s.PendingStocks)
			}
			delete(stocks, id)
		}
	}
	if stocks != nil {
		s.PendingStocks = stocks
	}

	var carts map[uint]int
	for id, v := range s.PendingUserCart {
		book, _ := s.Book(id)
		clamped := clamp(v, 0, book.Stocks)
		if clamped == v && s.CartQuantity(id) != v {
			continue
		}
		if carts == nil {
			carts = cloneMap(s.PendingUserCart)
		}
		if s.CartQuantity(id) == clamped {
			delete(carts, id)
		} else {
			carts[id] = clamped
		}
	}
	if carts != nil {
		s.PendingUserCart = carts
	}
	return s
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
