package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/models"
)

var (
	ErrLoginRequired     = errors.New("login required")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrSelfModification  = apperrors.ErrSelfModification
	ErrBusy              = errors.New("another operation is in progress")
	ErrNoBackend         = errors.New("no backend configured")
	ErrInsufficientStock = apperrors.ErrInsufficientStock
	ErrBookGone          = errors.New("book no longer exists")
	ErrLineNotRemoved    = errors.New("stock was taken but the line is still in the cart")
)

// Backend is the remote API the store persists through. *client.Client
// implements it.
type Backend interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id uint) (*models.Book, error)
	CreateBook(ctx context.Context, req models.BookRequest) (uint, error)
	UpdateBook(ctx context.Context, id uint, req models.BookRequest) error
	DeleteBook(ctx context.Context, id uint) error

	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id uint, role string) error
	DeleteUser(ctx context.Context, id uint) error

	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	SetToken(token string)

	GetCart(ctx context.Context, userID uint) ([]models.CartLine, error)
	UpsertCartItem(ctx context.Context, userID, bookID uint, quantity int) error
	RemoveCartItem(ctx context.Context, userID, bookID uint) error
	ClearCart(ctx context.Context, userID uint) error
}

// Store holds the current State and swaps it under a mutex. Local
// intents apply immediately; confirm operations call the backend
// sequentially and swap the snapshot once when they finish.
type Store struct {
	mu      sync.Mutex
	state   State
	backend Backend
	log     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithState seeds the initial snapshot.
func WithState(st State) Option {
	return func(s *Store) { s.state = st }
}

// New creates a Store. backend may be nil, in which case every confirm
// is purely local.
func New(backend Backend, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{state: NewState(), backend: backend, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.state.PendingStocks == nil {
		s.state.PendingStocks = map[uint]int{}
	}
	if s.state.PendingUserCart == nil {
		s.state.PendingUserCart = map[uint]int{}
	}
	return s
}

// State returns the current snapshot. It must be treated as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a network operation is running.
func (s *Store) Busy() bool { return s.State().Busy }

func (s *Store) update(fn func(State) State) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
}

func (s *Store) begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy {
		return State{}, ErrBusy
	}
	s.state.Busy = true
	return s.state, nil
}

func (s *Store) finish(apply func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if apply != nil {
		st = apply(st)
	}
	st.Busy = false
	s.state = st
}

// network runs fn against a snapshot with Busy set, then applies the
// returned transition to whatever the state is by then.
func (s *Store) network(fn func(snap State) (func(State) State, error)) error {
	snap, err := s.begin()
	if err != nil {
		return err
	}
	var apply func(State) State
	defer func() { s.finish(apply) }()
	apply, err = fn(snap)
	return err
}

// ---- staging ----

func (s *Store) ProposeStock(bookID uint, value int) {
	s.update(func(st State) State { return ProposeStock(st, bookID, value) })
}

func (s *Store) ProposeCartQuantity(bookID uint, quantity int) {
	s.update(func(st State) State { return ProposeCartQuantity(st, bookID, quantity) })
}

func (s *Store) AdjustStock(bookID uint, delta int) {
	s.update(func(st State) State { return AdjustStock(st, bookID, delta) })
}

// AdjustCartQuantity requires a signed-in user; without one it navigates
// to the login view and returns ErrLoginRequired.
func (s *Store) AdjustCartQuantity(bookID uint, delta int) error {
	var err error
	s.update(func(st State) State {
		if st.User == nil {
			err = ErrLoginRequired
			return SetView(st, ViewLogin)
		}
		return AdjustCartQuantity(st, bookID, delta)
	})
	return err
}

func (s *Store) DiscardStocks() { s.update(DiscardStocks) }

func (s *Store) DiscardCart() { s.update(DiscardCart) }

func (s *Store) LeaveStagingContext() { s.update(LeaveStagingContext) }

func (s *Store) SetView(v View) {
	s.update(func(st State) State { return SetView(st, v) })
}

// ConfirmStocks persists each staged stock in ascending book id order.
// Successful entries are folded into the confirmed books; failed ones stay
// staged and their errors are joined.
func (s *Store) ConfirmStocks(ctx context.Context) error {
	return s.network(func(snap State) (func(State) State, error) {
		if len(snap.PendingStocks) == 0 {
			return nil, nil
		}
		if s.backend == nil {
			return ConfirmStocksLocally, nil
		}

		applied := map[uint]int{}
		var errs []error
		for _, id := range sortedKeys(snap.PendingStocks) {
			value := snap.PendingStocks[id]
			book, ok := snap.Book(id)
			if !ok {
				continue
			}
			req := models.RequestFromBook(book)
			req.Stocks = value
			if err := s.backend.UpdateBook(ctx, id, req); err != nil {
				s.log.Warn("Stock update failed", zap.Uint("book_id", id), zap.Int("stocks", value), zap.Error(err))
				errs = append(errs, fmt.Errorf("book %d: %w", id, err))
				continue
			}
			applied[id] = value
		}

		return func(st State) State {
			for _, id := range sortedKeys(applied) {
				st = ApplyStock(st, id, applied[id])
			}
			return st
		}, errors.Join(errs...)
	})
}

// ConfirmCart persists each staged quantity when a user is signed in and
// a backend is configured, then folds the successful ones into the cart.
func (s *Store) ConfirmCart(ctx context.Context) error {
	return s.network(func(snap State) (func(State) State, error) {
		if len(snap.PendingUserCart) == 0 {
			return nil, nil
		}
		if s.backend == nil || snap.User == nil {
			return ConfirmCartLocally, nil
		}

		userID := snap.User.ID
		applied := map[uint]int{}
		var errs []error
		for _, id := range sortedKeys(snap.PendingUserCart) {
			qty := snap.PendingUserCart[id]
			var err error
			if qty == 0 {
				err = s.backend.RemoveCartItem(ctx, userID, id)
			} else {
				err = s.backend.UpsertCartItem(ctx, userID, id, qty)
			}
			if err != nil {
				s.log.Warn("Cart update failed", zap.Uint("book_id", id), zap.Int("quantity", qty), zap.Error(err))
				errs = append(errs, fmt.Errorf("book %d: %w", id, err))
				continue
			}
			applied[id] = qty
		}

		return func(st State) State {
			for _, id := range sortedKeys(applied) {
				st = ApplyCartQuantity(st, id, applied[id])
			}
			return st
		}, errors.Join(errs...)
	})
}

// Checkout decrements the stock of every cart line, one line at a time,
// against the live stock, and removes the line from the server cart right
// after its stock update. Lines that went through leave the cart; lines
// that failed stay with their stock untouched. Earlier updates are not
// rolled back when a later line fails.
//
// When a stock update succeeds but the line cannot be removed upstream,
// the loop stops and the decremented quantity is remembered in
// Decremented, so a later checkout of the same line only retries the
// removal instead of taking the stock again.
func (s *Store) Checkout(ctx context.Context) error {
	return s.network(func(snap State) (func(State) State, error) {
		if len(snap.Cart) == 0 {
			return nil, ErrEmptyCart
		}
		upstream := s.backend != nil && snap.User != nil

		updated := map[uint]models.Book{}
		removed := map[uint]bool{}
		unsettled := map[uint]int{}
		var errs []error
		for _, line := range snap.Cart {
			if charge := line.Quantity - snap.Decremented[line.BookID]; charge > 0 {
				book, err := s.decrementStock(ctx, snap, line, charge)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				updated[line.BookID] = book
			}

			if upstream {
				if err := s.backend.RemoveCartItem(ctx, snap.User.ID, line.BookID); err != nil {
					s.log.Warn("Checkout line not removed from cart", zap.Uint("book_id", line.BookID), zap.Error(err))
					unsettled[line.BookID] = line.Quantity
					errs = append(errs, fmt.Errorf("%s: %w: %w", line.Title, ErrLineNotRemoved, err))
					break
				}
			}
			removed[line.BookID] = true
		}

		complete := len(removed) == len(snap.Cart)
		if complete {
			s.log.Info("Checkout completed", zap.Int("lines", len(removed)))
		}

		return func(st State) State {
			for _, book := range updated {
				st = ReplaceBook(st, book)
			}
			st = SettleLines(st, removed, unsettled)
			st = RemoveCartLines(st, removed)
			if complete {
				st = SetView(st, ViewHome)
			}
			return st
		}, errors.Join(errs...)
	})
}

// decrementStock takes charge copies of line's book against its live
// stock and returns the book as persisted.
func (s *Store) decrementStock(ctx context.Context, snap State, line models.CartLine, charge int) (models.Book, error) {
	book, err := s.liveBook(ctx, snap, line.BookID)
	if err != nil {
		return models.Book{}, fmt.Errorf("%s: %w", line.Title, err)
	}
	remaining := book.Stocks - charge
	if remaining < 0 {
		return models.Book{}, fmt.Errorf("%s: %w (%d left, %d requested)", line.Title, ErrInsufficientStock, book.Stocks, charge)
	}
	if s.backend != nil {
		req := models.RequestFromBook(book)
		req.Stocks = remaining
		if err := s.backend.UpdateBook(ctx, book.ID, req); err != nil {
			s.log.Warn("Checkout stock update failed", zap.Uint("book_id", book.ID), zap.Error(err))
			return models.Book{}, fmt.Errorf("%s: %w", line.Title, err)
		}
	}
	book.Stocks = remaining
	return book, nil
}

// ClearCart empties the cart, upstream first when a user is signed in.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.network(func(snap State) (func(State) State, error) {
		if s.backend != nil && snap.User != nil {
			if err := s.backend.ClearCart(ctx, snap.User.ID); err != nil {
				return nil, err
			}
		}
		return func(st State) State {
			ids := make(map[uint]bool, len(st.Cart))
			for _, l := range st.Cart {
				ids[l.BookID] = true
			}
			return RemoveCartLines(SettleLines(st, ids, nil), ids)
		}, nil
	})
}

func (s *Store) liveBook(ctx context.Context, snap State, id uint) (models.Book, error) {
	if s.backend == nil {
		book, ok := snap.Book(id)
		if !ok {
			return models.Book{}, ErrBookGone
		}
		return book, nil
	}
	book, err := s.backend.GetBook(ctx, id)
	if err != nil {
		return models.Book{}, err
	}
	if book == nil {
		return models.Book{}, ErrBookGone
	}
	return *book, nil
}

// ---- session ----

// Load fetches the catalog, plus the cart and the account list when the
// signed-in user is entitled to them.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	return s.network(func(snap State) (func(State) State, error) {
		books, err := s.backend.ListBooks(ctx)
		if err != nil {
			return nil, err
		}
		var cart []models.CartLine
		var users []models.User
		if snap.User != nil {
			if cart, err = s.backend.GetCart(ctx, snap.User.ID); err != nil {
				return nil, err
			}
			if cart == nil {
				cart = []models.CartLine{}
			}
			if snap.User.IsAdmin() {
				if users, err = s.backend.ListUsers(ctx); err != nil {
					return nil, err
				}
			}
		}
		return func(st State) State { return Hydrate(st, books, cart, users) }, nil
	})
}

// LoadUsers refreshes the account list.
func (s *Store) LoadUsers(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	return s.network(func(State) (func(State) State, error) {
		users, err := s.backend.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		return func(st State) State { return SetUsers(st, users) }, nil
	})
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, func() (*models.AuthResponse, error) {
		return s.backend.Login(ctx, email, password)
	})
}

func (s *Store) Register(ctx context.Context, name, email, password string) error {
	return s.authenticate(ctx, func() (*models.AuthResponse, error) {
		return s.backend.Register(ctx, name, email, password)
	})
}

func (s *Store) authenticate(ctx context.Context, call func() (*models.AuthResponse, error)) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	err := s.network(func(State) (func(State) State, error) {
		resp, err := call()
		if err != nil {
			return nil, err
		}
		cart, err := s.backend.GetCart(ctx, resp.User.ID)
		if err != nil {
			return nil, err
		}
		user := resp.User
		return func(st State) State { return SignIn(st, user, cart) }, nil
	})
	if err != nil {
		return err
	}
	if s.State().IsAdmin() {
		return s.Load(ctx)
	}
	return nil
}

// Logout forgets the user and their cart and returns home.
func (s *Store) Logout() {
	if s.backend != nil {
		s.backend.SetToken("")
	}
	s.update(SignOut)
}

// ---- catalog ----

func (s *Store) SetSearchQuery(q string) {
	s.update(func(st State) State { return SetSearchQuery(st, q) })
}

// FilteredBooks returns the catalog filtered by the search query.
func (s *Store) FilteredBooks() []models.Book {
	return FilteredBooks(s.State())
}

// AddBook creates a book and puts it first in the catalog. Without a
// backend the id is assigned locally.
func (s *Store) AddBook(ctx context.Context, form BookForm) (uint, error) {
	var id uint
	err := s.network(func(snap State) (func(State) State, error) {
		apply, newID, err := s.addBook(ctx, snap, form)
		id = newID
		return apply, err
	})
	return id, err
}

func (s *Store) addBook(ctx context.Context, snap State, form BookForm) (func(State) State, uint, error) {
	req := form.Request()
	if err := validateBook(req); err != nil {
		return nil, 0, err
	}

	var id uint
	if s.backend != nil {
		newID, err := s.backend.CreateBook(ctx, req)
		if err != nil {
			return nil, 0, err
		}
		id = newID
	} else {
		for _, b := range snap.Books {
			if b.ID > id {
				id = b.ID
			}
		}
		id++
	}

	book := req.ToBook()
	book.ID = id
	return func(st State) State { return AddBook(st, book) }, id, nil
}

// UpdateBook replaces all editable fields of a book.
func (s *Store) UpdateBook(ctx context.Context, id uint, form BookForm) error {
	return s.network(func(State) (func(State) State, error) {
		return s.updateBook(ctx, id, form)
	})
}

func (s *Store) updateBook(ctx context.Context, id uint, form BookForm) (func(State) State, error) {
	req := form.Request()
	if err := validateBook(req); err != nil {
		return nil, err
	}
	if s.backend != nil {
		if err := s.backend.UpdateBook(ctx, id, req); err != nil {
			return nil, err
		}
	}
	return func(st State) State { return UpdateBook(st, id, req) }, nil
}

func (s *Store) DeleteBook(ctx context.Context, id uint) error {
	return s.network(func(State) (func(State) State, error) {
		if s.backend != nil {
			if err := s.backend.DeleteBook(ctx, id); err != nil {
				return nil, err
			}
		}
		return func(st State) State { return DeleteBook(st, id) }, nil
	})
}

// ---- admin form ----

func (s *Store) BeginEdit(id uint) {
	s.update(func(st State) State { return BeginEdit(st, id) })
}

func (s *Store) SetFormDraft(draft BookForm) {
	s.update(func(st State) State { return SetFormDraft(st, draft) })
}

func (s *Store) ResetFormDraft() { s.update(ResetFormDraft) }

// SubmitForm saves the draft: it updates the book being edited, or adds
// a new one, and resets the draft on success.
func (s *Store) SubmitForm(ctx context.Context) error {
	return s.network(func(snap State) (func(State) State, error) {
		var apply func(State) State
		var err error
		if snap.EditingBookID != 0 {
			apply, err = s.updateBook(ctx, snap.EditingBookID, snap.FormDraft)
		} else {
			apply, _, err = s.addBook(ctx, snap, snap.FormDraft)
		}
		if err != nil {
			return nil, err
		}
		return func(st State) State { return ResetFormDraft(apply(st)) }, nil
	})
}

// ---- users ----

// ToggleUserRole flips an account between admin and user. The signed-in
// user cannot change their own role.
func (s *Store) ToggleUserRole(ctx context.Context, id uint) error {
	return s.network(func(snap State) (func(State) State, error) {
		if snap.User != nil && snap.User.ID == id {
			return nil, ErrSelfModification
		}
		role := models.RoleAdmin
		for _, u := range snap.Users {
			if u.ID == id && u.IsAdmin() {
				role = models.RoleUser
			}
		}
		if s.backend != nil {
			if err := s.backend.UpdateUserRole(ctx, id, role); err != nil {
				return nil, err
			}
		}
		return func(st State) State { return UpdateUserRole(st, id, role) }, nil
	})
}

// DeleteUser removes an account. The signed-in user cannot delete
// themselves.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.network(func(snap State) (func(State) State, error) {
		if snap.User != nil && snap.User.ID == id {
			return nil, ErrSelfModification
		}
		if s.backend != nil {
			if err := s.backend.DeleteUser(ctx, id); err != nil {
				return nil, err
			}
		}
		return func(st State) State { return DeleteUser(st, id) }, nil
	})
}

// ---- navigation ----

func (s *Store) SetAdminSubView(v AdminSubView) {
	s.update(func(st State) State { return SetAdminSubView(st, v) })
}

func (s *Store) SetAuthMode(m AuthMode) {
	s.update(func(st State) State { return SetAuthMode(st, m) })
}

// ---- derived ----

func (s *Store) PendingStockCount() int { return s.State().PendingStockCount() }

func (s *Store) PendingCartCount() int { return s.State().PendingCartCount() }

func (s *Store) CartCount() int { return s.State().CartCount() }

func (s *Store) CartTotal() string { return s.State().CartTotal().StringFixed(2) }

func validateBook(req models.BookRequest) error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		return apperrors.New(apperrors.ErrValidation.Code, "Title and author are required", nil)
	}
	if utf8.RuneCountInString(req.Cover) > models.MaxCoverLength {
		return apperrors.ErrCoverTooLong
	}
	if req.Price.IsNegative() || req.Stocks < 0 {
		return apperrors.New(apperrors.ErrValidation.Code, "Price and stocks must not be negative", nil)
	}
	return nil
}
