// Package repositorytest provides in-memory repositories for tests that
// exercise the HTTP stack end to end.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/repository"
)

// Store holds the rows of all three tables.
type Store struct {
	mu       sync.Mutex
	books    map[uint]models.Book
	users    map[uint]models.User
	cart     map[[2]uint]int
	cartSeq  map[[2]uint]int
	nextBook uint
	nextUser uint
	seq      int
	clock    time.Time

	// Fail, when set, is returned by every call whose operation name it
	// accepts (for example "books.replace").
	Fail func(op string, id uint) error
}

func New() *Store {
	return &Store{
		books:    make(map[uint]models.Book),
		users:    make(map[uint]models.User),
		cart:     make(map[[2]uint]int),
		cartSeq:  make(map[[2]uint]int),
		nextBook: 1,
		nextUser: 1,
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Store) Books() repository.BookRepository { return bookRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Cart() repository.CartRepository  { return cartRepo{s} }

// tick returns strictly increasing timestamps so newest-first ordering is
// deterministic.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) fail(op string, id uint) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, id)
}

// Book returns a stored book for assertions.
func (s *Store) Book(id uint) (models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	return b, ok
}

type bookRepo struct{ s *Store }

func (r bookRepo) FindAll(_ context.Context) ([]models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("books.list", 0); err != nil {
		return nil, err
	}
	out := make([]models.Book, 0, len(r.s.books))
	for _, b := range r.s.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r bookRepo) FindByID(_ context.Context, id uint) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r bookRepo) Create(_ context.Context, b *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("books.create", 0); err != nil {
		return err
	}
	b.ID = r.s.nextBook
	r.s.nextBook++
	b.CreatedAt = r.s.tick()
	b.UpdatedAt = b.CreatedAt
	r.s.books[b.ID] = *b
	return nil
}

func (r bookRepo) Replace(_ context.Context, id uint, b *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("books.replace", id); err != nil {
		return err
	}
	cur, ok := r.s.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Title, cur.Author, cur.Category = b.Title, b.Author, b.Category
	cur.Price, cur.Stocks, cur.Cover = b.Price, b.Stocks, b.Cover
	cur.UpdatedAt = r.s.tick()
	r.s.books[id] = cur
	return nil
}

func (r bookRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.books, id)
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) FindAll(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r userRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = r.s.nextUser
	r.s.nextUser++
	u.CreatedAt = r.s.tick()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) UpdateRole(_ context.Context, id uint, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	r.s.users[id] = u
	return nil
}

func (r userRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.users, id)
	return nil
}

type cartRepo struct{ s *Store }

func (r cartRepo) FindLines(_ context.Context, userID uint) ([]models.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type seqLine struct {
		seq  int
		line models.CartLine
	}
	var rows []seqLine
	for k, q := range r.s.cart {
		if k[0] != userID {
			continue
		}
		b, ok := r.s.books[k[1]]
		if !ok {
			continue
		}
		line := models.LineFromBook(userID, b, q)
		rows = append(rows, seqLine{r.s.cartSeq[k], line})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]models.CartLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.line)
	}
	return out, nil
}

func (r cartRepo) Upsert(_ context.Context, item *models.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("cart.upsert", item.BookID); err != nil {
		return err
	}
	k := [2]uint{item.UserID, item.BookID}
	if _, ok := r.s.cart[k]; !ok {
		r.s.seq++
		r.s.cartSeq[k] = r.s.seq
	}
	r.s.cart[k] = item.Quantity
	return nil
}

func (r cartRepo) Remove(_ context.Context, userID, bookID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("cart.remove", bookID); err != nil {
		return err
	}
	delete(r.s.cart, [2]uint{userID, bookID})
	return nil
}

func (r cartRepo) Clear(_ context.Context, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("cart.clear", userID); err != nil {
		return err
	}
	for k := range r.s.cart {
		if k[0] == userID {
			delete(r.s.cart, k)
		}
	}
	return nil
}
