package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yashrajoria/webook/models"
)

// --- Mock Book Repository ---

type mockBookRepo struct {
	books  map[uint]*models.Book
	nextID uint
	err    error
}

func newMockBookRepo() *mockBookRepo {
	return &mockBookRepo{books: make(map[uint]*models.Book), nextID: 1}
}

func (m *mockBookRepo) FindAll(_ context.Context) ([]models.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.Book{}
	for _, b := range m.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockBookRepo) FindByID(_ context.Context, id uint) (*models.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookRepo) Create(_ context.Context, b *models.Book) error {
	if m.err != nil {
		return m.err
	}
	b.ID = m.nextID
	m.nextID++
	b.CreatedAt = time.Now()
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *mockBookRepo) Replace(_ context.Context, id uint, b *models.Book) error {
	if m.err != nil {
		return m.err
	}
	cur, ok := m.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Title, cur.Author, cur.Category = b.Title, b.Author, b.Category
	cur.Price, cur.Stocks, cur.Cover = b.Price, b.Stocks, b.Cover
	return nil
}

func (m *mockBookRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.books, id)
	return nil
}

// --- Mock User Repository ---

type mockUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*models.User), nextID: 1}
}

func (m *mockUserRepo) FindAll(_ context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = m.nextID
	m.nextID++
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id uint, role string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

// --- Mock Cart Repository ---

type cartKey struct{ user, book uint }

type mockCartRepo struct {
	items map[cartKey]int
	err   error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{items: make(map[cartKey]int)}
}

func (m *mockCartRepo) FindLines(_ context.Context, userID uint) ([]models.CartLine, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.CartLine{}
	for k, q := range m.items {
		if k.user == userID {
			out = append(out, models.CartLine{ID: k.book, UserID: userID, BookID: k.book, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func (m *mockCartRepo) Upsert(_ context.Context, item *models.CartItem) error {
	if m.err != nil {
		return m.err
	}
	m.items[cartKey{item.UserID, item.BookID}] = item.Quantity
	return nil
}

func (m *mockCartRepo) Remove(_ context.Context, userID, bookID uint) error {
	delete(m.items, cartKey{userID, bookID})
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID uint) error {
	for k := range m.items {
		if k.user == userID {
			delete(m.items, k)
		}
	}
	return nil
}

// --- Mock SNS Publisher ---

type mockSNSPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockSNSPublisher) Publish(_ context.Context, _ string, _ []byte, attrs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, attrs["event_type"])
	return nil
}
