package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/controllers"
	"github.com/yashrajoria/webook/middleware"
	"github.com/yashrajoria/webook/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock services ---

type mockBookService struct {
	listFn   func(ctx context.Context) ([]models.Book, *apperrors.Error)
	getFn    func(ctx context.Context, id uint) (*models.Book, *apperrors.Error)
	createFn func(ctx context.Context, req *models.BookRequest) (*models.Book, *apperrors.Error)
	updateFn func(ctx context.Context, id uint, req *models.BookRequest) *apperrors.Error
	deleteFn func(ctx context.Context, id uint) *apperrors.Error
}

func (m *mockBookService) ListBooks(ctx context.Context) ([]models.Book, *apperrors.Error) {
	return m.listFn(ctx)
}
func (m *mockBookService) GetBook(ctx context.Context, id uint) (*models.Book, *apperrors.Error) {
	return m.getFn(ctx, id)
}
func (m *mockBookService) CreateBook(ctx context.Context, req *models.BookRequest) (*models.Book, *apperrors.Error) {
	return m.createFn(ctx, req)
}
func (m *mockBookService) UpdateBook(ctx context.Context, id uint, req *models.BookRequest) *apperrors.Error {
	return m.updateFn(ctx, id, req)
}
func (m *mockBookService) DeleteBook(ctx context.Context, id uint) *apperrors.Error {
	return m.deleteFn(ctx, id)
}

type mockUserService struct {
	listFn   func(ctx context.Context) ([]models.User, *apperrors.Error)
	getFn    func(ctx context.Context, id uint) (*models.User, *apperrors.Error)
	roleFn   func(ctx context.Context, actorID, id uint, role string) *apperrors.Error
	deleteFn func(ctx context.Context, actorID, id uint) *apperrors.Error
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]models.User, *apperrors.Error) {
	return m.listFn(ctx)
}
func (m *mockUserService) GetUser(ctx context.Context, id uint) (*models.User, *apperrors.Error) {
	return m.getFn(ctx, id)
}
func (m *mockUserService) UpdateRole(ctx context.Context, actorID, id uint, role string) *apperrors.Error {
	return m.roleFn(ctx, actorID, id, role)
}
func (m *mockUserService) DeleteUser(ctx context.Context, actorID, id uint) *apperrors.Error {
	return m.deleteFn(ctx, actorID, id)
}

type mockAuthService struct {
	loginFn    func(ctx context.Context, email, password string) (*models.AuthResponse, *apperrors.Error)
	registerFn func(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *apperrors.Error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, *apperrors.Error) {
	return m.loginFn(ctx, email, password)
}
func (m *mockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *apperrors.Error) {
	return m.registerFn(ctx, req)
}

type mockCartService struct {
	getFn    func(ctx context.Context, userID uint) ([]models.CartLine, *apperrors.Error)
	setFn    func(ctx context.Context, userID, bookID uint, quantity int) *apperrors.Error
	removeFn func(ctx context.Context, userID uint, bookID *uint) *apperrors.Error
}

func (m *mockCartService) GetCart(ctx context.Context, userID uint) ([]models.CartLine, *apperrors.Error) {
	return m.getFn(ctx, userID)
}
func (m *mockCartService) SetQuantity(ctx context.Context, userID, bookID uint, quantity int) *apperrors.Error {
	return m.setFn(ctx, userID, bookID, quantity)
}
func (m *mockCartService) RemoveItem(ctx context.Context, userID uint, bookID *uint) *apperrors.Error {
	return m.removeFn(ctx, userID, bookID)
}

// --- Helpers ---

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	return r
}

func perform(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		buf = bytes.NewBuffer(raw)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func setupBookRouter(svc *mockBookService) *gin.Engine {
	r := newRouter()
	bc := controllers.NewBookController(svc)
	r.GET("/books", bc.GetBooks)
	r.GET("/books/:id", bc.GetBook)
	r.POST("/books", bc.CreateBook)
	r.PUT("/books/:id", bc.UpdateBook)
	r.DELETE("/books/:id", bc.DeleteBook)
	return r
}

// --- Books ---

func TestController_CreateBook_Success(t *testing.T) {
	svc := &mockBookService{
		createFn: func(_ context.Context, req *models.BookRequest) (*models.Book, *apperrors.Error) {
			b := req.ToBook()
			b.ID = 11
			return &b, nil
		},
	}
	w := perform(setupBookRouter(svc), http.MethodPost, "/books", map[string]interface{}{
		"title": "Dune", "author": "Herbert", "category": "SF", "price": 9.99, "stocks": 5,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":11,"message":"Book added successfully"}`, w.Body.String())
}

func TestController_CreateBook_CoverTooLongNeverWrites(t *testing.T) {
	called := false
	svc := &mockBookService{
		createFn: func(_ context.Context, _ *models.BookRequest) (*models.Book, *apperrors.Error) {
			called = true
			return &models.Book{}, nil
		},
	}
	w := perform(setupBookRouter(svc), http.MethodPost, "/books", map[string]interface{}{
		"title": "Dune", "author": "Herbert", "price": 1, "stocks": 1,
		"cover": "https://img/" + strings.Repeat("a", 300),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cover URL must be at most 255 characters"}`, w.Body.String())
	assert.False(t, called)
}

func TestController_CreateBook_Invalid(t *testing.T) {
	svc := &mockBookService{}
	r := setupBookRouter(svc)

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/books", "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/books", map[string]interface{}{"author": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/books", map[string]interface{}{"title": "t", "author": "a", "stocks": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/books", map[string]interface{}{"title": "t", "author": "a", "price": -2}).Code)
}

func TestController_GetBook_MissingIsNull(t *testing.T) {
	svc := &mockBookService{
		getFn: func(_ context.Context, _ uint) (*models.Book, *apperrors.Error) { return nil, nil },
	}
	w := perform(setupBookRouter(svc), http.MethodGet, "/books/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestController_GetBook_BadID(t *testing.T) {
	w := perform(setupBookRouter(&mockBookService{}), http.MethodGet, "/books/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid id"}`, w.Body.String())
}

func TestController_GetBooks(t *testing.T) {
	svc := &mockBookService{
		listFn: func(_ context.Context) ([]models.Book, *apperrors.Error) {
			return []models.Book{{ID: 2, Title: "B", Price: decimal.NewFromInt(3)}, {ID: 1, Title: "A"}}, nil
		},
	}
	w := perform(setupBookRouter(svc), http.MethodGet, "/books", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var books []models.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	assert.Len(t, books, 2)
	assert.Equal(t, uint(2), books[0].ID)
}

func TestController_UpdateBook_NotFound(t *testing.T) {
	svc := &mockBookService{
		updateFn: func(_ context.Context, _ uint, _ *models.BookRequest) *apperrors.Error {
			return apperrors.ErrBookNotFound
		},
	}
	w := perform(setupBookRouter(svc), http.MethodPut, "/books/9", map[string]interface{}{"title": "t", "author": "a"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Book not found"}`, w.Body.String())
}

func TestController_DeleteBook_ServerFaultHidesCause(t *testing.T) {
	svc := &mockBookService{
		deleteFn: func(_ context.Context, _ uint) *apperrors.Error {
			return apperrors.Wrap(apperrors.ErrInternalServer, assert.AnError)
		},
	}
	w := perform(setupBookRouter(svc), http.MethodDelete, "/books/1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

// --- Users ---

func setupUserRouter(svc *mockUserService, actor uint) *gin.Engine {
	r := newRouter()
	if actor != 0 {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserContextKey, actor)
			c.Set(middleware.RoleContextKey, models.RoleAdmin)
			c.Next()
		})
	}
	uc := controllers.NewUserController(svc)
	r.GET("/users", uc.GetUsers)
	r.GET("/users/:id", uc.GetUser)
	r.PUT("/users/:id", uc.UpdateUser)
	r.DELETE("/users/:id", uc.DeleteUser)
	return r
}

func TestController_GetUsers_NoPassword(t *testing.T) {
	svc := &mockUserService{
		listFn: func(_ context.Context) ([]models.User, *apperrors.Error) {
			return []models.User{{ID: 1, Name: "a", Email: "a@x.com", Password: "hash", Role: "user"}}, nil
		},
	}
	w := perform(setupUserRouter(svc, 0), http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hash")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestController_UpdateUser_PassesActor(t *testing.T) {
	var gotActor, gotID uint
	svc := &mockUserService{
		roleFn: func(_ context.Context, actorID, id uint, _ string) *apperrors.Error {
			gotActor, gotID = actorID, id
			if actorID == id {
				return apperrors.ErrSelfModification
			}
			return nil
		},
	}
	r := setupUserRouter(svc, 3)

	w := perform(r, http.MethodPut, "/users/3", map[string]string{"role": "user"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodPut, "/users/4", map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(3), gotActor)
	assert.Equal(t, uint(4), gotID)

	w = perform(r, http.MethodPut, "/users/4", map[string]string{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_DeleteUser(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(_ context.Context, _, _ uint) *apperrors.Error { return apperrors.ErrUserNotFound },
	}
	w := perform(setupUserRouter(svc, 0), http.MethodDelete, "/users/8", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Auth ---

func setupAuthRouter(svc *mockAuthService) *gin.Engine {
	r := newRouter()
	ac := controllers.NewAuthController(svc)
	r.POST("/auth/login", ac.Login)
	r.POST("/auth/register", ac.Register)
	return r
}

func TestController_Login(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, email, password string) (*models.AuthResponse, *apperrors.Error) {
			if password != "pw" {
				return nil, apperrors.ErrInvalidCredentials
			}
			return &models.AuthResponse{User: models.User{ID: 1, Email: email, Role: "user"}, Token: "t", Message: "Login successful"}, nil
		},
	}
	r := setupAuthRouter(svc)

	w := perform(r, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"t"`)

	w = perform(r, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = perform(r, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_Register(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(_ context.Context, req *models.RegisterRequest) (*models.AuthResponse, *apperrors.Error) {
			if req.Email == "dup@x.com" {
				return nil, apperrors.ErrEmailExists
			}
			return &models.AuthResponse{User: models.User{ID: 2, Email: req.Email, Role: "user"}, Message: "User registered successfully"}, nil
		},
	}
	r := setupAuthRouter(svc)

	w := perform(r, http.MethodPost, "/auth/register", map[string]string{"name": "A", "email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodPost, "/auth/register", map[string]string{"name": "A", "email": "dup@x.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Email already exists"}`, w.Body.String())

	w = perform(r, http.MethodPost, "/auth/register", map[string]string{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Cart ---

func setupCartRouter(svc *mockCartService) *gin.Engine {
	r := newRouter()
	cc := controllers.NewCartController(svc)
	r.GET("/cart/:userId", cc.GetCart)
	r.POST("/cart/:userId", cc.AddToCart)
	r.DELETE("/cart/:userId", cc.RemoveFromCart)
	return r
}

func TestController_AddToCart(t *testing.T) {
	var got [3]int
	svc := &mockCartService{
		setFn: func(_ context.Context, userID, bookID uint, q int) *apperrors.Error {
			got = [3]int{int(userID), int(bookID), q}
			return nil
		},
	}
	r := setupCartRouter(svc)

	w := perform(r, http.MethodPost, "/cart/1", map[string]int{"book_id": 4, "quantity": 2})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [3]int{1, 4, 2}, got)

	w = perform(r, http.MethodPost, "/cart/1", map[string]int{"user_id": 2, "book_id": 4, "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/cart/1", map[string]int{"book_id": 4, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_RemoveFromCart(t *testing.T) {
	var removed *uint
	calls := 0
	svc := &mockCartService{
		removeFn: func(_ context.Context, _ uint, bookID *uint) *apperrors.Error {
			calls++
			removed = bookID
			return nil
		},
	}
	r := setupCartRouter(svc)

	w := perform(r, http.MethodDelete, "/cart/1", map[string]int{"book_id": 4})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, removed)
	assert.Equal(t, uint(4), *removed)

	w = perform(r, http.MethodDelete, "/cart/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, removed)
	assert.JSONEq(t, `{"message":"Cart cleared successfully"}`, w.Body.String())

	w = perform(r, http.MethodDelete, "/cart/1", "{}")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, removed)
	assert.Equal(t, 3, calls)

	w = perform(r, http.MethodDelete, "/cart/1", map[string]int{"book_id": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, removed)
	assert.JSONEq(t, `{"message":"Cart cleared successfully"}`, w.Body.String())
	assert.Equal(t, 4, calls)
}

func TestController_GetCart(t *testing.T) {
	svc := &mockCartService{
		getFn: func(_ context.Context, userID uint) ([]models.CartLine, *apperrors.Error) {
			return []models.CartLine{{ID: 4, UserID: userID, BookID: 4, Quantity: 2, Title: "Dune"}}, nil
		},
	}
	w := perform(setupCartRouter(svc), http.MethodGet, "/cart/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":2`)

	w = perform(setupCartRouter(svc), http.MethodGet, "/cart/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
