package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yashrajoria/webook/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
}

// Client is a typed client of the WeBook REST API.
type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent with every request. An empty token
// sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ---- books ----

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := c.do(ctx, http.MethodGet, "/books", nil, &books)
	return books, err
}

// GetBook returns nil when the id does not exist.
func (c *Client) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var book *models.Book
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, &book)
	return book, err
}

// CreateBook returns the server-assigned id.
func (c *Client) CreateBook(ctx context.Context, req models.BookRequest) (uint, error) {
	var resp struct {
		ID uint `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/books", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateBook replaces all editable fields of the book.
func (c *Client) UpdateBook(ctx context.Context, id uint, req models.BookRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/books/%d", id), req, nil)
}

func (c *Client) DeleteBook(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil)
}

// ---- users ----

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

func (c *Client) UpdateUserRole(ctx context.Context, id uint, role string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), models.UpdateRoleRequest{Role: role}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// ---- auth ----

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// ---- cart ----

func (c *Client) GetCart(ctx context.Context, userID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/cart/%d", userID), nil, &lines)
	return lines, err
}

// UpsertCartItem sets the quantity of one line.
func (c *Client) UpsertCartItem(ctx context.Context, userID, bookID uint, quantity int) error {
	req := models.CartUpsertRequest{UserID: userID, BookID: bookID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/cart/%d", userID), req, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, userID, bookID uint) error {
	req := models.CartDeleteRequest{BookID: &bookID}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", userID), req, nil)
}

// ClearCart removes every line of the user.
func (c *Client) ClearCart(ctx context.Context, userID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", userID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
