package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yashrajoria/webook/common/logger"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code and message, so wrapped copies of
// the canonical errors below still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return New(base.Code, base.Message, err)
}

// From converts any error into an *Error, defaulting to a 500.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// Common error types
var (
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// ErrorMiddleware renders the last error pushed with c.Error as
// {"error": message}. Server faults are logged with their cause and the
// cause is not sent to the client.
func ErrorMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := From(c.Errors.Last().Err)
		if appErr.Code >= http.StatusInternalServerError {
			logger.With(c, log).Error("request failed",
				zap.String("route", c.FullPath()),
				zap.Int("status", appErr.Code),
				zap.Error(appErr),
			)
		}
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		c.Abort()
	}
}

// Validation error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
	ErrInvalidID    = New(http.StatusBadRequest, "Invalid id", nil)
	ErrCoverTooLong = New(http.StatusBadRequest, "Cover URL must be at most 255 characters", nil)
)

// Authentication error types
var (
	ErrInvalidCredentials = New(http.StatusUnauthorized, "Invalid credentials", nil)
	ErrInvalidToken       = New(http.StatusUnauthorized, "Invalid token", nil)
	ErrAdminRequired      = New(http.StatusForbidden, "Admin role required", nil)
	ErrSelfModification   = New(http.StatusForbidden, "Cannot change or delete your own account", nil)
)

// Business logic error types
var (
	ErrEmailExists       = New(http.StatusBadRequest, "Email already exists", nil)
	ErrBookNotFound      = New(http.StatusNotFound, "Book not found", nil)
	ErrUserNotFound      = New(http.StatusNotFound, "User not found", nil)
	ErrInsufficientStock = New(http.StatusBadRequest, "Insufficient stock", nil)
)
