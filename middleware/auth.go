package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/services"
)

const (
	UserContextKey  = "userID"
	RoleContextKey  = "role"
	EmailContextKey = "email"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// Identity reads an optional bearer token. Requests without one pass
// through anonymously; a present but invalid token is rejected with 401.
func Identity(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || tokens == nil {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, apperrors.ErrInvalidToken)
			return
		}
		claims, err := tokens.ValidateToken(strings.TrimSpace(raw))
		if err != nil {
			abort(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(UserContextKey, claims.UserID)
		c.Set(RoleContextKey, claims.Role)
		c.Set(EmailContextKey, claims.Email)
		c.Next()
	}
}

// AccountFinder loads an account by id. repository.UserRepository
// implements it.
type AccountFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// CurrentRole replaces the role claim of an authenticated request with the
// role stored for the account, so a demotion takes effect before the token
// expires. Tokens of deleted accounts are rejected with 401.
func CurrentRole(users AccountFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetUserID(c)
		if id == 0 {
			c.Next()
			return
		}
		u, err := users.FindByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, apperrors.ErrInvalidToken)
				return
			}
			abort(c, apperrors.ErrInternalServer)
			return
		}
		c.Set(RoleContextKey, u.Role)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(uint); ok {
			return id
		}
	}
	return 0
}

// AdminOnly restricts access to admin role when required is true.
func AdminOnly(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !required {
			c.Next()
			return
		}
		if GetUserID(c) == 0 {
			abort(c, apperrors.ErrUnauthorized)
			return
		}
		if role := c.GetString(RoleContextKey); role != "admin" {
			abort(c, apperrors.ErrAdminRequired)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

// OwnerOrAdmin rejects authenticated callers addressing another user's
// resource through the named path parameter. Anonymous requests pass.
func OwnerOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetUserID(c)
		if actor == 0 || c.GetString(RoleContextKey) == "admin" {
			c.Next()
			return
		}
		if c.Param(param) != strconv.FormatUint(uint64(actor), 10) {
			abort(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
