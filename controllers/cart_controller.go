package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/services"
)

type CartController struct {
	service services.CartService
}

func NewCartController(service services.CartService) *CartController {
	return &CartController{service: service}
}

// GetCart returns the user's lines joined with book fields.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, perr := ParseID(c, "userId")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	lines, err := cc.service.GetCart(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// AddToCart inserts a line or replaces its quantity.
func (cc *CartController) AddToCart(c *gin.Context) {
	userID, perr := ParseID(c, "userId")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	var req models.CartUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID != 0 && req.UserID != userID {
		_ = c.Error(apperrors.New(http.StatusBadRequest, "user_id does not match the cart owner", nil))
		return
	}

	if err := cc.service.SetQuantity(c.Request.Context(), userID, req.BookID, req.Quantity); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated successfully"})
}

// RemoveFromCart deletes one line when book_id is given, otherwise the
// whole cart. The body may be empty; a book_id of 0 counts as absent.
func (cc *CartController) RemoveFromCart(c *gin.Context) {
	userID, perr := ParseID(c, "userId")
	if perr != nil {
		_ = c.Error(perr)
		return
	}

	var req models.CartDeleteRequest
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.BookID != nil && *req.BookID == 0 {
		req.BookID = nil
	}

	if err := cc.service.RemoveItem(c.Request.Context(), userID, req.BookID); err != nil {
		_ = c.Error(err)
		return
	}
	msg := "Cart cleared successfully"
	if req.BookID != nil {
		msg = "Item removed from cart"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
