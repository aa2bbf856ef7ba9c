package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/services"
)

type BookController struct {
	service   services.BookService
	validator *RequestValidator
}

func NewBookController(service services.BookService) *BookController {
	return &BookController{service: service, validator: NewRequestValidator()}
}

// GetBooks returns the catalog, newest first.
func (bc *BookController) GetBooks(c *gin.Context) {
	books, err := bc.service.ListBooks(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook returns one book, or null when the id does not exist.
func (bc *BookController) GetBook(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	book, err := bc.service.GetBook(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (bc *BookController) CreateBook(c *gin.Context) {
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if verr := bc.validator.ValidateBook(&req); verr != nil {
		_ = c.Error(verr)
		return
	}

	book, err := bc.service.CreateBook(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": book.ID, "message": "Book added successfully"})
}

// UpdateBook replaces all editable fields of a book.
func (bc *BookController) UpdateBook(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if verr := bc.validator.ValidateBook(&req); verr != nil {
		_ = c.Error(verr)
		return
	}

	if err := bc.service.UpdateBook(c.Request.Context(), id, &req); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book updated successfully"})
}

func (bc *BookController) DeleteBook(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	if err := bc.service.DeleteBook(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully"})
}
