package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/models"
)

// RequestValidator handles the checks binding tags cannot express.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// ValidateBook checks a book payload before any write.
func (rv *RequestValidator) ValidateBook(req *models.BookRequest) *apperrors.Error {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.Category = strings.TrimSpace(req.Category)
	req.Cover = strings.TrimSpace(req.Cover)

	if req.Title == "" || req.Author == "" {
		return apperrors.New(apperrors.ErrValidation.Code, "Title and author are required", nil)
	}

	if err := rv.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Cover" {
					return apperrors.ErrCoverTooLong
				}
			}
		}
		return apperrors.Wrap(apperrors.ErrValidation, err)
	}

	if req.Price.IsNegative() {
		return apperrors.New(apperrors.ErrValidation.Code, "Price must not be negative", nil)
	}
	return nil
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint, *apperrors.Error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidID
	}
	return uint(id), nil
}
