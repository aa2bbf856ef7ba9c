package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/webook/common/errors"
)

// Availability answers every request with 503 while available reports
// false. It guards the data routes when the database could not be reached
// at start-up.
func Availability(available func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available() {
			e := apperrors.ErrServiceUnavailable
			c.AbortWithStatusJSON(e.Code, gin.H{"error": e.Message})
			return
		}
		c.Next()
	}
}
