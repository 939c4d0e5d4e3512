package middleware

import (
	goerrors "errors"

	"github.com/gin-gonic/gin"

	"team_inbox/pkg/errors"
)

// ErrorHandler renders errors attached via c.Error. Validation errors carry
// their field map through to the response body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)

		var validationErr *errors.ValidationError
		if goerrors.As(err, &validationErr) {
			c.JSON(statusCode, gin.H{
				"error":  err.Error(),
				"fields": validationErr.Fields,
			})
			return
		}

		c.JSON(statusCode, gin.H{"error": err.Error()})
	}
}
