package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/coinbench/internal/domain/dto"
)

// AbortWithError stops the chain and writes a dto.ErrorResponse with status.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}

// ErrorHandler turns errors attached with c.Error into a 500 response when
// the handler did not write one itself.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	AbortWithError(c, http.StatusInternalServerError, "internal error", c.Errors.Last().Err)
}
