package httpkit

import (
	"net/http"

	"prospection_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondError maps a domain error to its HTTP status and writes the payload.
// Errors without a typed kind become 500s with a generic message.
func RespondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperr.Error); ok {
		c.JSON(appErr.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// RespondOK writes a 200 with the given payload.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
