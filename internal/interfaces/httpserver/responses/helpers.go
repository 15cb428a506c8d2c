package responses

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// HandleError writes an error as an HTTP response, mapping platform
// error types to status codes.
func HandleError(c *gin.Context, err error) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteError(c, err, logger)
}

// HandleNewError creates and writes a new typed error response.
// Use this for route-level errors like validation failures.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	switch errorType {
	case platformerrors.ErrorTypeNotFound:
		platformerrors.WriteNotFound(c, message)
	case platformerrors.ErrorTypeUnauthorized:
		platformerrors.WriteUnauthorized(c, message)
	case platformerrors.ErrorTypeForbidden:
		platformerrors.WriteForbidden(c, message)
	default:
		platformerrors.WriteValidationError(c, message)
	}
}
