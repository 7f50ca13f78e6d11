package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
)

// ResponseError is the error body shape of every failed API response.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError sends an error response and logs it.
func RespondWithError(c *gin.Context, statusCode int, message string, errorCode string, logger *zap.Logger) {
	logger.Error("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_message", message),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ResponseError{Error: message, Code: errorCode})
}

// RespondWithData sends a 2xx response with a JSON body.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithNoContent sends an empty 204.
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondDomainError maps a domain error onto the HTTP surface.
func RespondDomainError(c *gin.Context, err error, logger *zap.Logger) {
	switch {
	case domain.IsNotFound(err):
		RespondWithError(c, http.StatusNotFound, err.Error(), "not_found", logger)
	case errors.Is(err, domain.ErrPlanLimitReached):
		RespondWithError(c, http.StatusConflict, err.Error(), "plan_limit_reached", logger)
	case errors.Is(err, domain.ErrPendingExpired):
		RespondWithError(c, http.StatusGone, err.Error(), "selection_expired", logger)
	case errors.Is(err, domain.ErrForbidden):
		RespondWithError(c, http.StatusForbidden, "Access denied", "forbidden", logger)
	case errors.Is(err, domain.ErrPlatformUnsupported):
		RespondWithError(c, http.StatusBadRequest, err.Error(), "unsupported_platform", logger)
	case domain.IsBadRequest(err):
		RespondWithError(c, http.StatusBadRequest, err.Error(), "invalid_request", logger)
	case domain.IsConflict(err):
		RespondWithError(c, http.StatusConflict, err.Error(), "conflict", logger)
	default:
		RespondWithError(c, http.StatusInternalServerError, "Internal server error", "internal_error", logger)
	}
}
