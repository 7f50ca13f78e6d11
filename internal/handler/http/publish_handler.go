package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/service"
)

// PublishHandler is the internal dispatch surface called by the
// scheduling service, not by end users.
type PublishHandler struct {
	publisher *service.PublishService
	logger    *zap.Logger
}

func NewPublishHandler(publisher *service.PublishService, logger *zap.Logger) *PublishHandler {
	return &PublishHandler{publisher: publisher, logger: logger.Named("publish_handler")}
}

type publishRequest struct {
	AccountID uuid.UUID                 `json:"accountId" binding:"required"`
	Payload   models.PublicationPayload `json:"payload" binding:"required"`
}

type publishResponse struct {
	Success   bool   `json:"success"`
	PostID    string `json:"postId,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	// Retryable tells the scheduler whether re-dispatching may succeed.
	Retryable bool   `json:"retryable,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Publish handles POST /internal/v1/publish.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request body", "invalid_request", h.logger)
		return
	}

	result, err := h.publisher.Publish(c.Request.Context(), req.AccountID, req.Payload)
	if err != nil {
		if domain.IsNotFound(err) || domain.IsBadRequest(err) {
			RespondDomainError(c, err, h.logger)
			return
		}
		retryable := domain.IsRetryablePublication(err)
		status := http.StatusBadGateway
		if retryable {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("Publication dispatch failed",
			zap.String("account_id", req.AccountID.String()),
			zap.Bool("retryable", retryable),
			zap.Error(err))
		c.JSON(status, publishResponse{Success: false, Retryable: retryable, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, publishResponse{
		Success:   true,
		PostID:    result.PostID,
		Permalink: result.Permalink,
	})
}
