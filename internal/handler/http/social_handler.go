package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/handler/http/middleware"
	"github.com/publora/platform/backend/services/social-service/internal/service"
	"github.com/publora/platform/backend/services/social-service/internal/utils/metrics"
)

// SocialHandler exposes the OAuth connection flow: authorize URL
// generation, the provider callback and pending-selection resolution.
type SocialHandler struct {
	connect   *service.ConnectService
	selection *service.SelectionService
	logger    *zap.Logger
}

func NewSocialHandler(connect *service.ConnectService, selection *service.SelectionService, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{
		connect:   connect,
		selection: selection,
		logger:    logger.Named("social_handler"),
	}
}

type authorizeResponse struct {
	Success      bool   `json:"success"`
	AuthorizeURL string `json:"authorizeUrl"`
}

// Authorize handles GET /api/v1/brands/:brand_id/social/:platform/authorize.
func (h *SocialHandler) Authorize(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("brand_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid brand id", "invalid_request", h.logger)
		return
	}
	p, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Unknown platform", "unsupported_platform", h.logger)
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	userID, _ := middleware.UserID(c)
	locale := c.Query("locale")

	authorizeURL, err := h.connect.Authorize(c.Request.Context(), brandID, workspaceID, userID, p, locale)
	if err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, authorizeResponse{Success: true, AuthorizeURL: authorizeURL})
}

// Callback handles GET /api/v1/social/:platform/callback. The browser
// always ends up on a frontend URL, success or not.
func (h *SocialHandler) Callback(c *gin.Context) {
	p, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		RespondWithError(c, http.StatusNotFound, "Unknown platform", "unsupported_platform", h.logger)
		return
	}

	redirectURL := h.connect.HandleCallback(
		c.Request.Context(),
		p,
		c.Query("code"),
		c.Query("state"),
		c.Query("error"),
		c.Query("error_description"),
	)

	status := "success"
	if c.Query("error") != "" {
		status = "denied"
	}
	metrics.OAuthCallbacksTotal.WithLabelValues(string(p), status).Inc()

	c.Redirect(http.StatusFound, redirectURL)
}

type resolveSelectionRequest struct {
	AccountIDs []string `json:"accountIds" binding:"required"`
}

type resolveSelectionResponse struct {
	Accounts []models.ConnectedAccountDTO `json:"accounts"`
}

// ResolveSelection handles POST /api/v1/brands/:brand_id/social/:platform/selection.
func (h *SocialHandler) ResolveSelection(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("brand_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid brand id", "invalid_request", h.logger)
		return
	}
	p, ok := models.ParsePlatform(c.Param("platform"))
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Unknown platform", "unsupported_platform", h.logger)
		return
	}

	var req resolveSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request body", "invalid_request", h.logger)
		return
	}

	var actorID *uuid.UUID
	if userID, ok := middleware.UserID(c); ok {
		actorID = &userID
	}
	workspaceID, _ := middleware.WorkspaceID(c)

	accounts, err := h.selection.Resolve(c.Request.Context(), brandID, workspaceID, p, req.AccountIDs, actorID)
	if err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	dtos := make([]models.ConnectedAccountDTO, 0, len(accounts))
	for _, acc := range accounts {
		dtos = append(dtos, acc.ToDTO())
	}
	RespondWithData(c, http.StatusOK, resolveSelectionResponse{Accounts: dtos})
}
