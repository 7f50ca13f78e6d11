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

// AccountHandler exposes connected-account reads and lifecycle actions.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger.Named("account_handler")}
}

type listAccountsResponse struct {
	Accounts []models.ConnectedAccountDTO `json:"accounts"`
}

// List handles GET /api/v1/brands/:brand_id/social/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("brand_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid brand id", "invalid_request", h.logger)
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	accounts, err := h.accounts.List(c.Request.Context(), brandID, workspaceID)
	if err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, listAccountsResponse{Accounts: accounts})
}

// Get handles GET /api/v1/brands/:brand_id/social/accounts/:account_id.
func (h *AccountHandler) Get(c *gin.Context) {
	brandID, accountID, ok := h.pathIDs(c)
	if !ok {
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	account, err := h.accounts.Get(c.Request.Context(), brandID, workspaceID, accountID)
	if err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, account.ToDTO())
}

// Disconnect handles POST /api/v1/brands/:brand_id/social/accounts/:account_id/disconnect.
func (h *AccountHandler) Disconnect(c *gin.Context) {
	brandID, accountID, ok := h.pathIDs(c)
	if !ok {
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	if err := h.accounts.Disconnect(c.Request.Context(), brandID, workspaceID, accountID, h.actor(c)); err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	RespondWithNoContent(c)
}

// Delete handles DELETE /api/v1/brands/:brand_id/social/accounts/:account_id.
func (h *AccountHandler) Delete(c *gin.Context) {
	brandID, accountID, ok := h.pathIDs(c)
	if !ok {
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	if err := h.accounts.Delete(c.Request.Context(), brandID, workspaceID, accountID, h.actor(c)); err != nil {
		RespondDomainError(c, err, h.logger)
		return
	}
	RespondWithNoContent(c)
}

// Refresh handles POST /api/v1/brands/:brand_id/social/accounts/:account_id/refresh.
func (h *AccountHandler) Refresh(c *gin.Context) {
	brandID, accountID, ok := h.pathIDs(c)
	if !ok {
		return
	}
	workspaceID, _ := middleware.WorkspaceID(c)
	account, err := h.accounts.RefreshAccountToken(c.Request.Context(), brandID, workspaceID, accountID)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("unknown", "failure").Inc()
		RespondDomainError(c, err, h.logger)
		return
	}
	metrics.TokenRefreshTotal.WithLabelValues(string(account.Platform), "success").Inc()
	RespondWithData(c, http.StatusOK, account.ToDTO())
}

func (h *AccountHandler) pathIDs(c *gin.Context) (brandID, accountID uuid.UUID, ok bool) {
	brandID, err := uuid.Parse(c.Param("brand_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid brand id", "invalid_request", h.logger)
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err = uuid.Parse(c.Param("account_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid account id", "invalid_request", h.logger)
		return uuid.Nil, uuid.Nil, false
	}
	return brandID, accountID, true
}

func (h *AccountHandler) actor(c *gin.Context) *uuid.UUID {
	if userID, ok := middleware.UserID(c); ok {
		return &userID
	}
	return nil
}
