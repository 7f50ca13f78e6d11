package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextWorkspaceID and ContextUserID are the gin context keys the
	// identity middleware populates.
	ContextWorkspaceID = "workspace_id"
	ContextUserID      = "user_id"

	headerWorkspaceID = "X-Workspace-ID"
	headerUserID      = "X-User-ID"
)

// IdentityMiddleware reads the caller identity the API gateway injects
// after verifying the session. Requests without a valid identity are
// rejected before any handler runs.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := uuid.Parse(c.GetHeader(headerWorkspaceID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid workspace identity",
				"code":  "unauthorized",
			})
			return
		}
		userID, err := uuid.Parse(c.GetHeader(headerUserID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid user identity",
				"code":  "unauthorized",
			})
			return
		}
		c.Set(ContextWorkspaceID, workspaceID)
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// WorkspaceID returns the authenticated workspace id from the context.
func WorkspaceID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextWorkspaceID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserID returns the authenticated user id from the context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
