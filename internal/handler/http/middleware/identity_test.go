package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRouter() (*gin.Engine, *uuid.UUID, *uuid.UUID) {
	gin.SetMode(gin.TestMode)
	var gotWorkspace, gotUser uuid.UUID
	router := gin.New()
	router.GET("/protected", IdentityMiddleware(), func(c *gin.Context) {
		gotWorkspace, _ = WorkspaceID(c)
		gotUser, _ = UserID(c)
		c.Status(http.StatusNoContent)
	})
	return router, &gotWorkspace, &gotUser
}

func TestIdentityMiddleware_PassesValidHeaders(t *testing.T) {
	router, gotWorkspace, gotUser := identityRouter()
	workspaceID := uuid.New()
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Workspace-ID", workspaceID.String())
	req.Header.Set("X-User-ID", userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, workspaceID, *gotWorkspace)
	assert.Equal(t, userID, *gotUser)
}

func TestIdentityMiddleware_RejectsMissingOrBadIdentity(t *testing.T) {
	cases := []struct {
		name      string
		workspace string
		user      string
	}{
		{name: "no headers"},
		{name: "missing user", workspace: uuid.NewString()},
		{name: "missing workspace", user: uuid.NewString()},
		{name: "garbage workspace", workspace: "not-a-uuid", user: uuid.NewString()},
		{name: "garbage user", workspace: uuid.NewString(), user: "not-a-uuid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _, _ := identityRouter()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.workspace != "" {
				req.Header.Set("X-Workspace-ID", tc.workspace)
			}
			if tc.user != "" {
				req.Header.Set("X-User-ID", tc.user)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "unauthorized")
		})
	}
}
