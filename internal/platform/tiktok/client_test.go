package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

func testClient(serverURL string) *Client {
	c := NewClient(platform.Credentials{
		ClientID:     "client-key",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/callback",
		Scopes:       []string{"user.info.basic", "video.publish"},
	}, zap.NewNop())
	c.APIURL = serverURL
	return c
}

func TestBuildAuthorizeURL_UsesClientKeyAndCommaScopes(t *testing.T) {
	u, err := url.Parse(testClient("http://unused").BuildAuthorizeURL("state-token", ""))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-key", q.Get("client_key"))
	assert.Empty(t, q.Get("client_id"))
	assert.Equal(t, "user.info.basic,video.publish", q.Get("scope"))
	assert.Equal(t, "state-token", q.Get("state"))
}

func TestExchangeCode_BundlesOpenID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-key", r.PostForm.Get("client_key"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{
			"access_token":"act.token",
			"refresh_token":"rft.token",
			"expires_in":86400,
			"open_id":"open-123",
			"scope":"user.info.basic,video.publish"
		}`)
	}))
	defer server.Close()

	bundle, err := testClient(server.URL).ExchangeCode(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "act.token", bundle.AccessToken)
	assert.Equal(t, []string{"user.info.basic", "video.publish"}, bundle.Scopes)
	require.NotNil(t, bundle.ExpiresAt)

	var data openIDTokenData
	require.NoError(t, json.Unmarshal(bundle.TokenData, &data))
	assert.Equal(t, "open-123", data.OpenID)
}

func TestExchangeCode_ErrorInSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Authorization code expired"}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ExchangeCode(context.Background(), "stale-code")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenExchange))
	assert.Contains(t, err.Error(), "Authorization code expired")
}

func TestRefreshToken_KeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"act.fresh","open_id":"open-123","expires_in":86400}`)
	}))
	defer server.Close()

	bundle, err := testClient(server.URL).RefreshToken(context.Background(), "rft.old")
	require.NoError(t, err)
	assert.Equal(t, "act.fresh", bundle.AccessToken)
	assert.Equal(t, "rft.old", bundle.RefreshToken)
}

func TestFetchLinkedEntities_AlwaysEmpty(t *testing.T) {
	candidates, err := testClient("http://unused").FetchLinkedEntities(context.Background(), "act.token")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
