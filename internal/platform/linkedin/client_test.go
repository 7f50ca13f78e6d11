package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

func testClient(serverURL string) *Client {
	c := NewClient(platform.Credentials{ClientID: "app", ClientSecret: "secret"}, zap.NewNop())
	c.APIURL = serverURL
	c.TokenURL = serverURL + "/oauth/v2/accessToken"
	return c
}

func TestFetchLinkedEntities_ListsOrganizations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/organizationAcls":
			assert.Equal(t, "Bearer member-token", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"elements":[
				{"organization":"urn:li:organization:123"},
				{"organization":"urn:li:organization:456"},
				{"organization":"urn:li:badKind:789"}
			]}`)
		case "/v2/organizations/123":
			fmt.Fprint(w, `{"localizedName":"Acme Corp"}`)
		case "/v2/organizations/456":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	candidates, err := testClient(server.URL).FetchLinkedEntities(context.Background(), "member-token")
	require.NoError(t, err)
	require.Len(t, candidates, 2, "a non-organization URN is skipped")

	assert.Equal(t, "123", candidates[0].PlatformAccountID)
	assert.Equal(t, "Acme Corp", candidates[0].DisplayName)
	assert.Equal(t, "organization", candidates[0].Kind)

	// failed name lookup falls back to the id, the entity still lists
	assert.Equal(t, "456", candidates[1].DisplayName)
}

func TestFetchLinkedEntities_ForbiddenMeansNoOrganizations(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				fmt.Fprint(w, `{"message":"Not enough permissions","serviceErrorCode":100}`)
			}))
			defer server.Close()

			candidates, err := testClient(server.URL).FetchLinkedEntities(context.Background(), "member-token")
			require.NoError(t, err)
			assert.Empty(t, candidates)
		})
	}
}

func TestFetchLinkedEntities_ServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchLinkedEntities(context.Background(), "member-token")
	require.Error(t, err)
}

func TestAuthorURNFor(t *testing.T) {
	decode := func(t *testing.T, raw json.RawMessage) string {
		t.Helper()
		var td authorTokenData
		require.NoError(t, json.Unmarshal(raw, &td))
		return td.AuthorURN
	}

	person := models.SelectionCandidate{PlatformAccountID: "abc123", Kind: "profile"}
	assert.Equal(t, "urn:li:person:abc123", decode(t, AuthorURNFor(person)))

	org := models.SelectionCandidate{PlatformAccountID: "456", Kind: "organization"}
	assert.Equal(t, "urn:li:organization:456", decode(t, AuthorURNFor(org)))
}

func TestOrganizationID(t *testing.T) {
	assert.Equal(t, "12345", organizationID("urn:li:organization:12345"))
	assert.Equal(t, "", organizationID("urn:li:person:12345"))
	assert.Equal(t, "", organizationID("12345"))
}

func TestRefreshToken_KeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"fresh","expires_in":3600}`)
	}))
	defer server.Close()

	bundle, err := testClient(server.URL).RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", bundle.AccessToken)
	assert.Equal(t, "old-refresh", bundle.RefreshToken)
	require.NotNil(t, bundle.ExpiresAt)
}
