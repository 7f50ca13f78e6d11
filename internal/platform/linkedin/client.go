package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	defaultAPIURL   = "https://api.linkedin.com"
	defaultAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

	restVersion = "202405"
)

// Client integrates LinkedIn member and organization posting. One grant
// can expose several organizations, so connection always goes through a
// pending selection before reconciliation.
type Client struct {
	creds      platform.Credentials
	httpClient *http.Client
	logger     *zap.Logger

	APIURL   string
	AuthURL  string
	TokenURL string
}

func NewClient(creds platform.Credentials, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("linkedin"),
		APIURL:     defaultAPIURL,
		AuthURL:    defaultAuthURL,
		TokenURL:   defaultTokenURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformLinkedIn }

func (c *Client) RequiresManualSelection() bool { return true }

func (c *Client) BuildAuthorizeURL(state, locale string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {c.creds.ClientID},
		"redirect_uri":  {c.creds.CleanRedirectURI()},
		"scope":         {platform.JoinScopes(c.creds.Scopes, " ")},
		"state":         {state},
	}
	return c.AuthURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.creds.CleanRedirectURI()},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}
	var out tokenResponse
	if err := platform.PostForm(ctx, c.httpClient, c.TokenURL, form, nil, &out, "linkedin", "exchange_code"); err != nil {
		return nil, fmt.Errorf("%w: linkedin code exchange: %v", domain.ErrTokenExchange, err)
	}
	return c.bundleFromToken(out), nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}
	var out tokenResponse
	if err := platform.PostForm(ctx, c.httpClient, c.TokenURL, form, nil, &out, "linkedin", "refresh_token"); err != nil {
		return nil, fmt.Errorf("%w: linkedin token refresh: %v", domain.ErrTokenExchange, err)
	}
	bundle := c.bundleFromToken(out)
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

func (c *Client) bundleFromToken(out tokenResponse) *platform.TokenBundle {
	scopes := c.creds.Scopes
	if out.Scope != "" {
		scopes = strings.Split(out.Scope, ",")
	}
	return &platform.TokenBundle{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    platform.ExpiryFromSeconds(out.ExpiresIn),
		Scopes:       scopes,
	}
}

// FetchIdentity loads the member profile from the OpenID userinfo
// endpoint. The sub claim is the member identifier used in person URNs.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	var out struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, c.APIURL+"/v2/userinfo", accessToken, nil, &out, "linkedin", "fetch_identity"); err != nil {
		return nil, fmt.Errorf("%w: linkedin profile: %v", domain.ErrIdentityFetch, err)
	}
	if out.Sub == "" {
		return nil, fmt.Errorf("%w: linkedin userinfo response missing sub", domain.ErrIdentityFetch)
	}
	raw, _ := json.Marshal(out)
	return &platform.Identity{
		PlatformAccountID: out.Sub,
		DisplayName:       out.Name,
		AvatarURL:         out.Picture,
		Raw:               raw,
	}, nil
}

// FetchLinkedEntities lists the organizations the member administers.
// Missing organization permissions degrade to an empty list so personal
// profiles still connect.
func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	u := c.APIURL + "/v2/organizationAcls?q=roleAssignee&role=ADMINISTRATOR&state=APPROVED&count=50"

	var out struct {
		Elements []struct {
			Organization string `json:"organization"`
		} `json:"elements"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, accessToken, nil, &out, "linkedin", "fetch_organizations"); err != nil {
		if platform.IsAuthorizationError(err) {
			c.logger.Warn("Organization listing not authorized, continuing without organizations", zap.Error(err))
			return []models.SelectionCandidate{}, nil
		}
		return nil, err
	}

	candidates := make([]models.SelectionCandidate, 0, len(out.Elements))
	for _, el := range out.Elements {
		orgID := organizationID(el.Organization)
		if orgID == "" {
			continue
		}
		name := c.organizationName(ctx, accessToken, orgID)
		candidates = append(candidates, models.SelectionCandidate{
			PlatformAccountID: orgID,
			DisplayName:       name,
			Kind:              "organization",
		})
	}
	return candidates, nil
}

// organizationID extracts the numeric identifier from an organization
// URN such as urn:li:organization:12345.
func organizationID(urn string) string {
	const prefix = "urn:li:organization:"
	if !strings.HasPrefix(urn, prefix) {
		return ""
	}
	return strings.TrimPrefix(urn, prefix)
}

func (c *Client) organizationName(ctx context.Context, accessToken, orgID string) string {
	var out struct {
		LocalizedName string `json:"localizedName"`
	}
	u := c.APIURL + "/v2/organizations/" + url.PathEscape(orgID)
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, accessToken, nil, &out, "linkedin", "fetch_organization"); err != nil {
		c.logger.Warn("Organization name lookup failed", zap.String("organization_id", orgID), zap.Error(err))
		return orgID
	}
	if out.LocalizedName == "" {
		return orgID
	}
	return out.LocalizedName
}

type authorTokenData struct {
	AuthorURN string `json:"author_urn"`
}

// AuthorURNFor builds the token data recorded at selection time. A
// member sub becomes a person URN, an organization id an organization
// URN.
func AuthorURNFor(candidate models.SelectionCandidate) json.RawMessage {
	urn := "urn:li:person:" + candidate.PlatformAccountID
	if candidate.Kind == "organization" {
		urn = "urn:li:organization:" + candidate.PlatformAccountID
	}
	raw, _ := json.Marshal(authorTokenData{AuthorURN: urn})
	return raw
}

func (c *Client) authorURN(account *models.ConnectedAccount) string {
	if len(account.TokenData) > 0 {
		var td authorTokenData
		if err := json.Unmarshal(account.TokenData, &td); err == nil && td.AuthorURN != "" {
			return td.AuthorURN
		}
	}
	return "urn:li:person:" + account.PlatformAccountID
}

func (c *Client) restHeaders(accessToken string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"LinkedIn-Version":          restVersion,
		"X-Restli-Protocol-Version": "2.0.0",
	}
}
