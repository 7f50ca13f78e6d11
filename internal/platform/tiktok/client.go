package tiktok

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
	defaultAPIURL  = "https://open.tiktokapis.com"
	defaultAuthURL = "https://www.tiktok.com/v2/auth/authorize/"
)

// Client integrates TikTok through the open API. TikTok names the app
// credential client_key and joins scopes with commas instead of spaces.
type Client struct {
	creds      platform.Credentials
	httpClient *http.Client
	logger     *zap.Logger

	APIURL  string
	AuthURL string
}

func NewClient(creds platform.Credentials, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("tiktok"),
		APIURL:     defaultAPIURL,
		AuthURL:    defaultAuthURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformTikTok }

func (c *Client) RequiresManualSelection() bool { return false }

func (c *Client) BuildAuthorizeURL(state, locale string) string {
	q := url.Values{
		"client_key":    {c.creds.ClientID},
		"response_type": {"code"},
		"scope":         {platform.JoinScopes(c.creds.Scopes, ",")},
		"redirect_uri":  {c.creds.CleanRedirectURI()},
		"state":         {state},
	}
	return c.AuthURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type openIDTokenData struct {
	OpenID string `json:"open_id"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{
		"client_key":    {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {c.creds.CleanRedirectURI()},
	}
	out, err := c.postToken(ctx, form, "exchange_code")
	if err != nil {
		return nil, fmt.Errorf("%w: tiktok code exchange: %v", domain.ErrTokenExchange, err)
	}
	return c.bundleFromToken(out), nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	form := url.Values{
		"client_key":    {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	out, err := c.postToken(ctx, form, "refresh_token")
	if err != nil {
		return nil, fmt.Errorf("%w: tiktok token refresh: %v", domain.ErrTokenExchange, err)
	}
	bundle := c.bundleFromToken(out)
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

// postToken calls the token endpoint. TikTok reports failures in a 200
// body carrying an error field, so that is checked alongside the status.
func (c *Client) postToken(ctx context.Context, form url.Values, operation string) (*tokenResponse, error) {
	var out tokenResponse
	if err := platform.PostForm(ctx, c.httpClient, c.APIURL+"/v2/oauth/token/", form, nil, &out, "tiktok", operation); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tiktok token endpoint error %s: %s", out.Error, out.ErrorDescription)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("tiktok token response missing access_token")
	}
	return &out, nil
}

func (c *Client) bundleFromToken(out *tokenResponse) *platform.TokenBundle {
	scopes := c.creds.Scopes
	if out.Scope != "" {
		scopes = splitCommaScopes(out.Scope)
	}
	bundle := &platform.TokenBundle{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    platform.ExpiryFromSeconds(out.ExpiresIn),
		Scopes:       scopes,
	}
	if out.OpenID != "" {
		raw, _ := json.Marshal(openIDTokenData{OpenID: out.OpenID})
		bundle.TokenData = raw
	}
	return bundle
}

func splitCommaScopes(s string) []string {
	var scopes []string
	for _, sc := range strings.Split(s, ",") {
		if sc = strings.TrimSpace(sc); sc != "" {
			scopes = append(scopes, sc)
		}
	}
	return scopes
}

func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	u := c.APIURL + "/v2/user/info/?fields=open_id,display_name,avatar_url,username"

	var out struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				DisplayName string `json:"display_name"`
				AvatarURL   string `json:"avatar_url"`
				Username    string `json:"username"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, accessToken, nil, &out, "tiktok", "fetch_identity"); err != nil {
		return nil, fmt.Errorf("%w: tiktok profile: %v", domain.ErrIdentityFetch, err)
	}
	user := out.Data.User
	if user.OpenID == "" {
		return nil, fmt.Errorf("%w: tiktok user info response missing open_id", domain.ErrIdentityFetch)
	}
	raw, _ := json.Marshal(user)
	return &platform.Identity{
		PlatformAccountID: user.OpenID,
		DisplayName:       user.DisplayName,
		Username:          user.Username,
		AvatarURL:         user.AvatarURL,
		Raw:               raw,
	}, nil
}

// FetchLinkedEntities returns an empty list: a TikTok grant maps to
// exactly one creator account.
func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	return []models.SelectionCandidate{}, nil
}
