package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	defaultGraphURL = "https://graph.facebook.com/v19.0"
	defaultAuthURL  = "https://www.facebook.com/v19.0/dialog/oauth"
)

// Client implements the Facebook Graph integration. Connected accounts
// are user profiles; the first managed Page and its Page token are kept
// in token data and used as the publishing target.
type Client struct {
	creds      platform.Credentials
	httpClient *http.Client
	logger     *zap.Logger

	// Overridable in tests.
	GraphURL string
	AuthURL  string
}

func NewClient(creds platform.Credentials, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("facebook"),
		GraphURL:   defaultGraphURL,
		AuthURL:    defaultAuthURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformFacebook }

func (c *Client) RequiresManualSelection() bool { return false }

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		RedirectURL:  c.creds.CleanRedirectURI(),
		Scopes:       c.creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.GraphURL + "/oauth/access_token",
		},
	}
}

func (c *Client) BuildAuthorizeURL(state, locale string) string {
	u := c.oauthConfig().AuthCodeURL(state)
	if locale != "" {
		u = platform.AppendQuery(u, url.Values{"locale": {locale}})
	}
	return u
}

type pageTokenData struct {
	PageID          string `json:"page_id"`
	PageName        string `json:"page_name"`
	PageAccessToken string `json:"page_access_token"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook code exchange: %v", domain.ErrTokenExchange, err)
	}

	longLived, expiresAt, err := c.extendToken(ctx, tok.AccessToken)
	if err != nil {
		// A short-lived token is still usable; keep it and log.
		c.logger.Warn("Long-lived token exchange failed, keeping short-lived token", zap.Error(err))
		longLived = tok.AccessToken
		if !tok.Expiry.IsZero() {
			t := tok.Expiry
			expiresAt = &t
		}
	}

	bundle := &platform.TokenBundle{
		AccessToken: longLived,
		ExpiresAt:   expiresAt,
		Scopes:      c.creds.Scopes,
	}

	// Resolve the publishing Page up front so dispatch never needs a
	// second discovery round trip.
	if page := c.firstManagedPage(ctx, longLived); page != nil {
		raw, _ := json.Marshal(page)
		bundle.TokenData = raw
	}
	return bundle, nil
}

// extendToken swaps a short-lived user token for a long-lived one.
func (c *Client) extendToken(ctx context.Context, accessToken string) (string, *time.Time, error) {
	u := fmt.Sprintf("%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		c.GraphURL, url.QueryEscape(c.creds.ClientID), url.QueryEscape(c.creds.ClientSecret), url.QueryEscape(accessToken))

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "facebook", "extend_token"); err != nil {
		return "", nil, err
	}
	return out.AccessToken, platform.ExpiryFromSeconds(out.ExpiresIn), nil
}

func (c *Client) firstManagedPage(ctx context.Context, accessToken string) *pageTokenData {
	pages, err := c.fetchPages(ctx, accessToken)
	if err != nil || len(pages) == 0 {
		return nil
	}
	return &pages[0]
}

// RefreshToken re-runs the long-lived exchange on the stored token.
// Facebook has no refresh grant; the long-lived token itself is the
// refresh credential.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	token, expiresAt, err := c.extendToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook token refresh: %v", domain.ErrTokenExchange, err)
	}
	return &platform.TokenBundle{AccessToken: token, ExpiresAt: expiresAt, Scopes: c.creds.Scopes}, nil
}

func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	u := fmt.Sprintf("%s/me?fields=id,name,picture.type(large)&access_token=%s", c.GraphURL, url.QueryEscape(accessToken))

	var out struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "facebook", "fetch_identity"); err != nil {
		return nil, fmt.Errorf("%w: facebook profile: %v", domain.ErrIdentityFetch, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: facebook profile response missing id", domain.ErrIdentityFetch)
	}

	raw, _ := json.Marshal(out)
	return &platform.Identity{
		PlatformAccountID: out.ID,
		DisplayName:       out.Name,
		AvatarURL:         out.Picture.Data.URL,
		Raw:               raw,
	}, nil
}

func (c *Client) fetchPages(ctx context.Context, accessToken string) ([]pageTokenData, error) {
	u := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token&access_token=%s", c.GraphURL, url.QueryEscape(accessToken))

	var out struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "facebook", "fetch_pages"); err != nil {
		return nil, err
	}
	pages := make([]pageTokenData, 0, len(out.Data))
	for _, p := range out.Data {
		pages = append(pages, pageTokenData{PageID: p.ID, PageName: p.Name, PageAccessToken: p.AccessToken})
	}
	return pages, nil
}

// FetchLinkedEntities lists the Pages the user manages. Authorization
// failures on this secondary resource degrade to an empty list.
func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	pages, err := c.fetchPages(ctx, accessToken)
	if err != nil {
		if platform.IsAuthorizationError(err) {
			c.logger.Warn("Page listing not authorized, continuing without pages", zap.Error(err))
			return []models.SelectionCandidate{}, nil
		}
		return nil, err
	}
	candidates := make([]models.SelectionCandidate, 0, len(pages))
	for _, p := range pages {
		candidates = append(candidates, models.SelectionCandidate{
			PlatformAccountID: p.PageID,
			DisplayName:       p.PageName,
			Kind:              "page",
		})
	}
	return candidates, nil
}

func (c *Client) publishTarget(account *models.ConnectedAccount) (id, token string, err error) {
	if len(account.TokenData) > 0 {
		var page pageTokenData
		if jsonErr := json.Unmarshal(account.TokenData, &page); jsonErr == nil && page.PageID != "" {
			return page.PageID, page.PageAccessToken, nil
		}
	}
	// No managed Page: publish to the user feed with the user token.
	return account.PlatformAccountID, account.AccessToken, nil
}
