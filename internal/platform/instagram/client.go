package instagram

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

// Client integrates Instagram professional accounts through the
// Facebook Graph. The connected account is the Instagram business user
// discovered behind one of the grant's Pages.
type Client struct {
	creds      platform.Credentials
	httpClient *http.Client
	logger     *zap.Logger

	GraphURL string
	AuthURL  string
}

func NewClient(creds platform.Credentials, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("instagram"),
		GraphURL:   defaultGraphURL,
		AuthURL:    defaultAuthURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformInstagram }

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

type igTokenData struct {
	IGUserID  string `json:"ig_user_id"`
	PageID    string `json:"page_id"`
	PageToken string `json:"page_access_token"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: instagram code exchange: %v", domain.ErrTokenExchange, err)
	}

	accessToken := tok.AccessToken
	var expiresAt *time.Time
	if extended, ext, extErr := c.extendToken(ctx, accessToken); extErr == nil {
		accessToken = extended
		expiresAt = ext
	} else {
		c.logger.Warn("Long-lived token exchange failed, keeping short-lived token", zap.Error(extErr))
		if !tok.Expiry.IsZero() {
			t := tok.Expiry
			expiresAt = &t
		}
	}

	bundle := &platform.TokenBundle{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Scopes:      c.creds.Scopes,
	}
	if td, err := c.discoverBusinessAccount(ctx, accessToken); err == nil && td != nil {
		raw, _ := json.Marshal(td)
		bundle.TokenData = raw
	}
	return bundle, nil
}

func (c *Client) extendToken(ctx context.Context, accessToken string) (string, *time.Time, error) {
	u := fmt.Sprintf("%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		c.GraphURL, url.QueryEscape(c.creds.ClientID), url.QueryEscape(c.creds.ClientSecret), url.QueryEscape(accessToken))

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "instagram", "extend_token"); err != nil {
		return "", nil, err
	}
	return out.AccessToken, platform.ExpiryFromSeconds(out.ExpiresIn), nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	token, expiresAt, err := c.extendToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: instagram token refresh: %v", domain.ErrTokenExchange, err)
	}
	return &platform.TokenBundle{AccessToken: token, ExpiresAt: expiresAt, Scopes: c.creds.Scopes}, nil
}

type igAccount struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

type pageWithIG struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	AccessToken string     `json:"access_token"`
	IG          *igAccount `json:"instagram_business_account"`
}

func (c *Client) fetchPagesWithIG(ctx context.Context, accessToken string) ([]pageWithIG, error) {
	u := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token,instagram_business_account{id,username,name,profile_picture_url}&access_token=%s",
		c.GraphURL, url.QueryEscape(accessToken))
	var out struct {
		Data []pageWithIG `json:"data"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, "", nil, &out, "instagram", "fetch_pages"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) discoverBusinessAccount(ctx context.Context, accessToken string) (*igTokenData, error) {
	pages, err := c.fetchPagesWithIG(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if p.IG != nil {
			return &igTokenData{IGUserID: p.IG.ID, PageID: p.ID, PageToken: p.AccessToken}, nil
		}
	}
	return nil, nil
}

// FetchIdentity resolves the Instagram business account behind the
// grant's Pages. No linked business account is a fatal identity failure
// since nothing can be published without one.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	pages, err := c.fetchPagesWithIG(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: instagram page discovery: %v", domain.ErrIdentityFetch, err)
	}
	for _, p := range pages {
		if p.IG == nil {
			continue
		}
		raw, _ := json.Marshal(p.IG)
		display := p.IG.Name
		if display == "" {
			display = p.IG.Username
		}
		return &platform.Identity{
			PlatformAccountID: p.IG.ID,
			DisplayName:       display,
			Username:          p.IG.Username,
			AvatarURL:         p.IG.ProfilePictureURL,
			Raw:               raw,
		}, nil
	}
	return nil, fmt.Errorf("%w: no instagram business account linked to any managed page", domain.ErrIdentityFetch)
}

func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	pages, err := c.fetchPagesWithIG(ctx, accessToken)
	if err != nil {
		if platform.IsAuthorizationError(err) {
			c.logger.Warn("Page listing not authorized, continuing without candidates", zap.Error(err))
			return []models.SelectionCandidate{}, nil
		}
		return nil, err
	}
	var candidates []models.SelectionCandidate
	for _, p := range pages {
		if p.IG == nil {
			continue
		}
		candidates = append(candidates, models.SelectionCandidate{
			PlatformAccountID: p.IG.ID,
			DisplayName:       p.IG.Name,
			Username:          p.IG.Username,
			AvatarURL:         p.IG.ProfilePictureURL,
			Kind:              "business_account",
		})
	}
	if candidates == nil {
		candidates = []models.SelectionCandidate{}
	}
	return candidates, nil
}

func (c *Client) igUserID(account *models.ConnectedAccount) string {
	if len(account.TokenData) > 0 {
		var td igTokenData
		if err := json.Unmarshal(account.TokenData, &td); err == nil && td.IGUserID != "" {
			return td.IGUserID
		}
	}
	return account.PlatformAccountID
}
