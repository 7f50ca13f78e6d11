package youtube

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
	defaultAPIURL    = "https://www.googleapis.com/youtube/v3"
	defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3"
	defaultAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
)

// Client integrates YouTube through the Data API v3 with Google OAuth.
// The connected account is the user's channel.
type Client struct {
	creds      platform.Credentials
	httpClient *http.Client
	logger     *zap.Logger

	APIURL    string
	UploadURL string
	AuthURL   string
	TokenURL  string
}

func NewClient(creds platform.Credentials, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger.Named("youtube"),
		APIURL:     defaultAPIURL,
		UploadURL:  defaultUploadURL,
		AuthURL:    defaultAuthURL,
		TokenURL:   defaultTokenURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformYouTube }

func (c *Client) RequiresManualSelection() bool { return false }

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		RedirectURL:  c.creds.CleanRedirectURI(),
		Scopes:       c.creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
	}
}

// BuildAuthorizeURL requests offline access so Google issues a refresh
// token, and forces the consent screen since Google omits the refresh
// token on silent re-approval.
func (c *Client) BuildAuthorizeURL(state, locale string) string {
	u := c.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	if locale != "" {
		u = platform.AppendQuery(u, url.Values{"hl": {locale}})
	}
	return u
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube code exchange: %v", domain.ErrTokenExchange, err)
	}
	bundle := &platform.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       c.creds.Scopes,
	}
	if !tok.Expiry.IsZero() {
		t := tok.Expiry
		bundle.ExpiresAt = &t
	}
	return bundle, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := platform.PostForm(ctx, c.httpClient, c.TokenURL, form, nil, &out, "youtube", "refresh_token"); err != nil {
		return nil, fmt.Errorf("%w: youtube token refresh: %v", domain.ErrTokenExchange, err)
	}
	return &platform.TokenBundle{
		AccessToken:  out.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    platform.ExpiryFromSeconds(out.ExpiresIn),
		Scopes:       c.creds.Scopes,
	}, nil
}

type channel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		CustomURL  string `json:"customUrl"`
		Thumbnails struct {
			Default struct {
				URL string `json:"url"`
			} `json:"default"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

func (c *Client) fetchChannels(ctx context.Context, accessToken string) ([]channel, error) {
	u := c.APIURL + "/channels?part=snippet&mine=true"
	var out struct {
		Items []channel `json:"items"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, u, accessToken, nil, &out, "youtube", "fetch_channels"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// FetchIdentity resolves the user's channel. A Google account without a
// channel cannot hold uploads, so none is a fatal identity failure.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	channels, err := c.fetchChannels(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube channel lookup: %v", domain.ErrIdentityFetch, err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: google account has no youtube channel", domain.ErrIdentityFetch)
	}
	ch := channels[0]
	raw, _ := json.Marshal(ch)
	return &platform.Identity{
		PlatformAccountID: ch.ID,
		DisplayName:       ch.Snippet.Title,
		Username:          ch.Snippet.CustomURL,
		AvatarURL:         ch.Snippet.Thumbnails.Default.URL,
		Raw:               raw,
	}, nil
}

func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	channels, err := c.fetchChannels(ctx, accessToken)
	if err != nil {
		if platform.IsAuthorizationError(err) {
			c.logger.Warn("Channel listing not authorized, continuing without channels", zap.Error(err))
			return []models.SelectionCandidate{}, nil
		}
		return nil, err
	}
	candidates := make([]models.SelectionCandidate, 0, len(channels))
	for _, ch := range channels {
		candidates = append(candidates, models.SelectionCandidate{
			PlatformAccountID: ch.ID,
			DisplayName:       ch.Snippet.Title,
			Username:          ch.Snippet.CustomURL,
			AvatarURL:         ch.Snippet.Thumbnails.Default.URL,
			Kind:              "channel",
		})
	}
	return candidates, nil
}
