package pinterest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

const (
	defaultAPIURL  = "https://api.pinterest.com"
	defaultAuthURL = "https://www.pinterest.com/oauth/"
)

// Client integrates Pinterest. The token endpoint authenticates with
// HTTP basic credentials rather than form fields, and pins always land
// on a board, so the default board is resolved at connection time.
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
		logger:     logger.Named("pinterest"),
		APIURL:     defaultAPIURL,
		AuthURL:    defaultAuthURL,
	}
}

func (c *Client) Platform() models.Platform { return models.PlatformPinterest }

func (c *Client) RequiresManualSelection() bool { return false }

func (c *Client) BuildAuthorizeURL(state, locale string) string {
	q := url.Values{
		"client_id":     {c.creds.ClientID},
		"redirect_uri":  {c.creds.CleanRedirectURI()},
		"response_type": {"code"},
		"scope":         {platform.JoinScopes(c.creds.Scopes, ",")},
		"state":         {state},
	}
	return c.AuthURL + "?" + q.Encode()
}

func (c *Client) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.creds.ClientID+":"+c.creds.ClientSecret))
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

type boardTokenData struct {
	DefaultBoardID string `json:"default_board_id"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.creds.CleanRedirectURI()},
	}
	headers := map[string]string{"Authorization": c.basicAuth()}
	var out tokenResponse
	if err := platform.PostForm(ctx, c.httpClient, c.APIURL+"/v5/oauth/token", form, headers, &out, "pinterest", "exchange_code"); err != nil {
		return nil, fmt.Errorf("%w: pinterest code exchange: %v", domain.ErrTokenExchange, err)
	}

	bundle := &platform.TokenBundle{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    platform.ExpiryFromSeconds(out.ExpiresIn),
		Scopes:       c.creds.Scopes,
	}
	if boards, err := c.fetchBoards(ctx, out.AccessToken); err == nil && len(boards) > 0 {
		raw, _ := json.Marshal(boardTokenData{DefaultBoardID: boards[0].ID})
		bundle.TokenData = raw
	}
	return bundle, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	headers := map[string]string{"Authorization": c.basicAuth()}
	var out tokenResponse
	if err := platform.PostForm(ctx, c.httpClient, c.APIURL+"/v5/oauth/token", form, headers, &out, "pinterest", "refresh_token"); err != nil {
		return nil, fmt.Errorf("%w: pinterest token refresh: %v", domain.ErrTokenExchange, err)
	}
	bundle := &platform.TokenBundle{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    platform.ExpiryFromSeconds(out.ExpiresIn),
		Scopes:       c.creds.Scopes,
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = refreshToken
	}
	return bundle, nil
}

func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	var out struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		BusinessName string `json:"business_name"`
		ProfileImage string `json:"profile_image"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, c.APIURL+"/v5/user_account", accessToken, nil, &out, "pinterest", "fetch_identity"); err != nil {
		return nil, fmt.Errorf("%w: pinterest profile: %v", domain.ErrIdentityFetch, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: pinterest user_account response missing id", domain.ErrIdentityFetch)
	}
	display := out.BusinessName
	if display == "" {
		display = out.Username
	}
	raw, _ := json.Marshal(out)
	return &platform.Identity{
		PlatformAccountID: out.ID,
		DisplayName:       display,
		Username:          out.Username,
		AvatarURL:         out.ProfileImage,
		Raw:               raw,
	}, nil
}

type board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) fetchBoards(ctx context.Context, accessToken string) ([]board, error) {
	var out struct {
		Items []board `json:"items"`
	}
	if err := platform.DoJSON(ctx, c.httpClient, http.MethodGet, c.APIURL+"/v5/boards?page_size=100", accessToken, nil, &out, "pinterest", "fetch_boards"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// FetchLinkedEntities lists the user's boards. Authorization failures
// on this secondary resource degrade to an empty list.
func (c *Client) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	boards, err := c.fetchBoards(ctx, accessToken)
	if err != nil {
		if platform.IsAuthorizationError(err) {
			c.logger.Warn("Board listing not authorized, continuing without boards", zap.Error(err))
			return []models.SelectionCandidate{}, nil
		}
		return nil, err
	}
	candidates := make([]models.SelectionCandidate, 0, len(boards))
	for _, b := range boards {
		candidates = append(candidates, models.SelectionCandidate{
			PlatformAccountID: b.ID,
			DisplayName:       b.Name,
			Kind:              "board",
		})
	}
	return candidates, nil
}

func (c *Client) boardID(account *models.ConnectedAccount) (string, error) {
	if len(account.TokenData) > 0 {
		var td boardTokenData
		if err := json.Unmarshal(account.TokenData, &td); err == nil && td.DefaultBoardID != "" {
			return td.DefaultBoardID, nil
		}
	}
	return "", fmt.Errorf("pinterest account %s has no board to pin to", account.PlatformAccountID)
}
