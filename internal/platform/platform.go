// Package platform defines the uniform contract every social platform
// integration implements: authorize-URL construction, code→token
// exchange, token refresh, identity/linked-entity lookup, and publication
// dispatch. Wire formats differ wildly between platforms; this contract
// keeps the callback orchestrator platform-agnostic at the call site.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// Credentials is the per-platform OAuth application configuration,
// injected into each client at construction.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// CleanRedirectURI strips any query string from the configured redirect
// URI; several platforms reject a redirect URI carrying extra params.
func (c Credentials) CleanRedirectURI() string {
	if i := strings.IndexByte(c.RedirectURI, '?'); i >= 0 {
		return c.RedirectURI[:i]
	}
	return c.RedirectURI
}

// TokenBundle is the normalized result of a code exchange or refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       []string
	// TokenData carries platform-specific opaque values that later calls
	// need (TikTok open_id, Pinterest board id, LinkedIn author URN).
	TokenData json.RawMessage
}

// ExpiryFromSeconds converts an expires_in value to an absolute instant.
func ExpiryFromSeconds(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(seconds) * time.Second)
	return &t
}

// Identity is a platform account's primary profile.
type Identity struct {
	PlatformAccountID string
	DisplayName       string
	Username          string
	AvatarURL         string
	Raw               json.RawMessage
}

// Client is the closed per-platform contract. Implementations live in
// the sibling packages and are registered once at startup.
type Client interface {
	Platform() models.Platform

	// RequiresManualSelection reports whether one OAuth grant can expose
	// multiple publishable sub-accounts needing a human choice before
	// reconciliation (LinkedIn organizations).
	RequiresManualSelection() bool

	// BuildAuthorizeURL returns the platform authorization URL carrying
	// the encoded state and the platform's scope list.
	BuildAuthorizeURL(state, locale string) string

	// ExchangeCode swaps an authorization code for a token bundle.
	ExchangeCode(ctx context.Context, code string) (*TokenBundle, error)

	// RefreshToken obtains a fresh bundle from a refresh token.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenBundle, error)

	// FetchIdentity loads the primary profile; auth failures here are fatal.
	FetchIdentity(ctx context.Context, accessToken string) (*Identity, error)

	// FetchLinkedEntities lists delegated/organizational accounts (pages,
	// organizations, boards, channels). 401/403/404 on this secondary
	// lookup means "no access" and yields an empty list, not an error.
	FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error)

	// Publish dispatches normalized content with the account's credentials.
	Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error)
}

// Registry is the closed platform→client mapping built at startup.
type Registry struct {
	clients map[models.Platform]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[models.Platform]Client)}
}

// Register adds a client; registering the same platform twice panics,
// that is a wiring bug.
func (r *Registry) Register(c Client) {
	if _, dup := r.clients[c.Platform()]; dup {
		panic(fmt.Sprintf("platform %s registered twice", c.Platform()))
	}
	r.clients[c.Platform()] = c
}

// Client resolves the implementation for a platform.
func (r *Registry) Client(p models.Platform) (Client, error) {
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrPlatformUnsupported, p)
	}
	return c, nil
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.clients))
	for _, p := range models.AllPlatforms {
		if _, ok := r.clients[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// JoinScopes joins scope lists with the platform's separator; most
// platforms take spaces, TikTok and a few others want commas.
func JoinScopes(scopes []string, sep string) string {
	return strings.Join(scopes, sep)
}

// AppendQuery appends key/value pairs to a base URL.
func AppendQuery(base string, params url.Values) string {
	if strings.Contains(base, "?") {
		return base + "&" + params.Encode()
	}
	return base + "?" + params.Encode()
}
