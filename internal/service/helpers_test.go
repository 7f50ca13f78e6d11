package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

// stubCache records invalidations instead of touching Redis.
type stubCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *stubCache) Invalidate(_ context.Context, brandID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, brandID)
}

func (c *stubCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}

// stubResolver resolves media ids through a test-supplied function.
type stubResolver struct {
	fn func(ctx context.Context, item models.MediaItem) (models.MediaItem, error)
}

func (r *stubResolver) Resolve(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	if r.fn == nil {
		item.URL = "https://cdn.example.com/" + item.MediaID
		return item, nil
	}
	return r.fn(ctx, item)
}

// fakeClient is a configurable platform client for orchestration tests.
type fakeClient struct {
	platform        models.Platform
	manualSelection bool

	authorizeURL  string
	exchangeFn    func(ctx context.Context, code string) (*platform.TokenBundle, error)
	refreshFn     func(ctx context.Context, refreshToken string) (*platform.TokenBundle, error)
	identityFn    func(ctx context.Context, accessToken string) (*platform.Identity, error)
	entitiesFn    func(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error)
	publishFn     func(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error)
	publishedWith []models.PublicationPayload
}

func (f *fakeClient) Platform() models.Platform     { return f.platform }
func (f *fakeClient) RequiresManualSelection() bool { return f.manualSelection }
func (f *fakeClient) BuildAuthorizeURL(state, locale string) string {
	if f.authorizeURL != "" {
		return f.authorizeURL + "?state=" + state
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (f *fakeClient) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	if f.exchangeFn == nil {
		return &platform.TokenBundle{AccessToken: "access-" + code}, nil
	}
	return f.exchangeFn(ctx, code)
}

func (f *fakeClient) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenBundle, error) {
	if f.refreshFn == nil {
		return &platform.TokenBundle{AccessToken: "refreshed"}, nil
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeClient) FetchIdentity(ctx context.Context, accessToken string) (*platform.Identity, error) {
	if f.identityFn == nil {
		return &platform.Identity{PlatformAccountID: "acct-1", DisplayName: "Account One"}, nil
	}
	return f.identityFn(ctx, accessToken)
}

func (f *fakeClient) FetchLinkedEntities(ctx context.Context, accessToken string) ([]models.SelectionCandidate, error) {
	if f.entitiesFn == nil {
		return nil, nil
	}
	return f.entitiesFn(ctx, accessToken)
}

func (f *fakeClient) Publish(ctx context.Context, account *models.ConnectedAccount, payload models.PublicationPayload) (*models.PublishResult, error) {
	f.publishedWith = append(f.publishedWith, payload)
	if f.publishFn == nil {
		return &models.PublishResult{PostID: "post-1", Permalink: "https://provider.example.com/post-1"}, nil
	}
	return f.publishFn(ctx, account, payload)
}

var _ platform.Client = (*fakeClient)(nil)
