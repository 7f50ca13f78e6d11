package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	repoMocks "github.com/publora/platform/backend/services/social-service/internal/domain/repository/mocks"
	eventMocks "github.com/publora/platform/backend/services/social-service/internal/events/mocks"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

type accountFixture struct {
	accounts *repoMocks.MockConnectedAccountRepository
	brands   *repoMocks.MockBrandRepository
	cache    *stubCache
	emitter  *eventMocks.MockActivityEmitter
	service  *AccountService

	brandID     uuid.UUID
	workspaceID uuid.UUID
	account     *models.ConnectedAccount
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	expires := time.Now().Add(time.Hour)
	f := &accountFixture{
		accounts:    new(repoMocks.MockConnectedAccountRepository),
		brands:      new(repoMocks.MockBrandRepository),
		cache:       &stubCache{},
		emitter:     new(eventMocks.MockActivityEmitter),
		brandID:     uuid.New(),
		workspaceID: uuid.New(),
	}
	f.account = &models.ConnectedAccount{
		ID:                uuid.New(),
		BrandID:           f.brandID,
		Platform:          models.PlatformFacebook,
		PlatformAccountID: "fb-123",
		Status:            models.AccountStatusActive,
		CanPublish:        true,
		AccessToken:       "access-token",
		RefreshToken:      "refresh-token",
		TokenExpiresAt:    &expires,
		Scopes:            []string{"pages_manage_posts"},
	}

	f.brands.On("FindByID", mock.Anything, f.brandID).
		Return(&models.Brand{ID: f.brandID, WorkspaceID: f.workspaceID, Name: "Acme"}, nil).Maybe()
	f.emitter.On("Emit", mock.Anything, mock.Anything).Return(nil).Maybe()

	registry := platform.NewRegistry()
	registry.Register(&fakeClient{platform: models.PlatformFacebook})

	f.service = NewAccountService(f.accounts, f.brands, registry, f.cache, f.emitter, zap.NewNop())
	return f
}

func TestAccountService_CrossWorkspaceOperationsDenied(t *testing.T) {
	f := newAccountFixture(t)
	foreignWorkspace := uuid.New()

	_, err := f.service.List(context.Background(), f.brandID, foreignWorkspace)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	_, err = f.service.Get(context.Background(), f.brandID, foreignWorkspace, f.account.ID)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	err = f.service.Disconnect(context.Background(), f.brandID, foreignWorkspace, f.account.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	err = f.service.Delete(context.Background(), f.brandID, foreignWorkspace, f.account.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	_, err = f.service.RefreshAccountToken(context.Background(), f.brandID, foreignWorkspace, f.account.ID)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	// storage is never read or mutated for a foreign workspace
	f.accounts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Zero(t, f.cache.count())
}

func TestAccountService_DisconnectClearsCredentials(t *testing.T) {
	f := newAccountFixture(t)
	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)

	var saved *models.ConnectedAccount
	f.accounts.On("Upsert", mock.Anything, mock.Anything).
		Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount {
			saved = acc
			return acc
		}, nil)

	err := f.service.Disconnect(context.Background(), f.brandID, f.workspaceID, f.account.ID, nil)
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, models.AccountStatusDisconnected, saved.Status)
	assert.Empty(t, saved.AccessToken)
	assert.Empty(t, saved.RefreshToken)
	assert.Nil(t, saved.TokenExpiresAt)
	assert.Nil(t, saved.Scopes)
	assert.Nil(t, saved.TokenData)

	assert.Equal(t, 1, f.cache.count())
	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityAccountDisconnected
	}))
}

func TestAccountService_GetScopedToBrand(t *testing.T) {
	f := newAccountFixture(t)
	foreign := *f.account
	foreign.BrandID = uuid.New()
	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(&foreign, nil)

	_, err := f.service.Get(context.Background(), f.brandID, f.workspaceID, f.account.ID)
	assert.True(t, errors.Is(err, domain.ErrAccountNotFound))
}
