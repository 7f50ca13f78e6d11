package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	repoMocks "github.com/publora/platform/backend/services/social-service/internal/domain/repository/mocks"
	eventMocks "github.com/publora/platform/backend/services/social-service/internal/events/mocks"
)

type reconcileFixture struct {
	accounts   *repoMocks.MockConnectedAccountRepository
	brands     *repoMocks.MockBrandRepository
	workspaces *repoMocks.MockWorkspaceRepository
	cache      *stubCache
	emitter    *eventMocks.MockActivityEmitter
	service    *ReconciliationService

	brandID     uuid.UUID
	workspaceID uuid.UUID
}

func newReconcileFixture(t *testing.T, plan models.Plan) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		accounts:    new(repoMocks.MockConnectedAccountRepository),
		brands:      new(repoMocks.MockBrandRepository),
		workspaces:  new(repoMocks.MockWorkspaceRepository),
		cache:       &stubCache{},
		emitter:     new(eventMocks.MockActivityEmitter),
		brandID:     uuid.New(),
		workspaceID: uuid.New(),
	}
	f.brands.On("FindByID", mock.Anything, f.brandID).
		Return(&models.Brand{ID: f.brandID, WorkspaceID: f.workspaceID, Name: "Acme"}, nil).Maybe()
	f.workspaces.On("FindByID", mock.Anything, f.workspaceID).
		Return(&models.Workspace{ID: f.workspaceID, Plan: plan}, nil).Maybe()
	f.emitter.On("Emit", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.service = NewReconciliationService(
		f.accounts, f.brands, f.workspaces, f.cache, f.emitter, zap.NewNop())
	return f
}

func validInput(f *reconcileFixture) models.ReconcileInput {
	return models.ReconcileInput{
		BrandID:           f.brandID,
		Platform:          models.PlatformFacebook,
		PlatformAccountID: "fb-123",
		DisplayName:       "Acme Page",
		AccessToken:       "token",
	}
}

func TestReconcile_CreatesNewAccount(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(nil, domain.ErrAccountNotFound)
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, input.Platform).Return(0, nil)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.ID != uuid.Nil &&
			acc.Status == models.AccountStatusActive &&
			acc.CanPublish &&
			acc.LastSyncedAt != nil
	})).Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	saved, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	require.NoError(t, err)
	assert.Equal(t, "fb-123", saved.PlatformAccountID)
	assert.Equal(t, 1, f.cache.count())

	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityAccountConnected && e.ActorType == models.ActorTypeSystem
	}))
}

func TestReconcile_UpdateKeepsIDAndBypassesLimit(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)
	existingID := uuid.New()

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(&models.ConnectedAccount{ID: existingID, BrandID: f.brandID, Platform: input.Platform, PlatformAccountID: input.PlatformAccountID}, nil)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.ID == existingID
	})).Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	actorID := uuid.New()
	saved, err := f.service.Reconcile(context.Background(), input, f.workspaceID, &actorID)
	require.NoError(t, err)
	assert.Equal(t, existingID, saved.ID)

	// existing triple: the plan is never consulted
	f.workspaces.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "CountByBrandPlatform", mock.Anything, mock.Anything, mock.Anything)

	f.emitter.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e models.ActivityEvent) bool {
		return e.Type == models.ActivityAccountReconnected && e.ActorType == models.ActorTypeUser
	}))
}

func TestReconcile_PlanLimitBlocksNewTriple(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(nil, domain.ErrAccountNotFound)
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, input.Platform).Return(1, nil)

	_, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPlanLimitReached))

	var limitErr *domain.PlanLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 1, limitErr.Limit)

	f.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Zero(t, f.cache.count())
}

func TestReconcile_EnterpriseHasNoCap(t *testing.T) {
	f := newReconcileFixture(t, models.PlanEnterprise)
	input := validInput(f)

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(nil, domain.ErrAccountNotFound)
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, input.Platform).Return(5000, nil)
	f.accounts.On("Upsert", mock.Anything, mock.Anything).
		Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	_, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	require.NoError(t, err)
}

func TestReconcile_ForeignWorkspaceNeverWrites(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)

	_, err := f.service.Reconcile(context.Background(), input, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))

	f.accounts.AssertNotCalled(t, "FindByTriple", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Zero(t, f.cache.count())
}

func TestReconcile_OmittedCanPublishKeepsStoredValue(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)
	existingID := uuid.New()

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(&models.ConnectedAccount{
			ID:                existingID,
			BrandID:           f.brandID,
			Platform:          input.Platform,
			PlatformAccountID: input.PlatformAccountID,
			CanPublish:        false,
		}, nil)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.ID == existingID && !acc.CanPublish
	})).Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	saved, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	require.NoError(t, err)
	assert.False(t, saved.CanPublish)
}

func TestReconcile_CanPublishOverride(t *testing.T) {
	f := newReconcileFixture(t, models.PlanPro)
	input := validInput(f)
	off := false
	input.CanPublish = &off

	f.accounts.On("FindByTriple", mock.Anything, f.brandID, input.Platform, input.PlatformAccountID).
		Return(nil, domain.ErrAccountNotFound)
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, input.Platform).Return(0, nil)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return !acc.CanPublish
	})).Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	_, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	require.NoError(t, err)
}

func TestReconcile_RejectsEmptyIdentifiers(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)

	input := validInput(f)
	input.PlatformAccountID = ""
	_, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	input = validInput(f)
	input.AccessToken = ""
	_, err = f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestReconcile_UnknownBrandFails(t *testing.T) {
	f := newReconcileFixture(t, models.PlanFree)
	input := validInput(f)
	input.BrandID = uuid.New()

	f.brands.On("FindByID", mock.Anything, input.BrandID).Return(nil, domain.ErrBrandNotFound)

	_, err := f.service.Reconcile(context.Background(), input, f.workspaceID, nil)
	assert.True(t, errors.Is(err, domain.ErrBrandNotFound))
}
