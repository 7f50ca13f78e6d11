package service

import (
	"context"
	"encoding/json"
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
)

type selectionFixture struct {
	pending  *repoMocks.MockPendingSelectionRepository
	accounts *repoMocks.MockConnectedAccountRepository
	service  *SelectionService

	brandID     uuid.UUID
	workspaceID uuid.UUID
	row         *models.PendingSelection
}

func newSelectionFixture(t *testing.T) *selectionFixture {
	t.Helper()
	f := &selectionFixture{
		pending:     new(repoMocks.MockPendingSelectionRepository),
		accounts:    new(repoMocks.MockConnectedAccountRepository),
		brandID:     uuid.New(),
		workspaceID: uuid.New(),
	}
	f.row = &models.PendingSelection{
		ID:          uuid.New(),
		BrandID:     f.brandID,
		WorkspaceID: f.workspaceID,
		Platform:    models.PlatformLinkedIn,
		AccessToken: "staged-token",
		Candidates: []models.SelectionCandidate{
			{PlatformAccountID: "person-1", DisplayName: "Jordan Li", Kind: "profile"},
			{PlatformAccountID: "org-7", DisplayName: "Acme Corp", Kind: "organization"},
		},
		ExpiresAt: time.Now().Add(20 * time.Minute),
	}

	brands := new(repoMocks.MockBrandRepository)
	brands.On("FindByID", mock.Anything, f.brandID).
		Return(&models.Brand{ID: f.brandID, WorkspaceID: f.workspaceID}, nil).Maybe()
	workspaces := new(repoMocks.MockWorkspaceRepository)
	workspaces.On("FindByID", mock.Anything, f.workspaceID).
		Return(&models.Workspace{ID: f.workspaceID, Plan: models.PlanPro}, nil).Maybe()
	emitter := new(eventMocks.MockActivityEmitter)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil).Maybe()

	reconciler := NewReconciliationService(
		f.accounts, brands, workspaces, &stubCache{}, emitter, zap.NewNop())
	f.service = NewSelectionService(f.pending, reconciler, zap.NewNop())
	return f
}

func (f *selectionFixture) expectNewTriple(id string) {
	f.accounts.On("FindByTriple", mock.Anything, f.brandID, models.PlatformLinkedIn, id).
		Return(nil, domain.ErrAccountNotFound)
}

func TestResolveSelection_ReconcilesChosenCandidates(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)
	f.pending.On("Delete", mock.Anything, f.row.ID).Return(nil)
	f.expectNewTriple("person-1")
	f.expectNewTriple("org-7")
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(0, nil)

	var saved []*models.ConnectedAccount
	f.accounts.On("Upsert", mock.Anything, mock.Anything).
		Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount {
			saved = append(saved, acc)
			return acc
		}, nil)

	actorID := uuid.New()
	accounts, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"person-1", "org-7"}, &actorID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	for _, acc := range saved {
		assert.True(t, acc.CanPublish, "a resolved selection is publish-enabled")
		assert.Equal(t, "staged-token", acc.AccessToken)
	}

	var data map[string]string
	require.NoError(t, json.Unmarshal(saved[0].TokenData, &data))
	assert.Equal(t, "urn:li:person:person-1", data["author_urn"])
	require.NoError(t, json.Unmarshal(saved[1].TokenData, &data))
	assert.Equal(t, "urn:li:organization:org-7", data["author_urn"])

	f.pending.AssertCalled(t, "Delete", mock.Anything, f.row.ID)
}

func TestResolveSelection_EmptyChoice(t *testing.T) {
	f := newSelectionFixture(t)
	_, err := f.service.Resolve(context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrEmptySelection))
}

func TestResolveSelection_UnknownCandidate(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)

	_, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"org-9999"}, nil)
	assert.True(t, errors.Is(err, domain.ErrUnknownCandidate))
	f.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestResolveSelection_ExpiredRowIsConsumed(t *testing.T) {
	f := newSelectionFixture(t)
	f.row.ExpiresAt = time.Now().Add(-time.Minute)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)
	f.pending.On("Delete", mock.Anything, f.row.ID).Return(nil)

	_, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"person-1"}, nil)
	assert.True(t, errors.Is(err, domain.ErrPendingExpired))
	f.pending.AssertCalled(t, "Delete", mock.Anything, f.row.ID)
}

func TestResolveSelection_ForeignWorkspaceReadsAsMissing(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)

	_, err := f.service.Resolve(
		context.Background(), f.brandID, uuid.New(), models.PlatformLinkedIn, []string{"person-1"}, nil)
	assert.True(t, errors.Is(err, domain.ErrPendingNotFound))
	f.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestResolveSelection_NoPendingRow(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).
		Return(nil, domain.ErrPendingNotFound)

	_, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"person-1"}, nil)
	assert.True(t, errors.Is(err, domain.ErrPendingNotFound))
}

func TestResolveSelection_ToleratesConcurrentDelete(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)
	f.pending.On("Delete", mock.Anything, f.row.ID).Return(domain.ErrPendingNotFound)
	f.expectNewTriple("person-1")
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(0, nil)
	f.accounts.On("Upsert", mock.Anything, mock.Anything).
		Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)

	accounts, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"person-1"}, nil)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestResolveSelection_PartialFailureReturnsLanded(t *testing.T) {
	f := newSelectionFixture(t)
	f.pending.On("FindByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(f.row, nil)
	f.pending.On("Delete", mock.Anything, f.row.ID).Return(nil)
	f.expectNewTriple("person-1")
	f.expectNewTriple("org-7")
	f.accounts.On("CountByBrandPlatform", mock.Anything, f.brandID, models.PlatformLinkedIn).Return(0, nil)

	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.PlatformAccountID == "person-1"
	})).Return(func(_ context.Context, acc *models.ConnectedAccount) *models.ConnectedAccount { return acc }, nil)
	f.accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acc *models.ConnectedAccount) bool {
		return acc.PlatformAccountID == "org-7"
	})).Return(nil, errors.New("connection reset"))

	accounts, err := f.service.Resolve(
		context.Background(), f.brandID, f.workspaceID, models.PlatformLinkedIn, []string{"person-1", "org-7"}, nil)
	require.Error(t, err)
	assert.Len(t, accounts, 1, "the already-reconciled account is reported")
	f.pending.AssertCalled(t, "Delete", mock.Anything, f.row.ID)
}
