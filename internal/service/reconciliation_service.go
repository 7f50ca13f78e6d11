package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
	"github.com/publora/platform/backend/services/social-service/internal/events"
)

// ReconciliationService is the sole writer of connected accounts. Every
// successful OAuth outcome funnels through Reconcile, which either
// creates the account or refreshes the existing row for the same
// (brand, platform, platform account) triple.
type ReconciliationService struct {
	accounts   repository.ConnectedAccountRepository
	brands     repository.BrandRepository
	workspaces repository.WorkspaceRepository
	cache      BrandCacheInvalidator
	emitter    events.ActivityEmitter
	logger     *zap.Logger
	now        func() time.Time
}

func NewReconciliationService(
	accounts repository.ConnectedAccountRepository,
	brands repository.BrandRepository,
	workspaces repository.WorkspaceRepository,
	cache BrandCacheInvalidator,
	emitter events.ActivityEmitter,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		accounts:   accounts,
		brands:     brands,
		workspaces: workspaces,
		cache:      cache,
		emitter:    emitter,
		logger:     logger.Named("reconciliation_service"),
		now:        time.Now,
	}
}

// Reconcile creates or updates the connected account for the given
// triple. The brand must belong to workspaceID; the decoded state token
// is not trusted on its own. The plan limit applies only when the
// triple is new; an update of an existing account always goes through
// regardless of the cap.
func (s *ReconciliationService) Reconcile(ctx context.Context, input models.ReconcileInput, workspaceID uuid.UUID, actorID *uuid.UUID) (*models.ConnectedAccount, error) {
	if input.PlatformAccountID == "" {
		return nil, domain.NewValidationError("platformAccountId", "must not be empty")
	}
	if input.AccessToken == "" {
		return nil, domain.NewValidationError("accessToken", "must not be empty")
	}

	brand, err := s.brands.FindByID(ctx, input.BrandID)
	if err != nil {
		return nil, err
	}
	if brand.WorkspaceID != workspaceID {
		return nil, domain.ErrBrandNotFound
	}

	existing, err := s.accounts.FindByTriple(ctx, input.BrandID, input.Platform, input.PlatformAccountID)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	isNew := existing == nil

	if isNew {
		workspace, err := s.workspaces.FindByID(ctx, brand.WorkspaceID)
		if err != nil {
			return nil, err
		}
		limits := planLimitsFor(workspace.Plan)
		count, err := s.accounts.CountByBrandPlatform(ctx, input.BrandID, input.Platform)
		if err != nil {
			return nil, err
		}
		if !withinAccountLimit(limits, count) {
			return nil, &domain.PlanLimitError{
				Platform: string(input.Platform),
				Limit:    limits.MaxAccountsPerPlatform,
			}
		}
	}

	now := s.now().UTC()
	account := &models.ConnectedAccount{
		BrandID:           input.BrandID,
		Platform:          input.Platform,
		PlatformAccountID: input.PlatformAccountID,
		DisplayName:       input.DisplayName,
		Username:          input.Username,
		ExternalAvatarURL: input.ExternalAvatarURL,
		Status:            models.AccountStatusActive,
		CanPublish:        true,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		TokenExpiresAt:    input.TokenExpiresAt,
		Scopes:            input.Scopes,
		TokenData:         input.TokenData,
		RawProfile:        input.RawProfile,
		LastSyncedAt:      &now,
	}
	// canPublish: explicit input wins; otherwise an update keeps the
	// stored value and only a new account gets the default.
	switch {
	case input.CanPublish != nil:
		account.CanPublish = *input.CanPublish
	case !isNew:
		account.CanPublish = existing.CanPublish
	}
	if isNew {
		account.ID = uuid.New()
	} else {
		account.ID = existing.ID
	}

	saved, err := s.accounts.Upsert(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to persist connected account: %w", err)
	}

	s.cache.Invalidate(ctx, input.BrandID)

	eventType := models.ActivityAccountReconnected
	if isNew {
		eventType = models.ActivityAccountConnected
	}
	s.emit(ctx, eventType, brand.WorkspaceID, saved, actorID)

	s.logger.Info("Account reconciled",
		zap.String("brand_id", input.BrandID.String()),
		zap.String("platform", string(input.Platform)),
		zap.String("platform_account_id", input.PlatformAccountID),
		zap.Bool("created", isNew))
	return saved, nil
}

func (s *ReconciliationService) emit(ctx context.Context, eventType string, workspaceID uuid.UUID, acc *models.ConnectedAccount, actorID *uuid.UUID) {
	actorType := models.ActorTypeSystem
	if actorID != nil {
		actorType = models.ActorTypeUser
	}
	event := models.ActivityEvent{
		Type:        eventType,
		WorkspaceID: workspaceID,
		BrandID:     acc.BrandID,
		ActorType:   actorType,
		ActorID:     actorID,
		OccurredAt:  s.now().UTC(),
		Payload: models.AccountActivityPayload{
			AccountID:         acc.ID,
			Platform:          acc.Platform,
			PlatformAccountID: acc.PlatformAccountID,
			DisplayName:       acc.DisplayName,
		},
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("Failed to emit activity event",
			zap.String("type", eventType), zap.Error(err))
	}
}
