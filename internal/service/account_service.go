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
	"github.com/publora/platform/backend/services/social-service/internal/platform"
)

// AccountService covers the read and lifecycle operations on connected
// accounts that do not go through an OAuth flow.
type AccountService struct {
	accounts repository.ConnectedAccountRepository
	brands   repository.BrandRepository
	registry *platform.Registry
	cache    BrandCacheInvalidator
	emitter  events.ActivityEmitter
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(
	accounts repository.ConnectedAccountRepository,
	brands repository.BrandRepository,
	registry *platform.Registry,
	cache BrandCacheInvalidator,
	emitter events.ActivityEmitter,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		brands:   brands,
		registry: registry,
		cache:    cache,
		emitter:  emitter,
		logger:   logger.Named("account_service"),
		now:      time.Now,
	}
}

// brandFor loads the brand and verifies it belongs to the caller's
// workspace. A brand from another workspace reads as not found.
func (s *AccountService) brandFor(ctx context.Context, brandID, workspaceID uuid.UUID) (*models.Brand, error) {
	brand, err := s.brands.FindByID(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if brand.WorkspaceID != workspaceID {
		return nil, domain.ErrBrandNotFound
	}
	return brand, nil
}

// List returns the brand's connected accounts without token material.
func (s *AccountService) List(ctx context.Context, brandID, workspaceID uuid.UUID) ([]models.ConnectedAccountDTO, error) {
	if _, err := s.brandFor(ctx, brandID, workspaceID); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}
	dtos := make([]models.ConnectedAccountDTO, 0, len(accounts))
	for _, acc := range accounts {
		dtos = append(dtos, acc.ToDTO())
	}
	return dtos, nil
}

// Get loads one account scoped to the brand and workspace.
func (s *AccountService) Get(ctx context.Context, brandID, workspaceID, accountID uuid.UUID) (*models.ConnectedAccount, error) {
	if _, err := s.brandFor(ctx, brandID, workspaceID); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.BrandID != brandID {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// Disconnect marks the account disconnected and wipes its credential
// bundle, keeping the row so the platform identity can be re-linked
// without losing history.
func (s *AccountService) Disconnect(ctx context.Context, brandID, workspaceID, accountID uuid.UUID, actorID *uuid.UUID) error {
	account, err := s.Get(ctx, brandID, workspaceID, accountID)
	if err != nil {
		return err
	}
	account.Status = models.AccountStatusDisconnected
	account.AccessToken = ""
	account.RefreshToken = ""
	account.TokenExpiresAt = nil
	account.Scopes = nil
	account.TokenData = nil
	if _, err := s.accounts.Upsert(ctx, account); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, brandID)
	s.emitAccountEvent(ctx, models.ActivityAccountDisconnected, account, actorID)
	return nil
}

// Delete removes the account entirely.
func (s *AccountService) Delete(ctx context.Context, brandID, workspaceID, accountID uuid.UUID, actorID *uuid.UUID) error {
	account, err := s.Get(ctx, brandID, workspaceID, accountID)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, brandID)
	s.emitAccountEvent(ctx, models.ActivityAccountDeleted, account, actorID)
	return nil
}

// MarkExpired flags an account whose credentials the platform rejected.
// Publishing is blocked until the user reconnects.
func (s *AccountService) MarkExpired(ctx context.Context, accountID uuid.UUID, code, message string) error {
	return s.accounts.UpdateStatus(ctx, accountID, models.AccountStatusExpired, &code, &message)
}

// RefreshAccountToken exchanges the stored refresh credential for fresh
// tokens and persists them. Platforms without a separate refresh token
// refresh from the access token itself.
func (s *AccountService) RefreshAccountToken(ctx context.Context, brandID, workspaceID, accountID uuid.UUID) (*models.ConnectedAccount, error) {
	account, err := s.Get(ctx, brandID, workspaceID, accountID)
	if err != nil {
		return nil, err
	}
	client, err := s.registry.Client(account.Platform)
	if err != nil {
		return nil, err
	}

	refreshCredential := account.RefreshToken
	if refreshCredential == "" {
		refreshCredential = account.AccessToken
	}
	bundle, err := client.RefreshToken(ctx, refreshCredential)
	if err != nil {
		code := "refresh_failed"
		msg := err.Error()
		if updateErr := s.accounts.UpdateStatus(ctx, account.ID, models.AccountStatusExpired, &code, &msg); updateErr != nil {
			s.logger.Error("Failed to mark account expired after refresh failure",
				zap.String("account_id", account.ID.String()), zap.Error(updateErr))
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	now := s.now().UTC()
	account.AccessToken = bundle.AccessToken
	if bundle.RefreshToken != "" {
		account.RefreshToken = bundle.RefreshToken
	}
	account.TokenExpiresAt = bundle.ExpiresAt
	if len(bundle.Scopes) > 0 {
		account.Scopes = bundle.Scopes
	}
	account.Status = models.AccountStatusActive
	account.LastErrorCode = nil
	account.LastErrorMessage = nil
	account.LastSyncedAt = &now

	saved, err := s.accounts.Upsert(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	s.logger.Info("Account token refreshed",
		zap.String("account_id", account.ID.String()),
		zap.String("platform", string(account.Platform)))
	return saved, nil
}

func (s *AccountService) emitAccountEvent(ctx context.Context, eventType string, acc *models.ConnectedAccount, actorID *uuid.UUID) {
	workspaceID := uuid.Nil
	if brand, err := s.brands.FindByID(ctx, acc.BrandID); err == nil {
		workspaceID = brand.WorkspaceID
	}
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
