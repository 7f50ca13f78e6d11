package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
	"github.com/publora/platform/backend/services/social-service/internal/platform/linkedin"
)

// SelectionService resolves a staged pending selection into connected
// accounts. Resolution consumes the staging row whether it succeeds for
// all chosen candidates or not; abandoned rows simply expire.
type SelectionService struct {
	pending    repository.PendingSelectionRepository
	reconciler *ReconciliationService
	logger     *zap.Logger
	now        func() time.Time
}

func NewSelectionService(
	pending repository.PendingSelectionRepository,
	reconciler *ReconciliationService,
	logger *zap.Logger,
) *SelectionService {
	return &SelectionService{
		pending:    pending,
		reconciler: reconciler,
		logger:     logger.Named("selection_service"),
		now:        time.Now,
	}
}

// Resolve reconciles the chosen candidates from the brand's pending
// selection. The staging row must belong to the caller's workspace.
// Choosing nothing is an error; choosing an id that was never offered
// is an error; an expired staging row is consumed and reported.
func (s *SelectionService) Resolve(ctx context.Context, brandID, workspaceID uuid.UUID, p models.Platform, selectedIDs []string, actorID *uuid.UUID) ([]*models.ConnectedAccount, error) {
	if len(selectedIDs) == 0 {
		return nil, domain.ErrEmptySelection
	}

	pending, err := s.pending.FindByBrandPlatform(ctx, brandID, p)
	if err != nil {
		return nil, err
	}
	if pending.WorkspaceID != workspaceID {
		return nil, domain.ErrPendingNotFound
	}
	if pending.Expired(s.now()) {
		s.deletePending(ctx, pending.ID)
		return nil, domain.ErrPendingExpired
	}

	byID := make(map[string]models.SelectionCandidate, len(pending.Candidates))
	for _, cand := range pending.Candidates {
		byID[cand.PlatformAccountID] = cand
	}
	chosen := make([]models.SelectionCandidate, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		cand, ok := byID[id]
		if !ok {
			return nil, domain.ErrUnknownCandidate
		}
		chosen = append(chosen, cand)
	}

	canPublish := true
	accounts := make([]*models.ConnectedAccount, 0, len(chosen))
	for _, cand := range chosen {
		input := models.ReconcileInput{
			BrandID:           brandID,
			Platform:          p,
			PlatformAccountID: cand.PlatformAccountID,
			DisplayName:       cand.DisplayName,
			Username:          cand.Username,
			ExternalAvatarURL: cand.AvatarURL,
			AccessToken:       pending.AccessToken,
			RefreshToken:      pending.RefreshToken,
			TokenExpiresAt:    pending.TokenExpiresAt,
			Scopes:            pending.Scopes,
			CanPublish:        &canPublish,
		}
		if p == models.PlatformLinkedIn {
			input.TokenData = linkedin.AuthorURNFor(cand)
		}
		account, err := s.reconciler.Reconcile(ctx, input, workspaceID, actorID)
		if err != nil {
			// Keep what already landed; surface the first failure.
			if len(accounts) > 0 {
				s.logger.Error("Partial selection resolution",
					zap.String("brand_id", brandID.String()),
					zap.Int("reconciled", len(accounts)), zap.Error(err))
				s.deletePending(ctx, pending.ID)
				return accounts, err
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}

	s.deletePending(ctx, pending.ID)
	return accounts, nil
}

// deletePending removes the staging row, tolerating a concurrent
// resolution having already deleted it.
func (s *SelectionService) deletePending(ctx context.Context, id uuid.UUID) {
	if err := s.pending.Delete(ctx, id); err != nil && !domain.IsNotFound(err) {
		s.logger.Warn("Failed to delete pending selection",
			zap.String("pending_id", id.String()), zap.Error(err))
	}
}
