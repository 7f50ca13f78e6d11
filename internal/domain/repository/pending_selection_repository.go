package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// PendingSelectionRepository persists the short-lived staging rows used
// while a human disambiguates among discovered sub-accounts. At most one
// row exists per (brand, platform); Upsert replaces any previous one.
type PendingSelectionRepository interface {
	Upsert(ctx context.Context, p *models.PendingSelection) error
	FindByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (*models.PendingSelection, error)
	// Delete returns ErrPendingNotFound when the row is already gone,
	// which resolvers must tolerate (a concurrent resolve won).
	Delete(ctx context.Context, id uuid.UUID) error
}
