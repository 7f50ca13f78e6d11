package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// ConnectedAccountRepository persists connected accounts. Upsert relies on
// the unique (brand_id, platform, platform_account_id) constraint so
// concurrent reconciles for the same triple are last-writer-wins instead
// of producing duplicates.
type ConnectedAccountRepository interface {
	Upsert(ctx context.Context, acc *models.ConnectedAccount) (*models.ConnectedAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ConnectedAccount, error)
	FindByTriple(ctx context.Context, brandID uuid.UUID, platform models.Platform, platformAccountID string) (*models.ConnectedAccount, error)
	ListByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ConnectedAccount, error)
	CountByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus, errorCode, errorMessage *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
