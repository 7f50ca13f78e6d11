package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// BrandRepository is the read-only tenancy lookup consumed before any
// connected-account write. Brand CRUD lives in another service.
type BrandRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)
}

// WorkspaceRepository resolves a workspace's subscription plan.
type WorkspaceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
}
