package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// MediaResolver turns an opaque media id into a fetchable URL and MIME
// type. Dispatch never receives a payload with unresolved items.
type MediaResolver interface {
	Resolve(ctx context.Context, item models.MediaItem) (models.MediaItem, error)
}

// BrandCacheInvalidator drops cached brand snapshots after a write.
// Invalidation is best effort and never fails the calling operation.
type BrandCacheInvalidator interface {
	Invalidate(ctx context.Context, brandID uuid.UUID)
}
