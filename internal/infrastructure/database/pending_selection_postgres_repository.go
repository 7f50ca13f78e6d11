package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
)

type pgxPendingSelectionRepository struct {
	db *pgxpool.Pool
}

// NewPgxPendingSelectionRepository creates the pgx-backed staging repository.
func NewPgxPendingSelectionRepository(db *pgxpool.Pool) repository.PendingSelectionRepository {
	return &pgxPendingSelectionRepository{db: db}
}

// Upsert replaces any previous pending row for the same (brand, platform);
// a reconnect restarts the selection from scratch.
func (r *pgxPendingSelectionRepository) Upsert(ctx context.Context, p *models.PendingSelection) error {
	candidates, err := json.Marshal(p.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal selection candidates: %w", err)
	}
	query := `
		INSERT INTO pending_selections (
			id, brand_id, workspace_id, platform,
			access_token, refresh_token, token_expires_at, scopes,
			candidates, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (brand_id, platform) DO UPDATE SET
			id = EXCLUDED.id,
			workspace_id = EXCLUDED.workspace_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			candidates = EXCLUDED.candidates,
			expires_at = EXCLUDED.expires_at,
			created_at = now()`
	_, err = r.db.Exec(ctx, query,
		p.ID, p.BrandID, p.WorkspaceID, p.Platform,
		p.AccessToken, p.RefreshToken, p.TokenExpiresAt, p.Scopes,
		candidates, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pending selection: %w", err)
	}
	return nil
}

func (r *pgxPendingSelectionRepository) FindByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (*models.PendingSelection, error) {
	query := `
		SELECT id, brand_id, workspace_id, platform,
		       access_token, refresh_token, token_expires_at, scopes,
		       candidates, expires_at, created_at
		FROM pending_selections
		WHERE brand_id = $1 AND platform = $2`
	p := &models.PendingSelection{}
	var candidates []byte
	err := r.db.QueryRow(ctx, query, brandID, platform).Scan(
		&p.ID, &p.BrandID, &p.WorkspaceID, &p.Platform,
		&p.AccessToken, &p.RefreshToken, &p.TokenExpiresAt, &p.Scopes,
		&candidates, &p.ExpiresAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to find pending selection: %w", err)
	}
	if err := json.Unmarshal(candidates, &p.Candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection candidates: %w", err)
	}
	return p, nil
}

func (r *pgxPendingSelectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pending_selections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPendingNotFound
	}
	return nil
}

var _ repository.PendingSelectionRepository = (*pgxPendingSelectionRepository)(nil)
