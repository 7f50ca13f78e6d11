package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
)

type pgxBrandRepository struct {
	db *pgxpool.Pool
}

// NewPgxBrandRepository creates the read-only brand lookup.
func NewPgxBrandRepository(db *pgxpool.Pool) repository.BrandRepository {
	return &pgxBrandRepository{db: db}
}

func (r *pgxBrandRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	b := &models.Brand{}
	err := r.db.QueryRow(ctx, `SELECT id, workspace_id, name FROM brands WHERE id = $1`, id).
		Scan(&b.ID, &b.WorkspaceID, &b.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrBrandNotFound
		}
		return nil, fmt.Errorf("failed to find brand by ID: %w", err)
	}
	return b, nil
}

type pgxWorkspaceRepository struct {
	db *pgxpool.Pool
}

// NewPgxWorkspaceRepository creates the read-only workspace/plan lookup.
func NewPgxWorkspaceRepository(db *pgxpool.Pool) repository.WorkspaceRepository {
	return &pgxWorkspaceRepository{db: db}
}

func (r *pgxWorkspaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	w := &models.Workspace{}
	err := r.db.QueryRow(ctx, `SELECT id, plan FROM workspaces WHERE id = $1`, id).
		Scan(&w.ID, &w.Plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find workspace by ID: %w", err)
	}
	return w, nil
}

var (
	_ repository.BrandRepository     = (*pgxBrandRepository)(nil)
	_ repository.WorkspaceRepository = (*pgxWorkspaceRepository)(nil)
)
