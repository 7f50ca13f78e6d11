package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
	"github.com/publora/platform/backend/services/social-service/internal/domain/repository"
)

const connectedAccountColumns = `
	id, brand_id, platform, platform_account_id,
	display_name, username, external_avatar_url, status, can_publish,
	access_token, refresh_token, token_expires_at, scopes,
	token_data, raw_profile, last_synced_at, last_error_code, last_error_message,
	created_at, updated_at`

type pgxConnectedAccountRepository struct {
	db *pgxpool.Pool
}

// NewPgxConnectedAccountRepository creates the pgx-backed account repository.
func NewPgxConnectedAccountRepository(db *pgxpool.Pool) repository.ConnectedAccountRepository {
	return &pgxConnectedAccountRepository{db: db}
}

func scanConnectedAccount(row pgx.Row) (*models.ConnectedAccount, error) {
	acc := &models.ConnectedAccount{}
	err := row.Scan(
		&acc.ID, &acc.BrandID, &acc.Platform, &acc.PlatformAccountID,
		&acc.DisplayName, &acc.Username, &acc.ExternalAvatarURL, &acc.Status, &acc.CanPublish,
		&acc.AccessToken, &acc.RefreshToken, &acc.TokenExpiresAt, &acc.Scopes,
		&acc.TokenData, &acc.RawProfile, &acc.LastSyncedAt, &acc.LastErrorCode, &acc.LastErrorMessage,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Upsert inserts or, when the unique triple already exists, overwrites the
// credential and profile fields. Concurrent writers for the same triple
// converge last-writer-wins on a single row.
func (r *pgxConnectedAccountRepository) Upsert(ctx context.Context, acc *models.ConnectedAccount) (*models.ConnectedAccount, error) {
	query := `
		INSERT INTO connected_accounts (
			id, brand_id, platform, platform_account_id,
			display_name, username, external_avatar_url, status, can_publish,
			access_token, refresh_token, token_expires_at, scopes,
			token_data, raw_profile, last_synced_at, last_error_code, last_error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (brand_id, platform, platform_account_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			external_avatar_url = EXCLUDED.external_avatar_url,
			status = EXCLUDED.status,
			can_publish = EXCLUDED.can_publish,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			token_data = EXCLUDED.token_data,
			raw_profile = EXCLUDED.raw_profile,
			last_synced_at = EXCLUDED.last_synced_at,
			last_error_code = EXCLUDED.last_error_code,
			last_error_message = EXCLUDED.last_error_message,
			updated_at = now()
		RETURNING ` + connectedAccountColumns
	stored, err := scanConnectedAccount(r.db.QueryRow(ctx, query,
		acc.ID, acc.BrandID, acc.Platform, acc.PlatformAccountID,
		acc.DisplayName, acc.Username, acc.ExternalAvatarURL, acc.Status, acc.CanPublish,
		acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt, acc.Scopes,
		acc.TokenData, acc.RawProfile, acc.LastSyncedAt, acc.LastErrorCode, acc.LastErrorMessage,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connected account: %w", err)
	}
	return stored, nil
}

func (r *pgxConnectedAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ConnectedAccount, error) {
	query := `SELECT ` + connectedAccountColumns + ` FROM connected_accounts WHERE id = $1`
	acc, err := scanConnectedAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find connected account by ID: %w", err)
	}
	return acc, nil
}

func (r *pgxConnectedAccountRepository) FindByTriple(ctx context.Context, brandID uuid.UUID, platform models.Platform, platformAccountID string) (*models.ConnectedAccount, error) {
	query := `SELECT ` + connectedAccountColumns + `
		FROM connected_accounts
		WHERE brand_id = $1 AND platform = $2 AND platform_account_id = $3`
	acc, err := scanConnectedAccount(r.db.QueryRow(ctx, query, brandID, platform, platformAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find connected account by triple: %w", err)
	}
	return acc, nil
}

func (r *pgxConnectedAccountRepository) ListByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ConnectedAccount, error) {
	query := `SELECT ` + connectedAccountColumns + `
		FROM connected_accounts WHERE brand_id = $1 ORDER BY platform, created_at`
	rows, err := r.db.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected accounts by brand: %w", err)
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		acc, err := scanConnectedAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connected account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating connected accounts: %w", err)
	}
	return accounts, nil
}

func (r *pgxConnectedAccountRepository) CountByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM connected_accounts WHERE brand_id = $1 AND platform = $2`
	if err := r.db.QueryRow(ctx, query, brandID, platform).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count connected accounts: %w", err)
	}
	return count, nil
}

func (r *pgxConnectedAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus, errorCode, errorMessage *string) error {
	query := `
		UPDATE connected_accounts SET
			status = $2, last_error_code = $3, last_error_message = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status, errorCode, errorMessage, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update connected account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAccountNotFound
	}
	return nil
}

func (r *pgxConnectedAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM connected_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connected account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAccountNotFound
	}
	return nil
}

var _ repository.ConnectedAccountRepository = (*pgxConnectedAccountRepository)(nil)
