package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConnectedAccount is one external social identity bound to one brand.
// The (BrandID, Platform, PlatformAccountID) triple is unique; the
// reconciliation service is the only writer of this table.
type ConnectedAccount struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	BrandID           uuid.UUID       `json:"brand_id" db:"brand_id"`
	Platform          Platform        `json:"platform" db:"platform"`
	PlatformAccountID string          `json:"platform_account_id" db:"platform_account_id"`
	DisplayName       string          `json:"display_name" db:"display_name"`
	Username          string          `json:"username" db:"username"`
	ExternalAvatarURL string          `json:"external_avatar_url" db:"external_avatar_url"`
	Status            AccountStatus   `json:"status" db:"status"`
	CanPublish        bool            `json:"can_publish" db:"can_publish"`
	AccessToken       string          `json:"-" db:"access_token"`
	RefreshToken      string          `json:"-" db:"refresh_token"`
	TokenExpiresAt    *time.Time      `json:"token_expires_at,omitempty" db:"token_expires_at"`
	Scopes            []string        `json:"scopes" db:"scopes"`
	TokenData         json.RawMessage `json:"token_data,omitempty" db:"token_data"`
	RawProfile        json.RawMessage `json:"-" db:"raw_profile"`
	LastSyncedAt      *time.Time      `json:"last_synced_at,omitempty" db:"last_synced_at"`
	LastErrorCode     *string         `json:"last_error_code,omitempty" db:"last_error_code"`
	LastErrorMessage  *string         `json:"last_error_message,omitempty" db:"last_error_message"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ConnectedAccountDTO is the client-facing projection. It never carries
// token material; publishing code works with the full record instead.
type ConnectedAccountDTO struct {
	ID                uuid.UUID     `json:"id"`
	BrandID           uuid.UUID     `json:"brandId"`
	Platform          Platform      `json:"platform"`
	PlatformAccountID string        `json:"platformAccountId"`
	DisplayName       string        `json:"displayName"`
	Username          string        `json:"username"`
	ExternalAvatarURL string        `json:"externalAvatarUrl"`
	Status            AccountStatus `json:"status"`
	CanPublish        bool          `json:"canPublish"`
	Scopes            []string      `json:"scopes"`
	TokenExpiresAt    *time.Time    `json:"tokenExpiresAt,omitempty"`
	LastSyncedAt      *time.Time    `json:"lastSyncedAt,omitempty"`
	LastErrorCode     *string       `json:"lastErrorCode,omitempty"`
	LastErrorMessage  *string       `json:"lastErrorMessage,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// ToDTO strips credentials and diagnostics-only fields from an account.
func (a *ConnectedAccount) ToDTO() ConnectedAccountDTO {
	return ConnectedAccountDTO{
		ID:                a.ID,
		BrandID:           a.BrandID,
		Platform:          a.Platform,
		PlatformAccountID: a.PlatformAccountID,
		DisplayName:       a.DisplayName,
		Username:          a.Username,
		ExternalAvatarURL: a.ExternalAvatarURL,
		Status:            a.Status,
		CanPublish:        a.CanPublish,
		Scopes:            a.Scopes,
		TokenExpiresAt:    a.TokenExpiresAt,
		LastSyncedAt:      a.LastSyncedAt,
		LastErrorCode:     a.LastErrorCode,
		LastErrorMessage:  a.LastErrorMessage,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// ReconcileInput carries everything the reconciliation service needs to
// create or update a connected account after a successful OAuth exchange.
type ReconcileInput struct {
	BrandID           uuid.UUID
	Platform          Platform
	PlatformAccountID string
	DisplayName       string
	Username          string
	ExternalAvatarURL string
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    *time.Time
	Scopes            []string
	TokenData         json.RawMessage
	RawProfile        json.RawMessage
	// CanPublish overrides the platform default when set.
	CanPublish *bool
}
