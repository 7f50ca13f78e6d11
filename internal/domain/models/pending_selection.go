package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingSelectionTTL bounds how long a staged selection stays resolvable.
const PendingSelectionTTL = 30 * time.Minute

// SelectionCandidate is one publishable sub-account discovered during an
// OAuth grant (a LinkedIn organization, for example) that a human must
// pick before reconciliation.
type SelectionCandidate struct {
	PlatformAccountID string `json:"platformAccountId"`
	DisplayName       string `json:"displayName"`
	Username          string `json:"username,omitempty"`
	AvatarURL         string `json:"avatarUrl,omitempty"`
	// Kind distinguishes e.g. a personal profile from an organization.
	Kind string `json:"kind,omitempty"`
}

// PendingSelection is a short-lived staging row holding the raw token
// bundle and the discovered candidates until the user selects among them.
// At most one live row exists per (brand, platform); it is deleted once
// resolved or abandoned past its expiry.
type PendingSelection struct {
	ID             uuid.UUID            `json:"id" db:"id"`
	BrandID        uuid.UUID            `json:"brand_id" db:"brand_id"`
	WorkspaceID    uuid.UUID            `json:"workspace_id" db:"workspace_id"`
	Platform       Platform             `json:"platform" db:"platform"`
	AccessToken    string               `json:"-" db:"access_token"`
	RefreshToken   string               `json:"-" db:"refresh_token"`
	TokenExpiresAt *time.Time           `json:"token_expires_at,omitempty" db:"token_expires_at"`
	Scopes         []string             `json:"scopes" db:"scopes"`
	Candidates     []SelectionCandidate `json:"candidates" db:"candidates"`
	ExpiresAt      time.Time            `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
}

// Expired reports whether the row is past its TTL at the given instant.
func (p *PendingSelection) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
