package models

import (
	"github.com/google/uuid"
)

// Brand is the tenant-scoped owner of social connections. Brand CRUD
// lives outside this service; only the tenancy lookup is consumed here.
type Brand struct {
	ID          uuid.UUID `json:"id" db:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
}

// Plan is a workspace subscription tier.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanStarter    Plan = "STARTER"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// UnlimitedAccounts is the sentinel for plans without an account cap.
const UnlimitedAccounts = -1

// PlanLimits holds the plan-derived business limits this service enforces.
type PlanLimits struct {
	MaxAccountsPerPlatform int
}

// Workspace is the multi-tenancy boundary; only id and plan are read here.
type Workspace struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Plan Plan      `json:"plan" db:"plan"`
}
