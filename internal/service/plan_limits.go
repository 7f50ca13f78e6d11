package service

import (
	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

// planLimitsFor maps a subscription plan to its business limits. Unknown
// plans get the free tier so a bad value can never unlock capacity.
func planLimitsFor(plan models.Plan) models.PlanLimits {
	switch plan {
	case models.PlanEnterprise:
		return models.PlanLimits{MaxAccountsPerPlatform: models.UnlimitedAccounts}
	case models.PlanPro:
		return models.PlanLimits{MaxAccountsPerPlatform: 10}
	case models.PlanStarter:
		return models.PlanLimits{MaxAccountsPerPlatform: 3}
	default:
		return models.PlanLimits{MaxAccountsPerPlatform: 1}
	}
}

// withinAccountLimit reports whether adding one more account keeps the
// brand under the plan's per-platform cap.
func withinAccountLimit(limits models.PlanLimits, current int) bool {
	if limits.MaxAccountsPerPlatform == models.UnlimitedAccounts {
		return true
	}
	return current < limits.MaxAccountsPerPlatform
}
