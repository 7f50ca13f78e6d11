package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

func TestPlanLimitsFor(t *testing.T) {
	cases := []struct {
		plan   models.Plan
		maxPer int
	}{
		{models.PlanFree, 1},
		{models.PlanStarter, 3},
		{models.PlanPro, 10},
		{models.PlanEnterprise, models.UnlimitedAccounts},
		{models.Plan("LEGACY_GOLD"), 1},
		{models.Plan(""), 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			assert.Equal(t, tc.maxPer, planLimitsFor(tc.plan).MaxAccountsPerPlatform)
		})
	}
}

func TestWithinAccountLimit(t *testing.T) {
	free := models.PlanLimits{MaxAccountsPerPlatform: 1}
	assert.True(t, withinAccountLimit(free, 0))
	assert.False(t, withinAccountLimit(free, 1))
	assert.False(t, withinAccountLimit(free, 5))

	unlimited := models.PlanLimits{MaxAccountsPerPlatform: models.UnlimitedAccounts}
	assert.True(t, withinAccountLimit(unlimited, 0))
	assert.True(t, withinAccountLimit(unlimited, 100000))
}
