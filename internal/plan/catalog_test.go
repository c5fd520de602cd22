package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogPlans(t *testing.T) {
	plans := Plans()
	assert.Len(t, plans, 3)

	// pricing order, cheapest first
	assert.Equal(t, Starter, plans[0].Plan)
	assert.Equal(t, Professional, plans[1].Plan)
	assert.Equal(t, Enterprise, plans[2].Plan)
	assert.Equal(t, float64(29), plans[0].MonthlyPrice)
	assert.Equal(t, float64(79), plans[1].MonthlyPrice)
	assert.Equal(t, float64(199), plans[2].MonthlyPrice)
}

func TestStarterLimits(t *testing.T) {
	limits := Get(Starter).Limits
	assert.Equal(t, int64(50), limits.Get(LimitWorkOrders))
	assert.Equal(t, int64(3), limits.Get(LimitUsers))
	assert.Equal(t, int64(1024), limits.Get(LimitStorage))
	assert.Equal(t, int64(1000), limits.Get(LimitAPICalls))
}

func TestEnterpriseIsUnlimited(t *testing.T) {
	limits := Get(Enterprise).Limits
	for _, lt := range LimitTypes {
		assert.Equal(t, Unlimited, limits.Get(lt), "limit %s", lt)
	}
}

func TestGetUnknownPlanFallsBackToStarter(t *testing.T) {
	info := Get("platinum")
	assert.Equal(t, Starter, info.Plan)

	info = Get("")
	assert.Equal(t, Starter, info.Plan)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(Starter))
	assert.True(t, IsValid(Professional))
	assert.True(t, IsValid(Enterprise))
	assert.False(t, IsValid("platinum"))
	assert.False(t, IsValid(""))
}

func TestFeatureEntitlements(t *testing.T) {
	tests := []struct {
		plan     string
		feature  string
		entitled bool
	}{
		{Starter, FeatureBasicReports, true},
		{Starter, FeatureAdvancedReports, false},
		{Starter, FeatureCustomInvoices, false},
		{Professional, FeatureAdvancedReports, true},
		{Professional, FeatureCustomInvoices, true},
		{Professional, FeatureMultiLocation, false},
		{Enterprise, FeatureMultiLocation, true},
		{Enterprise, FeaturePrioritySupport, true},
	}
	for _, tt := range tests {
		found := false
		for _, f := range Get(tt.plan).Features {
			if f == tt.feature {
				found = true
			}
		}
		assert.Equal(t, tt.entitled, found, "%s / %s", tt.plan, tt.feature)
	}
}

func TestRequiredPlanFor(t *testing.T) {
	assert.Equal(t, Starter, RequiredPlanFor(FeatureBasicReports))
	assert.Equal(t, Professional, RequiredPlanFor(FeatureAdvancedReports))
	assert.Equal(t, Professional, RequiredPlanFor(FeatureCustomInvoices))
	assert.Equal(t, Enterprise, RequiredPlanFor(FeatureMultiLocation))
	assert.Equal(t, "", RequiredPlanFor("time_travel"))
}

func TestLimitsGetUnknownType(t *testing.T) {
	limits := Get(Professional).Limits
	assert.Equal(t, int64(0), limits.Get(LimitType("bandwidth")))
}
