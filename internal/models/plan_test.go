package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPolicies(t *testing.T) {
	basic, ok := PolicyFor(PlanBasic)
	require.True(t, ok)
	assert.Equal(t, 500, basic.QueryLimit)
	assert.Equal(t, TierEconomy, basic.ModelTier)
	assert.False(t, basic.Unlimited())

	standard, ok := PolicyFor(PlanStandard)
	require.True(t, ok)
	assert.Equal(t, 2000, standard.QueryLimit)
	assert.Equal(t, TierPremium, standard.ModelTier)

	enterprise, ok := PolicyFor(PlanEnterprise)
	require.True(t, ok)
	assert.True(t, enterprise.Unlimited())
	assert.Equal(t, TierPremium, enterprise.ModelTier)
}

func TestPolicyForUnknownPlan(t *testing.T) {
	_, ok := PolicyFor(Plan("gold"))
	assert.False(t, ok)
	assert.False(t, ValidPlan(Plan("gold")))
	assert.True(t, ValidPlan(PlanBasic))
}
