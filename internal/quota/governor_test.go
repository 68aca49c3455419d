package quota

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

func openTestGovernor(t *testing.T, path string) *Governor {
	t.Helper()
	g, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestCheckAndIncrementDeniesAtLimit(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	policy, ok := models.PolicyFor(models.PlanBasic)
	require.True(t, ok)

	for i := 0; i < policy.QueryLimit; i++ {
		require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic), "call %d should be allowed", i+1)
	}

	err := g.CheckAndIncrement("wyndham", models.PlanBasic)
	require.Error(t, err)
	assert.True(t, cerr.IsQuotaExceeded(err))

	var qe *cerr.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, policy.QueryLimit, qe.Limit)
	assert.Equal(t, policy.QueryLimit, qe.Used)
	assert.Equal(t, "wyndham", qe.Tenant)

	// Denial does not consume quota: the count stays at the limit.
	used, err := g.Used("wyndham")
	require.NoError(t, err)
	assert.Equal(t, policy.QueryLimit, used)
}

func TestCheckAndIncrementCountsPerTenant(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic))
	require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic))
	require.NoError(t, g.CheckAndIncrement("brimbank", models.PlanBasic))

	wyndham, err := g.Used("wyndham")
	require.NoError(t, err)
	brimbank, err := g.Used("brimbank")
	require.NoError(t, err)
	assert.Equal(t, 2, wyndham)
	assert.Equal(t, 1, brimbank)
}

func TestEnterpriseIsNeverDenied(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	for i := 0; i < 2100; i++ {
		require.NoError(t, g.CheckAndIncrement("melbourne", models.PlanEnterprise))
	}

	// Usage is still accounted for.
	used, err := g.Used("melbourne")
	require.NoError(t, err)
	assert.Equal(t, 2100, used)
}

func TestCountersSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")

	g := openTestGovernor(t, path)
	require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic))
	require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic))
	require.NoError(t, g.Close())

	g2 := openTestGovernor(t, path)
	used, err := g2.Used("wyndham")
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestCountersResetEachMonth(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	current := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	require.NoError(t, g.CheckAndIncrement("wyndham", models.PlanBasic))
	used, err := g.Used("wyndham")
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	current = current.AddDate(0, 1, 0)
	used, err = g.Used("wyndham")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestCheckAndIncrementUnknownPlan(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	err := g.CheckAndIncrement("wyndham", models.Plan("gold"))
	require.Error(t, err)
	assert.False(t, cerr.IsQuotaExceeded(err))
}

func TestQueryLogRoundTrip(t *testing.T) {
	g := openTestGovernor(t, filepath.Join(t.TempDir(), "usage.db"))

	require.NoError(t, g.RecordQuery(models.QueryRecord{
		Tenant:   "wyndham",
		Question: "When is recycling collected?",
		Answer:   "Every second Tuesday.",
		Plan:     models.PlanBasic,
		Role:     "resident",
	}))

	records, err := g.RecentQueries("wyndham", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "When is recycling collected?", records[0].Question)
	assert.Equal(t, "Every second Tuesday.", records[0].Answer)
	assert.Equal(t, models.PlanBasic, records[0].Plan)
	assert.False(t, records[0].CreatedAt.IsZero())
}
