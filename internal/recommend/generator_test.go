package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costscope/internal/store"
)

const testAccount = "123456789012"

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func seedStore(t *testing.T, costs map[string]float64) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()

	var records []store.CostRecord
	for service, cost := range costs {
		records = append(records, store.CostRecord{
			AccountID: testAccount,
			Date:      "2026-08-20",
			Service:   service,
			Cost:      cost,
		})
	}
	require.NoError(t, st.PutCostRecords(context.Background(), records))
	return st
}

func TestGenerateServiceRuleFires(t *testing.T) {
	st := seedStore(t, map[string]float64{serviceRDS: 25})

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, serviceRDS, recs[0].Service)
	assert.Equal(t, store.PriorityHigh, recs[0].Priority)
	assert.Equal(t, "INSTANCE_OPTIMIZATION", recs[0].Category)
	// 40% of $25, rounded to cents
	assert.Equal(t, 10.0, recs[0].PotentialSavings)
	assert.Contains(t, recs[0].Description, "$25.00")
	assert.NotEmpty(t, recs[0].RecommendationID)
}

func TestGenerateTotalRulesUseGeneralService(t *testing.T) {
	st := seedStore(t, map[string]float64{"AWS Lambda": 60})

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)

	// Only the two total-spend rules match a $60 Lambda-only bill
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "GENERAL", rec.Service)
	}
	assert.Equal(t, "BUDGET_MONITORING", recs[0].Category)
	assert.Equal(t, "COST_ALLOCATION", recs[1].Category)
}

func TestGenerateMultipleRulesPerService(t *testing.T) {
	st := seedStore(t, map[string]float64{serviceEC2: 30})

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)

	// Both EC2 rules fire independently for the same spend
	require.Len(t, recs, 2)
	assert.Equal(t, "RIGHT_SIZING", recs[0].Category)
	assert.Equal(t, 9.0, recs[0].PotentialSavings)
	assert.Equal(t, "RESERVED_INSTANCES", recs[1].Category)
	assert.Equal(t, 15.0, recs[1].PotentialSavings)
}

func TestGenerateThresholdIsStrict(t *testing.T) {
	// Spend exactly at the threshold does not fire the rule
	st := seedStore(t, map[string]float64{serviceS3: 5})

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateEmptyStore(t *testing.T) {
	g := New(store.NewMemoryStore(), nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateIgnoresTotalRows(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.PutCostRecords(context.Background(), []store.CostRecord{
		{AccountID: testAccount, Date: "2026-08-20", Service: store.TotalService, Cost: 500},
	}))

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateStoresRecommendations(t *testing.T) {
	st := seedStore(t, map[string]float64{serviceEKS: 40})

	g := New(st, nil)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	stored, err := st.RecentRecommendations(context.Background(), testAccount, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, recs[0].RecommendationID, stored[0].RecommendationID)
}

func TestGenerateCustomRules(t *testing.T) {
	st := seedStore(t, map[string]float64{"AWS Lambda": 12})

	rules := []Rule{{
		Name:        "lambda-watch",
		Service:     "AWS Lambda",
		Threshold:   10,
		SavingsRate: 0.25,
		Priority:    store.PriorityLow,
		Category:    "SERVERLESS",
		Title:       "Review Lambda usage",
		Action:      "Check for runaway invocations",
		Impact:      "low",
		Describe: func(cost float64) string {
			return fmt.Sprintf("Lambda costs are $%.2f.", cost)
		},
	}}

	g := New(st, rules)
	g.now = fixedNow

	recs, err := g.Generate(context.Background(), testAccount, 30)
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, store.PriorityLow, recs[0].Priority)
	assert.Equal(t, 3.0, recs[0].PotentialSavings)
}

func TestGenerateInvalidDays(t *testing.T) {
	g := New(store.NewMemoryStore(), nil)

	_, err := g.Generate(context.Background(), testAccount, -1)
	assert.Error(t, err)
}
