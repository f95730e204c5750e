package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/common"
	"finsight/internal/model"
)

func TestPlanStrategyMapping(t *testing.T) {
	tests := []struct {
		intent   model.Intent
		strategy model.Strategy
	}{
		{model.IntentAggregate, model.StrategyAggregate},
		{model.IntentTrend, model.StrategyTrend},
		{model.IntentListing, model.StrategyListing},
		{model.IntentTextQA, model.StrategySemantic},
		{model.IntentProvenance, model.StrategyProvenanceOnly},
		{model.IntentAggregateFilteredByText, model.StrategyTwoStep},
	}
	for _, tt := range tests {
		plan, err := Plan(model.IntentClassification{Intent: tt.intent, Confidence: 0.9})
		require.NoError(t, err, "intent %q", tt.intent)
		assert.Equal(t, tt.strategy, plan.Strategy)
	}
}

func TestPlanUnknownIntent(t *testing.T) {
	_, err := Plan(model.IntentClassification{Intent: "forecast", Confidence: 0.9})
	assert.ErrorIs(t, err, common.ErrUnsupportedIntent)
}

func TestPlanDefaultSizes(t *testing.T) {
	plan, err := Plan(model.IntentClassification{Intent: model.IntentTextQA})
	require.NoError(t, err)
	assert.Equal(t, 20, plan.Size)

	plan, err = Plan(model.IntentClassification{Intent: model.IntentListing})
	require.NoError(t, err)
	assert.Equal(t, 50, plan.Size)
}

func TestPlanClampsSize(t *testing.T) {
	plan, err := Plan(model.IntentClassification{
		Intent:  model.IntentListing,
		Filters: model.IntentFilters{Limit: 5000},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, plan.Size)
}

func TestPlanDropsInvalidDates(t *testing.T) {
	plan, err := Plan(model.IntentClassification{
		Intent:  model.IntentAggregate,
		Filters: model.IntentFilters{DateFrom: "last month", DateTo: "2025-07-31"},
	})
	require.NoError(t, err)
	assert.Empty(t, plan.Filters.DateFrom)
	assert.Equal(t, "2025-07-31", plan.Filters.DateTo)
}

func TestPlanDropsInvertedRanges(t *testing.T) {
	minAmount := 500.0
	maxAmount := 10.0
	plan, err := Plan(model.IntentClassification{
		Intent: model.IntentAggregate,
		Filters: model.IntentFilters{
			DateFrom:  "2025-07-31",
			DateTo:    "2025-07-01",
			MinAmount: &minAmount,
			MaxAmount: &maxAmount,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, plan.Filters.DateFrom)
	assert.Empty(t, plan.Filters.DateTo)
	assert.Nil(t, plan.Filters.MinAmount)
	assert.Nil(t, plan.Filters.MaxAmount)
}

func TestPlanNormalizesTerms(t *testing.T) {
	plan, err := Plan(model.IntentClassification{
		Intent: model.IntentAggregate,
		Filters: model.IntentFilters{
			Counterparty: []string{"  Amazon ", "", "NETFLIX"},
			AccountIDs:   []string{" ACC-1 "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amazon", "netflix"}, plan.Filters.Counterparty)
	// Account identifiers keep their case.
	assert.Equal(t, []string{"ACC-1"}, plan.Filters.AccountIDs)
}

func TestPlanFillsDefaults(t *testing.T) {
	plan, err := Plan(model.IntentClassification{Intent: model.IntentTrend})
	require.NoError(t, err)
	assert.Equal(t, model.TypeAll, plan.Filters.Type)
	assert.Equal(t, model.GranularityMonthly, plan.Filters.Granularity)
}

func TestPlanIsDeterministic(t *testing.T) {
	classification := model.IntentClassification{
		Intent:  model.IntentListing,
		Filters: model.IntentFilters{Counterparty: []string{"Amazon"}, Limit: 10},
	}
	first, err := Plan(classification)
	require.NoError(t, err)
	second, err := Plan(classification)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
