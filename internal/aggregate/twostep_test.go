package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/common"
	"finsight/internal/model"
	"finsight/internal/search"
)

type stubSearcher struct {
	hits []model.SearchHit
	err  error
}

func (s *stubSearcher) Keyword(_ context.Context, _ string, _ model.IntentFilters, _ int) ([]model.SearchHit, error) {
	return s.hits, s.err
}

func (s *stubSearcher) Vector(_ context.Context, _ []float32, _, _ int, _ model.IntentFilters) ([]model.SearchHit, error) {
	return s.hits, s.err
}

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) Dimensions() int { return 2 }

type stubStore struct {
	result         model.AggregationResult
	err            error
	currency       string
	currencyErr    error
	lastFilters    model.IntentFilters
	currencyCalled bool
	aggregateCalls int
}

func (s *stubStore) Aggregate(_ context.Context, filters model.IntentFilters) (model.AggregationResult, error) {
	s.aggregateCalls++
	s.lastFilters = filters
	return s.result, s.err
}

func (s *stubStore) Trend(_ context.Context, _ model.IntentFilters, _ model.Granularity) ([]model.TrendBucket, error) {
	return nil, nil
}

func (s *stubStore) List(_ context.Context, _ model.IntentFilters, _ int) ([]model.TransactionRecord, error) {
	return nil, nil
}

func (s *stubStore) ResolveCurrency(_ context.Context, filters model.IntentFilters) (string, error) {
	s.currencyCalled = true
	s.lastFilters = filters
	return s.currency, s.currencyErr
}

func newTwoStepFixture(searcher *stubSearcher, store *stubStore) *TwoStep {
	hybrid := search.NewExecutor(searcher, &stubEmbedder{}, search.Config{})
	return NewTwoStep(hybrid, NewExecutor(store), nil)
}

func aggregatePlan(filters model.IntentFilters) model.QueryPlan {
	return model.QueryPlan{Strategy: model.StrategyTwoStep, Filters: filters, Size: 20}
}

func TestTwoStepDerivesFiltersFromQueryAndHits(t *testing.T) {
	searcher := &stubSearcher{hits: []model.SearchHit{
		{DocID: "d1", Score: 2, Summary: "International Purchase at Foreign Retailer"},
		{DocID: "d2", Score: 1, Summary: "Foreign transaction markup fee"},
	}}
	store := &stubStore{result: model.AggregationResult{SumDebit: 89.90, Count: 3, Currency: "USD"}}
	twoStep := newTwoStepFixture(searcher, store)

	result, err := twoStep.Execute(context.Background(),
		"How much did I spend on international purchase?",
		aggregatePlan(model.IntentFilters{Type: model.TypeAll}))
	require.NoError(t, err)

	require.NotEmpty(t, result.DerivedFilters)
	assert.Equal(t, "international purchase", result.DerivedFilters[0])
	assert.Equal(t, 89.90, result.Aggregation.SumDebit)
	assert.NotEmpty(t, result.Provenance)

	// The aggregation received at most three derived terms.
	assert.NotEmpty(t, store.lastFilters.TextTerms)
	assert.LessOrEqual(t, len(store.lastFilters.TextTerms), maxDerivedTerms)
	assert.Equal(t, "international purchase", store.lastFilters.TextTerms[0])
}

func TestTwoStepSemanticFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{err: &common.RetryableError{Err: errors.New("cluster down"), Retryable: false}}
	store := &stubStore{result: model.AggregationResult{Count: 1, Currency: "USD"}}
	twoStep := newTwoStepFixture(searcher, store)

	result, err := twoStep.Execute(context.Background(),
		"How much did I spend on groceries?",
		aggregatePlan(model.IntentFilters{}))
	require.NoError(t, err)

	// The cleaned query alone drives phase 2.
	assert.Equal(t, []string{"groceries"}, result.DerivedFilters)
	assert.Empty(t, result.Provenance)
}

func TestTwoStepBoilerplateOnlyQueryFallsBackUnfiltered(t *testing.T) {
	searcher := &stubSearcher{}
	store := &stubStore{result: model.AggregationResult{SumDebit: 500, Count: 9, Currency: "USD"}}
	twoStep := newTwoStepFixture(searcher, store)

	result, err := twoStep.Execute(context.Background(),
		"How much did I spend?",
		aggregatePlan(model.IntentFilters{DateFrom: "2025-07-01", DateTo: "2025-07-31"}))
	require.NoError(t, err)

	// No derived description filter at all: the totals cover every
	// transaction in the hard-filter window.
	assert.Empty(t, result.DerivedFilters)
	assert.Empty(t, store.lastFilters.TextTerms)
	assert.Equal(t, "2025-07-01", store.lastFilters.DateFrom)
	assert.Equal(t, 9, result.Aggregation.Count)
}

func TestTwoStepAggregationFailurePropagates(t *testing.T) {
	searcher := &stubSearcher{hits: []model.SearchHit{{DocID: "d1", Summary: "fees"}}}
	store := &stubStore{err: &common.RetryableError{Err: errors.New("store down"), Retryable: false}}
	twoStep := newTwoStepFixture(searcher, store)

	_, err := twoStep.Execute(context.Background(), "fees", aggregatePlan(model.IntentFilters{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAggregationUnavailable)
}
