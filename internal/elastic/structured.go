package elastic

import (
	"context"
	"encoding/json"
	"fmt"

	"finsight/internal/model"
)

// topBreakdownSize bounds the counterparty and category breakdowns.
const topBreakdownSize = 10

// minimumShouldMatch for the derived description filter: at least half
// of the derived terms must match, so one stray term cannot drag in
// unrelated transactions.
const derivedTermsMinimumMatch = "50%"

// transactionSource mirrors the stored transaction document.
type transactionSource struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	Counterparty string  `json:"counterparty"`
	Category     string  `json:"category"`
	AccountNo    string  `json:"account_no"`
	Balance      float64 `json:"balance"`
	BankName     string  `json:"bank_name"`
	Currency     string  `json:"currency"`
}

// Aggregate computes sums, net, count and top-N breakdowns over the
// matching transactions.
func (s *Store) Aggregate(ctx context.Context, filters model.IntentFilters) (model.AggregationResult, error) {
	body := buildAggregateQuery(filters)
	res, err := s.search(ctx, s.transactionsIndex, body)
	if err != nil {
		return model.AggregationResult{}, err
	}

	var result model.AggregationResult
	result.Count = res.Hits.Total.Value

	credit, err := decodeFilterSum(res.Aggregations, "credit")
	if err != nil {
		return model.AggregationResult{}, err
	}
	debit, err := decodeFilterSum(res.Aggregations, "debit")
	if err != nil {
		return model.AggregationResult{}, err
	}
	result.SumCredit = credit
	result.SumDebit = debit
	result.Net = credit - debit

	counterparties, err := decodeTerms(res.Aggregations, "counterparties")
	if err != nil {
		return model.AggregationResult{}, err
	}
	for _, b := range counterparties {
		result.TopCounterparties = append(result.TopCounterparties, model.CounterpartyTotal{
			Name:  b.Key,
			Count: b.DocCount,
			Total: b.Total.Value,
		})
	}

	categories, err := decodeTerms(res.Aggregations, "categories")
	if err != nil {
		return model.AggregationResult{}, err
	}
	for _, b := range categories {
		result.TopCategories = append(result.TopCategories, model.CategoryTotal{
			Category: b.Key,
			Count:    b.DocCount,
			Total:    b.Total.Value,
		})
	}

	currencies, err := decodeTerms(res.Aggregations, "currencies")
	if err != nil {
		return model.AggregationResult{}, err
	}
	if len(currencies) > 0 {
		result.Currency = currencies[0].Key
	}

	return result, nil
}

// Trend buckets the matching transactions into calendar periods.
func (s *Store) Trend(ctx context.Context, filters model.IntentFilters, granularity model.Granularity) ([]model.TrendBucket, error) {
	body := buildTrendQuery(filters, granularity)
	res, err := s.search(ctx, s.transactionsIndex, body)
	if err != nil {
		return nil, err
	}

	raw, ok := res.Aggregations["periods"]
	if !ok {
		return nil, fmt.Errorf("trend response missing periods aggregation")
	}
	var periods struct {
		Buckets []struct {
			KeyAsString string          `json:"key_as_string"`
			DocCount    int             `json:"doc_count"`
			Credit      filterSumBucket `json:"credit"`
			Debit       filterSumBucket `json:"debit"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil, fmt.Errorf("failed to decode trend buckets: %w", err)
	}

	buckets := make([]model.TrendBucket, 0, len(periods.Buckets))
	for _, b := range periods.Buckets {
		start, ok := parseDate(b.KeyAsString)
		if !ok {
			return nil, fmt.Errorf("unparseable trend bucket key %q", b.KeyAsString)
		}
		buckets = append(buckets, model.TrendBucket{
			Start:  start,
			Credit: b.Credit.Total.Value,
			Debit:  b.Debit.Total.Value,
			Net:    b.Credit.Total.Value - b.Debit.Total.Value,
			Count:  b.DocCount,
		})
	}
	return buckets, nil
}

// List returns up to limit matching transactions, newest first.
func (s *Store) List(ctx context.Context, filters model.IntentFilters, limit int) ([]model.TransactionRecord, error) {
	body := buildListQuery(filters, limit)
	res, err := s.search(ctx, s.transactionsIndex, body)
	if err != nil {
		return nil, err
	}

	records := make([]model.TransactionRecord, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var source transactionSource
		if err := json.Unmarshal(hit.Source, &source); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", hit.ID, err)
		}
		date, ok := parseDate(source.Date)
		if !ok {
			return nil, fmt.Errorf("unparseable transaction date %q", source.Date)
		}
		records = append(records, model.TransactionRecord{
			Date:        date,
			Amount:      source.Amount,
			Type:        source.Type,
			Description: source.Description,
			Category:    source.Category,
			AccountNo:   source.AccountNo,
			Balance:     source.Balance,
			BankName:    source.BankName,
			Currency:    source.Currency,
		})
	}
	return records, nil
}

// ResolveCurrency finds any matched record's currency under the hard
// filters alone.
func (s *Store) ResolveCurrency(ctx context.Context, filters model.IntentFilters) (string, error) {
	body := map[string]any{
		"size":    1,
		"query":   transactionQuery(filters),
		"_source": []string{"currency"},
	}
	res, err := s.search(ctx, s.transactionsIndex, body)
	if err != nil {
		return "", err
	}
	if len(res.Hits.Hits) == 0 {
		return "", nil
	}
	var source transactionSource
	if err := json.Unmarshal(res.Hits.Hits[0].Source, &source); err != nil {
		return "", fmt.Errorf("failed to decode currency probe: %w", err)
	}
	return source.Currency, nil
}

func buildAggregateQuery(filters model.IntentFilters) map[string]any {
	return map[string]any{
		"size":             0,
		"track_total_hits": true,
		"query":            transactionQuery(filters),
		"aggs": map[string]any{
			"credit": typeSumAgg("credit"),
			"debit":  typeSumAgg("debit"),
			"counterparties": map[string]any{
				"terms": map[string]any{"field": "counterparty.keyword", "size": topBreakdownSize},
				"aggs":  map[string]any{"total": sumAgg()},
			},
			"categories": map[string]any{
				"terms": map[string]any{"field": "category.keyword", "size": topBreakdownSize},
				"aggs":  map[string]any{"total": sumAgg()},
			},
			"currencies": map[string]any{
				"terms": map[string]any{"field": "currency.keyword", "size": 1},
			},
		},
	}
}

func buildTrendQuery(filters model.IntentFilters, granularity model.Granularity) map[string]any {
	interval := "month"
	switch granularity {
	case model.GranularityDaily:
		interval = "day"
	case model.GranularityWeekly:
		interval = "week"
	}

	return map[string]any{
		"size":  0,
		"query": transactionQuery(filters),
		"aggs": map[string]any{
			"periods": map[string]any{
				"date_histogram": map[string]any{
					"field":             "date",
					"calendar_interval": interval,
					"min_doc_count":     0,
				},
				"aggs": map[string]any{
					"credit": typeSumAgg("credit"),
					"debit":  typeSumAgg("debit"),
				},
			},
		},
	}
}

func buildListQuery(filters model.IntentFilters, limit int) map[string]any {
	return map[string]any{
		"size":  limit,
		"query": transactionQuery(filters),
		"sort": []any{
			map[string]any{"date": map[string]any{"order": "desc"}},
		},
	}
}

// transactionQuery maps the normalized filters onto the transaction
// schema as one bool query.
func transactionQuery(filters model.IntentFilters) map[string]any {
	var constraints []any

	if filters.DateFrom != "" || filters.DateTo != "" {
		dateRange := map[string]any{}
		if filters.DateFrom != "" {
			dateRange["gte"] = filters.DateFrom
		}
		if filters.DateTo != "" {
			dateRange["lte"] = filters.DateTo
		}
		constraints = append(constraints, map[string]any{
			"range": map[string]any{"date": dateRange},
		})
	}

	if len(filters.AccountIDs) > 0 {
		constraints = append(constraints, map[string]any{
			"terms": map[string]any{"account_no": filters.AccountIDs},
		})
	}

	if filters.MinAmount != nil || filters.MaxAmount != nil {
		amountRange := map[string]any{}
		if filters.MinAmount != nil {
			amountRange["gte"] = *filters.MinAmount
		}
		if filters.MaxAmount != nil {
			amountRange["lte"] = *filters.MaxAmount
		}
		constraints = append(constraints, map[string]any{
			"range": map[string]any{"amount": amountRange},
		})
	}

	if filters.Type == model.TypeCredit || filters.Type == model.TypeDebit {
		constraints = append(constraints, map[string]any{
			"term": map[string]any{"type": string(filters.Type)},
		})
	}

	boolQuery := map[string]any{}
	if len(constraints) > 0 {
		boolQuery["filter"] = constraints
	}

	var must []any
	if len(filters.Counterparty) > 0 {
		var should []any
		for _, name := range filters.Counterparty {
			should = append(should,
				map[string]any{"match": map[string]any{"counterparty": name}},
				map[string]any{"match": map[string]any{"description": name}},
			)
		}
		must = append(must, map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		})
	}

	if len(filters.TextTerms) > 0 {
		var should []any
		for _, term := range filters.TextTerms {
			should = append(should, map[string]any{
				"match": map[string]any{"description": term},
			})
		}
		must = append(must, map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": derivedTermsMinimumMatch,
			},
		})
	}

	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(boolQuery) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": boolQuery}
}

func typeSumAgg(transactionType string) map[string]any {
	return map[string]any{
		"filter": map[string]any{"term": map[string]any{"type": transactionType}},
		"aggs":   map[string]any{"total": sumAgg()},
	}
}

func sumAgg() map[string]any {
	return map[string]any{"sum": map[string]any{"field": "amount"}}
}

// filterSumBucket decodes a filter aggregation wrapping a sum.
type filterSumBucket struct {
	DocCount int `json:"doc_count"`
	Total    struct {
		Value float64 `json:"value"`
	} `json:"total"`
}

type termsBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
	Total    struct {
		Value float64 `json:"value"`
	} `json:"total"`
}

func decodeFilterSum(aggs map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := aggs[name]
	if !ok {
		return 0, fmt.Errorf("aggregation response missing %q", name)
	}
	var bucket filterSumBucket
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return 0, fmt.Errorf("failed to decode %q aggregation: %w", name, err)
	}
	return bucket.Total.Value, nil
}

func decodeTerms(aggs map[string]json.RawMessage, name string) ([]termsBucket, error) {
	raw, ok := aggs[name]
	if !ok {
		return nil, nil
	}
	var decoded struct {
		Buckets []termsBucket `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode %q aggregation: %w", name, err)
	}
	return decoded.Buckets, nil
}
