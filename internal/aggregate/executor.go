// Package aggregate executes structured aggregation, trend and listing
// queries against the transaction store, and composes the two-step
// "semantic search, derive filters, aggregate" pipeline on top of them.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"finsight/internal/common"
	"finsight/internal/model"
	"finsight/internal/service"
)

// Executor runs structured queries with a single identical retry and
// resolves a representative currency for empty result sets.
type Executor struct {
	store service.StructuredStore
}

// NewExecutor creates a structured aggregation executor.
func NewExecutor(store service.StructuredStore) *Executor {
	return &Executor{store: store}
}

// Aggregate computes sums, net, count and top-N breakdowns. When nothing
// matches, a secondary lookup against only the hard filters recovers the
// account's real currency so empty results never report a placeholder.
func (e *Executor) Aggregate(ctx context.Context, filters model.IntentFilters) (model.AggregationResult, error) {
	var result model.AggregationResult
	err := common.WithRetry(ctx, func() error {
		var err error
		result, err = e.store.Aggregate(ctx, filters)
		return err
	}, common.RetryOptions{MaxAttempts: 2})
	if err != nil {
		return model.AggregationResult{}, unavailable("aggregate", err)
	}

	if result.Count == 0 || result.Currency == "" {
		currency, err := e.store.ResolveCurrency(ctx, hardFilters(filters))
		if err != nil {
			slog.Warn("Currency fallback lookup failed", "error", err)
		} else if currency != "" {
			result.Currency = currency
		}
	}

	return result, nil
}

// Trend computes per-bucket sums, net and counts.
func (e *Executor) Trend(ctx context.Context, filters model.IntentFilters, granularity model.Granularity) ([]model.TrendBucket, error) {
	var buckets []model.TrendBucket
	err := common.WithRetry(ctx, func() error {
		var err error
		buckets, err = e.store.Trend(ctx, filters, granularity)
		return err
	}, common.RetryOptions{MaxAttempts: 2})
	if err != nil {
		return nil, unavailable("trend", err)
	}
	return buckets, nil
}

// List returns up to limit records sorted by date.
func (e *Executor) List(ctx context.Context, filters model.IntentFilters, limit int) ([]model.TransactionRecord, error) {
	var records []model.TransactionRecord
	err := common.WithRetry(ctx, func() error {
		var err error
		records, err = e.store.List(ctx, filters, limit)
		return err
	}, common.RetryOptions{MaxAttempts: 2})
	if err != nil {
		return nil, unavailable("listing", err)
	}
	return records, nil
}

// hardFilters keeps only the exact structured constraints, dropping the
// text-derived ones. Used for the secondary currency lookup.
func hardFilters(f model.IntentFilters) model.IntentFilters {
	return model.IntentFilters{
		AccountIDs: f.AccountIDs,
		Type:       model.TypeAll,
	}
}

func unavailable(operation string, err error) error {
	return common.NewUserError(
		"Search is temporarily unavailable. Please try again in a moment.",
		fmt.Errorf("%w: %s: %v", common.ErrAggregationUnavailable, operation, err))
}
