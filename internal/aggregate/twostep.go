package aggregate

import (
	"context"
	"log/slog"

	"finsight/internal/model"
	"finsight/internal/search"
)

// Phase-2 sizing: how many phase-1 hits to fetch and how many derived
// terms feed the disjunctive description filter.
const (
	phaseOneHits    = 10
	maxDerivedTerms = 3
)

// minCleanedLen is the shortest cleaned query that can still drive the
// derived filter on its own when phase 1 finds nothing.
const minCleanedLen = 3

// TwoStepResult packages the output of the two-step pipeline.
type TwoStepResult struct {
	Aggregation    model.AggregationResult `json:"aggregation"`
	Provenance     []model.Provenance      `json:"provenance,omitempty"`
	DerivedFilters []string                `json:"derivedFilters,omitempty"`
}

// TwoStep composes the hybrid search executor with the structured
// aggregation executor: statements are searched for the concept, the
// results become description filters, and the matching transactions are
// aggregated.
type TwoStep struct {
	hybrid    *search.Executor
	executor  *Executor
	extractor TermExtractor
}

// NewTwoStep creates the two-step aggregator. A nil extractor gets the
// default stop-phrase implementation.
func NewTwoStep(hybrid *search.Executor, executor *Executor, extractor TermExtractor) *TwoStep {
	if extractor == nil {
		extractor = NewStopPhraseExtractor()
	}
	return &TwoStep{hybrid: hybrid, executor: executor, extractor: extractor}
}

// Execute runs the pipeline for an aggregate_filtered_by_text plan. The
// phases are sequential by data dependency: phase 2 needs phase 1's hits.
func (t *TwoStep) Execute(ctx context.Context, rawQuery string, plan model.QueryPlan) (TwoStepResult, error) {
	// Phase 1: semantic search over statements with the raw query.
	hits, provenance, err := t.hybrid.Search(ctx, rawQuery, plan.Filters, phaseOneHits)
	if err != nil {
		// The cleaned user query still drives phase 2, so a failed
		// semantic phase degrades instead of failing the request.
		slog.Warn("Semantic phase failed, continuing with query-derived filters only", "error", err)
		hits, provenance = nil, nil
	}

	cleaned := t.extractor.CleanQuery(rawQuery)

	// With no hits and no usable cleaned query there is nothing to
	// derive: fall back to an unfiltered aggregate over the hard
	// structured filters rather than matching nothing and reporting a
	// false zero.
	if len(hits) == 0 && len(cleaned) < minCleanedLen {
		slog.Info("No derivable terms, falling back to unfiltered aggregation",
			"cleaned_query", cleaned)
		filters := plan.Filters
		filters.TextTerms = nil
		result, err := t.executor.Aggregate(ctx, filters)
		if err != nil {
			return TwoStepResult{}, err
		}
		return TwoStepResult{Aggregation: result}, nil
	}

	// Phase 2: derive description filter terms. The cleaned query leads
	// so zero semantic hits never yield an empty filter set.
	derived := t.extractor.DeriveTerms(cleaned, hits)

	// Phase 3: structured aggregation with the top derived terms ORed
	// over the description field, combined with the plan's hard filters.
	filters := plan.Filters
	filters.TextTerms = derived
	if len(filters.TextTerms) > maxDerivedTerms {
		filters.TextTerms = filters.TextTerms[:maxDerivedTerms]
	}

	result, err := t.executor.Aggregate(ctx, filters)
	if err != nil {
		return TwoStepResult{}, err
	}

	slog.Debug("Two-step aggregation complete",
		"derived_terms", len(derived),
		"semantic_hits", len(hits),
		"matched", result.Count)

	return TwoStepResult{
		Aggregation:    result,
		Provenance:     provenance,
		DerivedFilters: derived,
	}, nil
}
