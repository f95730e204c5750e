// Package planner turns a validated intent classification into a
// normalized, ready-to-execute query plan. Planning is a pure function:
// no I/O, no state, same plan for the same classification.
package planner

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finsight/internal/common"
	"finsight/internal/model"
)

// Result size bounds. Listing queries default higher because the user
// asked for rows, not a number.
const (
	minSize            = 1
	maxSize            = 100
	defaultSize        = 20
	defaultListingSize = 50
)

// Plan maps a classification onto an execution strategy and normalizes
// its filters. Unknown intents are ErrUnsupportedIntent: enum drift
// between classifier and planner, fatal and distinct from missing data.
func Plan(classification model.IntentClassification) (model.QueryPlan, error) {
	var strategy model.Strategy

	switch classification.Intent {
	case model.IntentAggregate:
		strategy = model.StrategyAggregate
	case model.IntentTrend:
		strategy = model.StrategyTrend
	case model.IntentListing:
		strategy = model.StrategyListing
	case model.IntentTextQA:
		strategy = model.StrategySemantic
	case model.IntentProvenance:
		strategy = model.StrategyProvenanceOnly
	case model.IntentAggregateFilteredByText:
		strategy = model.StrategyTwoStep
	default:
		return model.QueryPlan{}, fmt.Errorf("%w: %q", common.ErrUnsupportedIntent, classification.Intent)
	}

	filters := normalizeFilters(classification.Filters)

	size := filters.Limit
	if size == 0 {
		size = defaultSize
		if strategy == model.StrategyListing {
			size = defaultListingSize
		}
	}
	size = clamp(size, minSize, maxSize)

	return model.QueryPlan{
		Strategy:    strategy,
		Filters:     filters,
		Metrics:     classification.Metrics,
		Size:        size,
		NeedsTable:  classification.NeedsTable,
		AnswerStyle: classification.AnswerStyle,
	}, nil
}

// normalizeFilters validates dates, lower-cases and trims term lists and
// drops empties. Dates arrive already resolved by the classifier; the
// planner only checks them.
func normalizeFilters(f model.IntentFilters) model.IntentFilters {
	out := f

	out.DateFrom = validDate(f.DateFrom)
	out.DateTo = validDate(f.DateTo)
	if out.DateFrom != "" && out.DateTo != "" && out.DateTo < out.DateFrom {
		slog.Warn("Dropping inverted date range", "date_from", out.DateFrom, "date_to", out.DateTo)
		out.DateFrom, out.DateTo = "", ""
	}

	out.AccountIDs = cleanTerms(f.AccountIDs, false)
	out.Counterparty = cleanTerms(f.Counterparty, true)
	out.TextTerms = cleanTerms(f.TextTerms, true)

	if out.MinAmount != nil && out.MaxAmount != nil && *out.MaxAmount < *out.MinAmount {
		slog.Warn("Dropping inverted amount range", "min", *out.MinAmount, "max", *out.MaxAmount)
		out.MinAmount, out.MaxAmount = nil, nil
	}

	if out.Type == "" {
		out.Type = model.TypeAll
	}
	if out.Granularity == "" {
		out.Granularity = model.GranularityMonthly
	}
	if out.Limit < 0 {
		out.Limit = 0
	}

	return out
}

// validDate returns s if it parses as an ISO-8601 date, else "".
func validDate(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		slog.Warn("Dropping unparseable date filter", "value", s)
		return ""
	}
	return s
}

// cleanTerms trims (and optionally lower-cases) every term, dropping the
// ones that end up empty. Account identifiers keep their case.
func cleanTerms(terms []string, lower bool) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if lower {
			t = strings.ToLower(t)
		}
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
