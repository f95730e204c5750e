// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// Intent is the classified category of a user request.
type Intent string

// Known intent types.
const (
	IntentAggregate               Intent = "aggregate"
	IntentTextQA                  Intent = "text_qa"
	IntentAggregateFilteredByText Intent = "aggregate_filtered_by_text"
	IntentListing                 Intent = "listing"
	IntentTrend                   Intent = "trend"
	IntentProvenance              Intent = "provenance"
)

// Valid reports whether the intent is one of the six known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentAggregate, IntentTextQA, IntentAggregateFilteredByText,
		IntentListing, IntentTrend, IntentProvenance:
		return true
	}
	return false
}

// TransactionType filters transactions by direction.
type TransactionType string

// Transaction type filter values.
const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
	TypeAll    TransactionType = "all"
)

// Granularity is the time bucket size for trend queries.
type Granularity string

// Trend granularities.
const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// AnswerStyle is the preferred verbosity of the composed answer.
type AnswerStyle string

// Answer styles.
const (
	StyleConcise  AnswerStyle = "concise"
	StyleDetailed AnswerStyle = "detailed"
)

// IntentFilters holds the structured constraints extracted from a query.
// Dates are ISO-8601 (YYYY-MM-DD); the classifier resolves relative dates
// before they reach the planner.
type IntentFilters struct {
	DateFrom     string          `json:"dateFrom,omitempty"`
	DateTo       string          `json:"dateTo,omitempty"`
	AccountIDs   []string        `json:"accountIds,omitempty"`
	MinAmount    *float64        `json:"minAmount,omitempty"`
	MaxAmount    *float64        `json:"maxAmount,omitempty"`
	Type         TransactionType `json:"type,omitempty"`
	Counterparty []string        `json:"counterparty,omitempty"`
	TextTerms    []string        `json:"textTerms,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Granularity  Granularity     `json:"granularity,omitempty"`
}

// IntentClassification is the validated result of an LLM classification call.
type IntentClassification struct {
	Intent             Intent        `json:"intent"`
	Filters            IntentFilters `json:"filters"`
	Metrics            []string      `json:"metrics,omitempty"`
	Confidence         float64       `json:"confidence"`
	NeedsClarification bool          `json:"needsClarification"`
	ClarifyQuestion    string        `json:"clarifyQuestion,omitempty"`
	NeedsTable         bool          `json:"needsTable,omitempty"`
	AnswerStyle        AnswerStyle   `json:"answerStyle,omitempty"`
	WantsProvenance    bool          `json:"provenance,omitempty"`
	Reasoning          string        `json:"reasoning,omitempty"`
}

// Validate checks the invariants that hold for every classification the
// engine accepts.
func (c *IntentClassification) Validate() error {
	if !c.Intent.Valid() {
		return fmt.Errorf("unknown intent %q", c.Intent)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", c.Confidence)
	}
	if c.Filters.DateFrom != "" && c.Filters.DateTo != "" && c.Filters.DateTo < c.Filters.DateFrom {
		return fmt.Errorf("dateTo %s before dateFrom %s", c.Filters.DateTo, c.Filters.DateFrom)
	}
	return nil
}
