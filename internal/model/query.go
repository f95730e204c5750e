package model

// Strategy selects the execution path for a planned query.
type Strategy string

// Execution strategies.
const (
	StrategyAggregate      Strategy = "aggregate"
	StrategyTrend          Strategy = "trend"
	StrategyListing        Strategy = "listing"
	StrategySemantic       Strategy = "semantic"
	StrategyTwoStep        Strategy = "two_step"
	StrategyProvenanceOnly Strategy = "provenance_only"
)

// QueryPlan is the normalized, ready-to-execute form of a classification.
// Plans are request-scoped: rebuilt for every execution and discarded when
// the turn completes.
type QueryPlan struct {
	Strategy    Strategy      `json:"strategy"`
	Filters     IntentFilters `json:"filters"`
	Metrics     []string      `json:"metrics,omitempty"`
	Size        int           `json:"size"`
	NeedsTable  bool          `json:"needsTable,omitempty"`
	AnswerStyle AnswerStyle   `json:"answerStyle,omitempty"`
}
