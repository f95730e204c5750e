package engine

import "finsight/internal/model"

// ResponseKind discriminates the engine's reply to one turn.
type ResponseKind string

// Response kinds.
const (
	ResponseNeedsConfirmation  ResponseKind = "needs_confirmation"
	ResponseNeedsClarification ResponseKind = "needs_clarification"
	ResponseResult             ResponseKind = "result"
	ResponseReset              ResponseKind = "reset"
)

// Response is the engine's answer to a single turn.
type Response struct {
	Kind ResponseKind `json:"kind"`
	// Summary is the plain-language restatement shown when confirmation
	// is needed.
	Summary string `json:"summary,omitempty"`
	// Question is the clarifying question, surfaced verbatim.
	Question string `json:"question,omitempty"`
	Result   *Result `json:"result,omitempty"`
}

// Result is the packaged outcome of an executed query: the retrieved or
// aggregated data plus citations, ready for downstream answer phrasing.
type Result struct {
	Intent model.Intent `json:"intent"`
	Query  string       `json:"query"`
	// Unclassified marks results produced without a usable
	// classification, so downstream phrasing can caveat them.
	Unclassified bool `json:"unclassified,omitempty"`
	// Degraded marks results produced after the clarification round cap
	// forced execution.
	Degraded bool `json:"degraded,omitempty"`

	Aggregation    *model.AggregationResult  `json:"aggregation,omitempty"`
	Trend          []model.TrendBucket       `json:"trend,omitempty"`
	Records        []model.TransactionRecord `json:"records,omitempty"`
	Hits           []model.FusedResult       `json:"hits,omitempty"`
	Provenance     []model.Provenance        `json:"provenance,omitempty"`
	DerivedFilters []string                  `json:"derivedFilters,omitempty"`

	NeedsTable  bool              `json:"needsTable,omitempty"`
	AnswerStyle model.AnswerStyle `json:"answerStyle,omitempty"`

	// Answer is the composed prose, filled only when a composer is
	// configured.
	Answer string `json:"answer,omitempty"`
	// Notice carries a plain-language caveat ("search temporarily
	// unavailable"), never a raw error code.
	Notice string `json:"notice,omitempty"`
}
