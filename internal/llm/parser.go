package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"finsight/internal/model"
)

// cleanMarkdownWrapper strips markdown code fences that some models wrap
// around JSON output despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	content = strings.TrimPrefix(content, "json\n")

	return strings.TrimSpace(content)
}

// classificationWire is the raw JSON shape the router prompt demands.
// Fields are validated before they become a model.IntentClassification;
// unchecked values never leak into the engine.
type classificationWire struct {
	Intent  string `json:"intent"`
	Filters struct {
		AccountIDs   []string `json:"accountIds"`
		DateFrom     *string  `json:"dateFrom"`
		DateTo       *string  `json:"dateTo"`
		Counterparty []string `json:"counterparty"`
		MinAmount    *float64 `json:"minAmount"`
		MaxAmount    *float64 `json:"maxAmount"`
		Type         string   `json:"type"`
		Limit        *int     `json:"limit"`
		Granularity  string   `json:"granularity"`
	} `json:"filters"`
	Metrics            []string `json:"metrics"`
	NeedsTable         bool     `json:"needsTable"`
	AnswerStyle        string   `json:"answerStyle"`
	Confidence         *float64 `json:"confidence"`
	NeedsClarification bool     `json:"needsClarification"`
	ClarifyQuestion    *string  `json:"clarifyQuestion"`
	Provenance         bool     `json:"provenance"`
	Reasoning          *string  `json:"reasoning"`
}

// parseClassification validates a raw LLM response against the strict
// classification schema. Any deviation is an error; values are never
// silently coerced.
func parseClassification(content string) (model.IntentClassification, error) {
	content = cleanMarkdownWrapper(content)

	var wire classificationWire
	decoder := json.NewDecoder(strings.NewReader(content))
	if err := decoder.Decode(&wire); err != nil {
		return model.IntentClassification{}, fmt.Errorf("response is not valid JSON: %w", err)
	}

	intent := model.Intent(wire.Intent)
	if !intent.Valid() {
		return model.IntentClassification{}, fmt.Errorf("unknown intent %q", wire.Intent)
	}

	if wire.Confidence == nil {
		return model.IntentClassification{}, fmt.Errorf("confidence missing")
	}
	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return model.IntentClassification{}, fmt.Errorf("confidence %v outside [0,1]", *wire.Confidence)
	}

	if wire.NeedsClarification && (wire.ClarifyQuestion == nil || strings.TrimSpace(*wire.ClarifyQuestion) == "") {
		return model.IntentClassification{}, fmt.Errorf("needsClarification set without clarifyQuestion")
	}

	txType := model.TypeAll
	switch wire.Filters.Type {
	case "", "all":
	case "credit":
		txType = model.TypeCredit
	case "debit":
		txType = model.TypeDebit
	default:
		return model.IntentClassification{}, fmt.Errorf("unknown transaction type %q", wire.Filters.Type)
	}

	granularity := model.GranularityMonthly
	switch wire.Filters.Granularity {
	case "", "monthly":
	case "daily":
		granularity = model.GranularityDaily
	case "weekly":
		granularity = model.GranularityWeekly
	default:
		return model.IntentClassification{}, fmt.Errorf("unknown granularity %q", wire.Filters.Granularity)
	}

	style := model.StyleConcise
	switch wire.AnswerStyle {
	case "", "concise":
	case "detailed":
		style = model.StyleDetailed
	default:
		return model.IntentClassification{}, fmt.Errorf("unknown answer style %q", wire.AnswerStyle)
	}

	classification := model.IntentClassification{
		Intent: intent,
		Filters: model.IntentFilters{
			AccountIDs:   wire.Filters.AccountIDs,
			Counterparty: wire.Filters.Counterparty,
			MinAmount:    wire.Filters.MinAmount,
			MaxAmount:    wire.Filters.MaxAmount,
			Type:         txType,
			Granularity:  granularity,
		},
		Metrics:            wire.Metrics,
		Confidence:         *wire.Confidence,
		NeedsClarification: wire.NeedsClarification,
		NeedsTable:         wire.NeedsTable,
		AnswerStyle:        style,
		WantsProvenance:    wire.Provenance,
	}

	if wire.Filters.DateFrom != nil {
		classification.Filters.DateFrom = *wire.Filters.DateFrom
	}
	if wire.Filters.DateTo != nil {
		classification.Filters.DateTo = *wire.Filters.DateTo
	}
	if wire.Filters.Limit != nil {
		classification.Filters.Limit = *wire.Filters.Limit
	}
	if wire.ClarifyQuestion != nil {
		classification.ClarifyQuestion = strings.TrimSpace(*wire.ClarifyQuestion)
	}
	if wire.Reasoning != nil {
		classification.Reasoning = *wire.Reasoning
	}

	if err := classification.Validate(); err != nil {
		return model.IntentClassification{}, err
	}

	return classification, nil
}
