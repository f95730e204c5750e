package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/model"
)

const validResponse = `{
	"intent": "aggregate",
	"filters": {
		"accountIds": ["ACC-1"],
		"dateFrom": "2025-07-01",
		"dateTo": "2025-07-31",
		"counterparty": ["bkash"],
		"minAmount": null,
		"maxAmount": null,
		"type": "debit",
		"limit": null,
		"granularity": "monthly"
	},
	"metrics": ["sum_expense"],
	"needsTable": false,
	"answerStyle": "concise",
	"confidence": 0.92,
	"needsClarification": false,
	"clarifyQuestion": null,
	"provenance": false,
	"reasoning": "clear aggregation request"
}`

func TestParseClassificationValid(t *testing.T) {
	c, err := parseClassification(validResponse)
	require.NoError(t, err)

	assert.Equal(t, model.IntentAggregate, c.Intent)
	assert.Equal(t, 0.92, c.Confidence)
	assert.Equal(t, "2025-07-01", c.Filters.DateFrom)
	assert.Equal(t, model.TypeDebit, c.Filters.Type)
	assert.Equal(t, []string{"bkash"}, c.Filters.Counterparty)
	assert.Equal(t, []string{"sum_expense"}, c.Metrics)
	assert.False(t, c.NeedsClarification)
}

func TestParseClassificationStripsMarkdownFence(t *testing.T) {
	wrapped := "```json\n" + validResponse + "\n```"
	c, err := parseClassification(wrapped)
	require.NoError(t, err)
	assert.Equal(t, model.IntentAggregate, c.Intent)
}

func TestParseClassificationRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I think the user wants a total."},
		{"unknown intent", `{"intent": "forecast", "confidence": 0.9, "filters": {}}`},
		{"missing confidence", `{"intent": "aggregate", "filters": {}}`},
		{"confidence above one", `{"intent": "aggregate", "confidence": 1.4, "filters": {}}`},
		{"negative confidence", `{"intent": "aggregate", "confidence": -0.1, "filters": {}}`},
		{"unknown type", `{"intent": "aggregate", "confidence": 0.9, "filters": {"type": "transfer"}}`},
		{"unknown granularity", `{"intent": "trend", "confidence": 0.9, "filters": {"granularity": "hourly"}}`},
		{"unknown answer style", `{"intent": "aggregate", "confidence": 0.9, "filters": {}, "answerStyle": "verbose"}`},
		{"clarification without question", `{"intent": "aggregate", "confidence": 0.4, "filters": {}, "needsClarification": true}`},
		{"blank clarify question", `{"intent": "aggregate", "confidence": 0.4, "filters": {}, "needsClarification": true, "clarifyQuestion": "  "}`},
		{"inverted dates", `{"intent": "aggregate", "confidence": 0.9, "filters": {"dateFrom": "2025-08-01", "dateTo": "2025-07-01"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseClassification(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestParseClassificationDefaults(t *testing.T) {
	c, err := parseClassification(`{"intent": "text_qa", "confidence": 0.8, "filters": {}}`)
	require.NoError(t, err)

	assert.Equal(t, model.TypeAll, c.Filters.Type)
	assert.Equal(t, model.GranularityMonthly, c.Filters.Granularity)
	assert.Equal(t, model.StyleConcise, c.AnswerStyle)
}

func TestParseClassificationClarification(t *testing.T) {
	c, err := parseClassification(`{
		"intent": "aggregate",
		"confidence": 0.5,
		"filters": {},
		"needsClarification": true,
		"clarifyQuestion": " Which account do you mean? "
	}`)
	require.NoError(t, err)

	assert.True(t, c.NeedsClarification)
	assert.Equal(t, "Which account do you mean?", c.ClarifyQuestion)
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.in))
		})
	}
}
