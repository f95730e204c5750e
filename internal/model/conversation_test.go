package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCumulativeQueryJoinsResponsesInOrder(t *testing.T) {
	conv := &ConversationContext{SessionID: "s1", OriginalQuery: "how much did I spend?"}
	conv.AddTurn(TurnQuery, "how much did I spend?")
	conv.AddTurn(TurnClarificationRequest, "For which month?")
	conv.AddTurn(TurnClarificationResponse, "in July")
	conv.AddTurn(TurnClarificationRequest, "Which account?")
	conv.AddTurn(TurnClarificationResponse, "checking")

	assert.Equal(t, "how much did I spend? in July checking", conv.CumulativeQuery())
}

func TestCumulativeQueryWithoutResponses(t *testing.T) {
	conv := &ConversationContext{OriginalQuery: "show my transactions"}
	conv.AddTurn(TurnQuery, "show my transactions")
	conv.AddTurn(TurnClarificationRequest, "From which account?")

	assert.Equal(t, "show my transactions", conv.CumulativeQuery())
}

func TestPromptContextFormat(t *testing.T) {
	conv := &ConversationContext{OriginalQuery: "how much did I spend?"}
	conv.AddTurn(TurnQuery, "how much did I spend?")
	conv.AddTurn(TurnClarificationRequest, "For which month?")
	conv.AddTurn(TurnClarificationResponse, "in July")

	rendered := conv.PromptContext()
	assert.Contains(t, rendered, "### Previous Conversation:")
	assert.Contains(t, rendered, "User originally asked: how much did I spend?")
	assert.Contains(t, rendered, "System asked for clarification: For which month?")
	assert.Contains(t, rendered, "User clarified: in July")
}

func TestPromptContextEmptyWithoutTurns(t *testing.T) {
	conv := &ConversationContext{OriginalQuery: "anything"}
	assert.Empty(t, conv.PromptContext())
}

func TestClassificationValidate(t *testing.T) {
	valid := IntentClassification{Intent: IntentAggregate, Confidence: 0.9}
	assert.NoError(t, valid.Validate())

	unknown := IntentClassification{Intent: "forecast", Confidence: 0.9}
	assert.Error(t, unknown.Validate())

	outOfRange := IntentClassification{Intent: IntentAggregate, Confidence: 1.2}
	assert.Error(t, outOfRange.Validate())

	inverted := IntentClassification{
		Intent:     IntentAggregate,
		Confidence: 0.9,
		Filters:    IntentFilters{DateFrom: "2025-08-01", DateTo: "2025-07-01"},
	}
	assert.Error(t, inverted.Validate())
}
