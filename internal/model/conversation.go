package model

import (
	"strings"
	"time"
)

// TurnType identifies the role of a conversation turn.
type TurnType string

// Conversation turn types.
const (
	TurnQuery                 TurnType = "query"
	TurnClarificationRequest  TurnType = "clarification_request"
	TurnClarificationResponse TurnType = "clarification_response"
	TurnConfirmation          TurnType = "confirmation"
)

// ConversationTurn is a single exchange in a clarification dialogue.
type ConversationTurn struct {
	Timestamp time.Time `json:"timestamp"`
	Type      TurnType  `json:"type"`
	Text      string    `json:"text"`
}

// ConversationState is what the session is waiting on.
type ConversationState string

// Conversation states with pending user input.
const (
	StateAwaitingConfirmation  ConversationState = "awaiting_confirmation"
	StateAwaitingClarification ConversationState = "awaiting_clarification"
)

// ConversationContext accumulates the turns of one logical query. It is
// owned exclusively by a single session and discarded once the query
// resolves, is rejected, or exhausts its clarification rounds.
type ConversationContext struct {
	SessionID     string             `json:"sessionId"`
	OriginalQuery string             `json:"originalQuery"`
	State         ConversationState  `json:"state"`
	Turns         []ConversationTurn `json:"turns"`
	// Rounds counts accepted clarification rounds for this logical query.
	Rounds int `json:"rounds"`
	// Pending holds the classification awaiting user confirmation.
	Pending *IntentClassification `json:"pending,omitempty"`
}

// AddTurn appends a turn stamped with the current time.
func (c *ConversationContext) AddTurn(turnType TurnType, text string) {
	c.Turns = append(c.Turns, ConversationTurn{
		Type:      turnType,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// CumulativeQuery joins the original query with every clarification
// response, in order.
func (c *ConversationContext) CumulativeQuery() string {
	parts := []string{c.OriginalQuery}
	for _, turn := range c.Turns {
		if turn.Type == TurnClarificationResponse {
			parts = append(parts, turn.Text)
		}
	}
	return strings.Join(parts, " ")
}

// PromptContext renders the conversation for inclusion in a classification
// prompt. Empty when no turns have been recorded.
func (c *ConversationContext) PromptContext() string {
	if len(c.Turns) == 0 {
		return ""
	}
	lines := []string{"### Previous Conversation:"}
	for _, turn := range c.Turns {
		switch turn.Type {
		case TurnQuery:
			lines = append(lines, "User originally asked: "+turn.Text)
		case TurnClarificationRequest:
			lines = append(lines, "System asked for clarification: "+turn.Text)
		case TurnClarificationResponse:
			lines = append(lines, "User clarified: "+turn.Text)
		case TurnConfirmation:
			lines = append(lines, "User confirmed: "+turn.Text)
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
