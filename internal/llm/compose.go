package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finsight/internal/model"
)

const composeSystemPrompt = `You are a personal-finance assistant. Answer the user's question
using ONLY the structured result and citations provided. Use the result's currency when you
mention money; write dates as YYYY-MM-DD. If the result is empty, say so plainly. Cite sources
by their bracketed labels when citations are provided. Do not invent numbers.`

// AnswerComposer implements service.Composer by handing the packaged
// result to the model for phrasing. The engine produces the input; the
// prose itself is entirely the model's.
type AnswerComposer struct {
	client Client
}

// NewAnswerComposer creates a composer around the given client.
func NewAnswerComposer(client Client) *AnswerComposer {
	return &AnswerComposer{client: client}
}

// ComposeAnswer phrases the result as natural language.
func (c *AnswerComposer) ComposeAnswer(ctx context.Context, query string, result any, provenance []model.Provenance) (string, error) {
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("User question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nResult:\n")
	sb.Write(resultJSON)

	if len(provenance) > 0 {
		sb.WriteString("\n\nCitations:\n")
		for i, p := range provenance {
			fmt.Fprintf(&sb, "[%d] %s (p.%d)\n", i+1, p.CitationLabel, p.Page)
		}
	}

	return c.client.Complete(ctx, composeSystemPrompt, sb.String())
}
