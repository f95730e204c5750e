package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finsight/internal/common"
	"finsight/internal/model"
)

// defaultClassifyTimeout bounds a single classification call. Higher than
// search timeouts because the model resolves dates and reasons about
// intent before emitting the plan.
const defaultClassifyTimeout = 10 * time.Second

// Router implements service.IntentClassifier on top of a raw LLM client.
// It enforces a caller-side timeout and maps provider failures onto the
// classification error taxonomy.
type Router struct {
	client  Client
	timeout time.Duration
	now     func() time.Time
}

// NewRouter creates an intent router around the given client.
func NewRouter(client Client, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	return &Router{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// Classify sends the query (with optional conversation context) to the
// model and validates the returned plan. Malformed responses are
// ErrInvalidSchema, never coerced.
func (r *Router) Classify(ctx context.Context, query string, conversation *model.ConversationContext) (model.IntentClassification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	promptContext := ""
	if conversation != nil {
		promptContext = conversation.PromptContext()
	}
	system, user := buildRouterPrompts(query, promptContext, r.now())

	start := time.Now()
	content, err := r.client.Complete(ctx, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return model.IntentClassification{}, fmt.Errorf("%w: %v", common.ErrClassificationTimeout, err)
		}
		return model.IntentClassification{}, fmt.Errorf("%w: %v", common.ErrClassifierUnavailable, err)
	}

	classification, err := parseClassification(content)
	if err != nil {
		slog.Warn("Rejected classification response",
			"error", err,
			"response_prefix", truncate(content, 200))
		return model.IntentClassification{}, fmt.Errorf("%w: %v", common.ErrInvalidSchema, err)
	}

	slog.Debug("Intent classified",
		"intent", classification.Intent,
		"confidence", classification.Confidence,
		"needs_clarification", classification.NeedsClarification,
		"duration", time.Since(start))

	return classification, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
