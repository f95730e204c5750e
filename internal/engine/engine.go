// Package engine implements the intent-driven query engine: confidence
// branching, the multi-round clarification state machine, and dispatch to
// the hybrid search and aggregation executors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"finsight/internal/aggregate"
	"finsight/internal/common"
	"finsight/internal/model"
	"finsight/internal/planner"
	"finsight/internal/search"
	"finsight/internal/service"
)

// Config holds the engine's tunables.
type Config struct {
	// ConfidenceThreshold is τ: classifications at or below it require
	// user confirmation before executing.
	ConfidenceThreshold float64
	// MaxRounds caps clarification rounds per logical query.
	MaxRounds int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.75,
		MaxRounds:           2,
	}
}

// Engine orchestrates classification, clarification and execution for
// one turn at a time.
type Engine struct {
	classifier service.IntentClassifier
	hybrid     *search.Executor
	aggregator *aggregate.Executor
	twoStep    *aggregate.TwoStep
	sessions   service.SessionStore
	composer   service.Composer
	cfg        Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine. The composer may be nil; results then carry no
// prose answer.
func New(
	classifier service.IntentClassifier,
	hybrid *search.Executor,
	aggregator *aggregate.Executor,
	twoStep *aggregate.TwoStep,
	sessions service.SessionStore,
	composer service.Composer,
	cfg Config,
) *Engine {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfig().ConfidenceThreshold
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	return &Engine{
		classifier: classifier,
		hybrid:     hybrid,
		aggregator: aggregator,
		twoStep:    twoStep,
		sessions:   sessions,
		composer:   composer,
		cfg:        cfg,
		locks:      make(map[string]*sync.Mutex),
	}
}

// HandleTurn processes one user message for a session. Turns for the same
// session serialize on a per-session lock, which makes the clarification
// round bookkeeping an atomic check-and-increment even under overlapping
// submissions.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, userText string) (Response, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := e.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		slog.Warn("Session lookup failed, treating turn as a fresh query", "session_id", sessionID, "error", err)
		conv = nil
	}

	if conv != nil {
		switch conv.State {
		case model.StateAwaitingConfirmation:
			return e.resumeConfirmation(ctx, conv, userText)
		case model.StateAwaitingClarification:
			return e.resumeClarification(ctx, conv, userText)
		}
		// Unknown state: discard and start over.
		e.clearContext(ctx, sessionID)
	}

	return e.freshQuery(ctx, sessionID, userText)
}

// freshQuery classifies a new logical query and branches on the result.
func (e *Engine) freshQuery(ctx context.Context, sessionID, query string) (Response, error) {
	classification, err := e.classifier.Classify(ctx, query, nil)
	if err != nil {
		slog.Warn("Classification failed, executing unclassified", "error", err)
		return e.executeUnclassified(ctx, sessionID, query)
	}
	return e.decide(ctx, sessionID, query, classification, nil)
}

// resumeConfirmation handles the reply to a "should I go ahead?" prompt.
func (e *Engine) resumeConfirmation(ctx context.Context, conv *model.ConversationContext, userText string) (Response, error) {
	accepted, rejected := interpretConfirmation(userText)

	switch {
	case accepted:
		conv.AddTurn(model.TurnConfirmation, "yes")
		if conv.Pending == nil {
			return e.executeUnclassified(ctx, conv.SessionID, conv.CumulativeQuery())
		}
		return e.execute(ctx, conv.SessionID, conv.CumulativeQuery(), *conv.Pending, resultFlags{})
	case rejected:
		// Back to idle with nothing retained.
		e.clearContext(ctx, conv.SessionID)
		slog.Info("User rejected interpretation, session reset", "session_id", conv.SessionID)
		return Response{Kind: ResponseReset}, nil
	default:
		// Not a yes or a no: treat it as a brand-new query.
		e.clearContext(ctx, conv.SessionID)
		return e.freshQuery(ctx, conv.SessionID, userText)
	}
}

// resumeClarification handles the reply to a clarifying question.
func (e *Engine) resumeClarification(ctx context.Context, conv *model.ConversationContext, userText string) (Response, error) {
	if isSkip(userText) {
		// Proceed with what we have, no re-classification.
		query := conv.CumulativeQuery()
		if conv.Pending == nil {
			return e.executeUnclassified(ctx, conv.SessionID, query)
		}
		return e.execute(ctx, conv.SessionID, query, *conv.Pending, resultFlags{})
	}

	// Record the round before acting on it, so a crash between the append
	// and the reclassification never loses the user's answer.
	conv.AddTurn(model.TurnClarificationResponse, userText)
	if err := e.sessions.Save(ctx, conv); err != nil {
		slog.Warn("Failed to persist clarification response", "session_id", conv.SessionID, "error", err)
	}

	cumulative := conv.CumulativeQuery()
	classification, err := e.classifier.Classify(ctx, cumulative, conv)
	if err != nil {
		slog.Warn("Reclassification failed, executing unclassified", "error", err)
		return e.executeUnclassified(ctx, conv.SessionID, cumulative)
	}

	return e.decide(ctx, conv.SessionID, cumulative, classification, conv)
}

// decide applies the confidence/needs-clarification branching to a
// classification. conv is nil for the first round of a logical query.
func (e *Engine) decide(ctx context.Context, sessionID, query string, c model.IntentClassification, conv *model.ConversationContext) (Response, error) {
	if c.NeedsClarification && c.ClarifyQuestion != "" {
		if conv != nil && conv.Rounds >= e.cfg.MaxRounds {
			// Round cap reached: skip this clarification entry and force
			// execution with the best-available cumulative query.
			slog.Warn("Clarification round cap reached, forcing execution",
				"session_id", sessionID,
				"rounds", conv.Rounds,
				"max_rounds", e.cfg.MaxRounds)
			return e.execute(ctx, sessionID, query, c, resultFlags{degraded: true})
		}

		if conv == nil {
			conv = &model.ConversationContext{SessionID: sessionID, OriginalQuery: query}
			conv.AddTurn(model.TurnQuery, query)
		}
		conv.State = model.StateAwaitingClarification
		conv.Pending = &c
		conv.AddTurn(model.TurnClarificationRequest, c.ClarifyQuestion)
		conv.Rounds++
		if err := e.sessions.Save(ctx, conv); err != nil {
			slog.Warn("Failed to persist clarification request, executing instead", "session_id", sessionID, "error", err)
			return e.execute(ctx, sessionID, query, c, resultFlags{degraded: true})
		}

		// The question reaches the user verbatim.
		return Response{Kind: ResponseNeedsClarification, Question: c.ClarifyQuestion}, nil
	}

	if c.Confidence <= e.cfg.ConfidenceThreshold {
		if conv == nil {
			conv = &model.ConversationContext{SessionID: sessionID, OriginalQuery: query}
			conv.AddTurn(model.TurnQuery, query)
		}
		conv.State = model.StateAwaitingConfirmation
		conv.Pending = &c
		if err := e.sessions.Save(ctx, conv); err != nil {
			slog.Warn("Failed to persist confirmation state, executing instead", "session_id", sessionID, "error", err)
			return e.execute(ctx, sessionID, query, c, resultFlags{})
		}

		return Response{Kind: ResponseNeedsConfirmation, Summary: confirmationSummary(c)}, nil
	}

	return e.execute(ctx, sessionID, query, c, resultFlags{})
}

// resultFlags carry execution caveats into the packaged result.
type resultFlags struct {
	unclassified bool
	degraded     bool
}

// executeUnclassified runs the degraded path used whenever no usable
// classification exists: semantic search over statements with the
// best-known query text.
func (e *Engine) executeUnclassified(ctx context.Context, sessionID, query string) (Response, error) {
	fallback := model.IntentClassification{
		Intent:     model.IntentTextQA,
		Confidence: 0,
	}
	return e.execute(ctx, sessionID, query, fallback, resultFlags{unclassified: true})
}

// execute plans and runs a classified query, packages the result, and
// resolves the conversation context.
func (e *Engine) execute(ctx context.Context, sessionID, query string, c model.IntentClassification, flags resultFlags) (Response, error) {
	plan, err := planner.Plan(c)
	if err != nil {
		if errors.Is(err, common.ErrUnsupportedIntent) {
			// Enum drift between classifier and planner. Fatal, and not a
			// data problem.
			slog.Error("Unsupported intent from classifier", "intent", c.Intent, "error", err)
			e.clearContext(ctx, sessionID)
			return Response{}, err
		}
		return Response{}, fmt.Errorf("planning failed: %w", err)
	}

	result := &Result{
		Intent:       c.Intent,
		Query:        query,
		Unclassified: flags.unclassified,
		Degraded:     flags.degraded,
		NeedsTable:   plan.NeedsTable,
		AnswerStyle:  plan.AnswerStyle,
	}

	execErr := e.runStrategy(ctx, query, plan, result)
	if execErr != nil {
		var userErr *common.UserError
		if errors.As(execErr, &userErr) {
			// Surface the plain-language message with no partial data.
			e.clearContext(ctx, sessionID)
			return Response{Kind: ResponseResult, Result: &Result{
				Intent: c.Intent,
				Query:  query,
				Notice: userErr.UserMessage,
			}}, nil
		}
		return Response{}, execErr
	}

	if e.composer != nil {
		answer, composeErr := e.composer.ComposeAnswer(ctx, query, result, result.Provenance)
		if composeErr != nil {
			slog.Warn("Answer composition failed, returning raw result", "error", composeErr)
		} else {
			result.Answer = answer
		}
	}

	// Executed: this logical query is resolved.
	e.clearContext(ctx, sessionID)

	return Response{Kind: ResponseResult, Result: result}, nil
}

// runStrategy dispatches the plan to its executor and fills the result.
func (e *Engine) runStrategy(ctx context.Context, query string, plan model.QueryPlan, result *Result) error {
	switch plan.Strategy {
	case model.StrategyAggregate:
		agg, err := e.aggregator.Aggregate(ctx, plan.Filters)
		if err != nil {
			return err
		}
		result.Aggregation = &agg

	case model.StrategyTrend:
		buckets, err := e.aggregator.Trend(ctx, plan.Filters, plan.Filters.Granularity)
		if err != nil {
			return err
		}
		result.Trend = buckets

	case model.StrategyListing:
		records, err := e.aggregator.List(ctx, plan.Filters, plan.Size)
		if err != nil {
			return err
		}
		result.Records = records

	case model.StrategySemantic, model.StrategyProvenanceOnly:
		hits, provenance, err := e.hybrid.Search(ctx, query, plan.Filters, plan.Size)
		if err != nil {
			return err
		}
		if plan.Strategy == model.StrategySemantic {
			result.Hits = hits
		}
		result.Provenance = provenance

	case model.StrategyTwoStep:
		twoStep, err := e.twoStep.Execute(ctx, query, plan)
		if err != nil {
			return err
		}
		result.Aggregation = &twoStep.Aggregation
		result.Provenance = twoStep.Provenance
		result.DerivedFilters = twoStep.DerivedFilters

	default:
		return fmt.Errorf("%w: %q", common.ErrUnsupportedIntent, plan.Strategy)
	}
	return nil
}

// clearContext discards a session's conversation context.
func (e *Engine) clearContext(ctx context.Context, sessionID string) {
	if err := e.sessions.Clear(ctx, sessionID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		slog.Warn("Failed to clear conversation context", "session_id", sessionID, "error", err)
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}
