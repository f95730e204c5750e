// Package service defines the interfaces consumed by the query engine.
// Implementations live in internal/llm, internal/elastic and
// internal/storage; tests substitute hand-written mocks.
package service

import (
	"context"

	"finsight/internal/model"
)

// IntentClassifier wraps the external LLM classification call. The
// conversation context may be nil for a fresh query.
type IntentClassifier interface {
	Classify(ctx context.Context, query string, conversation *model.ConversationContext) (model.IntentClassification, error)
}

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions reports the vector size the backing model produces.
	Dimensions() int
}

// SemanticSearcher queries the statement store.
type SemanticSearcher interface {
	// Keyword runs a multi-field fuzzy match over statement text, with
	// the summary field boosted, constrained by any structured filters.
	Keyword(ctx context.Context, query string, filters model.IntentFilters, size int) ([]model.SearchHit, error)
	// Vector runs k-nearest-neighbor search by cosine similarity.
	Vector(ctx context.Context, vector []float32, k, numCandidates int, filters model.IntentFilters) ([]model.SearchHit, error)
}

// StructuredStore queries the transaction store.
type StructuredStore interface {
	Aggregate(ctx context.Context, filters model.IntentFilters) (model.AggregationResult, error)
	Trend(ctx context.Context, filters model.IntentFilters, granularity model.Granularity) ([]model.TrendBucket, error)
	List(ctx context.Context, filters model.IntentFilters, limit int) ([]model.TransactionRecord, error)
	// ResolveCurrency finds any matched record's currency using only the
	// hard structured filters. Used when an aggregation matches nothing
	// so empty results still report the real currency code.
	ResolveCurrency(ctx context.Context, filters model.IntentFilters) (string, error)
}

// Composer phrases the final answer. Prose generation is outside this
// engine; it only produces the Composer's input.
type Composer interface {
	ComposeAnswer(ctx context.Context, query string, result any, provenance []model.Provenance) (string, error)
}

// SessionStore persists per-session conversation contexts. A context
// exists only while a logical query is awaiting clarification or
// confirmation.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.ConversationContext, error)
	// Save writes the full context, replacing any previous turns, in a
	// single transaction.
	Save(ctx context.Context, conversation *model.ConversationContext) error
	Clear(ctx context.Context, sessionID string) error
	// PurgeStale removes contexts idle longer than maxIdleSeconds and
	// returns how many were removed.
	PurgeStale(ctx context.Context, maxIdleSeconds int) (int, error)
}
