package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finsight/internal/common"
	"finsight/internal/model"
	"finsight/internal/service"
)

// Per-branch sizing, following the ratios the statement index was tuned
// with: the keyword list runs wider than the final cut, the vector branch
// caps at 12 neighbors with 4x candidate oversampling.
const (
	maxVectorK          = 12
	candidateMultiplier = 4
)

// defaultBranchTimeout bounds each retrieval branch independently.
const defaultBranchTimeout = 3 * time.Second

// Config tunes the hybrid executor.
type Config struct {
	RRFConstant   int
	BranchTimeout time.Duration
}

// Executor runs keyword and vector sub-queries concurrently and fuses
// their results.
type Executor struct {
	semantic service.SemanticSearcher
	embedder service.Embedder
	cfg      Config
}

// NewExecutor creates a hybrid search executor.
func NewExecutor(semantic service.SemanticSearcher, embedder service.Embedder, cfg Config) *Executor {
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = DefaultRRFConstant
	}
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = defaultBranchTimeout
	}
	return &Executor{semantic: semantic, embedder: embedder, cfg: cfg}
}

// branchResult carries one strategy's hits across the join.
type branchResult struct {
	name string
	hits []model.SearchHit
	err  error
}

// Search retrieves up to k fused statement hits for the query. The two
// branches fork and join; a failed vector branch degrades the search to
// keyword-only rather than failing the request.
func (e *Executor) Search(ctx context.Context, query string, filters model.IntentFilters, k int) ([]model.FusedResult, []model.Provenance, error) {
	if k <= 0 {
		k = 10
	}

	keywordSize := min(24, max(10, 2*k))
	vectorK := min(maxVectorK, k)

	results := make(chan branchResult, 2)

	go func() {
		hits, err := e.keywordBranch(ctx, query, filters, keywordSize)
		results <- branchResult{name: "keyword", hits: hits, err: err}
	}()
	go func() {
		hits, err := e.vectorBranch(ctx, query, filters, vectorK)
		results <- branchResult{name: "vector", hits: hits, err: err}
	}()

	var lists []rankedList
	var keywordErr, vectorErr error
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			if r.name == "keyword" {
				keywordErr = r.err
			} else {
				vectorErr = r.err
			}
			continue
		}
		if len(r.hits) > 0 {
			lists = append(lists, rankedList{name: r.name, hits: r.hits})
		}
	}

	if vectorErr != nil {
		slog.Warn("Vector search failed, degrading to keyword-only", "error", vectorErr)
	}
	if keywordErr != nil {
		if vectorErr != nil {
			return nil, nil, common.NewUserError(
				"Search is temporarily unavailable. Please try again in a moment.",
				fmt.Errorf("%w: keyword: %v; vector: %v", common.ErrSearchUnavailable, keywordErr, vectorErr))
		}
		slog.Warn("Keyword search failed, continuing with vector results only", "error", keywordErr)
	}

	fused := fuseRRF(lists, k, e.cfg.RRFConstant)
	provenance := buildProvenance(fused)

	slog.Debug("Hybrid search complete",
		"query_prefix", truncate(query, 60),
		"lists", len(lists),
		"fused", len(fused))

	return fused, provenance, nil
}

// keywordBranch runs the keyword sub-query with a single identical retry.
func (e *Executor) keywordBranch(ctx context.Context, query string, filters model.IntentFilters, size int) ([]model.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.BranchTimeout)
	defer cancel()

	var hits []model.SearchHit
	err := common.WithRetry(ctx, func() error {
		var err error
		hits, err = e.semantic.Keyword(ctx, query, filters, size)
		return err
	}, common.RetryOptions{MaxAttempts: 2})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// vectorBranch embeds the query then runs k-nearest-neighbor search.
func (e *Executor) vectorBranch(ctx context.Context, query string, filters model.IntentFilters, k int) ([]model.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.BranchTimeout)
	defer cancel()

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
	}

	return e.semantic.Vector(ctx, vector, k, k*candidateMultiplier, filters)
}

// buildProvenance derives citation entries from fused hits.
func buildProvenance(results []model.FusedResult) []model.Provenance {
	provenance := make([]model.Provenance, 0, len(results))
	for _, r := range results {
		provenance = append(provenance, model.Provenance{
			SourceID:      r.Hit.DocID,
			Page:          r.Hit.Page,
			Score:         r.RRFScore,
			CitationLabel: citationLabel(r.Hit),
		})
	}
	return provenance
}

// citationLabel formats "bank – account (period, p.N)" from whichever
// source fields the statement carries.
func citationLabel(hit model.SearchHit) string {
	label := hit.BankName
	if hit.AccountName != "" {
		if label != "" {
			label += " – "
		}
		label += hit.AccountName
	} else if hit.AccountNo != "" {
		if label != "" {
			label += " – "
		}
		label += hit.AccountNo
	}
	if label == "" {
		label = hit.DocID
	}
	if hit.PeriodFrom != "" || hit.PeriodTo != "" {
		label += fmt.Sprintf(" (%s to %s", hit.PeriodFrom, hit.PeriodTo)
		if hit.Page > 0 {
			label += fmt.Sprintf(", p.%d", hit.Page)
		}
		label += ")"
	} else if hit.Page > 0 {
		label += fmt.Sprintf(" (p.%d)", hit.Page)
	}
	return label
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
