package elastic

import (
	"context"
	"encoding/json"
	"fmt"

	"finsight/internal/model"
)

// statementSource mirrors the stored statement chunk document.
type statementSource struct {
	AccountNo   string `json:"account_no"`
	AccountName string `json:"account_name"`
	BankName    string `json:"bank_name"`
	PeriodFrom  string `json:"period_from"`
	PeriodTo    string `json:"period_to"`
	Page        int    `json:"page"`
	Summary     string `json:"summary"`
	Text        string `json:"text"`
}

// Keyword runs a fuzzy multi-field match over statement chunks. The
// summary field outweighs the raw text because it names the concepts the
// chunk is about.
func (s *Store) Keyword(ctx context.Context, query string, filters model.IntentFilters, size int) ([]model.SearchHit, error) {
	body := buildKeywordQuery(query, filters, size)
	res, err := s.search(ctx, s.statementsIndex, body)
	if err != nil {
		return nil, err
	}
	return decodeStatementHits(res.Hits.Hits)
}

// Vector runs k-nearest-neighbor search over the statement embeddings.
func (s *Store) Vector(ctx context.Context, vector []float32, k, numCandidates int, filters model.IntentFilters) ([]model.SearchHit, error) {
	body := buildKnnQuery(vector, k, numCandidates, filters)
	res, err := s.search(ctx, s.statementsIndex, body)
	if err != nil {
		return nil, err
	}
	return decodeStatementHits(res.Hits.Hits)
}

func buildKeywordQuery(query string, filters model.IntentFilters, size int) map[string]any {
	match := map[string]any{
		"multi_match": map[string]any{
			"query":     query,
			"fields":    []string{"text", "summary^2", "account_name", "bank_name"},
			"fuzziness": "AUTO",
		},
	}

	boolQuery := map[string]any{"must": []any{match}}
	if constraints := statementConstraints(filters); len(constraints) > 0 {
		boolQuery["filter"] = constraints
	}

	return map[string]any{
		"size":    size,
		"query":   map[string]any{"bool": boolQuery},
		"_source": statementSourceFields(),
	}
}

func buildKnnQuery(vector []float32, k, numCandidates int, filters model.IntentFilters) map[string]any {
	knn := map[string]any{
		"field":          "embedding",
		"query_vector":   vector,
		"k":              k,
		"num_candidates": numCandidates,
	}
	if constraints := statementConstraints(filters); len(constraints) > 0 {
		knn["filter"] = map[string]any{"bool": map[string]any{"filter": constraints}}
	}

	return map[string]any{
		"knn":     knn,
		"size":    k,
		"_source": statementSourceFields(),
	}
}

// statementConstraints maps the hard filters onto the statement schema.
// A statement is in range when its period overlaps the requested window.
func statementConstraints(filters model.IntentFilters) []any {
	var constraints []any
	if len(filters.AccountIDs) > 0 {
		constraints = append(constraints, map[string]any{
			"terms": map[string]any{"account_no": filters.AccountIDs},
		})
	}
	if filters.DateFrom != "" {
		constraints = append(constraints, map[string]any{
			"range": map[string]any{"period_to": map[string]any{"gte": filters.DateFrom}},
		})
	}
	if filters.DateTo != "" {
		constraints = append(constraints, map[string]any{
			"range": map[string]any{"period_from": map[string]any{"lte": filters.DateTo}},
		})
	}
	return constraints
}

func statementSourceFields() []string {
	return []string{
		"account_no", "account_name", "bank_name",
		"period_from", "period_to", "page", "summary", "text",
	}
}

func decodeStatementHits(hits []esHit) ([]model.SearchHit, error) {
	out := make([]model.SearchHit, 0, len(hits))
	for _, hit := range hits {
		var source statementSource
		if err := json.Unmarshal(hit.Source, &source); err != nil {
			return nil, fmt.Errorf("failed to decode statement %s: %w", hit.ID, err)
		}
		out = append(out, model.SearchHit{
			DocID:       hit.ID,
			Score:       hit.Score,
			AccountNo:   source.AccountNo,
			AccountName: source.AccountName,
			BankName:    source.BankName,
			PeriodFrom:  source.PeriodFrom,
			PeriodTo:    source.PeriodTo,
			Page:        source.Page,
			Summary:     source.Summary,
			Text:        source.Text,
		})
	}
	return out, nil
}
