// Package elastic implements the statement and transaction stores on
// Elasticsearch. Queries are built as plain maps so the builders stay
// testable without a live cluster.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"finsight/internal/common"
)

// Config holds the Elasticsearch connection settings and index names.
type Config struct {
	Addresses         []string
	Username          string
	Password          string
	APIKey            string
	StatementsIndex   string
	TransactionsIndex string
}

// Default index names.
const (
	DefaultStatementsIndex   = "statements"
	DefaultTransactionsIndex = "transactions"
)

// Store wraps an Elasticsearch client with the two indices the engine
// queries. It implements both service.SemanticSearcher and
// service.StructuredStore.
type Store struct {
	client            *elasticsearch.Client
	statementsIndex   string
	transactionsIndex string
}

// New creates a store from the connection settings.
func New(cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: elasticsearch addresses", common.ErrMissingConfig)
	}
	if cfg.StatementsIndex == "" {
		cfg.StatementsIndex = DefaultStatementsIndex
	}
	if cfg.TransactionsIndex == "" {
		cfg.TransactionsIndex = DefaultTransactionsIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Store{
		client:            client,
		statementsIndex:   cfg.StatementsIndex,
		transactionsIndex: cfg.TransactionsIndex,
	}, nil
}

// Ping verifies the cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSearchUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("%w: %s", common.ErrSearchUnavailable, res.Status())
	}
	return nil
}

// searchResponse is the subset of the search API response the store reads.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type esHit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// search runs one request against an index and decodes the envelope. A
// 4xx status maps to ErrMalformedQuery since retrying an identical bad
// request cannot help; everything else maps to a retryable outage.
func (s *Store) search(ctx context.Context, index string, body map[string]any) (*searchResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrSearchUnavailable, err),
			Retryable: true,
		}
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %s: %s", common.ErrMalformedQuery, res.Status(), detail)
		}
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %s: %s", common.ErrSearchUnavailable, res.Status(), detail),
			Retryable: true,
		}
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &decoded, nil
}

// parseDate tolerates both plain dates and full timestamps in stored
// documents.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
