package main

import (
	"fmt"

	"github.com/spf13/viper"

	"finsight/internal/aggregate"
	"finsight/internal/config"
	"finsight/internal/elastic"
	"finsight/internal/engine"
	"finsight/internal/llm"
	"finsight/internal/search"
	"finsight/internal/service"
	"finsight/internal/storage"
)

// buildEngine wires the full query engine from viper configuration. The
// returned storage must be closed by the caller.
func buildEngine() (*engine.Engine, *storage.SQLiteStorage, error) {
	llmCfg := llm.Config{
		Provider:        viper.GetString("llm.provider"),
		APIKey:          viper.GetString("llm.api_key"),
		Model:           viper.GetString("llm.model"),
		EmbeddingModel:  viper.GetString("llm.embedding_model"),
		Temperature:     viper.GetFloat64("llm.temperature"),
		MaxTokens:       viper.GetInt("llm.max_tokens"),
		ClassifyTimeout: viper.GetDuration("llm.classify_timeout"),
		EmbedTimeout:    viper.GetDuration("llm.embed_timeout"),
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	embedder, err := llm.NewEmbedder(llmCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	classifier := llm.NewRouter(client, llmCfg.ClassifyTimeout)

	var composer service.Composer
	if viper.GetBool("llm.compose_answers") {
		composer = llm.NewAnswerComposer(client)
	}

	store, err := elastic.New(elastic.Config{
		Addresses:         viper.GetStringSlice("elasticsearch.addresses"),
		Username:          viper.GetString("elasticsearch.username"),
		Password:          viper.GetString("elasticsearch.password"),
		APIKey:            viper.GetString("elasticsearch.api_key"),
		StatementsIndex:   viper.GetString("elasticsearch.statements_index"),
		TransactionsIndex: viper.GetString("elasticsearch.transactions_index"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create elasticsearch store: %w", err)
	}

	sessions, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("sessions.db_path")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}

	hybrid := search.NewExecutor(store, embedder, search.Config{})
	aggregator := aggregate.NewExecutor(store)
	twoStep := aggregate.NewTwoStep(hybrid, aggregator, nil)

	eng := engine.New(classifier, hybrid, aggregator, twoStep, sessions, composer, engine.Config{
		ConfidenceThreshold: viper.GetFloat64("engine.confidence_threshold"),
		MaxRounds:           viper.GetInt("engine.max_clarification_rounds"),
	})

	return eng, sessions, nil
}
