package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/engine"
	"github.com/ledgerlens/ledgerlens/internal/feedback"
	"github.com/ledgerlens/ledgerlens/internal/governance"
	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/llm"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/resolver"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// pipeline bundles the fully wired services behind one Close.
type pipeline struct {
	storage   service.Storage
	engine    *engine.Engine
	feedback  *feedback.Processor
	validator *governance.Validator
	tables    *knowledge.Tables
}

func buildPipeline(ctx context.Context) (*pipeline, error) {
	tables, err := knowledge.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge tables: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger := slog.Default()
	validator := governance.New(tables, logger)
	res := resolver.New(store, store, tables, newDelegate(logger), logger)
	eng := engine.New(normalize.New(), res, validator, store, logger, engine.Config{
		ParallelWorkers: viper.GetInt("engine.workers"),
	})

	return &pipeline{
		storage:   store,
		engine:    eng,
		feedback:  feedback.New(store, validator, logger),
		validator: validator,
		tables:    tables,
	}, nil
}

func (p *pipeline) Close() {
	if err := p.storage.Close(); err != nil {
		slog.Warn("failed to close storage", "error", err)
	}
}

// newDelegate builds the LLM-backed reasoning delegate from configuration.
// Without an API key the deterministic tiers still work; delegate tiers
// degrade the way they would on a provider outage.
func newDelegate(logger *slog.Logger) resolver.Delegate {
	apiKey := viper.GetString("llm.api_key")
	if apiKey == "" {
		logger.Warn("no LLM API key configured; delegate tiers will degrade")
		return unavailableDelegate{}
	}

	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      apiKey,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Timeout:     viper.GetDuration("llm.timeout"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	delegate, err := llm.NewDelegate(cfg, logger)
	if err != nil {
		logger.Warn("failed to create reasoning delegate; delegate tiers will degrade", "error", err)
		return unavailableDelegate{}
	}
	return delegate
}

var errDelegateUnconfigured = errors.New("reasoning delegate is not configured")

// unavailableDelegate stands in when no provider is configured.
type unavailableDelegate struct{}

func (unavailableDelegate) MatchCustomCategory(context.Context, map[string][]string, string, string) (service.DelegateResponse, error) {
	return service.DelegateResponse{}, errDelegateUnconfigured
}

func (unavailableDelegate) ClassifyWithTaxonomy(context.Context, map[string][]string, string, string) (service.DelegateResponse, error) {
	return service.DelegateResponse{}, errDelegateUnconfigured
}
