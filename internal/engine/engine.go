// Package engine orchestrates the classification pipeline for one
// transaction end to end: input validation, text normalization, the
// priority-ordered resolver, governance validation, and the merged result
// payload with its audit trail.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledgerlens/ledgerlens/internal/audit"
	"github.com/ledgerlens/ledgerlens/internal/governance"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/resolver"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Engine runs the classification pipeline. A single Engine is safe for
// concurrent use: transactions share only the read-mostly stores.
type Engine struct {
	normalizer *normalize.Normalizer
	resolver   *resolver.Resolver
	validator  *governance.Validator
	storage    service.Storage
	logger     *slog.Logger
	workers    int
}

// Config holds configuration options for the engine.
type Config struct {
	ParallelWorkers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{ParallelWorkers: 4}
}

// New creates an engine with the given dependencies.
func New(normalizer *normalize.Normalizer, res *resolver.Resolver, validator *governance.Validator, storage service.Storage, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.ParallelWorkers
	if workers <= 0 {
		workers = DefaultConfig().ParallelWorkers
	}
	return &Engine{
		normalizer: normalizer,
		resolver:   res,
		validator:  validator,
		storage:    storage,
		logger:     logger,
		workers:    workers,
	}
}

// Process classifies one transaction end to end. The result is always
// returned, even on failure: errors surface in Result.Status and
// Result.Error, and validation failures are visible in the governance
// verdict. The returned error mirrors Result.Error for callers that prefer
// error handling.
func (e *Engine) Process(ctx context.Context, txn model.Transaction) (model.Result, error) {
	trail := audit.NewTrail()

	if err := txn.Validate(); err != nil {
		trail.Recordf("input_validation", "raw transaction", "rejected: %v", err)
		return model.Result{
			TransactionID: trail.ID(),
			Status:        model.StatusError,
			Error:         err.Error(),
			AuditTrail:    trail.Entries(),
		}, err
	}
	trail.Record("input_validation", "raw transaction", "accepted")

	normalized := e.normalizer.Normalize(txn)
	trail.Recordf("normalization", "raw description",
		"merchant=%s id=%s tokens=%d", normalized.CanonicalMerchant, normalized.MerchantID, len(normalized.Tokens))

	decision, err := e.resolver.Resolve(ctx, normalized, txn.MCCCode, trail)
	if err != nil {
		// Recoverable classification failure: every tier including the
		// fallback was unable to produce a result.
		e.logger.Error("classification failed", "merchant", normalized.CanonicalMerchant, "error", err)
		trail.Recordf("classification", normalized.CanonicalMerchant, "failed: %v", err)
		return model.Result{
			TransactionID: trail.ID(),
			Status:        model.StatusError,
			Error:         err.Error(),
			Normalized:    normalized,
			AuditTrail:    trail.Entries(),
		}, fmt.Errorf("classification failed: %w", err)
	}

	custom, err := e.storage.GetCustomTaxonomy(ctx)
	if err != nil {
		// Governance falls back to the default taxonomy alone.
		e.logger.Warn("custom taxonomy unavailable during governance", "error", err)
		custom = nil
	}

	gov := e.validator.Validate(normalized, decision, txn.Amount, txn.MCCCode, custom, trail)

	e.logger.Info("transaction classified",
		"merchant", normalized.CanonicalMerchant,
		"category", decision.Category,
		"subcategory", decision.Subcategory,
		"method", decision.Method,
		"confidence", gov.FinalConfidence,
		"validation", gov.Status)

	return model.Result{
		TransactionID: trail.ID(),
		Status:        model.StatusSuccess,
		Normalized:    normalized,
		Decision:      decision,
		Governance:    gov,
		AuditTrail:    trail.Entries(),
	}, nil
}

// ProcessBatch classifies transactions with a bounded worker pool.
// Transactions are embarrassingly parallel: they share only the read-mostly
// stores, and one transaction's failure never aborts or corrupts another's
// result. Results are returned in input order. onProgress, when non-nil, is
// called once per completed transaction.
func (e *Engine) ProcessBatch(ctx context.Context, txns []model.Transaction, onProgress func(done int)) []model.Result {
	results := make([]model.Result, len(txns))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, txn := range txns {
		wg.Add(1)
		go func(idx int, transaction model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = model.Result{
					Status: model.StatusError,
					Error:  ctx.Err().Error(),
				}
				return
			}

			result, err := e.Process(ctx, transaction)
			if err != nil {
				e.logger.Warn("batch item failed", "index", idx, "error", err)
			}
			results[idx] = result

			if onProgress != nil {
				mu.Lock()
				done++
				onProgress(done)
				mu.Unlock()
			}
		}(i, txn)
	}

	wg.Wait()
	return results
}
