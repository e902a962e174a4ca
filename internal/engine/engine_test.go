package engine

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/feedback"
	"github.com/ledgerlens/ledgerlens/internal/governance"
	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/resolver"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

type testPipeline struct {
	engine   *Engine
	feedback *feedback.Processor
	delegate *resolver.MockDelegate
	storage  *storage.SQLiteStorage
}

func newTestPipeline(t *testing.T, delegate *resolver.MockDelegate) *testPipeline {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	if delegate == nil {
		delegate = &resolver.MockDelegate{}
	}

	tables := knowledge.MustLoad()
	validator := governance.New(tables, nil)
	res := resolver.New(store, store, tables, delegate, nil)
	eng := New(normalize.New(), res, validator, store, nil, Config{ParallelWorkers: 2})

	return &testPipeline{
		engine:   eng,
		feedback: feedback.New(store, validator, nil),
		delegate: delegate,
		storage:  store,
	}
}

// A known coffee vendor resolves deterministically through the vendor table
// with high confidence and a coffee-shop MCC.
func TestProcess_KnownVendor(t *testing.T) {
	p := newTestPipeline(t, nil)

	result, err := p.engine.Process(context.Background(), model.Transaction{
		Description: "STARBUCKS #1234 SEATTLE WA",
		Amount:      6.50,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Equal(t, "STARBUCKS", result.Normalized.CanonicalMerchant)
	assert.Equal(t, "Food & Dining", result.Decision.Category)
	assert.Equal(t, "Coffee Shop", result.Decision.Subcategory)
	assert.Equal(t, model.MethodMCC, result.Decision.Method)
	assert.Equal(t, model.ConfidenceHigh, result.Governance.FinalConfidence)
	assert.Equal(t, model.ValidationPass, result.Governance.Status)
	assert.Equal(t, "5462", result.Governance.MCCCode)
	assert.Equal(t, 0, p.delegate.ClassifyCalls(), "deterministic paths never call the delegate")
	assert.NotEmpty(t, result.TransactionID)
	assert.GreaterOrEqual(t, len(result.AuditTrail), 4, "every pipeline step must be recorded")
}

func TestProcess_InvalidInput(t *testing.T) {
	p := newTestPipeline(t, nil)

	tests := []struct {
		name string
		txn  model.Transaction
	}{
		{"empty description", model.Transaction{Description: "  ", Amount: 10}},
		{"zero amount", model.Transaction{Description: "STARBUCKS", Amount: 0}},
		{"negative amount", model.Transaction{Description: "STARBUCKS", Amount: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.engine.Process(context.Background(), tt.txn)
			require.Error(t, err)
			assert.Equal(t, model.StatusError, result.Status)
			assert.NotEmpty(t, result.Error)
			assert.NotEmpty(t, result.AuditTrail, "even rejections leave an audit trail")
		})
	}
}

// The learning loop: an LLM-classified transaction corrected by the user
// must resolve from the stored preference on the next run.
func TestProcess_CorrectionFeedbackLoop(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	txn := model.Transaction{Description: "SQUARESPACE INC 98765432", Amount: 23}

	first, err := p.engine.Process(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, model.MethodLLMDefault, first.Decision.Method,
		"an unknown merchant falls through to the delegate")
	assert.Equal(t, model.ConfidenceLow, first.Decision.Confidence)

	corrected, err := p.feedback.Apply(ctx, first, model.FeedbackCorrect, model.FeedbackPayload{
		Category:    "Utilities",
		Subcategory: "Internet",
	})
	require.NoError(t, err)
	assert.True(t, corrected.Updated)

	second, err := p.engine.Process(ctx, txn)
	require.NoError(t, err)

	assert.Equal(t, model.MethodUserPreference, second.Decision.Method,
		"the correction must win on the next identical transaction")
	assert.Equal(t, "Utilities", second.Decision.Category)
	assert.Equal(t, "Internet", second.Decision.Subcategory)
	assert.Equal(t, model.ConfidenceHigh, second.Governance.FinalConfidence)

	prefs, err := p.storage.ListPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, 2, prefs[0].UsageCount, "the second run consumed the preference once")
}

// Repeating the same correction twice must not duplicate records or inflate
// usage counts beyond the actual matches.
func TestProcess_CorrectionIsIdempotent(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	txn := model.Transaction{Description: "SQUARESPACE INC 98765432", Amount: 23}

	first, err := p.engine.Process(ctx, txn)
	require.NoError(t, err)

	payload := model.FeedbackPayload{Category: "Utilities", Subcategory: "Internet"}
	_, err = p.feedback.Apply(ctx, first, model.FeedbackCorrect, payload)
	require.NoError(t, err)
	_, err = p.feedback.Apply(ctx, first, model.FeedbackCorrect, payload)
	require.NoError(t, err)

	prefs, err := p.storage.ListPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 1, "identical corrections collapse into one record")
	assert.Equal(t, 1, prefs[0].UsageCount)
}

// Plaintext sensitive values must never surface in the result payload's
// audit trail; only digests may appear.
func TestProcess_SensitiveValuesStayOutOfAuditTrail(t *testing.T) {
	p := newTestPipeline(t, nil)

	result, err := p.engine.Process(context.Background(), model.Transaction{
		Description: "STARBUCKS #1234",
		Amount:      6371.55,
		MCCCode:     "5462",
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Normalized.EncryptedAmount)
	for _, entry := range result.AuditTrail {
		assert.NotContains(t, entry.Inputs, "6371", "plaintext amount leaked into %s", entry.Step)
		assert.NotContains(t, entry.Outputs, "6371", "plaintext amount leaked into %s", entry.Step)
		assert.NotContains(t, entry.Inputs, "5462", "plaintext MCC leaked into %s", entry.Step)
		assert.NotContains(t, entry.Outputs, "5462", "plaintext MCC leaked into %s", entry.Step)
	}
}

func TestProcess_CustomTaxonomyTier(t *testing.T) {
	delegate := &resolver.MockDelegate{
		MatchCustomFunc: func(_ context.Context, taxonomy map[string][]string, _, _ string) (service.DelegateResponse, error) {
			if _, ok := taxonomy["Coffee Habit"]; !ok {
				return service.DelegateResponse{Matched: false}, nil
			}
			return service.DelegateResponse{
				Category:    "Coffee Habit",
				Subcategory: "Espresso",
				Reasoning:   "Coffee purchase at a coffee chain.",
				Matched:     true,
			}, nil
		},
	}
	p := newTestPipeline(t, delegate)
	ctx := context.Background()

	require.NoError(t, p.storage.SaveCustomTaxonomy(ctx, model.CustomTaxonomy{
		Categories: map[string][]string{"Coffee Habit": {"Espresso"}},
	}))

	result, err := p.engine.Process(ctx, model.Transaction{
		Description: "STARBUCKS #1234",
		Amount:      4.25,
	})
	require.NoError(t, err)

	assert.Equal(t, model.MethodCustomCategories, result.Decision.Method,
		"custom categories outrank the vendor table")
	assert.Equal(t, "Coffee Habit", result.Decision.Category)
	assert.Equal(t, model.ValidationPass, result.Governance.Status)
	assert.Equal(t, 1, result.Decision.ToolCallsMade)
}

func TestProcessBatch(t *testing.T) {
	p := newTestPipeline(t, nil)

	txns := []model.Transaction{
		{Description: "STARBUCKS #1234", Amount: 6.50},
		{Description: "", Amount: 10}, // invalid, must not poison the batch
		{Description: "WALMART SUPERCENTER", Amount: 84.12},
	}

	var mu sync.Mutex
	progress := 0
	results := p.engine.ProcessBatch(context.Background(), txns, func(done int) {
		mu.Lock()
		progress = done
		mu.Unlock()
	})

	require.Len(t, results, 3)
	assert.Equal(t, model.StatusSuccess, results[0].Status)
	assert.Equal(t, "Food & Dining", results[0].Decision.Category)
	assert.Equal(t, model.StatusError, results[1].Status)
	assert.Equal(t, model.StatusSuccess, results[2].Status)
	assert.Equal(t, "Food & Dining", results[2].Decision.Category)
	assert.Equal(t, "Grocery", results[2].Decision.Subcategory)
	assert.Equal(t, 3, progress, "every completion must be reported")
}

func TestProcessBatch_ResultsKeepInputOrder(t *testing.T) {
	p := newTestPipeline(t, nil)

	var txns []model.Transaction
	merchants := []string{"STARBUCKS", "WALMART", "SHELL", "TARGET", "NETFLIX", "COSTCO"}
	for _, m := range merchants {
		txns = append(txns, model.Transaction{Description: m + " PURCHASE", Amount: 20})
	}

	results := p.engine.ProcessBatch(context.Background(), txns, nil)

	require.Len(t, results, len(merchants))
	for i, m := range merchants {
		assert.True(t, strings.HasPrefix(results[i].Normalized.CanonicalMerchant, m[:4]),
			"result %d should belong to %s, got %s", i, m, results[i].Normalized.CanonicalMerchant)
	}
}
