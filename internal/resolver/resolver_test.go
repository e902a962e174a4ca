package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/audit"
	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// fakePreferences is an in-memory PreferenceStore test double.
type fakePreferences struct {
	match *model.PreferenceMatch
	err   error
	calls int
}

func (f *fakePreferences) FindSimilar(_ context.Context, _, _ string) (*model.PreferenceMatch, error) {
	f.calls++
	return f.match, f.err
}

func (f *fakePreferences) AddOrUpdate(_ context.Context, _, _, _, _, _, _ string) (*model.PreferenceRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePreferences) ListPreferences(_ context.Context) ([]model.PreferenceRecord, error) {
	return nil, nil
}

func (f *fakePreferences) ClearPreferences(_ context.Context) error { return nil }

// fakeCustomCategories is an in-memory CustomCategoryStore test double.
type fakeCustomCategories struct {
	taxonomy *model.CustomTaxonomy
	err      error
}

func (f *fakeCustomCategories) GetCustomTaxonomy(_ context.Context) (*model.CustomTaxonomy, error) {
	return f.taxonomy, f.err
}

func (f *fakeCustomCategories) SaveCustomTaxonomy(_ context.Context, _ model.CustomTaxonomy) error {
	return nil
}

func (f *fakeCustomCategories) DeleteCustomTaxonomy(_ context.Context) error { return nil }

func normalized(t *testing.T, description, merchant, mcc string) model.NormalizedTransaction {
	t.Helper()
	return normalize.New().Normalize(model.Transaction{
		Description:  description,
		MerchantName: merchant,
		MCCCode:      mcc,
		Amount:       10,
	})
}

func newTestResolver(prefs *fakePreferences, custom *fakeCustomCategories, delegate Delegate) *Resolver {
	if prefs == nil {
		prefs = &fakePreferences{}
	}
	if custom == nil {
		custom = &fakeCustomCategories{}
	}
	if delegate == nil {
		delegate = &MockDelegate{}
	}
	return New(prefs, custom, knowledge.MustLoad(), delegate, nil)
}

func TestResolve_UserPreferenceWins(t *testing.T) {
	prefs := &fakePreferences{
		match: &model.PreferenceMatch{
			Record: model.PreferenceRecord{
				ID:              "abc123",
				MerchantName:    "STARBUCKS",
				UserCategory:    "Food & Dining",
				UserSubcategory: "Coffee Shop",
				UsageCount:      4,
			},
			Score: 0.93,
		},
	}
	delegate := &MockDelegate{}
	r := newTestResolver(prefs, &fakeCustomCategories{
		taxonomy: &model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}},
	}, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodUserPreference, decision.Method)
	assert.Equal(t, model.ConfidenceHigh, decision.Confidence)
	assert.Equal(t, "Food & Dining", decision.Category)
	assert.Equal(t, "Coffee Shop", decision.Subcategory)
	assert.Equal(t, 0, decision.ToolCallsMade, "a preference hit must not consult the delegate")
	assert.Equal(t, 0, delegate.MatchCustomCalls())
	assert.Equal(t, 0, delegate.ClassifyCalls())
}

func TestResolve_PreferenceStoreFailureDegrades(t *testing.T) {
	prefs := &fakePreferences{err: errors.New("disk on fire")}
	r := newTestResolver(prefs, nil, nil)

	// STARBUCKS is a known vendor, so tier 3 catches the fall-through.
	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err, "a failing tier must degrade, not error")

	assert.Equal(t, model.MethodMCC, decision.Method)
	assert.Equal(t, "Food & Dining", decision.Category)
	assert.Equal(t, 1, prefs.calls)
}

func TestResolve_CustomCategoryMatch(t *testing.T) {
	custom := &fakeCustomCategories{
		taxonomy: &model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}},
	}
	delegate := &MockDelegate{
		MatchCustomFunc: func(_ context.Context, _ map[string][]string, _, _ string) (service.DelegateResponse, error) {
			return service.DelegateResponse{
				Category:    "Coffee Habit",
				Subcategory: "Espresso",
				Reasoning:   "The merchant is a coffee shop.",
				Matched:     true,
			}, nil
		},
	}
	r := newTestResolver(nil, custom, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodCustomCategories, decision.Method)
	assert.Equal(t, model.ConfidenceHigh, decision.Confidence)
	assert.Equal(t, "Coffee Habit", decision.Category)
	assert.Equal(t, 1, decision.ToolCallsMade)
}

func TestResolve_CustomCategoryOutsideTaxonomyFallsThrough(t *testing.T) {
	custom := &fakeCustomCategories{
		taxonomy: &model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}},
	}
	delegate := &MockDelegate{
		MatchCustomFunc: func(_ context.Context, _ map[string][]string, _, _ string) (service.DelegateResponse, error) {
			// Hallucinated category the user never defined.
			return service.DelegateResponse{Category: "Tea Time", Subcategory: "Oolong", Matched: true}, nil
		},
	}
	r := newTestResolver(nil, custom, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodMCC, decision.Method, "an invented category must not survive")
	assert.Equal(t, "Food & Dining", decision.Category)
}

func TestResolve_CustomSubcategoryOutsideTaxonomyIsDropped(t *testing.T) {
	custom := &fakeCustomCategories{
		taxonomy: &model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}},
	}
	delegate := &MockDelegate{
		MatchCustomFunc: func(_ context.Context, _ map[string][]string, _, _ string) (service.DelegateResponse, error) {
			// Real category, invented subcategory.
			return service.DelegateResponse{Category: "Coffee Habit", Subcategory: "Oolong", Matched: true}, nil
		},
	}
	r := newTestResolver(nil, custom, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodCustomCategories, decision.Method, "the user's category still matches")
	assert.Equal(t, "Coffee Habit", decision.Category)
	assert.Empty(t, decision.Subcategory, "an invented subcategory must not survive")
	assert.Equal(t, model.ConfidenceHigh, decision.Confidence)
}

func TestResolve_CustomTierSkippedWithoutTaxonomy(t *testing.T) {
	delegate := &MockDelegate{}
	r := newTestResolver(nil, &fakeCustomCategories{taxonomy: nil}, delegate)

	_, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, 0, delegate.MatchCustomCalls(), "no taxonomy means no delegate call")
}

func TestResolve_MCCCodeBeatsVendorTable(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	// 5541 is a gas station code even though the merchant is a coffee vendor.
	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", "5541"), "5541", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodMCC, decision.Method)
	assert.Equal(t, model.ConfidenceHigh, decision.Confidence)
	assert.Equal(t, "Transportation", decision.Category)
	assert.Equal(t, "Gas Station", decision.Subcategory)
}

func TestResolve_UnknownMCCFallsBackToVendor(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	decision, err := r.Resolve(context.Background(), normalized(t, "STARBUCKS #1234", "", "0042"), "0042", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodMCC, decision.Method)
	assert.Equal(t, "Food & Dining", decision.Category)
	assert.Equal(t, "Coffee Shop", decision.Subcategory)
}

func TestResolve_FuzzyPatternIsMediumWithoutDelegate(t *testing.T) {
	delegate := &MockDelegate{}
	r := newTestResolver(nil, nil, delegate)

	// EXXXON: not in the vendor table, edit distance 1 from the EXXON pattern.
	decision, err := r.Resolve(context.Background(), normalized(t, "purchase", "EXXXON", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodLLMDefault, decision.Method)
	assert.Equal(t, model.ConfidenceMedium, decision.Confidence)
	assert.Equal(t, "Transportation", decision.Category)
	assert.Equal(t, "Gas Station", decision.Subcategory)
	assert.Equal(t, 0, delegate.ClassifyCalls(), "a pattern hit must not consult the delegate")
}

func TestResolve_DelegateFallbackIsLow(t *testing.T) {
	delegate := &MockDelegate{
		ClassifyFunc: func(_ context.Context, taxonomy map[string][]string, _, _ string) (service.DelegateResponse, error) {
			assert.Contains(t, taxonomy, "Food & Dining", "fallback reasons over the default taxonomy")
			return service.DelegateResponse{
				Category:    "Entertainment",
				Subcategory: "Streaming",
				Reasoning:   "Looks like a media service.",
				Matched:     true,
			}, nil
		},
	}
	r := newTestResolver(nil, nil, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "purchase", "OBSCURE MEDIA LLC", ""), "", audit.NewTrail())
	require.NoError(t, err)

	assert.Equal(t, model.MethodLLMDefault, decision.Method)
	assert.Equal(t, model.ConfidenceLow, decision.Confidence)
	assert.Equal(t, "Entertainment", decision.Category)
	assert.Equal(t, 1, decision.ToolCallsMade)
}

func TestResolve_DelegateUnreachableDefaultsToOther(t *testing.T) {
	delegate := &MockDelegate{
		ClassifyFunc: func(_ context.Context, _ map[string][]string, _, _ string) (service.DelegateResponse, error) {
			return service.DelegateResponse{}, errors.New("connection refused")
		},
	}
	r := newTestResolver(nil, nil, delegate)

	decision, err := r.Resolve(context.Background(), normalized(t, "purchase", "OBSCURE MEDIA LLC", ""), "", audit.NewTrail())
	require.NoError(t, err, "delegate unavailability is a degradation, not a failure")

	assert.Equal(t, "Other", decision.Category)
	assert.Equal(t, "General", decision.Subcategory)
	assert.Equal(t, model.ConfidenceLow, decision.Confidence)
	assert.Contains(t, decision.Flags, model.FlagReasoningUnavailable)
}

// Priority ordering end to end: with every tier able to answer, the highest
// priority source must win, and removing it must surface the next one.
func TestResolve_PriorityLadder(t *testing.T) {
	prefMatch := &model.PreferenceMatch{
		Record: model.PreferenceRecord{
			UserCategory:    "Education",
			UserSubcategory: "Books",
		},
		Score: 0.95,
	}
	customTaxonomy := &model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}}
	delegate := &MockDelegate{
		MatchCustomFunc: func(_ context.Context, _ map[string][]string, _, _ string) (service.DelegateResponse, error) {
			return service.DelegateResponse{Category: "Coffee Habit", Subcategory: "Espresso", Matched: true}, nil
		},
	}

	txn := normalized(t, "STARBUCKS #1234", "", "")
	ctx := context.Background()

	// All four sources available: the preference wins.
	r := newTestResolver(&fakePreferences{match: prefMatch}, &fakeCustomCategories{taxonomy: customTaxonomy}, delegate)
	decision, err := r.Resolve(ctx, txn, "", audit.NewTrail())
	require.NoError(t, err)
	assert.Equal(t, model.MethodUserPreference, decision.Method)

	// No preference: the custom category wins.
	r = newTestResolver(&fakePreferences{}, &fakeCustomCategories{taxonomy: customTaxonomy}, delegate)
	decision, err = r.Resolve(ctx, txn, "", audit.NewTrail())
	require.NoError(t, err)
	assert.Equal(t, model.MethodCustomCategories, decision.Method)

	// No custom taxonomy either: the vendor table wins.
	r = newTestResolver(&fakePreferences{}, &fakeCustomCategories{}, delegate)
	decision, err = r.Resolve(ctx, txn, "", audit.NewTrail())
	require.NoError(t, err)
	assert.Equal(t, model.MethodMCC, decision.Method)
}
