// Package resolver implements the priority-ordered classification decision
// engine. Strategies run in strict order (user preferences, custom
// categories, MCC/vendor tables, then the reasoning fallback) and the first
// positive match wins. A failing tier is degraded to "no match", never a
// crash.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerlens/ledgerlens/internal/audit"
	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Delegate is the external reasoning collaborator consulted at the
// custom-category and fallback tiers. Implementations must return structured
// output or a typed error; the resolver treats every error as no-match.
type Delegate interface {
	MatchCustomCategory(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error)
	ClassifyWithTaxonomy(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error)
}

// Resolver executes the classification ladder for one transaction at a time.
// It holds only read-mostly shared state and is safe for concurrent use.
type Resolver struct {
	preferences      service.PreferenceStore
	customCategories service.CustomCategoryStore
	tables           *knowledge.Tables
	delegate         Delegate
	logger           *slog.Logger
}

// New creates a resolver with its four knowledge/preference sources and the
// reasoning delegate.
func New(preferences service.PreferenceStore, customCategories service.CustomCategoryStore, tables *knowledge.Tables, delegate Delegate, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		preferences:      preferences,
		customCategories: customCategories,
		tables:           tables,
		delegate:         delegate,
		logger:           logger,
	}
}

// Resolve runs the priority ladder and returns exactly one decision. Business
// non-matches never produce an error; even a fully degraded fallback yields a
// LOW-confidence decision carrying the reasoning_unavailable flag.
func (r *Resolver) Resolve(ctx context.Context, normalized model.NormalizedTransaction, mccCode string, trail *audit.Trail) (model.ClassificationDecision, error) {
	toolCalls := 0

	// Tier 1: prior user corrections via similarity retrieval.
	if decision, ok := r.resolveUserPreference(ctx, normalized, trail); ok {
		decision.ToolCallsMade = toolCalls
		return decision, nil
	}

	// Tier 2: user-defined categories, adjudicated by the delegate.
	if decision, ok := r.resolveCustomCategories(ctx, normalized, trail, &toolCalls); ok {
		decision.ToolCallsMade = toolCalls
		return decision, nil
	}

	// Tier 3: MCC code, then the known-vendor table at the same priority.
	if decision, ok := r.resolveMCC(normalized, mccCode, trail); ok {
		decision.ToolCallsMade = toolCalls
		return decision, nil
	}

	// Tier 4: fuzzy vendor patterns, then open taxonomy reasoning.
	decision := r.resolveFallback(ctx, normalized, trail, &toolCalls)
	decision.ToolCallsMade = toolCalls
	return decision, nil
}

func (r *Resolver) resolveUserPreference(ctx context.Context, normalized model.NormalizedTransaction, trail *audit.Trail) (model.ClassificationDecision, bool) {
	match, err := r.preferences.FindSimilar(ctx, normalized.CanonicalMerchant, normalized.NormalizedText)
	if err != nil {
		r.logger.Warn("preference store unavailable, degrading tier to no-match",
			"merchant", normalized.CanonicalMerchant, "error", err)
		trail.Recordf("user_preference_rag", normalized.CanonicalMerchant,
			"store unavailable: %v", err)
		return model.ClassificationDecision{}, false
	}
	if match == nil {
		trail.Record("user_preference_rag", normalized.CanonicalMerchant, "no similar preference")
		return model.ClassificationDecision{}, false
	}

	trail.Recordf("user_preference_rag", normalized.CanonicalMerchant,
		"matched preference %s (score %.2f, used %d times)", match.Record.ID, match.Score, match.Record.UsageCount)

	return model.ClassificationDecision{
		Category:    match.Record.UserCategory,
		Subcategory: match.Record.UserSubcategory,
		Confidence:  model.ConfidenceHigh,
		Method:      model.MethodUserPreference,
		Reasoning: fmt.Sprintf("Matched a prior user correction for %s (similarity %.2f).",
			match.Record.MerchantName, match.Score),
	}, true
}

func (r *Resolver) resolveCustomCategories(ctx context.Context, normalized model.NormalizedTransaction, trail *audit.Trail, toolCalls *int) (model.ClassificationDecision, bool) {
	taxonomy, err := r.customCategories.GetCustomTaxonomy(ctx)
	if err != nil {
		r.logger.Warn("custom category store unavailable, degrading tier to no-match", "error", err)
		trail.Recordf("custom_categories", normalized.CanonicalMerchant, "store unavailable: %v", err)
		return model.ClassificationDecision{}, false
	}
	if taxonomy == nil || taxonomy.IsEmpty() {
		trail.Record("custom_categories", normalized.CanonicalMerchant, "no custom taxonomy installed")
		return model.ClassificationDecision{}, false
	}

	*toolCalls++
	resp, err := r.delegate.MatchCustomCategory(ctx, taxonomy.Categories, normalized.CanonicalMerchant, normalized.NormalizedText)
	if err != nil {
		r.logger.Warn("delegate failed at custom-category tier, degrading to no-match", "error", err)
		trail.Recordf("custom_categories", normalized.CanonicalMerchant, "delegate failed: %v", err)
		return model.ClassificationDecision{}, false
	}
	if !resp.Matched {
		trail.Record("custom_categories", normalized.CanonicalMerchant, "no custom category fits")
		return model.ClassificationDecision{}, false
	}
	if !taxonomy.HasCategory(resp.Category, "") {
		// The delegate named a category the user never defined; treat as no-match.
		r.logger.Warn("delegate returned category outside custom taxonomy",
			"category", resp.Category)
		trail.Recordf("custom_categories", normalized.CanonicalMerchant,
			"delegate category %q not in custom taxonomy", resp.Category)
		return model.ClassificationDecision{}, false
	}
	if resp.Subcategory != "" && !taxonomy.HasCategory(resp.Category, resp.Subcategory) {
		// The category is the user's but the subcategory is invented; keep the
		// category-level match and drop the subcategory.
		r.logger.Warn("delegate returned subcategory outside custom taxonomy",
			"category", resp.Category, "subcategory", resp.Subcategory)
		trail.Recordf("custom_categories", normalized.CanonicalMerchant,
			"delegate subcategory %q not under custom category %q, dropped", resp.Subcategory, resp.Category)
		resp.Subcategory = ""
	}

	trail.Recordf("custom_categories", normalized.CanonicalMerchant,
		"matched custom category %s/%s", resp.Category, resp.Subcategory)

	return model.ClassificationDecision{
		Category:    resp.Category,
		Subcategory: resp.Subcategory,
		Confidence:  model.ConfidenceHigh,
		Method:      model.MethodCustomCategories,
		Reasoning:   resp.Reasoning,
	}, true
}

func (r *Resolver) resolveMCC(normalized model.NormalizedTransaction, mccCode string, trail *audit.Trail) (model.ClassificationDecision, bool) {
	if mccCode != "" {
		if m, ok := r.tables.LookupMCC(mccCode); ok {
			trail.Recordf("mcc_categorization", "mcc digest "+normalized.EncryptedMCC,
				"resolved %s/%s via MCC table", m.Category, m.Subcategory)
			return model.ClassificationDecision{
				Category:    m.Category,
				Subcategory: m.Subcategory,
				Confidence:  model.ConfidenceHigh,
				Method:      model.MethodMCC,
				Reasoning:   fmt.Sprintf("Supplied MCC maps to %s (%s).", m.Category, m.Description),
			}, true
		}
		trail.Record("mcc_categorization", "mcc digest "+normalized.EncryptedMCC, "MCC not in table")
	}

	if m, ok := r.tables.LookupVendorMCC(normalized.CanonicalMerchant); ok {
		// The vendor's code lands in the decision reasoning, not the trail.
		trail.Recordf("mcc_categorization", normalized.CanonicalMerchant,
			"known vendor resolved %s/%s", m.Category, m.Subcategory)
		return model.ClassificationDecision{
			Category:    m.Category,
			Subcategory: m.Subcategory,
			Confidence:  model.ConfidenceHigh,
			Method:      model.MethodMCC,
			Reasoning: fmt.Sprintf("%s is a known vendor with MCC %s (%s).",
				normalized.CanonicalMerchant, m.Code, m.Description),
		}, true
	}

	trail.Record("mcc_categorization", normalized.CanonicalMerchant, "no MCC or vendor match")
	return model.ClassificationDecision{}, false
}

func (r *Resolver) resolveFallback(ctx context.Context, normalized model.NormalizedTransaction, trail *audit.Trail, toolCalls *int) model.ClassificationDecision {
	if p, ok := r.tables.MatchVendorPattern(normalized.CanonicalMerchant); ok {
		trail.Recordf("genai_llm_default", normalized.CanonicalMerchant,
			"fuzzy pattern %s matched: %s/%s", p.Pattern, p.Category, p.Subcategory)
		return model.ClassificationDecision{
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Confidence:  model.ConfidenceMedium,
			Method:      model.MethodLLMDefault,
			Reasoning:   fmt.Sprintf("Merchant resembles curated pattern %s.", p.Pattern),
		}
	}

	*toolCalls++
	resp, err := r.delegate.ClassifyWithTaxonomy(ctx, r.tables.DefaultTaxonomy(), normalized.CanonicalMerchant, normalized.NormalizedText)
	if err != nil {
		r.logger.Warn("delegate unreachable at fallback tier", "error", err)
		trail.Recordf("genai_llm_default", normalized.CanonicalMerchant,
			"delegate unavailable, defaulting to Other/General: %v", err)
		return model.ClassificationDecision{
			Category:    "Other",
			Subcategory: "General",
			Confidence:  model.ConfidenceLow,
			Method:      model.MethodLLMDefault,
			Flags:       []string{model.FlagReasoningUnavailable},
			Reasoning:   "No deterministic source matched and the reasoning delegate was unavailable.",
		}
	}

	trail.Recordf("genai_llm_default", normalized.CanonicalMerchant,
		"delegate reasoned %s/%s", resp.Category, resp.Subcategory)

	return model.ClassificationDecision{
		Category:    resp.Category,
		Subcategory: resp.Subcategory,
		Confidence:  model.ConfidenceLow,
		Method:      model.MethodLLMDefault,
		Reasoning:   resp.Reasoning,
	}
}
