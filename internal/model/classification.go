package model

// Confidence grades the strength of the evidence behind a classification.
type Confidence string

// Confidence tiers. Only the resolver may originate HIGH; the governance
// validator can move a grade up to MEDIUM or down from HIGH, never up to HIGH.
const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Method identifies which resolution tier produced a classification.
type Method string

// Classification methods, one per resolver tier.
const (
	MethodUserPreference   Method = "user_preference_rag"
	MethodCustomCategories Method = "custom_categories_genai"
	MethodMCC              Method = "mcc_categorization"
	MethodLLMDefault       Method = "genai_llm_default"
)

// ClassificationDecision is the resolver's verdict for one transaction.
// The governance validator may later overwrite Confidence but never Method.
type ClassificationDecision struct {
	Category      string
	Subcategory   string
	Confidence    Confidence
	Method        Method
	Reasoning     string
	Flags         []string // Degradation markers for governance (e.g. reasoning_unavailable)
	ToolCallsMade int      // Number of reasoning-delegate invocations
}
