// Package governance implements post-classification validation: MCC
// assignment and cross-checking, confidence re-assessment, and compliance
// flagging. Flags are advisory; only a structurally invalid category fails
// validation.
package governance

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/audit"
	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Validator checks resolver decisions against the knowledge tables.
type Validator struct {
	tables *knowledge.Tables
	logger *slog.Logger
}

// New creates a governance validator.
func New(tables *knowledge.Tables, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{tables: tables, logger: logger}
}

// Validate produces the terminal governance verdict for one decision. The
// plaintext amount is used in-memory for the range check only; it is never
// persisted or logged, and the audit trail sees just the adjustment notes.
// Custom may be nil when the user has not installed a taxonomy.
func (v *Validator) Validate(normalized model.NormalizedTransaction, decision model.ClassificationDecision, amount float64, mccCode string, custom *model.CustomTaxonomy, trail *audit.Trail) model.GovernanceResult {
	var flags []string
	var notes []string

	// Degradation markers raised during resolution carry through.
	flags = append(flags, decision.Flags...)
	for _, f := range decision.Flags {
		notes = append(notes, fmt.Sprintf("resolver raised %s", f))
	}

	categoryValid := v.categoryValid(decision.Category, decision.Subcategory, custom)
	status := model.ValidationPass
	if !categoryValid {
		status = model.ValidationFail
		notes = append(notes, fmt.Sprintf("category %s/%s is not present in the active taxonomy",
			decision.Category, decision.Subcategory))
	}

	result := v.resolveMCC(decision, mccCode, &flags, &notes)

	confidence := v.reassessConfidence(decision, result, categoryValid, flags, &notes)

	if r, ok := v.tables.ExpectedAmountRange(decision.Category); ok && (amount < r.Min || amount > r.Max) {
		flags = append(flags, model.FlagUnusualAmount)
		notes = append(notes, fmt.Sprintf("amount outside the expected range for %s", decision.Category))
	}

	if decision.Confidence == model.ConfidenceLow && decision.Method == model.MethodLLMDefault {
		flags = append(flags, model.FlagLowEvidence)
		notes = append(notes, "low confidence with no pattern or vendor evidence")
	}

	if len(notes) == 0 {
		notes = append(notes, "classification verified, no adjustments required")
	}

	governance := model.GovernanceResult{
		Status:          status,
		MCCCode:         result.Code,
		MCCDescription:  result.Description,
		FinalConfidence: confidence,
		Flags:           dedupe(flags),
		AuditNotes:      strings.Join(notes, "; "),
	}

	// The assigned code lives in the result payload; the trail records only
	// the verdict so MCC plaintext never lands in logs.
	trail.Recordf("governance_validation", normalized.CanonicalMerchant,
		"status=%s confidence=%s flags=%d", governance.Status,
		governance.FinalConfidence, len(governance.Flags))

	return governance
}

// AssignMCC reverse-looks-up an MCC for a category pair. Used by feedback
// processing to re-resolve the MCC after a correction.
func (v *Validator) AssignMCC(category, subcategory string) knowledge.MCCMatch {
	return v.tables.AssignMCC(category, subcategory)
}

// categoryValid accepts categories from either the default taxonomy or the
// user's custom taxonomy: resolver tiers 1 and 3 legitimately produce default
// categories even when a custom taxonomy is installed.
func (v *Validator) categoryValid(category, subcategory string, custom *model.CustomTaxonomy) bool {
	if v.tables.HasCategory(category, subcategory) {
		return true
	}
	if custom != nil && custom.HasCategory(category, subcategory) {
		return true
	}
	// A known category with an unknown subcategory is a lesser offense than
	// an unknown category; only the latter is structural.
	if v.tables.HasCategory(category, "") {
		return true
	}
	return custom != nil && custom.HasCategory(category, "")
}

func (v *Validator) resolveMCC(decision model.ClassificationDecision, mccCode string, flags *[]string, notes *[]string) knowledge.MCCMatch {
	if mccCode != "" {
		// Caller supplied an MCC: cross-check, never silently override.
		if m, ok := v.tables.LookupMCC(mccCode); ok {
			if m.Category != decision.Category {
				*flags = append(*flags, model.FlagMCCCategoryMismatch)
				*notes = append(*notes, fmt.Sprintf("supplied MCC %s maps to %s but the decision says %s",
					mccCode, m.Category, decision.Category))
			} else {
				*notes = append(*notes, fmt.Sprintf("supplied MCC %s is consistent with %s", mccCode, decision.Category))
			}
			return m
		}
		*flags = append(*flags, model.FlagMCCCategoryMismatch)
		*notes = append(*notes, fmt.Sprintf("supplied MCC %s is not a known code", mccCode))
		return knowledge.MCCMatch{Code: mccCode, Description: "Unknown MCC", Category: decision.Category, Subcategory: decision.Subcategory, Quality: knowledge.QualityDefault}
	}

	m := v.tables.AssignMCC(decision.Category, decision.Subcategory)
	switch m.Quality {
	case knowledge.QualityExact:
		*notes = append(*notes, fmt.Sprintf("assigned MCC %s on exact category and subcategory match", m.Code))
	case knowledge.QualityCategory:
		*notes = append(*notes, fmt.Sprintf("assigned MCC %s on category match; subcategory may not be exact", m.Code))
	default:
		*notes = append(*notes, fmt.Sprintf("no specific MCC for %s, using default %s", decision.Category, m.Code))
	}
	return m
}

// reassessConfidence may move a grade up to MEDIUM or down from HIGH. It
// never originates HIGH: only a concrete positive match in the resolver can.
func (v *Validator) reassessConfidence(decision model.ClassificationDecision, mcc knowledge.MCCMatch, categoryValid bool, flags []string, notes *[]string) model.Confidence {
	confidence := decision.Confidence

	if confidence == model.ConfidenceHigh && contains(flags, model.FlagMCCCategoryMismatch) {
		confidence = model.ConfidenceMedium
		*notes = append(*notes, "confidence lowered to MEDIUM: MCC disagrees with category")
	}

	if confidence == model.ConfidenceLow && categoryValid && mcc.Quality == knowledge.QualityExact &&
		!contains(flags, model.FlagReasoningUnavailable) {
		confidence = model.ConfidenceMedium
		*notes = append(*notes, "confidence raised to MEDIUM: category and MCC verify cleanly")
	}

	if !categoryValid && confidence != model.ConfidenceLow {
		confidence = model.ConfidenceLow
		*notes = append(*notes, "confidence lowered to LOW: category failed structural validation")
	}

	return confidence
}

func contains(flags []string, name string) bool {
	for _, f := range flags {
		if f == name {
			return true
		}
	}
	return false
}

func dedupe(flags []string) []string {
	seen := make(map[string]bool, len(flags))
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
