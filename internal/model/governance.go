package model

// ValidationStatus is the terminal governance verdict.
type ValidationStatus string

// Validation statuses. FAIL means the category is structurally invalid or no
// MCC could be assigned; advisory concerns surface as flags under PASS.
const (
	ValidationPass ValidationStatus = "PASS"
	ValidationFail ValidationStatus = "FAIL"
)

// GovernanceResult is the immutable output of post-classification validation.
type GovernanceResult struct {
	Status          ValidationStatus
	MCCCode         string
	MCCDescription  string
	FinalConfidence Confidence
	Flags           []string
	AuditNotes      string
}

// HasFlag reports whether the result carries the named compliance flag.
func (g GovernanceResult) HasFlag(name string) bool {
	for _, f := range g.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// Compliance flag names raised by the governance validator.
const (
	FlagMCCCategoryMismatch  = "mcc_category_mismatch"
	FlagUnusualAmount        = "unusual_amount"
	FlagLowEvidence          = "low_evidence"
	FlagReasoningUnavailable = "reasoning_unavailable"
)
