// Package feedback applies user corrections, approvals and comments to a
// finalized classification and feeds corrections back into the preference
// store so future transactions resolve deterministically.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/governance"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Processor handles the three feedback actions on a finalized result.
type Processor struct {
	preferences service.PreferenceStore
	validator   *governance.Validator
	logger      *slog.Logger
}

// New creates a feedback processor.
func New(preferences service.PreferenceStore, validator *governance.Validator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{preferences: preferences, validator: validator, logger: logger}
}

// Apply processes one feedback action and returns the updated result. The
// input result is not modified. Every path appends to the audit trail.
func (p *Processor) Apply(ctx context.Context, result model.Result, feedbackType model.FeedbackType, payload model.FeedbackPayload) (model.Result, error) {
	updated := result
	updated.AuditTrail = append([]model.AuditEntry(nil), result.AuditTrail...)

	switch feedbackType {
	case model.FeedbackApprove:
		appendEntry(&updated, "feedback_approve", updated.Normalized.CanonicalMerchant,
			"user approved the classification, no field changes")
		return updated, nil

	case model.FeedbackComment:
		if payload.Comment == "" {
			return result, common.NewValidationError("comment feedback requires a comment")
		}
		appendEntry(&updated, "feedback_comment", updated.Normalized.CanonicalMerchant,
			fmt.Sprintf("user comment recorded: %s", payload.Comment))
		return updated, nil

	case model.FeedbackCorrect:
		return p.applyCorrection(ctx, updated, payload)

	default:
		return result, common.NewValidationError(fmt.Sprintf("unknown feedback type %q", feedbackType))
	}
}

func (p *Processor) applyCorrection(ctx context.Context, result model.Result, payload model.FeedbackPayload) (model.Result, error) {
	if payload.Category == "" || payload.Subcategory == "" {
		return result, common.NewValidationError("correction feedback requires category and subcategory")
	}

	originalCategory := result.Decision.Category
	originalSubcategory := result.Decision.Subcategory

	result.Decision.Category = payload.Category
	result.Decision.Subcategory = payload.Subcategory
	result.Decision.Confidence = model.ConfidenceHigh
	result.Decision.Reasoning = fmt.Sprintf("User corrected %s/%s to %s/%s.",
		originalCategory, originalSubcategory, payload.Category, payload.Subcategory)
	result.Updated = true

	mcc := p.validator.AssignMCC(payload.Category, payload.Subcategory)
	result.Governance.MCCCode = mcc.Code
	result.Governance.MCCDescription = mcc.Description
	result.Governance.FinalConfidence = model.ConfidenceHigh

	// Learning loop: the correction must land in the preference store so the
	// next similar transaction resolves at tier 1.
	record, err := p.preferences.AddOrUpdate(ctx,
		result.Normalized.CanonicalMerchant,
		result.Normalized.NormalizedText,
		payload.Category, payload.Subcategory,
		originalCategory, originalSubcategory)
	if err != nil {
		p.logger.Error("failed to store user preference", "error", err)
		appendEntry(&result, "feedback_correct", result.Normalized.CanonicalMerchant,
			fmt.Sprintf("correction applied but preference store write failed: %v", err))
		return result, fmt.Errorf("failed to store preference: %w", err)
	}

	// The re-assigned code lives in the governance payload; the trail stays
	// free of MCC plaintext.
	appendEntry(&result, "feedback_correct", result.Normalized.CanonicalMerchant,
		fmt.Sprintf("corrected %s/%s to %s/%s, MCC reassigned, preference %s stored",
			originalCategory, originalSubcategory, payload.Category, payload.Subcategory,
			record.ID))

	return result, nil
}

func appendEntry(result *model.Result, step, inputs, outputs string) {
	result.AuditTrail = append(result.AuditTrail, model.AuditEntry{
		Timestamp: time.Now().UTC(),
		Step:      step,
		Inputs:    inputs,
		Outputs:   outputs,
	})
}
