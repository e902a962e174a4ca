// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/common"
)

// Transaction represents a single financial transaction as submitted by the
// caller. It is immutable once it enters the pipeline.
type Transaction struct {
	Description  string
	MerchantName string // Optional raw merchant name
	MCCCode      string // Optional 4-digit Merchant Category Code
	Amount       float64
}

// Validate rejects transactions that must never reach the resolver.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return common.NewValidationError("description is required")
	}
	if t.Amount <= 0 {
		return common.NewValidationError("amount must be positive")
	}
	return nil
}

// NormalizedTransaction is the output of text normalization. Amount and MCC
// appear only as one-way digests; plaintext values never leave the pipeline's
// in-memory scope.
type NormalizedTransaction struct {
	CanonicalMerchant string
	MerchantID        string // 16 hex chars, pure function of CanonicalMerchant
	NormalizedText    string
	EncryptedAmount   string
	EncryptedMCC      string // Empty when no MCC was supplied
	Tokens            []string
	Metadata          TransactionMetadata
}

// TransactionMetadata carries optional signals extracted during normalization.
type TransactionMetadata struct {
	Location        string // US state code if one was detected
	TransactionType string // purchase, refund, or subscription
}
