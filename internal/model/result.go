package model

import "time"

// ResultStatus is the overall outcome of processing one transaction.
type ResultStatus string

// Result statuses.
const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// AuditEntry is one step in a transaction's audit trail.
type AuditEntry struct {
	Timestamp time.Time
	Step      string
	Inputs    string
	Outputs   string
}

// Result is the merged payload handed to UI and batch consumers: the resolver
// decision, the governance verdict, and the full audit trail for one
// transaction.
type Result struct {
	TransactionID string // Audit trail id for this run
	Status        ResultStatus
	Error         string // Populated when Status is StatusError
	Normalized    NormalizedTransaction
	Decision      ClassificationDecision
	Governance    GovernanceResult
	AuditTrail    []AuditEntry
	Updated       bool // Set when feedback modified the result after the fact
}
