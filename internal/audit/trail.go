// Package audit provides the append-only audit trail recorded for every
// transaction as it moves through the pipeline.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Trail is one transaction's ordered audit record. Entries are append-only
// and never mutated after the transaction completes.
type Trail struct {
	id      string
	mu      sync.Mutex
	entries []model.AuditEntry
}

// NewTrail creates an empty trail with a fresh id.
func NewTrail() *Trail {
	return &Trail{id: uuid.NewString()}
}

// ID returns the trail's unique identifier.
func (t *Trail) ID() string {
	return t.id
}

// Record appends one step. Inputs and outputs are short human-readable
// summaries; sensitive plaintext (amount, MCC) must never be passed here.
func (t *Trail) Record(step, inputs, outputs string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, model.AuditEntry{
		Timestamp: time.Now().UTC(),
		Step:      step,
		Inputs:    inputs,
		Outputs:   outputs,
	})
}

// Recordf is Record with a formatted outputs string.
func (t *Trail) Recordf(step, inputs, format string, args ...any) {
	t.Record(step, inputs, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the recorded steps in order.
func (t *Trail) Entries() []model.AuditEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
