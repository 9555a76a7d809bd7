package models

import "time"

// SyncOperation is what the ledger synchronizer does to a mirror
type SyncOperation string

const (
	SyncNone   SyncOperation = "none"
	SyncCreate SyncOperation = "create"
	SyncUpdate SyncOperation = "update"
	SyncDelete SyncOperation = "delete"
)

// SourceKind identifies which sub-ledger table a mirror's origin row lives in
type SourceKind string

const (
	SourceKindCharge  SourceKind = "charge"
	SourceKindPayment SourceKind = "payment"
	SourceKindRefund  SourceKind = "refund"
)

// SyncFailure is an outbox row for a mirror write that did not go through
type SyncFailure struct {
	ID         int           `json:"id"`
	Kind       LedgerKind    `json:"kind"`
	Operation  SyncOperation `json:"operation"`
	SourceKind SourceKind    `json:"source_kind"`
	SourceID   string        `json:"source_id"`
	CustomerID int           `json:"customer_id"`
	Error      string        `json:"error"`
	Attempts   int           `json:"attempts"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// ReconciliationReport lists mirrors that are known to be out of step
type ReconciliationReport struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	PendingCount int                   `json:"pending_count"`
	ByKind       map[LedgerKind]int    `json:"by_kind"`
	ByOperation  map[SyncOperation]int `json:"by_operation"`
	Failures     []*SyncFailure        `json:"failures"`
}

// ReconcileResult summarises one retry sweep
type ReconcileResult struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}
