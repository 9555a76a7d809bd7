package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind names one of the two aggregate ledgers
type LedgerKind string

const (
	LedgerExpenses LedgerKind = "expenses"
	LedgerSales    LedgerKind = "sales"
)

func (k LedgerKind) Valid() bool {
	return k == LedgerExpenses || k == LedgerSales
}

// SourceType records where an aggregate ledger row came from. Anything other than
// manual is a mirror and can only change through its origin record.
type SourceType string

const (
	SourceManual       SourceType = "manual"
	SourceCustomer     SourceType = "customer"
	SourceStaffPayment SourceType = "staff_payment"
	SourceStaffExpense SourceType = "staff_expense"
)

// Ledger categories used by mirrored rows
const (
	CategoryExtraCharge    = "extra_charge"
	CategoryBookingPayment = "booking_payment"
	CategoryRefund         = "refund"
)

// LedgerEntry is one row of the expenses or sales ledger
type LedgerEntry struct {
	ID              int             `json:"id"`
	Kind            LedgerKind      `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	EntryDate       time.Time       `json:"entry_date"`
	SourceType      SourceType      `json:"source_type"`
	SourceID        string          `json:"source_id,omitempty"`   // sub-ledger row this mirrors
	CustomerID      *int            `json:"customer_id,omitempty"` // weak back-reference
	CreatedByUserID int             `json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ReadOnly reports whether the row is a mirror
func (e *LedgerEntry) ReadOnly() bool {
	return e.SourceType != SourceManual
}

// CreateLedgerEntryRequest creates or edits a manual ledger row
type CreateLedgerEntryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	EntryDate   string          `json:"entry_date"`
}

// MirrorPayload is the content copied from a sub-ledger event into a mirror row
type MirrorPayload struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	EntryDate   time.Time       `json:"entry_date"`
	UserID      int             `json:"user_id"`
}

// LedgerFilter is used for filtering ledger entries
type LedgerFilter struct {
	SourceType SourceType `json:"source_type"`
	CustomerID *int       `json:"customer_id"`
	Category   string     `json:"category"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// LedgerTotals sums a filtered ledger
type LedgerTotals struct {
	Kind       LedgerKind      `json:"kind"`
	Total      decimal.Decimal `json:"total"`
	EntryCount int             `json:"entry_count"`
}
