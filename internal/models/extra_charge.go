package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtraCharge is a customer sub-ledger row. Each toggle controls a mirror in one aggregate
// ledger; the mirror ids record which mirrors currently exist.
type ExtraCharge struct {
	ID               string          `json:"id"`
	CustomerID       int             `json:"customer_id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	ChargeDate       time.Time       `json:"charge_date"`
	RecordInExpenses bool            `json:"record_in_expenses"`
	RecordInSales    bool            `json:"record_in_sales"`
	ExpenseMirrorID  *int            `json:"expense_mirror_id,omitempty"`
	SaleMirrorID     *int            `json:"sale_mirror_id,omitempty"`
	CreatedByUserID  int             `json:"created_by_user_id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type CreateChargeRequest struct {
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	ChargeDate       string          `json:"charge_date"` // optional, defaults to today
	RecordInExpenses bool            `json:"record_in_expenses"`
	RecordInSales    bool            `json:"record_in_sales"`
}

// UpdateChargeRequest carries optional fields; nil leaves the value unchanged
type UpdateChargeRequest struct {
	Description      *string          `json:"description"`
	Amount           *decimal.Decimal `json:"amount"`
	ChargeDate       *string          `json:"charge_date"`
	RecordInExpenses *bool            `json:"record_in_expenses"`
	RecordInSales    *bool            `json:"record_in_sales"`
}
