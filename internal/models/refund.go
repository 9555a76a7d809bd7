package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Refund returns money to a customer and cancels the stay.
type Refund struct {
	ID               string          `json:"id"`
	CustomerID       int             `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Method           PaymentMode     `json:"method"`
	Reason           string          `json:"reason"`
	RecordInExpenses bool            `json:"record_in_expenses"`
	ExpenseMirrorID  *int            `json:"expense_mirror_id,omitempty"`
	CreatedByUserID  int             `json:"created_by_user_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

type CreateRefundRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Method           PaymentMode     `json:"method"`
	Reason           string          `json:"reason"`
	RecordInExpenses bool            `json:"record_in_expenses"`
}
