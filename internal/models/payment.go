package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeOther        PaymentMode = "other"
)

type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "advance"
	PaymentTypePart    PaymentType = "part"
	PaymentTypeFinal   PaymentType = "final"
	PaymentTypeExtra   PaymentType = "extra"
)

// Payment is money received from a customer. Every payment is mirrored into sales.
type Payment struct {
	ID              string          `json:"id"`
	CustomerID      int             `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	Mode            PaymentMode     `json:"mode"`
	Type            PaymentType     `json:"type"`
	Notes           string          `json:"notes"`
	SaleMirrorID    *int            `json:"sale_mirror_id,omitempty"`
	CreatedByUserID int             `json:"created_by_user_id"`
	PaidAt          time.Time       `json:"paid_at"`
}

type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   PaymentMode     `json:"mode"`
	Type   PaymentType     `json:"type"`
	Notes  string          `json:"notes"`
}

// ValidPaymentMode reports whether m is one of the known modes
func ValidPaymentMode(m PaymentMode) bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard, PaymentModeBankTransfer, PaymentModeOther:
		return true
	}
	return false
}

// ValidPaymentType reports whether t is one of the known types
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentTypeAdvance, PaymentTypePart, PaymentTypeFinal, PaymentTypeExtra:
		return true
	}
	return false
}
