package services

import (
	"context"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"

	"github.com/google/uuid"
)

// PaymentService records money received from a customer. Every payment is mirrored into sales.
type PaymentService struct {
	Customers CustomerStore
	Payments  PaymentStore
	Sync      *LedgerSyncService
}

func NewPaymentService(customers CustomerStore, payments PaymentStore, sync *LedgerSyncService) *PaymentService {
	return &PaymentService{
		Customers: customers,
		Payments:  payments,
		Sync:      sync,
	}
}

// AddPayment records a payment, recomputes the balance and mirrors it into sales
func (s *PaymentService) AddPayment(ctx context.Context, customerID int, req *models.CreatePaymentRequest, userID int) (*models.Payment, error) {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	if !models.ValidPaymentMode(req.Mode) {
		return nil, apperr.Validation("mode", "unknown payment mode %q", req.Mode)
	}
	if !models.ValidPaymentType(req.Type) {
		return nil, apperr.Validation("type", "unknown payment type %q", req.Type)
	}

	p := &models.Payment{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Amount:          req.Amount,
		Mode:            req.Mode,
		Type:            req.Type,
		Notes:           req.Notes,
		CreatedByUserID: userID,
		PaidAt:          time.Now().UTC(),
	}
	saved, err := s.Payments.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	noteReopened(c, saved)

	mirrorID := s.Sync.Mirror(ctx, models.LedgerSales, models.SourceKindPayment, customerID, p.ID, p.SaleMirrorID, true, PaymentPayload(p, c.Name))
	if !sameID(mirrorID, p.SaleMirrorID) {
		if err := s.Payments.SetSaleMirror(ctx, p.ID, mirrorID); err != nil {
			return nil, err
		}
		p.SaleMirrorID = mirrorID
	}
	return p, nil
}

// DeletePayment reverses a payment and removes its sales mirror
func (s *PaymentService) DeletePayment(ctx context.Context, customerID int, paymentID string) error {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return err
	}
	p, err := s.Payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if p == nil || p.CustomerID != customerID {
		return apperr.NotFound("payment", paymentID)
	}

	s.Sync.Remove(ctx, models.LedgerSales, models.SourceKindPayment, customerID, p.ID)

	saved, err := s.Payments.Delete(ctx, customerID, p.ID)
	if err != nil {
		return err
	}
	noteReopened(c, saved)
	return nil
}

func (s *PaymentService) ListPayments(ctx context.Context, customerID int) ([]*models.Payment, error) {
	if _, err := loadCustomer(ctx, s.Customers, customerID); err != nil {
		return nil, err
	}
	return s.Payments.ListByCustomer(ctx, customerID)
}
