package services

import (
	"context"
	"strings"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"
	"villa-backend/internal/timeutil"

	"github.com/google/uuid"
)

// ChargeService manages a customer's extra charges and their expense/sales mirrors
type ChargeService struct {
	Customers CustomerStore
	Charges   ChargeStore
	Sync      *LedgerSyncService
}

func NewChargeService(customers CustomerStore, charges ChargeStore, sync *LedgerSyncService) *ChargeService {
	return &ChargeService{
		Customers: customers,
		Charges:   charges,
		Sync:      sync,
	}
}

func (s *ChargeService) loadCharge(ctx context.Context, customerID int, chargeID string) (*models.ExtraCharge, error) {
	ch, err := s.Charges.Get(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if ch == nil || ch.CustomerID != customerID {
		return nil, apperr.NotFound("extra charge", chargeID)
	}
	return ch, nil
}

// mirror brings both ledgers in line with the charge's toggles and stores the resulting ids
func (s *ChargeService) mirror(ctx context.Context, c *models.Customer, ch *models.ExtraCharge) error {
	payload := ChargePayload(ch, c.Name)
	expenseID := s.Sync.Mirror(ctx, models.LedgerExpenses, models.SourceKindCharge, c.ID, ch.ID, ch.ExpenseMirrorID, ch.RecordInExpenses, payload)
	saleID := s.Sync.Mirror(ctx, models.LedgerSales, models.SourceKindCharge, c.ID, ch.ID, ch.SaleMirrorID, ch.RecordInSales, payload)

	if sameID(expenseID, ch.ExpenseMirrorID) && sameID(saleID, ch.SaleMirrorID) {
		return nil
	}
	if err := s.Charges.SetMirrors(ctx, ch.ID, expenseID, saleID); err != nil {
		return err
	}
	ch.ExpenseMirrorID = expenseID
	ch.SaleMirrorID = saleID
	return nil
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// AddCharge records an extra charge, recomputes the customer's totals and mirrors it per toggle
func (s *ChargeService) AddCharge(ctx context.Context, customerID int, req *models.CreateChargeRequest, userID int) (*models.ExtraCharge, error) {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperr.Validation("description", "is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	chargeDate := timeutil.Today()
	if req.ChargeDate != "" {
		chargeDate, err = timeutil.ParseDate(req.ChargeDate)
		if err != nil {
			return nil, apperr.Validation("charge_date", "%v", err)
		}
	}

	ch := &models.ExtraCharge{
		ID:               uuid.NewString(),
		CustomerID:       customerID,
		Description:      description,
		Amount:           req.Amount,
		ChargeDate:       chargeDate,
		RecordInExpenses: req.RecordInExpenses,
		RecordInSales:    req.RecordInSales,
		CreatedByUserID:  userID,
	}
	saved, err := s.Charges.Create(ctx, ch)
	if err != nil {
		return nil, err
	}
	noteReopened(c, saved)
	if err := s.mirror(ctx, saved, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// UpdateCharge applies the given fields. Toggle flips create or delete mirrors; an amount
// change on a mirrored charge rewrites the mirror.
func (s *ChargeService) UpdateCharge(ctx context.Context, customerID int, chargeID string, req *models.UpdateChargeRequest) (*models.ExtraCharge, error) {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return nil, err
	}
	ch, err := s.loadCharge(ctx, customerID, chargeID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, apperr.Validation("description", "is required")
		}
		ch.Description = description
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, apperr.Validation("amount", "must be greater than zero")
		}
		ch.Amount = *req.Amount
	}
	if req.ChargeDate != nil {
		d, err := timeutil.ParseDate(*req.ChargeDate)
		if err != nil {
			return nil, apperr.Validation("charge_date", "%v", err)
		}
		ch.ChargeDate = d
	}
	if req.RecordInExpenses != nil {
		ch.RecordInExpenses = *req.RecordInExpenses
	}
	if req.RecordInSales != nil {
		ch.RecordInSales = *req.RecordInSales
	}

	saved, err := s.Charges.Update(ctx, ch)
	if err != nil {
		return nil, err
	}
	noteReopened(c, saved)
	if err := s.mirror(ctx, saved, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// DeleteCharge removes the charge's mirrors, then the charge, then recomputes the totals
func (s *ChargeService) DeleteCharge(ctx context.Context, customerID int, chargeID string) error {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return err
	}
	ch, err := s.loadCharge(ctx, customerID, chargeID)
	if err != nil {
		return err
	}

	s.Sync.Remove(ctx, models.LedgerExpenses, models.SourceKindCharge, customerID, ch.ID)
	s.Sync.Remove(ctx, models.LedgerSales, models.SourceKindCharge, customerID, ch.ID)

	saved, err := s.Charges.Delete(ctx, customerID, ch.ID)
	if err != nil {
		return err
	}
	noteReopened(c, saved)
	return nil
}

func (s *ChargeService) ListCharges(ctx context.Context, customerID int) ([]*models.ExtraCharge, error) {
	if _, err := loadCustomer(ctx, s.Customers, customerID); err != nil {
		return nil, err
	}
	return s.Charges.ListByCustomer(ctx, customerID)
}
