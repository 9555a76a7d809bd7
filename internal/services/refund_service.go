package services

import (
	"context"
	"log"
	"strings"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"
	"villa-backend/internal/notify"

	"github.com/google/uuid"
)

// RefundService cancels a stay by returning money to the customer
type RefundService struct {
	Customers CustomerStore
	Refunds   RefundStore
	Sync      *LedgerSyncService
	Calendar  CalendarCache
	Notifier  notify.Notifier
}

func NewRefundService(customers CustomerStore, refunds RefundStore, sync *LedgerSyncService, calendar CalendarCache, notifier notify.Notifier) *RefundService {
	return &RefundService{
		Customers: customers,
		Refunds:   refunds,
		Sync:      sync,
		Calendar:  calendar,
		Notifier:  notifier,
	}
}

// AddRefund records the refund, cancels the stay and frees its dates in one step.
// The refund may not exceed what the customer has paid.
func (s *RefundService) AddRefund(ctx context.Context, customerID int, req *models.CreateRefundRequest, userID int) (*models.Refund, error) {
	c, err := loadMutable(ctx, s.Customers, customerID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CustomerStatusActive {
		return nil, apperr.Validation("status", "booking %d must be reopened before it can be refunded", customerID)
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	if req.Amount.GreaterThan(c.ReceivedAmount) {
		return nil, apperr.Validation("amount", "refund %s exceeds received amount %s",
			req.Amount.StringFixed(2), c.ReceivedAmount.StringFixed(2))
	}
	method := req.Method
	if method == "" {
		method = models.PaymentModeCash
	}
	if !models.ValidPaymentMode(method) {
		return nil, apperr.Validation("method", "unknown refund method %q", method)
	}

	r := &models.Refund{
		ID:               uuid.NewString(),
		CustomerID:       customerID,
		Amount:           req.Amount,
		Method:           method,
		Reason:           strings.TrimSpace(req.Reason),
		RecordInExpenses: req.RecordInExpenses,
		CreatedByUserID:  userID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Customers.Cancel(ctx, customerID, r); err != nil {
		return nil, err
	}
	c.Status = models.CustomerStatusCancelled
	invalidateCalendar(ctx, s.Calendar)
	log.Printf("[Booking] Customer %d cancelled with refund %s", customerID, r.Amount.StringFixed(2))

	mirrorID := s.Sync.Mirror(ctx, models.LedgerExpenses, models.SourceKindRefund, customerID, r.ID, r.ExpenseMirrorID, r.RecordInExpenses, RefundPayload(r, c.Name))
	if !sameID(mirrorID, r.ExpenseMirrorID) {
		if err := s.Refunds.SetExpenseMirror(ctx, r.ID, mirrorID); err != nil {
			return nil, err
		}
		r.ExpenseMirrorID = mirrorID
	}

	if s.Notifier != nil && c.Email != "" {
		payload := map[string]interface{}{
			"customer_id":   c.ID,
			"name":          c.Name,
			"refund_amount": r.Amount.StringFixed(2),
			"reason":        r.Reason,
		}
		if err := s.Notifier.Notify(ctx, notify.KindBookingCancelled, c.Email, payload); err != nil {
			log.Printf("[Notify] Warning: cancellation for customer %d: %v", c.ID, err)
		}
	}
	return r, nil
}

func (s *RefundService) ListRefunds(ctx context.Context, customerID int) ([]*models.Refund, error) {
	if _, err := loadCustomer(ctx, s.Customers, customerID); err != nil {
		return nil, err
	}
	return s.Refunds.ListByCustomer(ctx, customerID)
}
