package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"villa-backend/internal/apperr"
	"villa-backend/internal/metrics"
	"villa-backend/internal/models"
)

// ErrMirrorNotFound is returned by an update when the target mirror row is gone
var ErrMirrorNotFound = errors.New("ledger mirror not found")

// LedgerSyncService mirrors customer sub-ledger events into the expenses and sales ledgers.
// Mirror writes are best effort: failures are logged, counted and queued in the outbox,
// and never fail the sub-ledger write that triggered them.
type LedgerSyncService struct {
	Ledger LedgerStore
	Outbox SyncOutbox
}

func NewLedgerSyncService(ledger LedgerStore, outbox SyncOutbox) *LedgerSyncService {
	return &LedgerSyncService{Ledger: ledger, Outbox: outbox}
}

// Route picks the mirror operation from whether a mirror exists now and whether one is wanted.
func Route(mirrorID *int, want bool) models.SyncOperation {
	switch {
	case mirrorID == nil && want:
		return models.SyncCreate
	case mirrorID != nil && want:
		return models.SyncUpdate
	case mirrorID != nil && !want:
		return models.SyncDelete
	default:
		return models.SyncNone
	}
}

// Sync applies one operation to the mirror of sourceID in the given ledger.
// Create is an upsert on the source key, so repeating it never produces a second row.
// Delete is a no-op when the mirror is absent and returns a nil entry.
func (s *LedgerSyncService) Sync(ctx context.Context, kind models.LedgerKind, customerID int, sourceID string, payload *models.MirrorPayload, op models.SyncOperation) (*models.LedgerEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown ledger kind %q", kind)
	}
	metrics.LedgerSyncTotal.WithLabelValues(string(kind), string(op)).Inc()

	switch op {
	case models.SyncCreate, models.SyncUpdate:
		if payload == nil {
			return nil, fmt.Errorf("%s of %s mirror requires a payload", op, kind)
		}
		cid := customerID
		entry := &models.LedgerEntry{
			Kind:            kind,
			Amount:          payload.Amount,
			Category:        payload.Category,
			Description:     payload.Description,
			EntryDate:       payload.EntryDate,
			SourceType:      models.SourceCustomer,
			SourceID:        sourceID,
			CustomerID:      &cid,
			CreatedByUserID: payload.UserID,
		}
		if op == models.SyncCreate {
			if err := s.Ledger.UpsertMirror(ctx, entry); err != nil {
				return nil, err
			}
			return entry, nil
		}
		found, err := s.Ledger.UpdateMirror(ctx, entry)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrMirrorNotFound
		}
		return entry, nil

	case models.SyncDelete:
		if _, err := s.Ledger.DeleteMirror(ctx, kind, models.SourceCustomer, sourceID); err != nil {
			return nil, err
		}
		return nil, nil

	case models.SyncNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown sync operation %q", op)
}

// Mirror routes and applies the toggle for one ledger, returning the mirror id the origin row
// should store afterwards. On failure the previous id is returned unchanged.
func (s *LedgerSyncService) Mirror(ctx context.Context, kind models.LedgerKind, sourceKind models.SourceKind, customerID int, sourceID string, mirrorID *int, want bool, payload *models.MirrorPayload) *int {
	op := Route(mirrorID, want)
	if op == models.SyncNone {
		return nil
	}

	entry, err := s.Sync(ctx, kind, customerID, sourceID, payload, op)
	if errors.Is(err, ErrMirrorNotFound) {
		// removed behind our back; recreate it
		log.Printf("[LedgerSync] %s mirror for %s %s missing, recreating", kind, sourceKind, sourceID)
		op = models.SyncCreate
		entry, err = s.Sync(ctx, kind, customerID, sourceID, payload, op)
	}
	if err != nil {
		s.RecordFailure(ctx, kind, op, sourceKind, customerID, sourceID, err)
		return mirrorID
	}

	if op == models.SyncDelete {
		return nil
	}
	id := entry.ID
	return &id
}

// Remove deletes the mirror of an origin row that is itself being deleted. The delete is
// keyed by source so it also clears a mirror whose id was never stored.
func (s *LedgerSyncService) Remove(ctx context.Context, kind models.LedgerKind, sourceKind models.SourceKind, customerID int, sourceID string) {
	if _, err := s.Sync(ctx, kind, customerID, sourceID, nil, models.SyncDelete); err != nil {
		s.RecordFailure(ctx, kind, models.SyncDelete, sourceKind, customerID, sourceID, err)
	}
}

// RecordFailure logs a failed mirror write and queues it for the reconcile sweep
func (s *LedgerSyncService) RecordFailure(ctx context.Context, kind models.LedgerKind, op models.SyncOperation, sourceKind models.SourceKind, customerID int, sourceID string, cause error) {
	syncErr := &apperr.SyncError{Kind: string(kind), Operation: string(op), SourceID: sourceID, Err: cause}
	log.Printf("[LedgerSync] Warning: %v", syncErr)
	metrics.LedgerSyncFailures.WithLabelValues(string(kind), string(op)).Inc()

	if s.Outbox == nil {
		return
	}
	failure := &models.SyncFailure{
		Kind:       kind,
		Operation:  op,
		SourceKind: sourceKind,
		SourceID:   sourceID,
		CustomerID: customerID,
		Error:      cause.Error(),
	}
	if err := s.Outbox.Record(ctx, failure); err != nil {
		log.Printf("[LedgerSync] Failed to queue sync failure for %s %s: %v", sourceKind, sourceID, err)
	}
}

// ChargePayload builds the mirror content for an extra charge
func ChargePayload(ch *models.ExtraCharge, customerName string) *models.MirrorPayload {
	return &models.MirrorPayload{
		Amount:      ch.Amount,
		Category:    models.CategoryExtraCharge,
		Description: fmt.Sprintf("%s - %s", ch.Description, customerName),
		EntryDate:   ch.ChargeDate,
		UserID:      ch.CreatedByUserID,
	}
}

// PaymentPayload builds the sales mirror content for a payment
func PaymentPayload(p *models.Payment, customerName string) *models.MirrorPayload {
	return &models.MirrorPayload{
		Amount:      p.Amount,
		Category:    models.CategoryBookingPayment,
		Description: fmt.Sprintf("%s payment (%s) - %s", p.Type, p.Mode, customerName),
		EntryDate:   p.PaidAt,
		UserID:      p.CreatedByUserID,
	}
}

// RefundPayload builds the expense mirror content for a refund
func RefundPayload(r *models.Refund, customerName string) *models.MirrorPayload {
	desc := fmt.Sprintf("Refund to %s", customerName)
	if r.Reason != "" {
		desc += ": " + r.Reason
	}
	return &models.MirrorPayload{
		Amount:      r.Amount,
		Category:    models.CategoryRefund,
		Description: desc,
		EntryDate:   r.CreatedAt,
		UserID:      r.CreatedByUserID,
	}
}
