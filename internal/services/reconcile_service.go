package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"villa-backend/internal/metrics"
	"villa-backend/internal/models"
)

// ReportExporter stores a reconciliation report and returns where it was written
type ReportExporter interface {
	Export(ctx context.Context, report *models.ReconciliationReport) (string, error)
}

// ErrExportDisabled is returned when no report exporter is configured
var ErrExportDisabled = errors.New("report export is not configured")

// ReconcileService exposes failed mirror writes and re-derives the affected mirrors
// from their origin rows.
type ReconcileService struct {
	Outbox    SyncOutbox
	Sync      *LedgerSyncService
	Customers CustomerStore
	Charges   ChargeStore
	Payments  PaymentStore
	Refunds   RefundStore
	Exporter  ReportExporter
}

func NewReconcileService(outbox SyncOutbox, sync *LedgerSyncService, customers CustomerStore, charges ChargeStore, payments PaymentStore, refunds RefundStore, exporter ReportExporter) *ReconcileService {
	return &ReconcileService{
		Outbox:    outbox,
		Sync:      sync,
		Customers: customers,
		Charges:   charges,
		Payments:  payments,
		Refunds:   refunds,
		Exporter:  exporter,
	}
}

const reportLimit = 1000

// Report lists every unresolved sync failure
func (s *ReconcileService) Report(ctx context.Context) (*models.ReconciliationReport, error) {
	pending, err := s.Outbox.ListPending(ctx, reportLimit)
	if err != nil {
		return nil, err
	}
	report := &models.ReconciliationReport{
		GeneratedAt:  time.Now().UTC(),
		PendingCount: len(pending),
		ByKind:       make(map[models.LedgerKind]int),
		ByOperation:  make(map[models.SyncOperation]int),
		Failures:     pending,
	}
	for _, f := range pending {
		report.ByKind[f.Kind]++
		report.ByOperation[f.Operation]++
	}
	if report.Failures == nil {
		report.Failures = []*models.SyncFailure{}
	}
	metrics.SyncOutboxPending.Set(float64(report.PendingCount))
	return report, nil
}

// RetryPending re-derives the mirror for each queued failure. Whatever the failed operation
// was, the mirror is rebuilt from the origin row as it is now.
func (s *ReconcileService) RetryPending(ctx context.Context, limit int) (*models.ReconcileResult, error) {
	if limit <= 0 || limit > reportLimit {
		limit = 100
	}
	pending, err := s.Outbox.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &models.ReconcileResult{}
	for _, f := range pending {
		result.Attempted++
		if err := s.resync(ctx, f); err != nil {
			result.Failed++
			log.Printf("[Reconcile] Failure %d (%s %s %s) still failing: %v", f.ID, f.Kind, f.SourceKind, f.SourceID, err)
			if recErr := s.Outbox.RecordAttempt(ctx, f.ID, err.Error()); recErr != nil {
				log.Printf("[Reconcile] Failed to record attempt for %d: %v", f.ID, recErr)
			}
			continue
		}
		if err := s.Outbox.MarkResolved(ctx, f.ID); err != nil {
			return result, err
		}
		result.Resolved++
	}

	log.Printf("[Reconcile] Retried %d sync failures: %d resolved, %d failed", result.Attempted, result.Resolved, result.Failed)
	return result, nil
}

// ExportReport builds the current report and hands it to the exporter
func (s *ReconcileService) ExportReport(ctx context.Context) (string, error) {
	if s.Exporter == nil {
		return "", ErrExportDisabled
	}
	report, err := s.Report(ctx)
	if err != nil {
		return "", err
	}
	return s.Exporter.Export(ctx, report)
}

// converge creates or removes the mirror so it matches want and returns the id to store
func (s *ReconcileService) converge(ctx context.Context, kind models.LedgerKind, customerID int, sourceID string, want bool, payload *models.MirrorPayload) (*int, error) {
	if !want {
		_, err := s.Sync.Sync(ctx, kind, customerID, sourceID, nil, models.SyncDelete)
		return nil, err
	}
	entry, err := s.Sync.Sync(ctx, kind, customerID, sourceID, payload, models.SyncCreate)
	if err != nil {
		return nil, err
	}
	id := entry.ID
	return &id, nil
}

func (s *ReconcileService) customerName(ctx context.Context, customerID int) string {
	c, err := s.Customers.Get(ctx, customerID)
	if err != nil || c == nil {
		return fmt.Sprintf("customer %d", customerID)
	}
	return c.Name
}

func (s *ReconcileService) resync(ctx context.Context, f *models.SyncFailure) error {
	switch f.SourceKind {
	case models.SourceKindCharge:
		ch, err := s.Charges.Get(ctx, f.SourceID)
		if err != nil {
			return err
		}
		if ch == nil {
			_, err := s.Sync.Sync(ctx, f.Kind, f.CustomerID, f.SourceID, nil, models.SyncDelete)
			return err
		}
		payload := ChargePayload(ch, s.customerName(ctx, ch.CustomerID))
		if f.Kind == models.LedgerExpenses {
			id, err := s.converge(ctx, f.Kind, ch.CustomerID, ch.ID, ch.RecordInExpenses, payload)
			if err != nil {
				return err
			}
			ch.ExpenseMirrorID = id
		} else {
			id, err := s.converge(ctx, f.Kind, ch.CustomerID, ch.ID, ch.RecordInSales, payload)
			if err != nil {
				return err
			}
			ch.SaleMirrorID = id
		}
		return s.Charges.SetMirrors(ctx, ch.ID, ch.ExpenseMirrorID, ch.SaleMirrorID)

	case models.SourceKindPayment:
		p, err := s.Payments.Get(ctx, f.SourceID)
		if err != nil {
			return err
		}
		if p == nil {
			_, err := s.Sync.Sync(ctx, models.LedgerSales, f.CustomerID, f.SourceID, nil, models.SyncDelete)
			return err
		}
		id, err := s.converge(ctx, models.LedgerSales, p.CustomerID, p.ID, true, PaymentPayload(p, s.customerName(ctx, p.CustomerID)))
		if err != nil {
			return err
		}
		return s.Payments.SetSaleMirror(ctx, p.ID, id)

	case models.SourceKindRefund:
		r, err := s.Refunds.Get(ctx, f.SourceID)
		if err != nil {
			return err
		}
		if r == nil {
			_, err := s.Sync.Sync(ctx, models.LedgerExpenses, f.CustomerID, f.SourceID, nil, models.SyncDelete)
			return err
		}
		id, err := s.converge(ctx, models.LedgerExpenses, r.CustomerID, r.ID, r.RecordInExpenses, RefundPayload(r, s.customerName(ctx, r.CustomerID)))
		if err != nil {
			return err
		}
		return s.Refunds.SetExpenseMirror(ctx, r.ID, id)
	}
	return fmt.Errorf("unknown source kind %q", f.SourceKind)
}
