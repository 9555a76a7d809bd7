package services

import (
	"context"
	"testing"
	"time"

	"villa-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingExporter struct {
	reports []*models.ReconciliationReport
}

func (e *capturingExporter) Export(ctx context.Context, report *models.ReconciliationReport) (string, error) {
	e.reports = append(e.reports, report)
	return "s3://villa-reports/reconciliation.json", nil
}

func TestExportReport_Disabled(t *testing.T) {
	e := newEngine()

	_, err := e.reconcile.ExportReport(context.Background())
	assert.ErrorIs(t, err, ErrExportDisabled)
}

func TestExportReport_IncludesPendingFailures(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	exporter := &capturingExporter{}
	e.reconcile.Exporter = exporter

	c := newStay(t, e, "2024-05-10", "2024-05-15", "10000")
	e.ledger.setDown(true)
	_, err := e.charges.AddCharge(ctx, c.ID, &models.CreateChargeRequest{
		Description: "Late checkout", Amount: dec("800"), RecordInExpenses: true,
	}, 1)
	require.NoError(t, err)

	location, err := e.reconcile.ExportReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3://villa-reports/reconciliation.json", location)
	require.Len(t, exporter.reports, 1)
	assert.Equal(t, 1, exporter.reports[0].PendingCount)
	assert.Equal(t, 1, exporter.reports[0].ByOperation[models.SyncCreate])
}

func TestReconcileWorker_SweepResolvesPending(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	c := newStay(t, e, "2024-05-10", "2024-05-15", "10000")

	e.ledger.setDown(true)
	ch, err := e.charges.AddCharge(ctx, c.ID, &models.CreateChargeRequest{
		Description: "Firewood", Amount: dec("300"), RecordInExpenses: true,
	}, 1)
	require.NoError(t, err)
	e.ledger.setDown(false)

	w := NewReconcileWorker(e.reconcile, time.Minute)
	w.sweep()

	assert.Len(t, e.db.mirrors(models.LedgerExpenses, ch.ID), 1)
	report, err := e.reconcile.Report(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.PendingCount)
}

func TestReconcileWorker_StartStop(t *testing.T) {
	w := NewReconcileWorker(newEngine().reconcile, 0)
	assert.Equal(t, 10*time.Minute, w.interval)

	w.Start()
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
