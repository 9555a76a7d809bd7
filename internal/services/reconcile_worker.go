package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// ReconcileWorker runs the outbox retry sweep on a fixed interval
type ReconcileWorker struct {
	service  *ReconcileService
	interval time.Duration
	batch    int
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewReconcileWorker(service *ReconcileService, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ReconcileWorker{
		service:  service,
		interval: interval,
		batch:    100,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (w *ReconcileWorker) Start() {
	log.Printf("[Reconcile] Starting sweep every %s", w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.sweep()
			case <-w.stopChan:
				log.Println("[Reconcile] Stopping sweep")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep
func (w *ReconcileWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *ReconcileWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if _, err := w.service.RetryPending(ctx, w.batch); err != nil {
		log.Printf("[Reconcile] Sweep failed: %v", err)
	}
	if _, err := w.service.Report(ctx); err != nil {
		log.Printf("[Reconcile] Failed to refresh pending gauge: %v", err)
	}
}
