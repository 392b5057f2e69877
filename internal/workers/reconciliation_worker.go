package workers

import (
	"context"
	"time"

	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
)

// ReconciliationWorker periodically retries order propagation for settled
// transactions whose order update has not been confirmed. Payment truth is
// already in the ledger by the time this runs; the sweep only heals the
// derived order state.
type ReconciliationWorker struct {
	paymentService services.PaymentService
	interval       time.Duration
	batchSize      int
}

func NewReconciliationWorker(paymentService services.PaymentService, interval time.Duration, batchSize int) *ReconciliationWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconciliationWorker{
		paymentService: paymentService,
		interval:       interval,
		batchSize:      batchSize,
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	logger.Info("reconciliation worker started",
		"interval", w.interval.String(), "batch_size", w.batchSize)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ReconciliationWorker) sweep() {
	synced, err := w.paymentService.RetryOrderPropagation(w.batchSize)
	logger.WorkerLog("reconciliation", "retry_order_propagation", err)
	if synced > 0 {
		logger.Info("order propagation retries applied", "synced", synced)
	}
}
