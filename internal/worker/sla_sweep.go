package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/service"
)

// SLASweepWorker periodically re-evaluates every unsettled SLA binding so
// deadlines breached without a triggering ticket event are still detected.
type SLASweepWorker struct {
	sla       *service.SLAService
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	stop      chan struct{}
	done      chan struct{}
}

// NewSLASweepWorker creates the worker.
func NewSLASweepWorker(slaService *service.SLAService, logger *zap.Logger, interval time.Duration, batchSize int) *SLASweepWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SLASweepWorker{
		sla:       slaService,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (w *SLASweepWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (w *SLASweepWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *SLASweepWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("SLA sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.stop:
			w.logger.Info("SLA sweep worker stopped")
			return
		case <-ctx.Done():
			w.logger.Info("SLA sweep worker stopped", zap.Error(ctx.Err()))
			return
		}
	}
}

func (w *SLASweepWorker) sweep(ctx context.Context) {
	started := time.Now()
	evaluated, failed := w.sla.SweepOnce(ctx, w.batchSize)
	w.logger.Info("SLA sweep pass complete",
		zap.Int("evaluated", evaluated),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(started)))
}
