// internal/app/system/workers/fdmaturity.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DueMaturer flips every active FD whose maturity date has passed to
// matured and reports how many changed. The fds store satisfies it.
type DueMaturer interface {
	MatureDue(ctx context.Context, now time.Time) (int64, error)
}

// FDMaturity is a background worker that marks due fixed deposits as
// matured so maturity payments can be raised against them.
type FDMaturity struct {
	fds      DueMaturer
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewFDMaturity creates a new FD maturity worker.
//
// Parameters:
//   - fds: the store that performs the sweep
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 hour)
func NewFDMaturity(fds DueMaturer, logger *zap.Logger, interval time.Duration) *FDMaturity {
	return &FDMaturity{
		fds:      fds,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then begins the background loop.
func (w *FDMaturity) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("fd maturity worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *FDMaturity) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("fd maturity worker stopped")
}

func (w *FDMaturity) run() {
	defer w.wg.Done()

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Sweep runs a single pass and returns the number of FDs matured.
func (w *FDMaturity) Sweep(ctx context.Context) (int64, error) {
	return w.fds.MatureDue(ctx, w.now())
}

func (w *FDMaturity) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	count, err := w.Sweep(ctx)
	if err != nil {
		w.log.Error("failed to mature due fixed deposits", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("matured fixed deposits", zap.Int64("count", count))
	}
}
