package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/utils/errutil"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// Syncer runs one pass over every stored connection
type Syncer interface {
	RunOnce(ctx context.Context) (*model.SyncReport, error)
}

// SyncWorker runs the sync pipeline on a fixed interval
//
// Architecture assumptions:
// - Single instance; two workers sharing a store would sync connections twice
// - A run is never interrupted by the ticker; ticks during a long run are dropped
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSyncWorker creates a worker calling syncer every interval
func NewSyncWorker(syncer Syncer, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		syncer:   syncer,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the loop in a goroutine. The first run happens immediately.
func (w *SyncWorker) Start(ctx context.Context) error {
	logging.Default().Info("Sync worker starting", "interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker and waits for the current run to finish
func (w *SyncWorker) Stop() {
	logging.Default().Info("Sync worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Sync worker stopped")
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.sync(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sync(ctx)

		case <-w.stopCh:
			logging.Default().Info("Sync worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Sync worker context cancelled")
			return
		}
	}
}

func (w *SyncWorker) sync(ctx context.Context) {
	report, err := w.syncer.RunOnce(ctx)
	if err != nil {
		// Next tick retries
		errutil.Handle(ctx, err, "Sync run failed")
		return
	}

	logging.From(ctx).Info("Scheduled sync finished",
		"run_id", report.RunID,
		"connections", len(report.Connections),
		"synced", report.Count(model.SyncResultSynced))
}
