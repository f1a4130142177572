package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/pending"
)

// ParkedMonitor periodically samples the depth of the pending-index and the
// parked (dead-letter) collection and reports both through a gauge hook.
// Parked events are never retried automatically; a non-zero parked depth is
// an operator signal, so the monitor also logs it.
type ParkedMonitor struct {
	store    pending.Store
	interval time.Duration
	onDepths func(pending, parked int)
	logger   *zap.Logger
}

func NewParkedMonitor(
	store pending.Store,
	interval time.Duration,
	onDepths func(pending, parked int),
	logger *zap.Logger,
) *ParkedMonitor {
	if onDepths == nil {
		onDepths = func(int, int) {}
	}
	return &ParkedMonitor{store: store, interval: interval, onDepths: onDepths, logger: logger}
}

// Run samples every interval until ctx is cancelled.
func (pm *ParkedMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	pm.logger.Info("parked monitor started", zap.Duration("interval", pm.interval))

	for {
		select {
		case <-ctx.Done():
			pm.logger.Info("parked monitor stopping")
			return
		case <-ticker.C:
			pm.sample(ctx)
		}
	}
}

func (pm *ParkedMonitor) sample(ctx context.Context) {
	pendingIDs, err := pm.store.PendingIDs(ctx)
	if err != nil {
		pm.logger.Error("pending depth sample error", zap.Error(err))
		return
	}
	parkedIDs, err := pm.store.ParkedIDs(ctx)
	if err != nil {
		pm.logger.Error("parked depth sample error", zap.Error(err))
		return
	}

	pm.onDepths(len(pendingIDs), len(parkedIDs))

	if len(parkedIDs) > 0 {
		pm.logger.Warn("events in dead-letter collection",
			zap.Int("parked", len(parkedIDs)))
	}
}
