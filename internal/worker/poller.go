package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/queue"
)

// Poller is the discovery half of the pipeline: it reads the pending-index
// non-destructively on a fixed interval and feeds the ids to the worker
// pool's queue.
//
// The index is a hint, not a source of truth. An id enqueued twice (because
// a previous pass has not retired it yet, or because another process polled
// the same index) is processed twice, which the idempotent upsert absorbs.
type Poller struct {
	store    pending.Store
	q        *queue.Queue
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(store pending.Store, q *queue.Queue, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{store: store, q: q, interval: interval, logger: logger}
}

// Run ticks every interval and enqueues all currently pending ids.
// Stops cleanly when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("discovery poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("discovery poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	ids, err := p.store.PendingIDs(ctx)
	if err != nil {
		p.logger.Error("pending index read error", zap.Error(err))
		return
	}

	enqueued := 0
	for _, id := range ids {
		if err := p.q.Enqueue(queue.Item{EventID: id}); err != nil {
			// Queue saturated; remaining ids stay in the index and are
			// picked up next pass.
			p.logger.Debug("work queue full, deferring remainder",
				zap.Int("deferred", len(ids)-enqueued))
			break
		}
		enqueued++
	}

	if enqueued > 0 {
		p.logger.Info("discovered pending events", zap.Int("count", enqueued))
	}
}
