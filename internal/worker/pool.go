package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/config"
	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/enrich"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/queue"
	"github.com/streampulse/notify/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnEnriched       func(kind domain.EventKind, degraded bool, latency time.Duration)
	OnParked         func(kind domain.EventKind)
	OnPublishFailure func(topic string)
}

// Deps bundles the collaborators every worker shares.
type Deps struct {
	Queue    *queue.Queue
	Store    pending.Store
	Enricher *enrich.Enricher
	Repo     repository.NotificationRepository
	Bus      bus.Bus
}

// Pool manages the lifecycle of all enrichment workers. All workers drain
// the same work queue fed by the discovery poller.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates count identical workers. The global-kind set and the
// attempt cap come from configuration so operators can tune fan-out and
// dead-lettering without a rebuild.
func NewPool(cfg *config.Config, count int, deps Deps, logger *zap.Logger, hooks MetricHooks) *Pool {
	globalKinds := make(map[domain.EventKind]bool, len(cfg.GlobalKinds))
	for _, k := range cfg.GlobalKinds {
		globalKinds[k] = true
	}

	workers := make([]*Worker, count)
	for i := range workers {
		workers[i] = NewWorker(
			i, deps.Queue, deps.Store, deps.Enricher, deps.Repo, deps.Bus,
			globalKinds, cfg.MaxEnrichAttempts,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}

	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context to ensure in-flight events finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
