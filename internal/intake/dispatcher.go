package intake

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bigredeye/cichain/api"
	lf "github.com/bigredeye/cichain/internal/logfield"
)

type Deliverer interface {
	Deliver(webhook api.Webhook, creds Credentials) bool
}

// Dispatcher runs deliveries on a process-wide pool of at most workers
// concurrent deliveries.
type Dispatcher struct {
	deliverer Deliverer
	sem       *semaphore.Weighted
	metrics   *Metrics
	logger    *zap.Logger

	inFlight  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(deliverer Deliverer, workers int, metrics *Metrics, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		deliverer: deliverer,
		sem:       semaphore.NewWeighted(int64(workers)),
		metrics:   metrics,
		logger:    logger.Named("dispatcher"),
	}
}

// Batch is a set of deliveries submitted together.
type Batch struct {
	group   errgroup.Group
	results []bool
}

// Wait blocks until every delivery of the batch is finished and returns their
// outcomes in submission order.
func (b *Batch) Wait() []bool {
	_ = b.group.Wait()
	return b.results
}

// Dispatch starts one delivery per webhook and returns without waiting for
// them. Deliveries are not canceled once submitted.
func (d *Dispatcher) Dispatch(webhooks []api.Webhook, creds Credentials) *Batch {
	batch := &Batch{results: make([]bool, len(webhooks))}
	d.logger.Debug("Dispatching webhooks", lf.Webhooks(len(webhooks)))

	for i, webhook := range webhooks {
		i, webhook := i, webhook
		batch.group.Go(func() error {
			// Acquire only fails on a canceled context.
			_ = d.sem.Acquire(context.Background(), 1)
			defer d.sem.Release(1)

			d.inFlight.Inc()
			d.metrics.inFlight.Inc()
			defer func() {
				d.inFlight.Dec()
				d.metrics.inFlight.Dec()
			}()

			ok := d.deliverer.Deliver(webhook, creds)
			if ok {
				d.delivered.Inc()
			} else {
				d.failed.Inc()
			}
			batch.results[i] = ok
			return nil
		})
	}

	return batch
}

type Stats struct {
	InFlight  int64
	Delivered int64
	Failed    int64
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		InFlight:  d.inFlight.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}
