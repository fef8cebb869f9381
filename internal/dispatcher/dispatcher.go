// Package dispatcher manages worker fan-out over the in-process queue.
// It is only used in memory queue mode; with the external queue the jobs
// come back through the HTTP callback instead.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/convertfix/audit-service/internal/audit"
	"github.com/convertfix/audit-service/internal/worker"
)

// Queue is the in-process queue consumed by the dispatcher.
type Queue interface {
	audit.Queue
	Dequeue(ctx context.Context) (audit.Job, error)
}

// Dispatcher fans out queued jobs to a fixed pool of workers.
type Dispatcher struct {
	queue       Queue
	worker      *worker.Worker
	concurrency int
	logger      *zap.Logger
}

// New creates a Dispatcher. Concurrency below one is raised to one.
func New(queue Queue, w *worker.Worker, concurrency int, logger *zap.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:       queue,
		worker:      w,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run starts the worker pool and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.consume(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func (d *Dispatcher) consume(ctx context.Context) {
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		if err := d.worker.Handle(ctx, job); err != nil {
			d.logger.Error("job failed",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job audit.Job) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
