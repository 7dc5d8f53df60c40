// Package worker runs independent jobs on a bounded pool of goroutines.
package worker

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/macrochart/pkg/logger"
	"github.com/okian/macrochart/pkg/metrics"
)

// Job processes item i of a batch.
type Job func(ctx context.Context, i int)

// Pool runs jobs with at most Size of them in flight.
type Pool struct {
	size   int
	name   string
	active atomic.Int64
	logger logger.Logger
}

// NewPool creates a pool of size workers. Sizes below one run jobs
// sequentially.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size, name: "worker-pool"}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	return p
}

// Size returns the worker count.
func (p *Pool) Size() int { return p.size }

// Run calls job for every index in [0, n) and returns once all calls have
// returned. Every index is dispatched even after ctx is done, so jobs must
// check ctx themselves; this keeps one result per index for the caller.
func (p *Pool) Run(ctx context.Context, n int, job Job) {
	if n <= 0 {
		return
	}
	workers := p.size
	if workers > n {
		workers = n
	}
	items := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := range items {
				p.process(ctx, id, i, job)
			}
		}(w)
	}
	for i := 0; i < n; i++ {
		items <- i
	}
	close(items)
	wg.Wait()
}

func (p *Pool) process(ctx context.Context, worker, i int, job Job) {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(p.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			p.logger.Error(ctx, "job panicked",
				logger.String("worker", "worker-"+strconv.Itoa(worker)),
				logger.Int("item", i),
				logger.Any("panic", r),
			)
		}
	}()
	job(ctx, i)
}
