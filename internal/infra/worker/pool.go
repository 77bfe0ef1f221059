// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

type Task func(ctx context.Context) error

// Pool runs tasks on a fixed set of workers. Tasks submitted with the same key
// always land on the same worker, so they run one at a time in submit order;
// different keys spread over all workers.
type Pool struct {
	wg     sync.WaitGroup
	queues []chan Task
	quit   chan struct{}
	once   sync.Once
	log    *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	poolLog := logger.With().Str("component", "WorkerPool").Logger()
	p := &Pool{quit: make(chan struct{}), log: &poolLog}
	p.queues = make([]chan Task, workers)
	for i := range p.queues {
		p.queues[i] = make(chan Task, queueSize)
	}
	return p
}

func (p *Pool) Size() int { return len(p.queues) }

func (p *Pool) Start(ctx context.Context) {
	for i, q := range p.queues {
		p.wg.Add(1)
		go func(id int, jobs <-chan Task) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					p.run(ctx, id, task)
				}
			}
		}(i, q)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Error().Err(err).Int("worker", id).Msg("task error")
	}
}

// Stop signals every worker and waits for the tasks in flight. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit queues task on the worker owning key. It blocks while that worker's
// queue is full, until ctx is done or the pool stops.
func (p *Pool) Submit(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	q := p.queues[p.slot(key)]
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case q <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolStopped
	}
}

func (p *Pool) slot(key int64) int {
	u := uint64(key)
	// fibonacci hashing spreads sequential chat ids
	u *= 0x9E3779B97F4A7C15
	return int(u % uint64(len(p.queues)))
}
