// Package pool dispatches render jobs to a fixed set of worker goroutines.
//
// The pool owns the pending queue, the idle flag of every worker and the
// current generation. All of that state is guarded by one mutex; results are
// drained by a single collector goroutine, so the result handler is never
// invoked concurrently with itself.
package pool

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	workercore "github.com/nemanja-m/gomandel/internal/worker/core"
	workerservice "github.com/nemanja-m/gomandel/internal/worker/service"
	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// handle is the pool's view of one worker.
type handle struct {
	idle    bool
	service workercore.WorkerService
}

type postedJob struct {
	job       *core.Job
	worker    *handle
	discarded bool
}

type Pool struct {
	mu         sync.Mutex
	workers    []*handle
	queue      core.JobQueue
	posted     map[uint64]*postedJob
	generation uint64
	handler    core.ResultHandler
	results    chan core.JobResult
	closed     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *Metrics
	logger  logging.Logger
}

// New creates a pool of n workers sharing executor. Workers do not run until
// Start is called; jobs submitted earlier are queued or posted and picked up
// once the workers start.
func New(n int, executor workercore.Executor, metrics *Metrics, logger logging.Logger) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("pool needs at least one worker, got %d", n)
	}
	if executor == nil {
		return nil, fmt.Errorf("pool needs an executor")
	}

	p := &Pool{
		queue:   core.NewJobQueue(),
		posted:  make(map[uint64]*postedJob),
		results: make(chan core.JobResult, n),
		metrics: metrics,
		logger:  logger,
	}
	for i := range n {
		p.workers = append(p.workers, &handle{
			idle:    true,
			service: workerservice.NewWorker(i, executor, p.results, logger),
		})
	}
	p.metrics.observe(0, 0, n)
	return p, nil
}

// Start launches the workers and the result collector. They stop when ctx is
// cancelled or Close is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil || p.closed {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	for _, h := range p.workers {
		p.wg.Go(func() {
			_ = h.service.Run(ctx)
		})
	}
	p.wg.Go(func() {
		p.collect(ctx)
	})

	p.logger.Info("Worker pool started", "workers", len(p.workers))
}

// Close stops all workers. Queued jobs are discarded and in-flight results
// are never delivered.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	dropped := p.queue.RemoveWhere(func(*core.Job) bool { return true })
	cancel := p.cancel
	p.mu.Unlock()

	p.metrics.count(OutcomeCancelled, len(dropped))
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.logger.Info("Worker pool stopped", "dropped_jobs", len(dropped))
}

// Submit queues a job for the current generation and dispatches it at once
// if a worker is idle.
func (p *Pool) Submit(job *core.Job) error {
	if job == nil {
		return fmt.Errorf("nil job: %w", core.ErrInvalidRequest)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return core.ErrPoolClosed
	}
	if job.Generation != p.generation {
		return fmt.Errorf("job %d generation %d, current %d: %w", job.ID, job.Generation, p.generation, core.ErrStaleJob)
	}
	if _, ok := p.posted[job.ID]; ok {
		return fmt.Errorf("job %d: %w", job.ID, core.ErrDuplicateJob)
	}

	queued := *job
	queued.Status = core.JobStatusQueued
	if err := p.queue.Push(&queued); err != nil {
		return err
	}

	p.dispatchLocked()
	return nil
}

func (p *Pool) CancelWhere(pred func(*core.Job) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := p.queue.RemoveWhere(pred)
	p.metrics.count(OutcomeCancelled, len(removed))
	p.observeLocked()
	return len(removed)
}

func (p *Pool) CancelAll() int {
	return p.CancelWhere(func(*core.Job) bool { return true })
}

// Discard marks matching posted jobs so their results are dropped on arrival.
// The jobs still run to completion and keep their workers busy until then.
func (p *Pool) Discard(pred func(*core.Job) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	marked := 0
	for _, pj := range p.posted {
		if !pj.discarded && pred(pj.job) {
			pj.discarded = true
			marked++
		}
	}
	return marked
}

// Advance switches the pool to generation. Jobs for which keep returns true
// are retagged and stay where they are. Other queued jobs are removed; other
// posted jobs finish but their results are dropped as stale.
func (p *Pool) Advance(generation uint64, keep func(*core.Job) bool) int {
	if keep == nil {
		keep = func(*core.Job) bool { return false }
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation = generation
	removed := p.queue.RemoveWhere(func(j *core.Job) bool { return !keep(j) })
	for _, j := range p.queue.Jobs() {
		j.Generation = generation
	}
	for _, pj := range p.posted {
		if keep(pj.job) {
			pj.job.Generation = generation
		}
	}

	p.metrics.count(OutcomeCancelled, len(removed))
	p.observeLocked()
	p.logger.Debug("Pool generation advanced",
		"generation", generation,
		"cancelled", len(removed),
		"pending", p.queue.Len(),
	)
	return len(removed)
}

func (p *Pool) OnResult(handler core.ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

func (p *Pool) SetFocus(focus mandelbrot.Complex) {
	p.queue.SetFocus(focus)
}

// Pending returns the queued jobs ordered by id.
func (p *Pool) Pending() []core.Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	jobs := make([]core.Job, 0, p.queue.Len())
	for _, j := range p.queue.Jobs() {
		jobs = append(jobs, *j)
	}
	slices.SortFunc(jobs, func(a, b core.Job) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return jobs
}

// Posted returns the jobs currently held by workers ordered by id.
func (p *Pool) Posted() []core.Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	jobs := make([]core.Job, 0, len(p.posted))
	for _, pj := range p.posted {
		jobs = append(jobs, *pj.job)
	}
	slices.SortFunc(jobs, func(a, b core.Job) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return jobs
}

func (p *Pool) Stats() core.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return core.PoolStats{
		Workers:    len(p.workers),
		Idle:       p.idleLocked(),
		Posted:     len(p.posted),
		Pending:    p.queue.Len(),
		Generation: p.generation,
	}
}

func (p *Pool) collect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-p.results:
			p.handleResult(result)
		}
	}
}

func (p *Pool) handleResult(result core.JobResult) {
	p.mu.Lock()

	pj, ok := p.posted[result.JobID]
	if !ok {
		p.mu.Unlock()
		p.logger.Warn("Result for unknown job", "job_id", result.JobID, "worker_id", result.WorkerID)
		return
	}
	delete(p.posted, result.JobID)
	pj.worker.idle = true

	job := *pj.job
	stale := job.Generation != p.generation
	p.dispatchLocked()
	handler := p.handler
	p.mu.Unlock()

	p.metrics.duration(result.Elapsed)
	switch {
	case pj.discarded:
		p.metrics.count(OutcomeCancelled, 1)
		p.logger.Debug("Dropped discarded result", "job_id", job.ID)
		return
	case stale:
		p.metrics.count(OutcomeStale, 1)
		p.logger.Debug("Dropped stale result", "job_id", job.ID, "generation", job.Generation)
		return
	case result.Err != nil:
		p.metrics.count(OutcomeFailed, 1)
		p.logger.Warn("Job failed", "job_id", job.ID, "worker_id", result.WorkerID, "error", result.Err)
	default:
		p.metrics.count(OutcomeCompleted, 1)
		job.Status = core.JobStatusCompleted
	}

	if handler != nil {
		handler(result, job)
	}
}

// dispatchLocked hands queued jobs to idle workers until either runs out.
func (p *Pool) dispatchLocked() {
	defer p.observeLocked()

	for _, h := range p.workers {
		if !h.idle {
			continue
		}
		for {
			job, err := p.queue.Pop()
			if err != nil {
				return
			}
			if job.Generation != p.generation {
				p.metrics.count(OutcomeStale, 1)
				continue
			}
			p.postLocked(h, job)
			break
		}
	}
}

func (p *Pool) postLocked(h *handle, job *core.Job) {
	if !h.idle {
		panic(fmt.Sprintf("pool: job %d dispatched to busy worker %d", job.ID, h.service.ID()))
	}
	h.idle = false
	job.Status = core.JobStatusPosted
	p.posted[job.ID] = &postedJob{job: job, worker: h}
	h.service.Post(*job)
}

func (p *Pool) idleLocked() int {
	n := 0
	for _, h := range p.workers {
		if h.idle {
			n++
		}
	}
	return n
}

func (p *Pool) observeLocked() {
	p.metrics.observe(len(p.posted), p.queue.Len(), p.idleLocked())
}

var _ core.WorkerPool = (*Pool)(nil)
