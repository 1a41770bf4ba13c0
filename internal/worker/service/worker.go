package service

import (
	"context"
	"fmt"
	"time"

	scheduler "github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	"github.com/nemanja-m/gomandel/internal/worker/core"
)

// worker runs jobs one at a time on its own goroutine. It shares no memory
// with the pool: jobs arrive by value and each result carries a freshly
// allocated counts slice.
type worker struct {
	id       int
	inbox    chan scheduler.Job
	results  chan<- scheduler.JobResult
	executor core.Executor
	logger   logging.Logger
}

func NewWorker(
	id int,
	executor core.Executor,
	results chan<- scheduler.JobResult,
	logger logging.Logger,
) core.WorkerService {
	return &worker{
		id:       id,
		inbox:    make(chan scheduler.Job, 1),
		results:  results,
		executor: executor,
		logger:   logger,
	}
}

func (w *worker) ID() int {
	return w.id
}

func (w *worker) Post(job scheduler.Job) {
	select {
	case w.inbox <- job:
	default:
		panic(fmt.Sprintf("worker %d: job %d posted while another job is in flight", w.id, job.ID))
	}
}

// Run executes posted jobs until ctx is cancelled. Exactly one result is
// reported for every job received.
func (w *worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.inbox:
			result := w.execute(ctx, job)
			select {
			case w.results <- result:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *worker) execute(ctx context.Context, job scheduler.Job) (result scheduler.JobResult) {
	start := time.Now()
	result = scheduler.JobResult{JobID: job.ID, WorkerID: w.id}

	defer func() {
		result.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			w.logger.Error("Worker panicked", "worker_id", w.id, "job_id", job.ID, "panic", r)
			result.Counts = nil
			result.Err = fmt.Errorf("job %d: %w: panic: %v", job.ID, scheduler.ErrWorkerFailed, r)
		}
	}()

	counts, err := w.executor.Execute(ctx, job)
	if err != nil {
		result.Err = fmt.Errorf("job %d: %w: %w", job.ID, scheduler.ErrWorkerFailed, err)
		return result
	}
	if len(counts) != job.Samples() {
		result.Err = fmt.Errorf("job %d: %w: got %d counts, want %d",
			job.ID, scheduler.ErrWorkerFailed, len(counts), job.Samples())
		return result
	}
	result.Counts = counts
	return result
}
