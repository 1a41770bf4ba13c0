package core

import (
	"context"

	scheduler "github.com/nemanja-m/gomandel/internal/scheduler/core"
)

// Executor performs the computation for one job and returns its iteration
// counts in row-major order.
type Executor interface {
	Execute(ctx context.Context, job scheduler.Job) ([]int, error)
}

type WorkerService interface {
	ID() int
	// Post hands a job to the worker. The worker must be idle.
	Post(job scheduler.Job)
	Run(ctx context.Context) error
}
