package service

import (
	"context"
	"fmt"

	scheduler "github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/worker/core"
	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

type kernelExecutor struct {
	iterate func(mandelbrot.Complex, int) int
}

// NewKernelExecutor returns an executor running the escape-time kernel. With
// fastPath the cardioid and period-2 bulb checks skip bounded samples.
func NewKernelExecutor(fastPath bool) core.Executor {
	if fastPath {
		return &kernelExecutor{iterate: mandelbrot.IterateFast}
	}
	return &kernelExecutor{iterate: mandelbrot.Iterate}
}

func (e *kernelExecutor) Execute(ctx context.Context, job scheduler.Job) ([]int, error) {
	if job.Width <= 0 || job.Height <= 0 {
		return nil, fmt.Errorf("job %d: resolution %dx%d: %w", job.ID, job.Width, job.Height, scheduler.ErrInvalidRequest)
	}

	counts := make([]int, 0, job.Samples())
	for y := range job.Height {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := range job.Width {
			counts = append(counts, e.iterate(job.Sample(x, y), job.Iterations))
		}
	}
	return counts, nil
}
