package core

import "errors"

var (
	ErrInvalidIterations = errors.New("iterations must be a positive integer")
	ErrInvalidZoom       = errors.New("zoom must be a finite positive number")
	ErrInvalidView       = errors.New("invalid view state")
	ErrInvalidRequest    = errors.New("invalid render request")

	// ErrSuperseded fails requests dropped by a view change.
	ErrSuperseded = errors.New("render request superseded by a newer view")
	// ErrWorkerFailed wraps errors reported by a worker for one job.
	ErrWorkerFailed = errors.New("worker failed")

	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrStaleJob     = errors.New("job belongs to a superseded generation")
	ErrDuplicateJob = errors.New("job id is already tracked")
	ErrClosed       = errors.New("scheduler is closed")
)
