package core

import "github.com/nemanja-m/gomandel/pkg/mandelbrot"

// ResultHandler receives every result of a current-generation job. Calls are
// serialized.
type ResultHandler func(result JobResult, job Job)

// WorkerPool defines the dispatch surface the scheduler drives.
type WorkerPool interface {
	Submit(job *Job) error
	// CancelWhere removes matching pending jobs and returns how many were removed.
	// Posted jobs run to completion.
	CancelWhere(pred func(*Job) bool) int
	CancelAll() int
	// Discard marks matching posted jobs. Their results are still received but
	// are counted as cancelled and never reach the handler.
	Discard(pred func(*Job) bool) int
	// Advance moves the pool to a new generation. Pending and posted jobs for
	// which keep returns true are retagged; other pending jobs are removed.
	Advance(generation uint64, keep func(*Job) bool) int
	OnResult(handler ResultHandler)
	SetFocus(focus mandelbrot.Complex)
	Pending() []Job
	Stats() PoolStats
}

// PoolStats is a point-in-time snapshot of the pool.
type PoolStats struct {
	Workers    int    `json:"workers"`
	Idle       int    `json:"idle"`
	Posted     int    `json:"posted"`
	Pending    int    `json:"pending"`
	Generation uint64 `json:"generation"`
}

// TileCache stores per-tile iteration counts.
type TileCache interface {
	Get(key TileKey) ([]int, bool)
	Put(key TileKey, counts []int)
	Len() int
}
