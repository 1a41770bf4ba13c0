package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// Coords is a pixel or tile-grid coordinate.
type Coords struct {
	X int
	Y int
}

// TileCoords addresses a map tile. Zoom level Z corresponds to viewport zoom 2^Z.
type TileCoords struct {
	X int
	Y int
	Z int
}

// Size is a pixel resolution.
type Size struct {
	Width  int
	Height int
}

func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Region is an axis-aligned rectangle of the complex plane. A scan row is a
// region with ImagMin == ImagMax.
type Region struct {
	RealMin float64
	RealMax float64
	ImagMin float64
	ImagMax float64
}

type JobKind string

const (
	JobKindTile JobKind = "TILE"
	JobKindRow  JobKind = "ROW"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusPosted    JobStatus = "POSTED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Job is one unit of dispatched work: a grid of Width x Height samples over
// Region. Workers receive Job by value.
type Job struct {
	ID         uint64
	Generation uint64
	RequestID  uuid.UUID
	Kind       JobKind
	Status     JobStatus

	Region     Region
	Width      int
	Height     int
	Iterations int

	// Offset is where the job's samples land in the request's pixel buffer.
	Offset Coords
	// Row is the scan row index for row jobs.
	Row int
	// Zoom is the viewport zoom the job was created for.
	Zoom float64

	SubmittedAt time.Time
}

// Sample returns the complex coordinate of sample (x, y). Sample row 0 lies on
// the top edge of the region.
func (j *Job) Sample(x, y int) mandelbrot.Complex {
	re := j.Region.RealMin + float64(x)/float64(j.Width)*(j.Region.RealMax-j.Region.RealMin)
	im := j.Region.ImagMax - float64(y)/float64(j.Height)*(j.Region.ImagMax-j.Region.ImagMin)
	return mandelbrot.Complex{Real: re, Imag: im}
}

// Samples is the number of counts a result for this job carries.
func (j *Job) Samples() int {
	return j.Width * j.Height
}

// Anchor is the point used to rank the job against the focus point.
func (j *Job) Anchor() mandelbrot.Complex {
	return j.Region.Centre()
}

// JobResult is what a worker reports for a job: either Counts in row-major
// order or Err.
type JobResult struct {
	JobID    uint64
	WorkerID int
	Counts   []int
	Err      error
	Elapsed  time.Duration
}

// TileKey identifies cached tile counts.
type TileKey struct {
	Tile       TileCoords
	Iterations int
	TileSize   int
}

// ViewState is the authoritative description of what the user is looking at.
type ViewState struct {
	Centre     mandelbrot.Complex
	Zoom       float64
	Iterations int
}

const (
	DefaultIterations = 64
	DefaultZoom       = 1.0
)

func DefaultViewState() ViewState {
	return ViewState{Zoom: DefaultZoom, Iterations: DefaultIterations}
}
