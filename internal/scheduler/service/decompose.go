package service

import "github.com/nemanja-m/gomandel/internal/scheduler/core"

// Layout selects how a request is split into jobs.
type Layout string

const (
	LayoutRows  Layout = "rows"
	LayoutTiles Layout = "tiles"
)

// splitRows returns one job per scan row. Row y samples the imaginary value
// of pixel row y of the whole request.
func splitRows(region core.Region, size core.Size) []core.Job {
	jobs := make([]core.Job, 0, size.Height)
	dy := region.ImagMax - region.ImagMin
	for y := range size.Height {
		imag := region.ImagMax - float64(y)/float64(size.Height)*dy
		jobs = append(jobs, core.Job{
			Kind: core.JobKindRow,
			Region: core.Region{
				RealMin: region.RealMin,
				RealMax: region.RealMax,
				ImagMin: imag,
				ImagMax: imag,
			},
			Width:  size.Width,
			Height: 1,
			Offset: core.Coords{X: 0, Y: y},
			Row:    y,
		})
	}
	return jobs
}

// splitTiles cuts the request into tileSize x tileSize blocks. Blocks on the
// right and bottom edges are clipped to the request size. Every block samples
// exactly the points the whole request would.
func splitTiles(region core.Region, size core.Size, tileSize int) []core.Job {
	dx := region.RealMax - region.RealMin
	dy := region.ImagMax - region.ImagMin
	w, h := float64(size.Width), float64(size.Height)

	var jobs []core.Job
	for y0 := 0; y0 < size.Height; y0 += tileSize {
		bh := min(tileSize, size.Height-y0)
		for x0 := 0; x0 < size.Width; x0 += tileSize {
			bw := min(tileSize, size.Width-x0)
			jobs = append(jobs, core.Job{
				Kind: core.JobKindTile,
				Region: core.Region{
					RealMin: region.RealMin + float64(x0)/w*dx,
					RealMax: region.RealMin + float64(x0+bw)/w*dx,
					ImagMin: region.ImagMax - float64(y0+bh)/h*dy,
					ImagMax: region.ImagMax - float64(y0)/h*dy,
				},
				Width:  bw,
				Height: bh,
				Offset: core.Coords{X: x0, Y: y0},
			})
		}
	}
	return jobs
}
