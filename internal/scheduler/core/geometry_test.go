package core

import (
	"math"
	"testing"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestUnitsPerPixel(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{zoom: 1, want: 1.0 / 256},
		{zoom: 2, want: 1.0 / 512},
		{zoom: 0.5, want: 1.0 / 128},
	}
	for _, tt := range tests {
		if got := UnitsPerPixel(tt.zoom); !almostEqual(got, tt.want) {
			t.Errorf("UnitsPerPixel(%v) = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestPixelToComplex(t *testing.T) {
	state := ViewState{Centre: mandelbrot.Complex{Real: -0.5, Imag: 0}, Zoom: 1, Iterations: 64}
	size := Size{Width: 1024, Height: 512}

	tests := []struct {
		name string
		p    Coords
		want mandelbrot.Complex
	}{
		{name: "canvas centre", p: Coords{X: 512, Y: 256}, want: mandelbrot.Complex{Real: -0.5, Imag: 0}},
		{name: "top left", p: Coords{X: 0, Y: 0}, want: mandelbrot.Complex{Real: -2.5, Imag: 1}},
		{name: "bottom right", p: Coords{X: 1024, Y: 512}, want: mandelbrot.Complex{Real: 1.5, Imag: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PixelToComplex(tt.p, state, size)
			if !almostEqual(got.Real, tt.want.Real) || !almostEqual(got.Imag, tt.want.Imag) {
				t.Errorf("PixelToComplex(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPixelToComplex_HorizontalRangeShrinksWithZoom(t *testing.T) {
	size := Size{Width: 1024, Height: 768}
	for _, zoom := range []float64{1, 2, 8} {
		state := ViewState{Zoom: zoom, Iterations: 1}
		left := PixelToComplex(Coords{X: 0, Y: 0}, state, size)
		right := PixelToComplex(Coords{X: 1024, Y: 0}, state, size)
		if got := right.Real - left.Real; !almostEqual(got, 4/zoom) {
			t.Errorf("zoom %v: horizontal range %v, want %v", zoom, got, 4/zoom)
		}
	}
}

func TestVisibleRegion(t *testing.T) {
	state := ViewState{Centre: mandelbrot.Complex{Real: 1, Imag: 1}, Zoom: 2, Iterations: 1}
	r := VisibleRegion(state, Size{Width: 512, Height: 256})
	want := Region{RealMin: 0.5, RealMax: 1.5, ImagMin: 0.75, ImagMax: 1.25}
	if r != want {
		t.Errorf("VisibleRegion = %v, want %v", r, want)
	}
}

func TestTileRegion(t *testing.T) {
	tests := []struct {
		tile TileCoords
		want Region
	}{
		{tile: TileCoords{X: 0, Y: 0, Z: 0}, want: Region{RealMin: 0, RealMax: 1, ImagMin: -1, ImagMax: 0}},
		{tile: TileCoords{X: -2, Y: -1, Z: 0}, want: Region{RealMin: -2, RealMax: -1, ImagMin: 0, ImagMax: 1}},
		{tile: TileCoords{X: 1, Y: 2, Z: 2}, want: Region{RealMin: 0.25, RealMax: 0.5, ImagMin: -0.75, ImagMax: -0.5}},
		{tile: TileCoords{X: 3, Y: 0, Z: -1}, want: Region{RealMin: 6, RealMax: 8, ImagMin: -2, ImagMax: 0}},
	}
	for _, tt := range tests {
		if got := TileRegion(tt.tile); got != tt.want {
			t.Errorf("TileRegion(%v) = %v, want %v", tt.tile, got, tt.want)
		}
	}
}

func TestZoomLevels(t *testing.T) {
	for z := -3; z <= 10; z++ {
		if got := LevelForZoom(ZoomForLevel(z)); got != z {
			t.Errorf("LevelForZoom(ZoomForLevel(%d)) = %d", z, got)
		}
	}
}

func TestRegion_Intersects(t *testing.T) {
	base := Region{RealMin: 0, RealMax: 1, ImagMin: 0, ImagMax: 1}
	tests := []struct {
		name  string
		other Region
		want  bool
	}{
		{name: "overlap", other: Region{RealMin: 0.5, RealMax: 2, ImagMin: 0.5, ImagMax: 2}, want: true},
		{name: "contained", other: Region{RealMin: 0.2, RealMax: 0.3, ImagMin: 0.2, ImagMax: 0.3}, want: true},
		{name: "touching edge", other: Region{RealMin: 1, RealMax: 2, ImagMin: 0, ImagMax: 1}, want: true},
		{name: "row inside", other: Region{RealMin: -1, RealMax: 2, ImagMin: 0.5, ImagMax: 0.5}, want: true},
		{name: "disjoint in real", other: Region{RealMin: 1.1, RealMax: 2, ImagMin: 0, ImagMax: 1}, want: false},
		{name: "disjoint in imag", other: Region{RealMin: 0, RealMax: 1, ImagMin: -2, ImagMax: -0.1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.other); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
			if got := tt.other.Intersects(base); got != tt.want {
				t.Errorf("Intersects is not symmetric")
			}
		})
	}
}

func TestRegion_Centre(t *testing.T) {
	r := Region{RealMin: -2, RealMax: 1, ImagMin: -1, ImagMax: 1}
	if got := r.Centre(); got != (mandelbrot.Complex{Real: -0.5, Imag: 0}) {
		t.Errorf("Centre = %v", got)
	}
}

func TestFormatComplex(t *testing.T) {
	tests := []struct {
		name string
		c    mandelbrot.Complex
		zoom float64
		want string
	}{
		{name: "positive parts", c: mandelbrot.Complex{Real: 0.25, Imag: 0.5}, zoom: 1, want: "0.25 + 0.50j"},
		{name: "negative parts", c: mandelbrot.Complex{Real: -1.5, Imag: -0.126}, zoom: 1, want: "−1.50 − 0.13j"},
		{name: "more decimals when zoomed in", c: mandelbrot.Complex{Real: 0.1234, Imag: 0}, zoom: 150, want: "0.1234 + 0.0000j"},
		{name: "zoomed far out", c: mandelbrot.Complex{Real: 12.6, Imag: 3}, zoom: 0.001, want: "13 + 3j"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatComplex(tt.c, tt.zoom); got != tt.want {
				t.Errorf("FormatComplex = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJob_Sample(t *testing.T) {
	job := Job{
		Region: Region{RealMin: -2, RealMax: 1, ImagMin: -1, ImagMax: 1},
		Width:  2,
		Height: 2,
	}
	want := []mandelbrot.Complex{
		{Real: -2, Imag: 1}, {Real: -0.5, Imag: 1},
		{Real: -2, Imag: 0}, {Real: -0.5, Imag: 0},
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := job.Sample(x, y); got != want[y*2+x] {
				t.Errorf("Sample(%d, %d) = %v, want %v", x, y, got, want[y*2+x])
			}
		}
	}

	row := Job{Region: Region{RealMin: 0, RealMax: 1, ImagMin: 0.5, ImagMax: 0.5}, Width: 4, Height: 1}
	if got := row.Sample(2, 0); got != (mandelbrot.Complex{Real: 0.5, Imag: 0.5}) {
		t.Errorf("row Sample = %v", got)
	}
}
