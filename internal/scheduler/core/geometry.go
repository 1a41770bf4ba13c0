package core

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// BaseTileSize is the number of pixels per unit of the complex plane at zoom 1.
const BaseTileSize = 256

const (
	plusSign  = "+"
	minusSign = "−"
)

// UnitsPerPixel is the width of one pixel in plane units at the given zoom.
func UnitsPerPixel(zoom float64) float64 {
	return 1 / (BaseTileSize * zoom)
}

// PixelToComplex maps a canvas pixel to the plane. The canvas centre maps to
// the view centre and the imaginary axis grows upward.
func PixelToComplex(p Coords, state ViewState, size Size) mandelbrot.Complex {
	upp := UnitsPerPixel(state.Zoom)
	return mandelbrot.Complex{
		Real: state.Centre.Real + (float64(p.X)-float64(size.Width)/2)*upp,
		Imag: state.Centre.Imag + (float64(size.Height)/2-float64(p.Y))*upp,
	}
}

// VisibleRegion is the part of the plane covered by a canvas of the given size.
func VisibleRegion(state ViewState, size Size) Region {
	upp := UnitsPerPixel(state.Zoom)
	halfW := float64(size.Width) / 2 * upp
	halfH := float64(size.Height) / 2 * upp
	return Region{
		RealMin: state.Centre.Real - halfW,
		RealMax: state.Centre.Real + halfW,
		ImagMin: state.Centre.Imag - halfH,
		ImagMax: state.Centre.Imag + halfH,
	}
}

// TileRegion returns the plane bounds of a map tile. Tile rows grow downward,
// so row y covers imaginary values [-(y+1)*span, -y*span].
func TileRegion(t TileCoords) Region {
	span := TileSpan(t.Z)
	return Region{
		RealMin: float64(t.X) * span,
		RealMax: float64(t.X+1) * span,
		ImagMin: -float64(t.Y+1) * span,
		ImagMax: -float64(t.Y) * span,
	}
}

// TileSpan is the side length of a tile at zoom level z.
func TileSpan(z int) float64 {
	return math.Ldexp(1, -z)
}

// ZoomForLevel converts a tile zoom level to a viewport zoom.
func ZoomForLevel(z int) float64 {
	return math.Ldexp(1, z)
}

// LevelForZoom is the tile zoom level nearest to a viewport zoom.
func LevelForZoom(zoom float64) int {
	return int(math.Round(math.Log2(zoom)))
}

func (r Region) Centre() mandelbrot.Complex {
	return mandelbrot.Complex{
		Real: (r.RealMin + r.RealMax) / 2,
		Imag: (r.ImagMin + r.ImagMax) / 2,
	}
}

func (r Region) Width() float64 {
	return r.RealMax - r.RealMin
}

func (r Region) Height() float64 {
	return r.ImagMax - r.ImagMin
}

// Intersects reports whether the closed regions overlap. Touching edges count.
func (r Region) Intersects(o Region) bool {
	return r.RealMin <= o.RealMax && o.RealMin <= r.RealMax &&
		r.ImagMin <= o.ImagMax && o.ImagMin <= r.ImagMax
}

// Expand grows the region by margin on every side.
func (r Region) Expand(margin float64) Region {
	return Region{
		RealMin: r.RealMin - margin,
		RealMax: r.RealMax + margin,
		ImagMin: r.ImagMin - margin,
		ImagMax: r.ImagMax + margin,
	}
}

func (r Region) Valid() bool {
	for _, v := range []float64{r.RealMin, r.RealMax, r.ImagMin, r.ImagMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.RealMin <= r.RealMax && r.ImagMin <= r.ImagMax
}

func (r Region) String() string {
	return fmt.Sprintf("[%g, %g] x [%g, %g]", r.RealMin, r.RealMax, r.ImagMin, r.ImagMax)
}

// FormatComplex renders c as "a ± bj" with precision that grows with zoom.
func FormatComplex(c mandelbrot.Complex, zoom float64) string {
	decimals := 2
	if zoom > 0 && !math.IsInf(zoom, 0) {
		decimals = int(math.Log10(zoom) + 2)
	}
	decimals = max(0, min(decimals, 20))

	re := strconv.FormatFloat(math.Abs(c.Real), 'f', decimals, 64)
	if c.Real < 0 {
		re = minusSign + re
	}
	sign := plusSign
	if c.Imag < 0 {
		sign = minusSign
	}
	im := strconv.FormatFloat(math.Abs(c.Imag), 'f', decimals, 64)
	return re + " " + sign + " " + im + "j"
}
