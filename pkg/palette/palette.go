// Package palette maps escape counts to colours.
package palette

import (
	"image/color"
	"math"
)

// Func colours a sample by its escape count. A count equal to maxIterations
// means the sample never escaped.
type Func func(count, maxIterations int) color.RGBA

var black = color.RGBA{A: 255}

// HSL sweeps the hue with the escape ratio at fixed saturation and lightness.
func HSL(count, maxIterations int) color.RGBA {
	if count >= maxIterations {
		return black
	}
	r, g, b := hslToRGB(float64(count)/float64(maxIterations), 0.8, 0.4)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// wheelSteps is the number of distinct colours on the wheel: 255 steps on each
// of the six edges of the RGB cube walked by the hue.
const wheelSteps = 255 * 6

// Wheel cycles through a 1530-colour hue wheel, one step per iteration.
func Wheel(count, maxIterations int) color.RGBA {
	if count >= maxIterations {
		return black
	}
	return wheelColor(count % wheelSteps)
}

// Grey maps the escape ratio to a grey level, brighter for slower escapes.
func Grey(count, maxIterations int) color.RGBA {
	if count >= maxIterations {
		return black
	}
	v := uint8(math.Round(255 * float64(count) / float64(maxIterations)))
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

func wheelColor(step int) color.RGBA {
	edge, offset := step/255, uint8(step%255)
	switch edge {
	case 0: // red -> yellow
		return color.RGBA{R: 255, G: offset, A: 255}
	case 1: // yellow -> green
		return color.RGBA{R: 255 - offset, G: 255, A: 255}
	case 2: // green -> cyan
		return color.RGBA{G: 255, B: offset, A: 255}
	case 3: // cyan -> blue
		return color.RGBA{G: 255 - offset, B: 255, A: 255}
	case 4: // blue -> magenta
		return color.RGBA{R: offset, B: 255, A: 255}
	default: // magenta -> red
		return color.RGBA{R: 255, B: 255 - offset, A: 255}
	}
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := to8(l)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return to8(hueToRGB(p, q, h+1.0/3)), to8(hueToRGB(p, q, h)), to8(hueToRGB(p, q, h-1.0/3))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
