// Package mandelbrot implements the escape-time kernel for the Mandelbrot set.
//
// All functions are pure and safe to call from any number of goroutines.
package mandelbrot

import "math"

// EscapeRadiusSquared is the squared escape radius. An orbit whose squared
// magnitude exceeds it is guaranteed to diverge.
const EscapeRadiusSquared = 4.0

// Complex is a point on the complex plane.
type Complex struct {
	Real float64
	Imag float64
}

// Abs2 returns the squared magnitude of c.
func (c Complex) Abs2() float64 {
	return c.Real*c.Real + c.Imag*c.Imag
}

// Add returns c + d.
func (c Complex) Add(d Complex) Complex {
	return Complex{Real: c.Real + d.Real, Imag: c.Imag + d.Imag}
}

// Iterate runs z = z^2 + c from z = 0 and returns the number of completed steps
// before |z|^2 exceeded the escape radius, or maxIterations when the orbit stayed
// bounded for the whole budget. A magnitude that overflows to NaN or Inf counts
// as escaped at the current step.
func Iterate(c Complex, maxIterations int) int {
	count := 0
	zr, zi := 0.0, 0.0
	for count < maxIterations {
		zr, zi = zr*zr-zi*zi+c.Real, 2*zr*zi+c.Imag
		mag := zr*zr + zi*zi
		if mag > EscapeRadiusSquared || math.IsNaN(mag) {
			return count
		}
		count++
	}
	return count
}

// IterateFast is Iterate with analytic shortcuts for the main cardioid and the
// period-2 bulb. Both regions are bounded, so the result is always identical to
// Iterate.
func IterateFast(c Complex, maxIterations int) int {
	if maxIterations <= 0 {
		return 0
	}
	if InMainCardioid(c) || InPeriod2Bulb(c) {
		return maxIterations
	}
	return Iterate(c, maxIterations)
}

// InMainCardioid reports whether c lies in the main cardioid.
func InMainCardioid(c Complex) bool {
	x := c.Real - 0.25
	y2 := c.Imag * c.Imag
	q := x*x + y2
	return q*(q+x) <= 0.25*y2
}

// InPeriod2Bulb reports whether c lies in the disc of radius 1/4 around -1.
func InPeriod2Bulb(c Complex) bool {
	x := c.Real + 1
	return x*x+c.Imag*c.Imag <= 0.0625
}
