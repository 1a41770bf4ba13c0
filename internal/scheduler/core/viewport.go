package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// Viewport holds the current view. Every setter validates its input and
// leaves the previous state in place on error. The viewport never schedules
// work; callers react to changes.
type Viewport struct {
	mu    sync.RWMutex
	state ViewState
}

func NewViewport(initial ViewState) (*Viewport, error) {
	if err := ValidateViewState(initial); err != nil {
		return nil, err
	}
	return &Viewport{state: initial}, nil
}

func (v *Viewport) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *Viewport) Set(state ViewState) error {
	if err := ValidateViewState(state); err != nil {
		return err
	}
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
	return nil
}

func (v *Viewport) SetIterations(n int) error {
	if err := validateIterations(n); err != nil {
		return err
	}
	v.mu.Lock()
	v.state.Iterations = n
	v.mu.Unlock()
	return nil
}

// MultiplyIterations scales the iteration budget by f, rounding to the nearest
// integer, and returns the new budget.
func (v *Viewport) MultiplyIterations(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("factor %v: %w", f, ErrInvalidIterations)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	scaled := math.Round(float64(v.state.Iterations) * f)
	if scaled < 1 || scaled > math.MaxInt32 {
		return 0, fmt.Errorf("%d x %v: %w", v.state.Iterations, f, ErrInvalidIterations)
	}
	v.state.Iterations = int(scaled)
	return v.state.Iterations, nil
}

func (v *Viewport) SetZoom(zoom float64) error {
	if err := validateZoom(zoom); err != nil {
		return err
	}
	v.mu.Lock()
	v.state.Zoom = zoom
	v.mu.Unlock()
	return nil
}

// ZoomBy multiplies the zoom by factor and recentres the view on focus.
func (v *Viewport) ZoomBy(factor float64, focus mandelbrot.Complex) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return fmt.Errorf("factor %v: %w", factor, ErrInvalidZoom)
	}
	if !finite(focus) {
		return fmt.Errorf("focus %v: %w", focus, ErrInvalidView)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	zoom := v.state.Zoom * factor
	if err := validateZoom(zoom); err != nil {
		return err
	}
	v.state.Zoom = zoom
	v.state.Centre = focus
	return nil
}

func (v *Viewport) Pan(delta mandelbrot.Complex) error {
	if !finite(delta) {
		return fmt.Errorf("delta %v: %w", delta, ErrInvalidView)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	centre := v.state.Centre.Add(delta)
	if !finite(centre) {
		return fmt.Errorf("centre %v: %w", centre, ErrInvalidView)
	}
	v.state.Centre = centre
	return nil
}

func (v *Viewport) SetCentre(c mandelbrot.Complex) error {
	if !finite(c) {
		return fmt.Errorf("centre %v: %w", c, ErrInvalidView)
	}
	v.mu.Lock()
	v.state.Centre = c
	v.mu.Unlock()
	return nil
}

// ParseIterations parses user input for the iteration budget. Only positive
// integers are accepted.
func ParseIterations(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidIterations)
	}
	if err := validateIterations(n); err != nil {
		return 0, err
	}
	return n, nil
}

func ValidateViewState(s ViewState) error {
	if !finite(s.Centre) {
		return fmt.Errorf("centre %v: %w", s.Centre, ErrInvalidView)
	}
	if err := validateZoom(s.Zoom); err != nil {
		return err
	}
	return validateIterations(s.Iterations)
}

func validateIterations(n int) error {
	if n < 1 {
		return fmt.Errorf("%d: %w", n, ErrInvalidIterations)
	}
	return nil
}

func validateZoom(zoom float64) error {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) || zoom <= 0 {
		return fmt.Errorf("%v: %w", zoom, ErrInvalidZoom)
	}
	return nil
}

func finite(c mandelbrot.Complex) bool {
	return !math.IsNaN(c.Real) && !math.IsInf(c.Real, 0) &&
		!math.IsNaN(c.Imag) && !math.IsInf(c.Imag, 0)
}
