package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// FormatViewHash encodes a view as "#real,imag,zoom,iterations".
func FormatViewHash(s ViewState) string {
	parts := []string{
		strconv.FormatFloat(s.Centre.Real, 'g', -1, 64),
		strconv.FormatFloat(s.Centre.Imag, 'g', -1, 64),
		strconv.FormatFloat(s.Zoom, 'g', -1, 64),
		strconv.Itoa(s.Iterations),
	}
	return "#" + strings.Join(parts, ",")
}

// ParseViewHash decodes a view hash. The leading '#' is optional. Any input
// that is not exactly four finite numbers with a positive zoom and a positive
// integer iteration count returns ErrInvalidView.
func ParseViewHash(hash string) (ViewState, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hash), "#")
	fields := strings.Split(raw, ",")
	if len(fields) != 4 {
		return ViewState{}, fmt.Errorf("hash %q: expected 4 fields, got %d: %w", hash, len(fields), ErrInvalidView)
	}

	values := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return ViewState{}, fmt.Errorf("hash %q: field %d is not a finite number: %w", hash, i, ErrInvalidView)
		}
		values[i] = v
	}

	iterations := values[3]
	if iterations != math.Trunc(iterations) || iterations < 1 || iterations > math.MaxInt32 {
		return ViewState{}, fmt.Errorf("hash %q: iterations must be a positive integer: %w", hash, ErrInvalidView)
	}
	state := ViewState{
		Centre:     mandelbrot.Complex{Real: values[0], Imag: values[1]},
		Zoom:       values[2],
		Iterations: int(iterations),
	}
	if err := ValidateViewState(state); err != nil {
		return ViewState{}, fmt.Errorf("hash %q: %w: %w", hash, ErrInvalidView, err)
	}
	return state, nil
}
