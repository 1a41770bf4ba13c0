package core

import (
	"errors"
	"testing"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

func TestFormatViewHash(t *testing.T) {
	state := ViewState{Centre: mandelbrot.Complex{Real: -0.75, Imag: 0.1}, Zoom: 4, Iterations: 256}
	if got := FormatViewHash(state); got != "#-0.75,0.1,4,256" {
		t.Errorf("FormatViewHash = %q", got)
	}
}

func TestParseViewHash(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		want    ViewState
		wantErr bool
	}{
		{
			name: "default view",
			hash: "#0,0,1,64",
			want: ViewState{Zoom: 1, Iterations: 64},
		},
		{
			name: "without leading hash",
			hash: "-0.5,0.25,8,500",
			want: ViewState{Centre: mandelbrot.Complex{Real: -0.5, Imag: 0.25}, Zoom: 8, Iterations: 500},
		},
		{
			name: "exponent notation",
			hash: "#1e-3,-2e-3,1e3,10",
			want: ViewState{Centre: mandelbrot.Complex{Real: 0.001, Imag: -0.002}, Zoom: 1000, Iterations: 10},
		},
		{name: "too few fields", hash: "#0,0,1", wantErr: true},
		{name: "too many fields", hash: "#0,0,1,64,5", wantErr: true},
		{name: "not a number", hash: "#0,abc,1,64", wantErr: true},
		{name: "infinite value", hash: "#Inf,0,1,64", wantErr: true},
		{name: "nan value", hash: "#0,NaN,1,64", wantErr: true},
		{name: "zero zoom", hash: "#0,0,0,64", wantErr: true},
		{name: "fractional iterations", hash: "#0,0,1,64.5", wantErr: true},
		{name: "non-positive iterations", hash: "#0,0,1,0", wantErr: true},
		{name: "empty", hash: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseViewHash(tt.hash)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidView) {
					t.Errorf("ParseViewHash(%q) error = %v, want ErrInvalidView", tt.hash, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseViewHash(%q) = %+v, want %+v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestViewHash_RoundTrip(t *testing.T) {
	state := ViewState{Centre: mandelbrot.Complex{Real: -1.7490234375, Imag: 1.0 / 3}, Zoom: 1024, Iterations: 1000}
	got, err := ParseViewHash(FormatViewHash(state))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != state {
		t.Errorf("round trip = %+v, want %+v", got, state)
	}
}
