package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

func TestParseTile(t *testing.T) {
	tests := []struct {
		input   string
		want    core.TileCoords
		wantErr bool
	}{
		{input: "3/1/2", want: core.TileCoords{Z: 3, X: 1, Y: 2}},
		{input: "0/-1/0.png", want: core.TileCoords{Z: 0, X: -1, Y: 0}},
		{input: "3/1", wantErr: true},
		{input: "a/1/2", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTile(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func testOptions(t *testing.T) options {
	t.Helper()
	return options{
		width:      4,
		height:     3,
		zoom:       core.DefaultZoom,
		iterations: 50,
		palette:    "hsl",
		workers:    2,
		out:        filepath.Join(t.TempDir(), "out.png"),
		timeout:    10 * time.Second,
	}
}

func TestRun_ReturnsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*options)
	}{
		{"unknown palette", func(o *options) { o.palette = "nope" }},
		{"empty image", func(o *options) { o.width = 0 }},
		{"no workers", func(o *options) { o.workers = 0 }},
		{"bad hash", func(o *options) { o.hash = "#a,b" }},
		{"no view files", func(o *options) { o.views = filepath.Join(t.TempDir(), "*.json") }},
		{"bad tile", func(o *options) { o.remote = "localhost:0"; o.tile = "1/2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.modify(&opts)
			if err := run(opts); err == nil {
				t.Error("Expected error, got nil")
			}
			if _, err := os.Stat(opts.out); !os.IsNotExist(err) {
				t.Errorf("Expected no output file, stat returned %v", err)
			}
		})
	}
}

func TestRun_WritesImage(t *testing.T) {
	opts := testOptions(t)
	if err := run(opts); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := os.Open(opts.out)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("Expected 4x3 image, got %dx%d", b.Dx(), b.Dy())
	}
}
