package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPalettes_BoundedIsBlack(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			fn, err := Get(name)
			require.NoError(t, err)
			assert.Equal(t, color.RGBA{A: 255}, fn(64, 64))
		})
	}
}

func TestHSL(t *testing.T) {
	// Hue 0 at lightness 0.4 and saturation 0.8 is a dark red.
	assert.Equal(t, color.RGBA{R: 184, G: 20, B: 20, A: 255}, HSL(0, 64))
	assert.NotEqual(t, HSL(10, 64), HSL(20, 64))
}

func TestWheel(t *testing.T) {
	tests := []struct {
		count int
		want  color.RGBA
	}{
		{count: 0, want: color.RGBA{R: 255, A: 255}},
		{count: 255, want: color.RGBA{R: 255, G: 255, A: 255}},
		{count: 510, want: color.RGBA{G: 255, A: 255}},
		{count: 765, want: color.RGBA{G: 255, B: 255, A: 255}},
		{count: 1020, want: color.RGBA{B: 255, A: 255}},
		{count: 1275, want: color.RGBA{R: 255, B: 255, A: 255}},
		{count: 1530, want: color.RGBA{R: 255, A: 255}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Wheel(tt.count, 10000), "count %d", tt.count)
	}
}

func TestGrey(t *testing.T) {
	assert.Equal(t, color.RGBA{A: 255}, Grey(0, 10))
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, Grey(5, 10))
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, List(), []string{"grey", "hsl", "wheel"})

	_, err := Get("missing")
	assert.Error(t, err)

	assert.Error(t, Register("hsl", HSL), "duplicate names are rejected")
	assert.Error(t, Register("nil", nil))

	if _, err := Get("test-inverse"); err != nil {
		require.NoError(t, Register("test-inverse", func(count, max int) color.RGBA {
			return color.RGBA{R: 255, G: 255, B: 255, A: 255}
		}))
	}
	fn, err := Get("test-inverse")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), fn(1, 2).R)
}
