package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/pkg/geometry"
)

func TestScreenToNormalizedClamps(t *testing.T) {
	rect := geometry.NewRect(100, 50, 400, 200)

	p, ok := ScreenToNormalized(300, 150, rect)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 0.5, Y: 0.5}, p)

	p, ok = ScreenToNormalized(-1000, 9000, rect)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 0, Y: 1}, p)
}

func TestScreenToNormalizedNotLaidOut(t *testing.T) {
	_, ok := ScreenToNormalized(10, 10, geometry.Rect{})
	assert.False(t, ok)
}

func TestMetricsRotation(t *testing.T) {
	m := MetricsFor(DefaultAspectRatio, 0)
	assert.Equal(t, BaseWidth, m.Width)
	assert.InDelta(t, 720, m.Height, 1e-9)

	m = MetricsFor(DefaultAspectRatio, 90)
	assert.InDelta(t, 1024*1024/720.0, m.Height, 1e-9)

	m = MetricsFor(LetterAspectRatio, 270)
	assert.InDelta(t, 1024*8.5/11, m.Height, 1e-9)

	// Unusable aspect falls back to the default.
	m = MetricsFor(0, 180)
	assert.InDelta(t, 720, m.Height, 1e-9)
}

func TestPixelRoundTrip(t *testing.T) {
	px := NormalizedToPixel(geometry.Point2D{X: 0.25, Y: 0.5}, 1024, 720)
	assert.Equal(t, geometry.Point2D{X: 256, Y: 360}, px)

	back, err := PixelToNormalized(px, 1024, 720)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point2D{X: 0.25, Y: 0.5}, back)

	_, err = PixelToNormalized(px, 0, 720)
	assert.ErrorIs(t, err, ErrNotLaidOut)
}
