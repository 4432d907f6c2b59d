// Package sheet maps between client (screen) coordinates, normalized sheet
// coordinates and sheet pixels.
package sheet

import (
	"errors"

	"titanroof/pkg/geometry"
)

// Sheet dimensions.
const (
	BaseWidth          = 1024.0
	DefaultAspectRatio = 1024.0 / 720.0
	LetterAspectRatio  = 8.5 / 11.0
)

// ErrNotLaidOut is returned when the sheet has no on-screen rectangle yet.
var ErrNotLaidOut = errors.New("sheet: not laid out")

// Metrics is the sheet size in sheet pixels for a page.
type Metrics struct {
	Width           float64
	Height          float64
	EffectiveAspect float64
}

// EffectiveAspect returns the aspect ratio as displayed, inverted for
// quarter-turn rotations.
func EffectiveAspect(aspect float64, rotation int) float64 {
	if !(aspect > 0) {
		aspect = DefaultAspectRatio
	}
	r := ((rotation % 360) + 360) % 360
	if r%180 == 90 {
		return 1 / aspect
	}
	return aspect
}

// MetricsFor returns the sheet size for a page with the given aspect ratio
// and rotation in degrees.
func MetricsFor(aspect float64, rotation int) Metrics {
	eff := EffectiveAspect(aspect, rotation)
	return Metrics{
		Width:           BaseWidth,
		Height:          BaseWidth / eff,
		EffectiveAspect: eff,
	}
}

// ScreenToNormalized converts a client position into normalized sheet
// coordinates using the sheet's on-screen rectangle. The result is clamped
// to the unit square. ok is false when the rectangle is not laid out.
func ScreenToNormalized(clientX, clientY float64, rect geometry.Rect) (geometry.Point2D, bool) {
	if rect.Empty() {
		return geometry.Point2D{}, false
	}
	return geometry.Point2D{
		X: geometry.Clamp01((clientX - rect.X) / rect.Width),
		Y: geometry.Clamp01((clientY - rect.Y) / rect.Height),
	}, true
}

// NormalizedToPixel scales a normalized point to sheet pixels without
// clamping.
func NormalizedToPixel(p geometry.Point2D, w, h float64) geometry.Point2D {
	return geometry.Point2D{X: p.X * w, Y: p.Y * h}
}

// PixelToNormalized is the inverse of NormalizedToPixel.
func PixelToNormalized(p geometry.Point2D, w, h float64) (geometry.Point2D, error) {
	if !(w > 0) || !(h > 0) {
		return geometry.Point2D{}, ErrNotLaidOut
	}
	return geometry.Point2D{X: p.X / w, Y: p.Y / h}, nil
}
