// Package colorutil provides shared color utilities for rasterizing the
// diagram sheet.
package colorutil

import "image/color"

// Common colors used by the sheet renderer.
var (
	Black    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Desk     = color.RGBA{R: 241, G: 245, B: 249, A: 255}
	Paper    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	GridLine = color.RGBA{R: 226, G: 232, B: 240, A: 255}
	Border   = color.RGBA{R: 148, G: 163, B: 184, A: 255}
	MapTint  = color.RGBA{R: 220, G: 237, B: 222, A: 255}
)

// Opaque converts a non-premultiplied color to an opaque RGBA.
func Opaque(c color.NRGBA) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// ToNRGBA converts an opaque RGBA color.
func ToNRGBA(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// WithAlpha returns c with its alpha replaced.
func WithAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

// Blend composites src over dst. dst is treated as opaque.
func Blend(dst color.RGBA, src color.NRGBA) color.RGBA {
	switch src.A {
	case 0:
		return dst
	case 255:
		return Opaque(src)
	}
	a := uint32(src.A)
	mix := func(d, s uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a) + 127) / 255)
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}
