package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"titanroof/internal/annotation"
)

// Theme is the desktop theme: light chrome with the brand accent.
type Theme struct{}

var _ fyne.Theme = (*Theme)(nil)

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xDC, G: 0x26, B: 0x26, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xDC, G: 0x26, B: 0x26, A: 0x40}
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF} // Visible gray scrollbar
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16 // Wider scrollbar for easier grabbing
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}

// ItemColor is the stroke color for an item type on the diagram.
func ItemColor(t annotation.Type) color.NRGBA {
	switch t {
	case annotation.TypeTestSquare:
		return color.NRGBA{R: 220, G: 38, B: 38, A: 255}
	case annotation.TypeAppurtenance:
		return color.NRGBA{R: 37, G: 99, B: 235, A: 255}
	case annotation.TypeDownspout:
		return color.NRGBA{R: 13, G: 148, B: 136, A: 255}
	case annotation.TypeWind:
		return color.NRGBA{R: 234, G: 88, B: 12, A: 255}
	case annotation.TypeObservation:
		return color.NRGBA{R: 147, G: 51, B: 234, A: 255}
	}
	return color.NRGBA{A: 255}
}

// ItemFill is the translucent fill for polygon items, stronger when
// selected.
func ItemFill(t annotation.Type, selected bool) color.NRGBA {
	c := ItemColor(t)
	c.A = 0x0F
	if selected {
		c.A = 0x2E
	}
	return c
}
