package canvas

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"titanroof/internal/annotation"
	"titanroof/internal/app"
	"titanroof/internal/interact"
	"titanroof/internal/sheet"
	"titanroof/pkg/geometry"
)

// Sizes in sheet pixels at scale 1; they grow and shrink with the sheet.
const (
	markerRadius = 14.0
	handleRadius = 7.0
	headSize     = 12.0
	labelOffset  = 16.0
	badgeRadius  = 12.0
)

// Projector maps normalized sheet coordinates to client pixels for one
// on-screen sheet rectangle.
type Projector struct {
	Rect geometry.Rect
}

// Point maps a normalized point to client pixels.
func (p Projector) Point(n geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: p.Rect.X + n.X*p.Rect.Width,
		Y: p.Rect.Y + n.Y*p.Rect.Height,
	}
}

// Points maps a slice of normalized points.
func (p Projector) Points(ns []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(ns))
	for i, n := range ns {
		out[i] = p.Point(n)
	}
	return out
}

// Size scales a length given in sheet pixels at scale 1.
func (p Projector) Size(v float64) float64 {
	return v * p.Rect.Width / sheet.BaseWidth
}

// MarkerShape is the outline of a point marker badge.
type MarkerShape int

const (
	MarkerRounded MarkerShape = iota // Rounded square (apt, ds)
	MarkerRound                      // Circle (wind, obs)
)

// HeadStyle is an arrow head.
type HeadStyle string

const (
	HeadTriangle HeadStyle = "triangle"
	HeadDouble   HeadStyle = "double"
	HeadCircle   HeadStyle = "circle"
	HeadBox      HeadStyle = "box"
)

// Overlay is everything drawn on top of the page visual, in client pixels
// and in render order within each slice.
type Overlay struct {
	Polygons []OverlayPolygon
	Arrows   []OverlayArrow
	Markers  []OverlayMarker
	Handles  []OverlayHandle
	Preview  *OverlayRect
	// PreviewArrow is the arrow being drawn.
	PreviewArrow *OverlayArrow
}

// OverlayPolygon is a test square or observation area.
type OverlayPolygon struct {
	Points   []geometry.Point2D
	Label    string // Drawn inside the top-left corner
	SubLabel string
	Badge    string // Drawn in a circle on the top-right corner
	Stroke   color.NRGBA
	Fill     color.NRGBA
	Width    int
}

// OverlayArrow is an observation arrow.
type OverlayArrow struct {
	From, To geometry.Point2D
	Head     HeadStyle
	HeadSize float64
	Label    string
	LabelAt  geometry.Point2D
	Stroke   color.NRGBA
	Width    int
}

// OverlayMarker is a point item badge.
type OverlayMarker struct {
	Center   geometry.Point2D
	Radius   float64
	Lines    []string
	Shape    MarkerShape
	Fill     color.NRGBA
	Selected bool
}

// OverlayHandle is a reshape handle on a selected polygon or arrow.
type OverlayHandle struct {
	Center geometry.Point2D
	Radius float64
	Color  color.NRGBA
}

// OverlayRect is the rubber band while drawing a rectangle.
type OverlayRect struct {
	Min, Max geometry.Point2D
	Stroke   color.NRGBA
}

// BuildOverlay lays out items, the selection and the in-progress drag.
// items must be the active page's items in render order.
func BuildOverlay(items []*annotation.Item, selectedID string, drag *interact.Drag, proj Projector) *Overlay {
	ov := &Overlay{}
	for _, it := range items {
		selected := it.ID == selectedID
		switch it.Shape() {
		case annotation.ShapePolygon:
			if len(it.Points()) < 3 {
				continue
			}
			ov.Polygons = append(ov.Polygons, polygonFor(it, selected, proj))
		case annotation.ShapeArrow:
			ov.Arrows = append(ov.Arrows, arrowFor(it, selected, proj))
		default:
			ov.Markers = append(ov.Markers, markerFor(it, selected, proj))
			continue
		}
		if selected && !it.Locked() {
			for _, p := range it.Points() {
				ov.Handles = append(ov.Handles, OverlayHandle{
					Center: proj.Point(p),
					Radius: proj.Size(handleRadius),
					Color:  app.ItemColor(it.Type),
				})
			}
		}
	}

	if drag == nil {
		return ov
	}
	stroke := app.ItemColor(drag.Target)
	switch drag.Mode {
	case interact.DragDrawRect:
		a, b := proj.Point(drag.Start), proj.Point(drag.Current)
		ov.Preview = &OverlayRect{
			Min:    geometry.Point2D{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
			Max:    geometry.Point2D{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
			Stroke: stroke,
		}
	case interact.DragDrawArrow:
		ov.PreviewArrow = &OverlayArrow{
			From:     proj.Point(drag.Start),
			To:       proj.Point(drag.Current),
			Head:     HeadTriangle,
			HeadSize: proj.Size(headSize),
			Stroke:   stroke,
			Width:    2,
		}
	}
	return ov
}

func strokeWidth(selected bool) int {
	if selected {
		return 3
	}
	return 2
}

func polygonFor(it *annotation.Item, selected bool, proj Projector) OverlayPolygon {
	poly := OverlayPolygon{
		Points: proj.Points(it.Points()),
		Label:  it.Name,
		Stroke: app.ItemColor(it.Type),
		Fill:   app.ItemFill(it.Type, selected),
		Width:  strokeWidth(selected),
	}
	switch d := it.Data.(type) {
	case *annotation.TestSquare:
		poly.SubLabel = d.Dir
		poly.Badge = strconv.Itoa(len(d.Bruises))
	case *annotation.Observation:
		poly.Label = fmt.Sprintf("%s %s", it.Name, d.Code)
	}
	return poly
}

func arrowFor(it *annotation.Item, selected bool, proj Projector) OverlayArrow {
	d := it.Data.(*annotation.Observation)
	pts := it.Points()
	a, b := proj.Point(pts[0]), proj.Point(pts[1])
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	anchor := b
	if d.ArrowLabelPosition == "start" {
		anchor = a
		angle += math.Pi
	}
	off := proj.Size(labelOffset)
	head := HeadStyle(d.ArrowType)
	if head == "" {
		head = HeadTriangle
	}
	return OverlayArrow{
		From:     a,
		To:       b,
		Head:     head,
		HeadSize: proj.Size(headSize),
		Label:    d.Label,
		LabelAt:  geometry.Point2D{X: anchor.X + math.Cos(angle)*off, Y: anchor.Y + math.Sin(angle)*off},
		Stroke:   app.ItemColor(it.Type),
		Width:    strokeWidth(selected),
	}
}

func markerFor(it *annotation.Item, selected bool, proj Projector) OverlayMarker {
	m := OverlayMarker{
		Center:   proj.Point(it.Position()),
		Radius:   proj.Size(markerRadius),
		Lines:    MarkerLines(it),
		Fill:     app.ItemColor(it.Type),
		Selected: selected,
	}
	if it.Type == annotation.TypeWind || it.Type == annotation.TypeObservation {
		m.Shape = MarkerRound
	}
	return m
}

// MarkerLines returns the text drawn inside a point marker: the fixture code
// for appurtenances, the index for downspouts, creased/torn counts for wind
// and the first two letters of the code for observation pins.
func MarkerLines(it *annotation.Item) []string {
	switch d := it.Data.(type) {
	case *annotation.Appurtenance:
		return []string{d.Kind}
	case *annotation.Downspout:
		if d.Index <= 0 {
			return []string{"?"}
		}
		return []string{strconv.Itoa(d.Index)}
	case *annotation.WindMarker:
		var lines []string
		if d.CreasedCount > 0 || d.TornMissingCount == 0 {
			lines = append(lines, fmt.Sprintf("C%d", d.CreasedCount))
		}
		if d.TornMissingCount > 0 {
			lines = append(lines, fmt.Sprintf("T%d", d.TornMissingCount))
		}
		return lines
	case *annotation.Observation:
		code := d.Code
		if code == "" {
			code = "OB"
		}
		if len(code) > 2 {
			code = code[:2]
		}
		return []string{code}
	}
	return nil
}
