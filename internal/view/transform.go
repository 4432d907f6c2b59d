// Package view holds the pan/zoom state of the sheet inside its viewport,
// including wheel, anchored zoom, pinch gestures and resize compensation.
package view

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"titanroof/pkg/geometry"
)

// Zoom limits and steps.
const (
	MinScale   = 0.35
	MaxScale   = 3.0
	ZoomStep   = 1.15
	WheelStep  = 1.08
	FitPadding = 80.0
)

// ErrNoViewport is returned when the viewport has not been measured.
var ErrNoViewport = errors.New("view: viewport not measured")

// State is the pan/zoom state. The sheet is centered in the viewport, then
// translated by (TX, TY) client pixels and scaled by Scale about its center.
type State struct {
	Scale float64 `json:"scale"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
}

// DefaultState is the identity view.
func DefaultState() State {
	return State{Scale: 1}
}

// Transform owns the view state and the last measured viewport.
type Transform struct {
	state    State
	viewport geometry.Rect
	measured bool
}

// NewTransform creates a transform with the identity view and no viewport.
func NewTransform() *Transform {
	return &Transform{state: DefaultState()}
}

// State returns the current view state.
func (t *Transform) State() State {
	return t.state
}

// SetState replaces the view state, clamping the scale.
func (t *Transform) SetState(s State) {
	s.Scale = ClampScale(s.Scale)
	t.state = s
}

// Viewport returns the last measured viewport rectangle.
func (t *Transform) Viewport() (geometry.Rect, bool) {
	return t.viewport, t.measured
}

// SetViewport records the viewport rectangle in client coordinates without
// touching the view state. See Resize for compensated updates.
func (t *Transform) SetViewport(r geometry.Rect) {
	t.viewport = r
	t.measured = !r.Empty()
}

// ClampScale limits s to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	return geometry.Clamp(s, MinScale, MaxScale)
}

// SetScaleAnchored sets the scale, keeping the sheet point under anchor
// (client coordinates) fixed. A nil anchor scales about the sheet center.
func (t *Transform) SetScaleAnchored(next float64, anchor *geometry.Point2D) error {
	if !t.measured {
		return ErrNoViewport
	}
	scale := ClampScale(next)
	if anchor == nil {
		t.state.Scale = scale
		return nil
	}
	t.state = anchoredZoom(t.viewport, t.state, scale, *anchor)
	return nil
}

// anchoredZoom computes the state after zooming from base to s1 about the
// client point anchor.
func anchoredZoom(vp geometry.Rect, base State, s1 float64, anchor geometry.Point2D) State {
	ax := anchor.X - vp.X
	ay := anchor.Y - vp.Y
	s0 := base.Scale

	dx := ax - vp.Width/2 - base.TX
	dy := ay - vp.Height/2 - base.TY

	return State{
		Scale: s1,
		TX:    base.TX + dx*(1-s1/s0),
		TY:    base.TY + dy*(1-s1/s0),
	}
}

// ZoomIn scales up by one step about the sheet center.
func (t *Transform) ZoomIn() error {
	return t.SetScaleAnchored(t.state.Scale*ZoomStep, nil)
}

// ZoomOut scales down by one step about the sheet center.
func (t *Transform) ZoomOut() error {
	return t.SetScaleAnchored(t.state.Scale/ZoomStep, nil)
}

// ZoomReset restores the identity view.
func (t *Transform) ZoomReset() {
	t.state = DefaultState()
}

// ZoomFit scales the sheet to fit the viewport with padding and recenters it.
func (t *Transform) ZoomFit(sheetW, sheetH float64) error {
	if !t.measured {
		return ErrNoViewport
	}
	if !(sheetW > 0) || !(sheetH > 0) {
		return fmt.Errorf("zoom fit: invalid sheet size %gx%g", sheetW, sheetH)
	}
	sx := (t.viewport.Width - FitPadding) / sheetW
	sy := (t.viewport.Height - FitPadding) / sheetH
	t.state = State{Scale: ClampScale(min(sx, sy))}
	return nil
}

// Pan translates the view by (dx, dy) client pixels.
func (t *Transform) Pan(dx, dy float64) {
	t.state.TX += dx
	t.state.TY += dy
}

// Wheel applies a scroll event. With the zoom modifier held the view zooms
// by WheelStep about the cursor; otherwise it pans opposite the delta.
func (t *Transform) Wheel(deltaX, deltaY float64, zoomModifier bool, cursor geometry.Point2D) error {
	if !zoomModifier {
		t.Pan(-deltaX, -deltaY)
		return nil
	}
	factor := 1 / WheelStep
	if -deltaY > 0 {
		factor = WheelStep
	}
	return t.SetScaleAnchored(t.state.Scale*factor, &cursor)
}

// SheetRect returns the sheet's on-screen rectangle in client coordinates.
func (t *Transform) SheetRect(sheetW, sheetH float64) (geometry.Rect, bool) {
	if !t.measured {
		return geometry.Rect{}, false
	}
	w := sheetW * t.state.Scale
	h := sheetH * t.state.Scale
	cx := t.viewport.X + t.viewport.Width/2 + t.state.TX
	cy := t.viewport.Y + t.viewport.Height/2 + t.state.TY
	return geometry.NewRect(cx-w/2, cy-h/2, w, h), true
}

// ScreenMatrix returns the homogeneous matrix mapping sheet pixels to client
// coordinates.
func (t *Transform) ScreenMatrix(sheetW, sheetH float64) (*mat.Dense, error) {
	if !t.measured {
		return nil, ErrNoViewport
	}
	s := t.state.Scale
	cx := t.viewport.X + t.viewport.Width/2 + t.state.TX
	cy := t.viewport.Y + t.viewport.Height/2 + t.state.TY

	toCenter := mat.NewDense(3, 3, []float64{
		1, 0, cx,
		0, 1, cy,
		0, 0, 1,
	})
	scale := mat.NewDense(3, 3, []float64{
		s, 0, 0,
		0, s, 0,
		0, 0, 1,
	})
	fromOrigin := mat.NewDense(3, 3, []float64{
		1, 0, -sheetW / 2,
		0, 1, -sheetH / 2,
		0, 0, 1,
	})

	var m mat.Dense
	m.Product(toCenter, scale, fromOrigin)
	return &m, nil
}

// ClientToSheet maps a client point to sheet pixels (unclamped).
func (t *Transform) ClientToSheet(p geometry.Point2D, sheetW, sheetH float64) (geometry.Point2D, error) {
	m, err := t.ScreenMatrix(sheetW, sheetH)
	if err != nil {
		return geometry.Point2D{}, err
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return geometry.Point2D{}, fmt.Errorf("invert view matrix: %w", err)
	}
	return applyHomogeneous(&inv, p), nil
}

// SheetToClient maps sheet pixels to a client point.
func (t *Transform) SheetToClient(p geometry.Point2D, sheetW, sheetH float64) (geometry.Point2D, error) {
	m, err := t.ScreenMatrix(sheetW, sheetH)
	if err != nil {
		return geometry.Point2D{}, err
	}
	return applyHomogeneous(m, p), nil
}

func applyHomogeneous(m mat.Matrix, p geometry.Point2D) geometry.Point2D {
	v := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var out mat.VecDense
	out.MulVec(m, v)
	w := out.AtVec(2)
	if w == 0 {
		w = 1
	}
	return geometry.Point2D{X: out.AtVec(0) / w, Y: out.AtVec(1) / w}
}
