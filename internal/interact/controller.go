package interact

import (
	"log"
	"math"

	"titanroof/internal/annotation"
	"titanroof/internal/sheet"
	"titanroof/internal/view"
	"titanroof/pkg/geometry"
)

// DragMode is the active gesture.
type DragMode int

const (
	DragNone DragMode = iota
	DragPan
	DragDrawRect
	DragDrawArrow
	DragMovePolygon
	DragMovePoint
	DragMoveMarker
)

func (m DragMode) String() string {
	switch m {
	case DragPan:
		return "pan"
	case DragDrawRect:
		return "draw-rect"
	case DragDrawArrow:
		return "draw-arrow"
	case DragMovePolygon:
		return "move-polygon"
	case DragMovePoint:
		return "move-point"
	case DragMoveMarker:
		return "move-marker"
	}
	return "none"
}

// Drag is the state of an in-progress gesture. Start and Current are
// normalized sheet positions, except for pan where they are client pixels.
type Drag struct {
	Mode         DragMode
	Target       annotation.Type
	ItemID       string
	PointIndex   int
	Start        geometry.Point2D
	Current      geometry.Point2D
	Origin       geometry.Point2D
	OriginPoints []geometry.Point2D
}

// PointerKind is the input device.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
	PointerPen
)

// Mouse buttons.
const (
	ButtonPrimary = 0
	ButtonMiddle  = 1
)

// PointerEvent is a device-independent pointer sample in client pixels.
type PointerEvent struct {
	ID     int64
	Kind   PointerKind
	Button int
	Shift  bool
	Client geometry.Point2D
}

// Pages is the page context the controller needs.
type Pages interface {
	ActivePageID() string
	// ActiveHasVisual reports whether the active page shows a background
	// image or an enabled map.
	ActiveHasVisual() bool
	// ActiveSheetSize returns the active page's sheet size in sheet pixels.
	ActiveSheetSize() (w, h float64)
}

// Callbacks notify the owner of changes. Any may be nil.
type Callbacks struct {
	SelectionChanged func(id string)
	ItemsChanged     func()
	ViewChanged      func()
}

// Controller is the pointer state machine for the diagram sheet.
type Controller struct {
	store    *annotation.Store
	counters *annotation.Counters
	pages    Pages
	view     *view.Transform
	pinch    *view.Pinch
	tools    *Tools
	logger   *log.Logger

	selected  string
	drag      *Drag
	callbacks Callbacks
}

// NewController wires a controller. logger may be nil.
func NewController(store *annotation.Store, counters *annotation.Counters, pages Pages, tr *view.Transform, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		store:    store,
		counters: counters,
		pages:    pages,
		view:     tr,
		pinch:    view.NewPinch(),
		tools:    NewTools(),
		logger:   logger,
	}
}

// SetCallbacks replaces the change callbacks.
func (c *Controller) SetCallbacks(cb Callbacks) {
	c.callbacks = cb
}

// Tools exposes tool arming.
func (c *Controller) Tools() *Tools { return c.tools }

// View exposes the view transform.
func (c *Controller) View() *view.Transform { return c.view }

// Selected returns the selected item ID or "".
func (c *Controller) Selected() string { return c.selected }

// Select sets the selection.
func (c *Controller) Select(id string) {
	if c.selected == id {
		return
	}
	c.selected = id
	if c.callbacks.SelectionChanged != nil {
		c.callbacks.SelectionChanged(id)
	}
}

// ClearSelection deselects.
func (c *Controller) ClearSelection() {
	c.Select("")
}

// Drag returns a copy of the active drag, or nil.
func (c *Controller) Drag() *Drag {
	if c.drag == nil {
		return nil
	}
	d := *c.drag
	d.OriginPoints = geometry.ClonePoints(c.drag.OriginPoints)
	return &d
}

// Escape disarms the tool and abandons any drag without committing it.
func (c *Controller) Escape() {
	c.tools.Disarm()
	c.drag = nil
}

// DeleteSelected removes the selected item.
func (c *Controller) DeleteSelected() error {
	if c.selected == "" {
		return nil
	}
	if err := c.store.Delete(c.selected); err != nil {
		return err
	}
	c.ClearSelection()
	c.itemsChanged()
	return nil
}

// SheetRect returns the active sheet's on-screen rectangle.
func (c *Controller) SheetRect() (geometry.Rect, bool) {
	w, h := c.pages.ActiveSheetSize()
	return c.view.SheetRect(w, h)
}

func (c *Controller) normalize(client geometry.Point2D) (geometry.Point2D, bool) {
	rect, ok := c.SheetRect()
	if !ok {
		return geometry.Point2D{}, false
	}
	return sheet.ScreenToNormalized(client.X, client.Y, rect)
}

func (c *Controller) itemsChanged() {
	if c.callbacks.ItemsChanged != nil {
		c.callbacks.ItemsChanged()
	}
}

func (c *Controller) viewChanged() {
	if c.callbacks.ViewChanged != nil {
		c.callbacks.ViewChanged()
	}
}

// PointerDown starts a gesture.
func (c *Controller) PointerDown(ev PointerEvent) {
	// A second contact turns the gesture into a pinch.
	if c.pinch.Down(ev.ID, ev.Client, c.view) {
		c.drag = nil
		return
	}

	panIntent := ev.Kind == PointerMouse &&
		(ev.Button == ButtonMiddle || (ev.Button == ButtonPrimary && ev.Shift))
	if panIntent {
		c.startPan(ev.Client)
		return
	}

	if !c.pages.ActiveHasVisual() {
		c.ClearSelection()
		return
	}

	norm, ok := c.normalize(ev.Client)
	if !ok {
		return
	}

	items := c.store.ListByPage(c.pages.ActivePageID())
	if hit := HitTest(items, c.selected, norm); hit != nil {
		c.Select(hit.ItemID)
		for _, it := range items {
			if it.ID == hit.ItemID {
				c.beginItemDrag(it, hit, norm)
				break
			}
		}
		return
	}

	switch tool := c.tools.Current(); tool {
	case ToolTestSquare:
		c.drag = &Drag{Mode: DragDrawRect, Target: annotation.TypeTestSquare, Start: norm, Current: norm}
	case ToolObservation:
		switch c.tools.ObservationTool() {
		case ObsDot:
			c.place(annotation.TypeObservation, annotation.AtPoint(norm), annotation.ObservationPin)
		case ObsArrow:
			c.drag = &Drag{Mode: DragDrawArrow, Target: annotation.TypeObservation, Start: norm, Current: norm}
		default:
			c.drag = &Drag{Mode: DragDrawRect, Target: annotation.TypeObservation, Start: norm, Current: norm}
		}
	case ToolNone:
		if ev.Kind != PointerMouse {
			c.startPan(ev.Client)
			return
		}
		c.ClearSelection()
	default:
		c.place(tool.ItemType(), annotation.AtPoint(norm), "")
	}
}

func (c *Controller) startPan(client geometry.Point2D) {
	st := c.view.State()
	c.drag = &Drag{
		Mode:    DragPan,
		Start:   client,
		Current: client,
		Origin:  geometry.Point2D{X: st.TX, Y: st.TY},
	}
}

func (c *Controller) beginItemDrag(it *annotation.Item, hit *Hit, norm geometry.Point2D) {
	if it.Locked() {
		return
	}
	switch hit.Kind {
	case HitVertex, HitArrowHandle:
		c.drag = &Drag{Mode: DragMovePoint, Target: it.Type, ItemID: it.ID, PointIndex: hit.PointIndex, Start: norm, Current: norm}
		return
	}
	switch it.Shape() {
	case annotation.ShapePolygon, annotation.ShapeArrow:
		c.drag = &Drag{
			Mode:         DragMovePolygon,
			Target:       it.Type,
			ItemID:       it.ID,
			Start:        norm,
			Current:      norm,
			OriginPoints: geometry.ClonePoints(it.Points()),
		}
	default:
		c.drag = &Drag{
			Mode:    DragMoveMarker,
			Target:  it.Type,
			ItemID:  it.ID,
			Start:   norm,
			Current: norm,
			Origin:  it.Position(),
		}
	}
}

// PointerMove advances the gesture.
func (c *Controller) PointerMove(ev PointerEvent) {
	if c.pinch.Move(ev.ID, ev.Client, c.view) {
		c.drag = nil
		c.viewChanged()
		return
	}
	if c.pinch.Count() >= 2 {
		return
	}
	if c.drag == nil {
		return
	}

	if c.drag.Mode == DragPan {
		c.drag.Current = ev.Client
		st := c.view.State()
		st.TX = c.drag.Origin.X + (ev.Client.X - c.drag.Start.X)
		st.TY = c.drag.Origin.Y + (ev.Client.Y - c.drag.Start.Y)
		c.view.SetState(st)
		c.viewChanged()
		return
	}

	norm, ok := c.normalize(ev.Client)
	if !ok {
		return
	}
	c.drag.Current = norm
	d := c.drag

	var err error
	switch d.Mode {
	case DragDrawRect, DragDrawArrow:
		// Preview only; committed on release.
		return
	case DragMoveMarker:
		err = c.store.UpdatePosition(d.ItemID,
			geometry.Clamp01(d.Origin.X+norm.X-d.Start.X),
			geometry.Clamp01(d.Origin.Y+norm.Y-d.Start.Y))
	case DragMovePolygon:
		err = c.store.UpdatePoints(d.ItemID,
			geometry.TranslateClamped(d.OriginPoints, norm.X-d.Start.X, norm.Y-d.Start.Y))
	case DragMovePoint:
		it, found := c.store.Get(d.ItemID)
		if !found {
			return
		}
		pts := geometry.ClonePoints(it.Points())
		if d.PointIndex < 0 || d.PointIndex >= len(pts) {
			return
		}
		pts[d.PointIndex] = norm.Clamp01()
		err = c.store.UpdatePoints(d.ItemID, pts)
	}
	if err != nil {
		c.logger.Printf("Drag: %v", err)
		return
	}
	c.itemsChanged()
}

// PointerUp ends the gesture, committing drawn shapes.
func (c *Controller) PointerUp(ev PointerEvent) {
	c.pinch.Up(ev.ID, c.view)

	d := c.drag
	c.drag = nil
	if d == nil {
		return
	}

	switch d.Mode {
	case DragDrawRect:
		c.commitRect(d)
	case DragDrawArrow:
		c.commitArrow(d)
	}
}

// Cancel abandons the gesture and forgets all contacts, as when the pointer
// leaves the surface.
func (c *Controller) Cancel() {
	c.drag = nil
	c.pinch.Reset()
}

// Wheel forwards a scroll event to the view.
func (c *Controller) Wheel(deltaX, deltaY float64, zoomModifier bool, cursor geometry.Point2D) {
	if err := c.view.Wheel(deltaX, deltaY, zoomModifier, cursor); err != nil {
		return
	}
	c.viewChanged()
}

func (c *Controller) commitRect(d *Drag) {
	w := d.Current.X - d.Start.X
	h := d.Current.Y - d.Start.Y
	if math.Abs(w) > MinRectSide && math.Abs(h) > MinRectSide {
		a := geometry.Point2D{X: min(d.Start.X, d.Current.X), Y: min(d.Start.Y, d.Current.Y)}
		b := geometry.Point2D{X: max(d.Start.X, d.Current.X), Y: max(d.Start.Y, d.Current.Y)}
		kind := annotation.ObservationKind("")
		if d.Target == annotation.TypeObservation {
			kind = annotation.ObservationArea
		}
		c.place(d.Target, annotation.WithPoints(geometry.RectCorners(a, b)), kind)
		return
	}
	if d.Target != annotation.TypeObservation {
		return
	}
	if c.tools.ObservationTool() == ObsPoly {
		half := FallbackSquare / 2
		a := geometry.Point2D{X: d.Start.X - half, Y: d.Start.Y - half}.Clamp01()
		b := geometry.Point2D{X: d.Start.X + half, Y: d.Start.Y + half}.Clamp01()
		c.place(annotation.TypeObservation, annotation.WithPoints(geometry.RectCorners(a, b)), annotation.ObservationArea)
		return
	}
	c.place(annotation.TypeObservation, annotation.AtPoint(d.Start), annotation.ObservationPin)
}

func (c *Controller) commitArrow(d *Drag) {
	if d.Start.Distance(d.Current) > MinArrowLength {
		c.place(annotation.TypeObservation, annotation.WithPoints([]geometry.Point2D{d.Start, d.Current}), annotation.ObservationArrow)
		return
	}
	c.place(annotation.TypeObservation, annotation.AtPoint(d.Start), annotation.ObservationPin)
}

// place creates an item on the active page and selects it.
func (c *Controller) place(t annotation.Type, at annotation.Placement, kind annotation.ObservationKind) *annotation.Item {
	it, err := annotation.NewItem(t, c.pages.ActivePageID(), at, annotation.Options{ObservationKind: kind}, c.counters)
	if err != nil {
		c.logger.Printf("Place %s: %v", t, err)
		return nil
	}
	c.store.Add(it)
	c.Select(it.ID)
	c.itemsChanged()
	return it
}

// PlaceAt creates an item of type t at a normalized point on the active
// page, as used by keyboard and list shortcuts.
func (c *Controller) PlaceAt(t annotation.Type, p geometry.Point2D) *annotation.Item {
	return c.place(t, annotation.AtPoint(p.Clamp01()), "")
}
