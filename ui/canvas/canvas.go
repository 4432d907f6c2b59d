// Package canvas provides the diagram sheet widget: the active page visual
// with its items drawn on top, and mouse input forwarded to the interaction
// controller.
package canvas

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"titanroof/internal/annotation"
	"titanroof/internal/app"
	"titanroof/internal/document"
	roofimage "titanroof/internal/image"
	"titanroof/internal/interact"
	"titanroof/internal/sheet"
	"titanroof/internal/view"
	"titanroof/pkg/colorutil"
	"titanroof/pkg/geometry"
)

// maxBackground bounds the cached background raster.
const maxBackground = 2400

// gridStep is the blank sheet grid spacing in sheet pixels.
const gridStep = 32.0

// SheetCanvas shows the active page and turns mouse input into controller
// pointer events. Every controller and view access goes through mu because
// the resize debounce fires on its own goroutine.
type SheetCanvas struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster
	resize *view.Debouncer
	logger *log.Logger

	mu       sync.Mutex
	measured bool
	down     bool
	last     geometry.Point2D

	bgMu  sync.Mutex
	bgKey string
	bgImg image.Image

	// Callbacks
	onCursor func(norm geometry.Point2D, ok bool)
}

var (
	_ desktop.Mouseable  = (*SheetCanvas)(nil)
	_ desktop.Hoverable  = (*SheetCanvas)(nil)
	_ desktop.Cursorable = (*SheetCanvas)(nil)
	_ fyne.Draggable     = (*SheetCanvas)(nil)
	_ fyne.Scrollable    = (*SheetCanvas)(nil)
)

// NewSheetCanvas creates the sheet widget for a session. debounce delays
// viewport updates after a resize; zero uses view.ResizeDebounce.
func NewSheetCanvas(state *app.State, debounce time.Duration, logger *log.Logger) *SheetCanvas {
	if debounce <= 0 {
		debounce = view.ResizeDebounce
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &SheetCanvas{
		state:  state,
		resize: view.NewDebouncer(debounce),
		logger: logger,
	}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.raster.SetMinSize(fyne.NewSize(320, 240))
	c.ExtendBaseWidget(c)
	return c
}

// OnCursor registers a callback receiving the normalized pointer position.
func (c *SheetCanvas) OnCursor(callback func(norm geometry.Point2D, ok bool)) {
	c.onCursor = callback
}

// Do runs fn with the controller locked and redraws. fn must not call back
// into the canvas.
func (c *SheetCanvas) Do(fn func(ctl *interact.Controller)) {
	c.mu.Lock()
	fn(c.state.Controller)
	c.mu.Unlock()
	c.Refresh()
}

// ZoomIn zooms about the viewport center.
func (c *SheetCanvas) ZoomIn() {
	c.zoom(func(t *view.Transform) error { return t.ZoomIn() })
}

// ZoomOut zooms out about the viewport center.
func (c *SheetCanvas) ZoomOut() {
	c.zoom(func(t *view.Transform) error { return t.ZoomOut() })
}

// ZoomReset restores the identity view.
func (c *SheetCanvas) ZoomReset() {
	c.zoom(func(t *view.Transform) error {
		t.ZoomReset()
		return nil
	})
}

// ZoomFit scales the active sheet to fill the viewport.
func (c *SheetCanvas) ZoomFit() {
	w, h := c.state.Document.ActiveSheetSize()
	c.zoom(func(t *view.Transform) error { return t.ZoomFit(w, h) })
}

func (c *SheetCanvas) zoom(fn func(t *view.Transform) error) {
	c.mu.Lock()
	err := fn(c.state.View)
	st := c.state.View.State()
	c.mu.Unlock()
	if err != nil {
		c.logger.Printf("Canvas: zoom: %v", err)
		return
	}
	c.state.Emit(app.EventViewChanged, st)
	c.Refresh()
}

// layout records the widget size as the viewport. The first measurement
// applies at once; later ones are debounced.
func (c *SheetCanvas) layout(size fyne.Size) {
	r := geometry.NewRect(0, 0, float64(size.Width), float64(size.Height))
	if r.Empty() {
		return
	}
	c.mu.Lock()
	first := !c.measured
	if first {
		c.state.View.SetViewport(r)
		c.measured = true
	}
	c.mu.Unlock()
	if first {
		return
	}
	c.resize.Trigger(func() {
		c.mu.Lock()
		c.state.View.Resize(r)
		c.mu.Unlock()
		c.Refresh()
	})
}

func pointFrom(pos fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)}
}

// pointer maps a fyne mouse event to a controller pointer event.
func pointer(ev *desktop.MouseEvent) (interact.PointerEvent, bool) {
	pe := interact.PointerEvent{
		Kind:   interact.PointerMouse,
		Shift:  ev.Modifier&fyne.KeyModifierShift != 0,
		Client: pointFrom(ev.Position),
	}
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		pe.Button = interact.ButtonPrimary
	case desktop.MouseButtonTertiary:
		pe.Button = interact.ButtonMiddle
	default:
		return pe, false
	}
	return pe, true
}

// MouseDown starts a gesture.
func (c *SheetCanvas) MouseDown(ev *desktop.MouseEvent) {
	pe, ok := pointer(ev)
	if !ok {
		return
	}
	c.mu.Lock()
	c.down = true
	c.last = pe.Client
	c.state.Controller.PointerDown(pe)
	c.mu.Unlock()
	c.Refresh()
}

// MouseUp ends the gesture.
func (c *SheetCanvas) MouseUp(ev *desktop.MouseEvent) {
	c.mu.Lock()
	c.up(pointFrom(ev.Position))
	c.mu.Unlock()
	c.Refresh()
}

// up must be called with mu held.
func (c *SheetCanvas) up(client geometry.Point2D) {
	if !c.down {
		return
	}
	c.down = false
	c.state.Controller.PointerUp(interact.PointerEvent{Kind: interact.PointerMouse, Client: client})
}

// Dragged advances the gesture while a button is held.
func (c *SheetCanvas) Dragged(ev *fyne.DragEvent) {
	client := pointFrom(ev.Position)
	c.mu.Lock()
	c.last = client
	c.state.Controller.PointerMove(interact.PointerEvent{Kind: interact.PointerMouse, Client: client})
	c.mu.Unlock()
	c.cursor(client)
	c.Refresh()
}

// DragEnd commits the gesture if MouseUp has not already.
func (c *SheetCanvas) DragEnd() {
	c.mu.Lock()
	c.up(c.last)
	c.mu.Unlock()
	c.Refresh()
}

// MouseIn is part of desktop.Hoverable.
func (c *SheetCanvas) MouseIn(ev *desktop.MouseEvent) {
	c.cursor(pointFrom(ev.Position))
}

// MouseMoved reports the cursor position.
func (c *SheetCanvas) MouseMoved(ev *desktop.MouseEvent) {
	c.cursor(pointFrom(ev.Position))
}

// MouseOut abandons a gesture in progress, as the pointer left the sheet.
func (c *SheetCanvas) MouseOut() {
	c.mu.Lock()
	if c.down {
		c.down = false
		c.state.Controller.Cancel()
	}
	c.mu.Unlock()
	if c.onCursor != nil {
		c.onCursor(geometry.Point2D{}, false)
	}
	c.Refresh()
}

func (c *SheetCanvas) cursor(client geometry.Point2D) {
	if c.onCursor == nil {
		return
	}
	c.mu.Lock()
	rect, ok := c.state.Controller.SheetRect()
	c.mu.Unlock()
	if !ok {
		c.onCursor(geometry.Point2D{}, false)
		return
	}
	norm, inside := sheet.ScreenToNormalized(client.X, client.Y, rect)
	c.onCursor(norm, inside && rect.Contains(client))
}

// Scrolled pans, or zooms about the cursor when Ctrl or Super is held.
func (c *SheetCanvas) Scrolled(ev *fyne.ScrollEvent) {
	c.mu.Lock()
	// Fyne reports wheel-up as positive; the view expects the browser sign.
	c.state.Controller.Wheel(-float64(ev.Scrolled.DX), -float64(ev.Scrolled.DY), zoomModifier(), pointFrom(ev.Position))
	c.mu.Unlock()
	c.Refresh()
}

func zoomModifier() bool {
	a := fyne.CurrentApp()
	if a == nil {
		return false
	}
	d, ok := a.Driver().(desktop.Driver)
	if !ok {
		return false
	}
	mods := d.CurrentKeyModifiers()
	return mods&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0
}

// Cursor shows a crosshair while a placement tool is armed.
func (c *SheetCanvas) Cursor() desktop.Cursor {
	c.mu.Lock()
	armed := c.state.Controller.Tools().Current() != interact.ToolNone
	c.mu.Unlock()
	if armed {
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

// draw renders the sheet at w x h device pixels.
func (c *SheetCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(output, output.Bounds(), &image.Uniform{C: colorutil.Desk}, image.Point{}, draw.Src)

	c.mu.Lock()
	rect, ok := c.state.Controller.SheetRect()
	selected := c.state.Controller.Selected()
	drag := c.state.Controller.Drag()
	c.mu.Unlock()
	if !ok {
		return output
	}

	// Widget units to device pixels.
	scale := 1.0
	if size := c.Size(); size.Width > 0 {
		scale = float64(w) / float64(size.Width)
	}
	proj := Projector{Rect: geometry.NewRect(rect.X*scale, rect.Y*scale, rect.Width*scale, rect.Height*scale)}

	c.drawSheet(output, c.state.Document.ActivePage(), proj)
	DrawOverlay(output, BuildOverlay(c.state.ActiveItems(), selected, drag, proj), proj)
	return output
}

func (c *SheetCanvas) drawSheet(output *image.RGBA, page *document.Page, proj Projector) {
	r := proj.Rect
	dst := image.Rect(int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height))
	draw.Draw(output, dst, &image.Uniform{C: colorutil.Paper}, image.Point{}, draw.Src)

	switch document.ActiveVisual(page) {
	case document.VisualBackground:
		if bg := c.background(page); bg != nil {
			xdraw.ApproxBiLinear.Scale(output, dst, bg, bg.Bounds(), xdraw.Over, nil)
		}
	case document.VisualMap:
		draw.Draw(output, dst, &image.Uniform{C: colorutil.MapTint}, image.Point{}, draw.Src)
		label := "MAP"
		if page.Map.Address != "" {
			label = fmt.Sprintf("%s %s Z%d", page.Map.Type, page.Map.Address, page.Map.Zoom)
		}
		drawTextCentered(output, label, dst.Min.X+dst.Dx()/2, dst.Min.Y+dst.Dy()/2, grayText, fontScale(proj))
	default:
		step := proj.Size(gridStep)
		if step >= 4 {
			grid := colorutil.ToNRGBA(colorutil.GridLine)
			for x := r.X + step; x < r.X+r.Width; x += step {
				drawLine(output, int(x), dst.Min.Y, int(x), dst.Max.Y-1, grid, 1)
			}
			for y := r.Y + step; y < r.Y+r.Height; y += step {
				drawLine(output, dst.Min.X, int(y), dst.Max.X-1, int(y), grid, 1)
			}
		}
	}
	corners := []geometry.Point2D{
		{X: r.X, Y: r.Y}, {X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height}, {X: r.X, Y: r.Y + r.Height},
	}
	strokePolygon(output, corners, colorutil.ToNRGBA(colorutil.Border), 1)
}

// background returns the page background decoded and rotated, cached by
// URL and rotation. PDFs not yet rasterized have no image.
func (c *SheetCanvas) background(page *document.Page) image.Image {
	key := fmt.Sprintf("%s#%d", page.Background.URL, page.Rotation)
	c.bgMu.Lock()
	defer c.bgMu.Unlock()
	if key == c.bgKey {
		return c.bgImg
	}
	c.bgKey, c.bgImg = key, nil

	if roofimage.IsPDF(page.Background.MIMEType, page.Background.Name) {
		return nil
	}
	img, err := c.loadBackground(page.Background, page.Rotation)
	if err != nil {
		c.logger.Printf("Canvas: background %q: %v", page.Background.Name, err)
		return nil
	}
	c.bgImg = img
	return img
}

func (c *SheetCanvas) loadBackground(photo *annotation.Photo, rotation int) (image.Image, error) {
	data, err := c.state.Resources.Open(photo)
	if err != nil {
		return nil, err
	}
	img, err := roofimage.Decode(data)
	if err != nil {
		return nil, err
	}
	img = roofimage.Fit(img, maxBackground, maxBackground)
	if rotation%360 != 0 {
		return roofimage.RotateQuarter(img, rotation)
	}
	return img, nil
}

var grayText = colorutil.ToNRGBA(colorutil.Border)

// CreateRenderer implements fyne.Widget.
func (c *SheetCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &sheetCanvasRenderer{canvas: c}
}

type sheetCanvasRenderer struct {
	canvas *SheetCanvas
}

func (r *sheetCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.layout(size)
}

func (r *sheetCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.raster.MinSize()
}

func (r *sheetCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *sheetCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *sheetCanvasRenderer) Destroy() {
	r.canvas.resize.Stop()
}
