package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/internal/annotation"
	"titanroof/internal/view"
	"titanroof/pkg/geometry"
)

const (
	testPage = "page-1"
	sheetW   = 1024.0
	sheetH   = 720.0
)

type fakePages struct {
	visual bool
}

func (f *fakePages) ActivePageID() string { return testPage }

func (f *fakePages) ActiveHasVisual() bool { return f.visual }

func (f *fakePages) ActiveSheetSize() (w, h float64) { return sheetW, sheetH }

type harness struct {
	ctrl  *Controller
	store *annotation.Store
	pages *fakePages
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr := view.NewTransform()
	// Sheet exactly fills the viewport at scale 1.
	tr.SetViewport(geometry.NewRect(0, 0, sheetW, sheetH))
	store := annotation.NewStore(annotation.NewResources())
	pages := &fakePages{visual: true}
	return &harness{
		ctrl:  NewController(store, annotation.NewCounters(), pages, tr, nil),
		store: store,
		pages: pages,
	}
}

// client converts a normalized sheet point to a client position.
func client(x, y float64) geometry.Point2D {
	return geometry.Point2D{X: x * sheetW, Y: y * sheetH}
}

func mouse(x, y float64) PointerEvent {
	return PointerEvent{ID: 1, Kind: PointerMouse, Client: client(x, y)}
}

func (h *harness) drag(from, to PointerEvent) {
	h.ctrl.PointerDown(from)
	to.ID = from.ID
	h.ctrl.PointerMove(to)
	h.ctrl.PointerUp(to)
}

func TestDrawTestSquare(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolTestSquare)

	h.drag(mouse(0.2, 0.2), mouse(0.4, 0.4))

	items := h.store.All()
	require.Len(t, items, 1)
	ts := items[0]
	assert.Equal(t, "TS-1", ts.Name)
	pts := ts.Points()
	require.Len(t, pts, 4)
	want := []geometry.Point2D{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}, {X: 0.4, Y: 0.4}, {X: 0.2, Y: 0.4}}
	for i := range want {
		assert.InDelta(t, want[i].X, pts[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, pts[i].Y, 1e-9)
	}
	assert.InDelta(t, 0.3, ts.X, 1e-9)
	assert.Equal(t, ts.ID, h.ctrl.Selected())
	assert.Nil(t, h.ctrl.Drag())
}

func TestDrawTestSquareTooSmall(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolTestSquare)
	h.drag(mouse(0.2, 0.2), mouse(0.21, 0.5))
	assert.Zero(t, h.store.Len())
}

func TestObservationDotPlacesPin(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolObservation)
	h.ctrl.Tools().SetObservationTool(ObsDot)

	h.ctrl.PointerDown(mouse(0.5, 0.5))
	h.ctrl.PointerUp(mouse(0.5, 0.5))

	items := h.store.All()
	require.Len(t, items, 1)
	obs := items[0]
	assert.Equal(t, "OBS-1", obs.Name)
	assert.Equal(t, annotation.ObservationPin, obs.Data.(*annotation.Observation).Kind)
	assert.InDelta(t, 0.5, obs.X, 1e-9)
	assert.InDelta(t, 0.5, obs.Y, 1e-9)
	assert.Equal(t, obs.ID, h.ctrl.Selected())
}

func TestObservationPolyFallbackSquare(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolObservation)
	h.ctrl.Tools().SetObservationTool(ObsPoly)

	h.drag(mouse(0.995, 0.5), mouse(0.996, 0.5))

	items := h.store.All()
	require.Len(t, items, 1)
	d := items[0].Data.(*annotation.Observation)
	assert.Equal(t, annotation.ObservationArea, d.Kind)
	require.Len(t, d.Points, 4)
	for _, p := range d.Points {
		assert.LessOrEqual(t, p.X, 1.0)
	}
	assert.InDelta(t, 1.0, d.Points[1].X, 1e-9)
	assert.InDelta(t, 0.98, d.Points[0].X, 1e-9)
}

func TestObservationArrow(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolObservation)
	h.ctrl.Tools().SetObservationTool(ObsArrow)

	h.drag(mouse(0.1, 0.1), mouse(0.3, 0.1))
	items := h.store.All()
	require.Len(t, items, 1)
	assert.Equal(t, annotation.ShapeArrow, items[0].Shape())

	// A short arrow degrades to a pin at its start.
	h.drag(mouse(0.6, 0.6), mouse(0.605, 0.6))
	items = h.store.All()
	require.Len(t, items, 2)
	pin := items[1]
	assert.Equal(t, annotation.ObservationPin, pin.Data.(*annotation.Observation).Kind)
	assert.InDelta(t, 0.6, pin.X, 1e-9)
}

func TestPlaceOnClickTools(t *testing.T) {
	h := newHarness(t)
	clicks := []struct {
		tool Tool
		x    float64
		name string
	}{
		{ToolAppurtenance, 0.1, "APT-1"},
		{ToolDownspout, 0.5, "DS-1"},
		{ToolWind, 0.9, "WIND-1"},
	}
	for _, c := range clicks {
		h.ctrl.Tools().Select(c.tool)
		h.ctrl.PointerDown(mouse(c.x, 0.9))
		h.ctrl.PointerUp(mouse(c.x, 0.9))
	}

	items := h.store.All()
	require.Len(t, items, len(clicks))
	for i, c := range clicks {
		assert.Equal(t, c.name, items[i].Name)
		assert.InDelta(t, c.x, items[i].X, 1e-9)
		assert.Equal(t, testPage, items[i].PageID)
	}
	assert.Equal(t, items[2].ID, h.ctrl.Selected())
}

func TestHitTestPriority(t *testing.T) {
	c := annotation.NewCounters()
	square, err := annotation.NewItem(annotation.TypeTestSquare, testPage,
		annotation.WithPoints(geometry.RectCorners(geometry.Point2D{X: 0.2, Y: 0.2}, geometry.Point2D{X: 0.6, Y: 0.6})),
		annotation.Options{}, c)
	require.NoError(t, err)
	marker, err := annotation.NewItem(annotation.TypeWind, testPage,
		annotation.AtPoint(geometry.Point2D{X: 0.4, Y: 0.4}), annotation.Options{}, c)
	require.NoError(t, err)

	items := []*annotation.Item{square, marker}

	// The marker is rendered on top.
	hit := HitTest(items, "", geometry.Point2D{X: 0.4, Y: 0.4})
	require.NotNil(t, hit)
	assert.Equal(t, marker.ID, hit.ItemID)

	// Inside the square away from the marker.
	hit = HitTest(items, "", geometry.Point2D{X: 0.25, Y: 0.5})
	require.NotNil(t, hit)
	assert.Equal(t, square.ID, hit.ItemID)

	// A selected square's vertex beats everything.
	hit = HitTest(items, square.ID, geometry.Point2D{X: 0.205, Y: 0.2})
	require.NotNil(t, hit)
	assert.Equal(t, HitVertex, hit.Kind)
	assert.Equal(t, 0, hit.PointIndex)

	// Locked items expose no vertices.
	square.Data.SetLocked(true)
	hit = HitTest(items, square.ID, geometry.Point2D{X: 0.205, Y: 0.2})
	require.NotNil(t, hit)
	assert.Equal(t, HitItem, hit.Kind)

	assert.Nil(t, HitTest(items, "", geometry.Point2D{X: 0.9, Y: 0.9}))
}

func TestArrowHandleHit(t *testing.T) {
	arrow, err := annotation.NewItem(annotation.TypeObservation, testPage,
		annotation.WithPoints([]geometry.Point2D{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}}),
		annotation.Options{ObservationKind: annotation.ObservationArrow}, annotation.NewCounters())
	require.NoError(t, err)
	items := []*annotation.Item{arrow}

	hit := HitTest(items, arrow.ID, geometry.Point2D{X: 0.5, Y: 0.105})
	require.NotNil(t, hit)
	assert.Equal(t, HitArrowHandle, hit.Kind)
	assert.Equal(t, 1, hit.PointIndex)

	hit = HitTest(items, "", geometry.Point2D{X: 0.3, Y: 0.115})
	require.NotNil(t, hit)
	assert.Equal(t, HitItem, hit.Kind)

	assert.Nil(t, HitTest(items, "", geometry.Point2D{X: 0.3, Y: 0.125}))
}

func TestMoveMarkerClamps(t *testing.T) {
	h := newHarness(t)
	it := h.ctrl.PlaceAt(annotation.TypeAppurtenance, geometry.Point2D{X: 0.9, Y: 0.9})
	require.NotNil(t, it)

	h.ctrl.PointerDown(mouse(0.9, 0.9))
	require.NotNil(t, h.ctrl.Drag())
	assert.Equal(t, DragMoveMarker, h.ctrl.Drag().Mode)
	// Leave the sheet: the pointer itself is clamped so the marker pins at 1.
	h.ctrl.PointerMove(PointerEvent{ID: 1, Client: geometry.Point2D{X: 5000, Y: 5000}})
	h.ctrl.PointerUp(PointerEvent{ID: 1})

	got, _ := h.store.Get(it.ID)
	assert.InDelta(t, 1.0, got.X, 1e-9)
	assert.InDelta(t, 1.0, got.Y, 1e-9)
	assert.LessOrEqual(t, got.X, 1.0)
}

func TestMovePolygonAndVertex(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolTestSquare)
	h.drag(mouse(0.2, 0.2), mouse(0.4, 0.4))
	h.ctrl.Tools().Select(ToolTestSquare)
	id := h.ctrl.Selected()

	// Drag the body.
	h.drag(mouse(0.3, 0.3), mouse(0.35, 0.3))
	got, _ := h.store.Get(id)
	assert.InDelta(t, 0.25, got.Points()[0].X, 1e-9)

	// Drag vertex 2 (bottom right).
	h.drag(mouse(0.45, 0.4), mouse(0.7, 0.8))
	got, _ = h.store.Get(id)
	assert.InDelta(t, 0.7, got.Points()[2].X, 1e-9)
	assert.InDelta(t, 0.8, got.Points()[2].Y, 1e-9)
	assert.InDelta(t, 0.25, got.Points()[0].X, 1e-9)
}

func TestLockedItemSelectsWithoutDrag(t *testing.T) {
	h := newHarness(t)
	it := h.ctrl.PlaceAt(annotation.TypeWind, geometry.Point2D{X: 0.5, Y: 0.5})
	require.NoError(t, h.store.SetLocked(it.ID, true))
	h.ctrl.ClearSelection()

	h.ctrl.PointerDown(mouse(0.5, 0.5))
	assert.Equal(t, it.ID, h.ctrl.Selected())
	assert.Nil(t, h.ctrl.Drag())
}

func TestNoVisualClearsSelection(t *testing.T) {
	h := newHarness(t)
	it := h.ctrl.PlaceAt(annotation.TypeWind, geometry.Point2D{X: 0.5, Y: 0.5})
	require.Equal(t, it.ID, h.ctrl.Selected())

	h.pages.visual = false
	h.ctrl.Tools().Select(ToolWind)
	h.ctrl.PointerDown(mouse(0.5, 0.5))
	assert.Empty(t, h.ctrl.Selected())
	assert.Equal(t, 1, h.store.Len())
}

func TestPanIntentAndTouchPan(t *testing.T) {
	h := newHarness(t)

	ev := mouse(0.5, 0.5)
	ev.Shift = true
	h.ctrl.PointerDown(ev)
	require.Equal(t, DragPan, h.ctrl.Drag().Mode)
	h.ctrl.PointerMove(PointerEvent{ID: 1, Client: geometry.Point2D{X: ev.Client.X + 30, Y: ev.Client.Y - 10}})
	h.ctrl.PointerUp(PointerEvent{ID: 1})
	assert.Equal(t, view.State{Scale: 1, TX: 30, TY: -10}, h.ctrl.View().State())

	touch := PointerEvent{ID: 7, Kind: PointerTouch, Client: client(0.5, 0.5)}
	h.ctrl.PointerDown(touch)
	require.NotNil(t, h.ctrl.Drag())
	assert.Equal(t, DragPan, h.ctrl.Drag().Mode)
}

func TestSecondContactCancelsDrag(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolTestSquare)

	h.ctrl.PointerDown(PointerEvent{ID: 1, Kind: PointerTouch, Client: client(0.2, 0.2)})
	require.Equal(t, DragDrawRect, h.ctrl.Drag().Mode)

	h.ctrl.PointerDown(PointerEvent{ID: 2, Kind: PointerTouch, Client: client(0.6, 0.6)})
	assert.Nil(t, h.ctrl.Drag())

	h.ctrl.PointerUp(PointerEvent{ID: 2, Kind: PointerTouch})
	h.ctrl.PointerUp(PointerEvent{ID: 1, Kind: PointerTouch})
	assert.Zero(t, h.store.Len())
}

func TestEscapeAbandonsDraw(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolTestSquare)
	h.ctrl.PointerDown(mouse(0.2, 0.2))
	h.ctrl.PointerMove(mouse(0.5, 0.5))

	h.ctrl.Escape()
	h.ctrl.PointerUp(mouse(0.5, 0.5))

	assert.Zero(t, h.store.Len())
	assert.Equal(t, ToolNone, h.ctrl.Tools().Current())
}

func TestEscapeClosesObservationPalette(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Tools().Select(ToolObservation)
	require.True(t, h.ctrl.Tools().PaletteOpen())

	h.ctrl.Escape()
	assert.Equal(t, ToolNone, h.ctrl.Tools().Current())
	assert.False(t, h.ctrl.Tools().PaletteOpen())

	// The next press arms and opens the palette again.
	h.ctrl.Tools().Select(ToolObservation)
	assert.Equal(t, ToolObservation, h.ctrl.Tools().Current())
	assert.True(t, h.ctrl.Tools().PaletteOpen())
}

func TestToolArming(t *testing.T) {
	tools := NewTools()

	tools.Select(ToolWind)
	assert.Equal(t, ToolWind, tools.Current())
	tools.Select(ToolWind)
	assert.Equal(t, ToolNone, tools.Current())

	tools.Select(ToolObservation)
	assert.Equal(t, ToolObservation, tools.Current())
	assert.True(t, tools.PaletteOpen())

	// Pressing again with the palette open disarms.
	tools.Select(ToolObservation)
	assert.Equal(t, ToolNone, tools.Current())
	assert.False(t, tools.PaletteOpen())

	// Armed with the palette closed reopens it.
	tools.Select(ToolObservation)
	tools.SetObservationTool(ObsArrow)
	assert.False(t, tools.PaletteOpen())
	tools.Select(ToolObservation)
	assert.Equal(t, ToolObservation, tools.Current())
	assert.True(t, tools.PaletteOpen())

	// Another tool closes the palette.
	tools.Select(ToolDownspout)
	assert.False(t, tools.PaletteOpen())
	assert.Equal(t, ToolDownspout, tools.Current())
}

func TestDeleteSelected(t *testing.T) {
	h := newHarness(t)
	it := h.ctrl.PlaceAt(annotation.TypeDownspout, geometry.Point2D{X: 0.5, Y: 0.5})
	require.NotNil(t, it)
	require.NoError(t, h.ctrl.DeleteSelected())
	assert.Zero(t, h.store.Len())
	assert.Empty(t, h.ctrl.Selected())

	next := h.ctrl.PlaceAt(annotation.TypeDownspout, geometry.Point2D{X: 0.5, Y: 0.5})
	assert.Equal(t, "DS-2", next.Name)
}
