package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/internal/annotation"
	roofimage "titanroof/internal/image"
	"titanroof/internal/sheet"
)

type fakeRaster struct {
	pages int
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeRaster) Rasterize(ctx context.Context, pdf []byte) ([]RasterPage, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]RasterPage, f.pages)
	for i := range out {
		out[i] = RasterPage{Image: image.NewRGBA(image.Rect(0, 0, 17, 22)), Width: 1700, Height: 2200}
	}
	return out, nil
}

type fakeContents map[string]bool

func (f fakeContents) HasItemsOnPage(id string) bool { return f[id] }

func pngFile(t *testing.T, name string) roofimage.File {
	t.Helper()
	data, err := roofimage.EncodePNG(image.NewRGBA(image.Rect(0, 0, 4, 3)))
	require.NoError(t, err)
	return roofimage.File{Name: name, MIMEType: "image/png", Data: data}
}

func pdfFile(name string) roofimage.File {
	return roofimage.File{Name: name, MIMEType: roofimage.MIMEPDF, Data: []byte("%PDF-1.4")}
}

func TestPDFReplacesEmptyActivePage(t *testing.T) {
	raster := &fakeRaster{pages: 3}
	doc := New(annotation.NewResources(), fakeContents{}, raster, nil)
	original := doc.ActivePageID()

	n := doc.AddPagesFromFiles(context.Background(), []roofimage.File{pdfFile("survey.pdf")})
	assert.Equal(t, 3, n)

	pages := doc.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, original, pages[0].ID)
	assert.Equal(t, original, doc.ActivePageID())
	assert.Equal(t, []string{"survey 1", "survey 2", "survey 3"}, []string{pages[0].Name, pages[1].Name, pages[2].Name})
	for _, p := range pages {
		require.NotNil(t, p.Background)
		assert.Equal(t, "image/png", p.Background.MIMEType)
		assert.InDelta(t, 1700.0/2200.0, p.AspectRatio, 1e-12)
	}
	assert.Equal(t, "survey page 2", pages[1].Background.Name)
}

func TestPagesInsertedAfterActiveWithContent(t *testing.T) {
	contents := fakeContents{}
	doc := New(annotation.NewResources(), contents, &fakeRaster{pages: 1}, nil)
	first := doc.ActivePageID()
	contents[first] = true

	n := doc.AddPagesFromFiles(context.Background(), []roofimage.File{
		pngFile(t, "north.png"),
		pdfFile("plan.pdf"),
	})
	assert.Equal(t, 2, n)

	pages := doc.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, first, pages[0].ID)
	assert.Equal(t, "Page 1", pages[0].Name)
	assert.Equal(t, "north", pages[1].Name)
	assert.Equal(t, "north.png", pages[1].Background.Name)
	assert.Equal(t, sheet.DefaultAspectRatio, pages[1].AspectRatio)
	assert.Equal(t, "plan", pages[2].Name)
	assert.Equal(t, pages[1].ID, doc.ActivePageID())
}

func TestMapCountsAsContent(t *testing.T) {
	doc := New(annotation.NewResources(), nil, nil, nil)
	require.NoError(t, doc.UpdateMap(doc.ActivePageID(), func(m *Map) { m.Enabled = true }))

	doc.AddPagesFromFiles(context.Background(), []roofimage.File{pngFile(t, "a.png")})
	assert.Equal(t, 2, doc.Len())
	assert.Equal(t, 1, doc.ActiveIndex())
}

func TestPDFFailureYieldsNoPages(t *testing.T) {
	var buf bytes.Buffer
	doc := New(annotation.NewResources(), nil, &fakeRaster{err: errors.New("boom")}, log.New(&buf, "", 0))

	n := doc.AddPagesFromFiles(context.Background(), []roofimage.File{pdfFile("bad.pdf"), {Name: "notes.txt", Data: []byte("x")}})
	assert.Zero(t, n)
	assert.Equal(t, 1, doc.Len())
	assert.Contains(t, buf.String(), "PDF: failed to render: boom")
	assert.Contains(t, buf.String(), "notes.txt")

	n = doc.AddPagesFromFiles(context.Background(), []roofimage.File{{Name: "fake.png", Data: []byte("nope")}})
	assert.Zero(t, n)
}

func TestSetBackgroundAlwaysReplaces(t *testing.T) {
	res := annotation.NewResources()
	contents := fakeContents{}
	doc := New(res, contents, &fakeRaster{pages: 2}, nil)
	id := doc.ActivePageID()
	contents[id] = true

	// Seed a blob background so its release can be observed.
	doc.Replace([]*Page{{ID: id, Name: "old", Background: res.Register("x.png", "image/png", []byte{1}), Map: Map{Enabled: true, Address: "1 Main St", Zoom: 19}, AspectRatio: 2, Rotation: 90}}, id)
	require.Equal(t, 1, res.Live())

	n := doc.SetBackground(context.Background(), pdfFile("elev.pdf"))
	assert.Equal(t, 2, n)
	assert.Zero(t, res.Live())

	pages := doc.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, id, pages[0].ID)
	assert.Equal(t, "elev 1", pages[0].Name)
	assert.False(t, pages[0].Map.Enabled)
	assert.Equal(t, "1 Main St", pages[0].Map.Address)
	assert.Equal(t, 0, pages[0].Rotation)
	assert.Equal(t, id, doc.ActivePageID())
}

func TestPageNavigationAndEdits(t *testing.T) {
	doc := New(annotation.NewResources(), nil, nil, nil)
	first := doc.ActivePageID()

	assert.Equal(t, 90, doc.RotateActivePage())
	assert.InDelta(t, 1/sheet.DefaultAspectRatio, doc.ActiveMetrics().EffectiveAspect, 1e-12)
	w, h := doc.ActiveSheetSize()
	assert.Equal(t, sheet.BaseWidth, w)
	assert.InDelta(t, sheet.BaseWidth*sheet.DefaultAspectRatio, h, 1e-9)
	doc.RotateActivePage()
	doc.RotateActivePage()
	assert.Equal(t, 0, doc.RotateActivePage())

	blank := doc.InsertBlankPageAfter()
	assert.Equal(t, "Page 2", blank.Name)
	assert.Equal(t, blank.ID, doc.ActivePageID())
	assert.False(t, doc.Next())
	assert.True(t, doc.Prev())
	assert.Equal(t, first, doc.ActivePageID())
	assert.False(t, doc.Prev())

	require.NoError(t, doc.RenamePage(first, "  Front  "))
	require.NoError(t, doc.RenamePage(first, "   "))
	p, ok := doc.Page(first)
	require.True(t, ok)
	assert.Equal(t, "Front", p.Name)

	assert.ErrorIs(t, doc.SetActive("missing"), ErrPageNotFound)
	assert.ErrorIs(t, doc.RenamePage("missing", "x"), ErrPageNotFound)

	require.NoError(t, doc.UpdateMap(first, func(m *Map) {
		m.Zoom = 40
		m.Type = "weird"
	}))
	p, _ = doc.Page(first)
	assert.Equal(t, MaxMapZoom, p.Map.Zoom)
	assert.Equal(t, MapRoadmap, p.Map.Type)
}

func TestActiveHasVisual(t *testing.T) {
	doc := New(annotation.NewResources(), nil, nil, nil)
	assert.False(t, doc.ActiveHasVisual())

	// An enabled map without an address has nothing to show.
	require.NoError(t, doc.UpdateMap(doc.ActivePageID(), func(m *Map) { m.Enabled = true }))
	assert.False(t, doc.ActiveHasVisual())
	require.NoError(t, doc.UpdateMap(doc.ActivePageID(), func(m *Map) { m.Address = "Denver" }))
	assert.True(t, doc.ActiveHasVisual())
	assert.Equal(t, VisualMap, ActiveVisual(doc.ActivePage()))
}

func TestClearReleasesBackgrounds(t *testing.T) {
	res := annotation.NewResources()
	doc := New(res, nil, nil, nil)
	a, b := NewPage("a"), NewPage("b")
	a.Background = res.Register("a.png", "image/png", []byte{1})
	b.Background = res.Register("b.png", "image/png", []byte{2})
	doc.Replace([]*Page{a, b}, b.ID)
	assert.Equal(t, b.ID, doc.ActivePageID())

	doc.Clear()
	assert.Zero(t, res.Live())
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, "Page 1", doc.ActivePage().Name)
	assert.NotEqual(t, a.ID, doc.ActivePageID())
}

func TestRasterizePending(t *testing.T) {
	raster := &fakeRaster{pages: 2}
	doc := New(annotation.NewResources(), nil, raster, nil)
	legacy := NewPage("Legacy")
	legacy.Rotation = 180
	legacy.Background = annotation.NewDataPhoto("site.pdf", roofimage.MIMEPDF, []byte("%PDF"))
	doc.Replace([]*Page{legacy}, legacy.ID)

	doc.RasterizePending(context.Background())

	pages := doc.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, legacy.ID, pages[0].ID)
	assert.Equal(t, "site 1", pages[0].Name)
	assert.Equal(t, "site 2", pages[1].Name)
	assert.Equal(t, 180, pages[0].Rotation)
	assert.Equal(t, 180, pages[1].Rotation)
	assert.Equal(t, "image/png", pages[0].Background.MIMEType)

	// Nothing left to do.
	doc.RasterizePending(context.Background())
	assert.Equal(t, int32(1), raster.calls.Load())
}

func TestRasterizePendingFailureClearsBackground(t *testing.T) {
	doc := New(annotation.NewResources(), nil, &fakeRaster{}, log.New(&bytes.Buffer{}, "", 0))
	p := NewPage("Legacy")
	p.Background = annotation.NewDataPhoto("x.pdf", roofimage.MIMEPDF, []byte("%PDF"))
	p.Map.Enabled = true
	doc.Replace([]*Page{p}, p.ID)

	doc.RasterizePending(context.Background())
	got := doc.ActivePage()
	assert.Nil(t, got.Background)
	assert.False(t, got.Map.Enabled)
}

func TestRasterizePendingNeverTwiceAtOnce(t *testing.T) {
	raster := &fakeRaster{pages: 1, gate: make(chan struct{})}
	doc := New(annotation.NewResources(), nil, raster, nil)
	p := NewPage("Legacy")
	p.Background = annotation.NewDataPhoto("x.pdf", roofimage.MIMEPDF, []byte("%PDF"))
	doc.Replace([]*Page{p}, p.ID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		doc.RasterizePending(context.Background())
	}()
	require.Eventually(t, func() bool { return raster.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// The page is claimed, so a second pass skips it.
	doc.RasterizePending(context.Background())
	close(raster.gate)
	wg.Wait()

	assert.Equal(t, int32(1), raster.calls.Load())
	assert.Equal(t, "x", doc.ActivePage().Name)
}

func TestMapPreviewURL(t *testing.T) {
	assert.Empty(t, MapPreviewURL(Map{Zoom: 19}))
	assert.Equal(t,
		"https://maps.google.com/maps?q=12%20Oak%20St%2C%20Austin&z=18&t=m&maptype=roadmap&tilt=0&output=embed",
		MapPreviewURL(Map{Address: "12 Oak St, Austin"}))
	assert.Equal(t,
		"https://maps.google.com/maps?q=Denver&z=20&t=k&maptype=satellite&layer=c&tilt=0&output=embed",
		MapPreviewURL(Map{Address: "Denver", Zoom: 20, Type: MapSatellite}))
}
