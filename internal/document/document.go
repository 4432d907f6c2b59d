package document

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"titanroof/internal/annotation"
	roofimage "titanroof/internal/image"
	"titanroof/internal/sheet"
)

// ErrPageNotFound is returned for unknown page IDs.
var ErrPageNotFound = errors.New("page not found")

// Contents reports whether a page has items on it.
type Contents interface {
	HasItemsOnPage(pageID string) bool
}

// Document is the ordered page list with one active page. It is safe for
// concurrent use.
type Document struct {
	mu        sync.RWMutex
	pages     []*Page
	activeID  string
	resources *annotation.Resources
	contents  Contents
	raster    Rasterizer
	logger    *log.Logger

	rasterMu sync.Mutex
	inflight map[string]bool
}

// New creates a document with one blank page. raster and logger may be nil.
func New(resources *annotation.Resources, contents Contents, raster Rasterizer, logger *log.Logger) *Document {
	if raster == nil {
		raster = NoRasterizer{}
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Document{
		resources: resources,
		contents:  contents,
		raster:    raster,
		logger:    logger,
		inflight:  make(map[string]bool),
	}
	first := NewPage("Page 1")
	d.pages = []*Page{first}
	d.activeID = first.ID
	return d
}

// Pages returns copies of all pages in order.
func (d *Document) Pages() []*Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the page count.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages)
}

// Page returns a copy of the page with the given ID.
func (d *Document) Page(id string) (*Page, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexLocked(id); i >= 0 {
		return d.pages[i].Clone(), true
	}
	return nil, false
}

// ActivePage returns a copy of the active page.
func (d *Document) ActivePage() *Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeLocked().Clone()
}

// ActivePageID returns the active page ID.
func (d *Document) ActivePageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeID
}

// ActiveIndex returns the active page's position.
func (d *Document) ActiveIndex() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return max(0, d.indexLocked(d.activeID))
}

// ActiveHasVisual reports whether the active page shows a background or an
// addressed map.
func (d *Document) ActiveHasVisual() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeLocked().HasBackground()
}

// ActiveSheetSize returns the active sheet size in sheet pixels.
func (d *Document) ActiveSheetSize() (w, h float64) {
	m := d.ActiveMetrics()
	return m.Width, m.Height
}

// ActiveMetrics returns the active page's sheet metrics.
func (d *Document) ActiveMetrics() sheet.Metrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeLocked().Metrics()
}

func (d *Document) indexLocked(id string) int {
	for i, p := range d.pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// activeLocked returns the active page, falling back to the first.
func (d *Document) activeLocked() *Page {
	if i := d.indexLocked(d.activeID); i >= 0 {
		return d.pages[i]
	}
	return d.pages[0]
}

// SetActive activates a page.
func (d *Document) SetActive(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexLocked(id) < 0 {
		return fmt.Errorf("activate %s: %w", id, ErrPageNotFound)
	}
	d.activeID = id
	return nil
}

// Next activates the following page. It reports false on the last page.
func (d *Document) Next() bool {
	return d.step(1)
}

// Prev activates the preceding page. It reports false on the first page.
func (d *Document) Prev() bool {
	return d.step(-1)
}

func (d *Document) step(delta int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(d.activeID) + delta
	if i < 0 || i >= len(d.pages) {
		return false
	}
	d.activeID = d.pages[i].ID
	return true
}

// Replace swaps in a full page list, as when loading a project. Backgrounds
// of the old pages are released. An unknown activeID selects the first page.
func (d *Document) Replace(pages []*Page, activeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pages {
		d.resources.Release(p.Background)
	}
	if len(pages) == 0 {
		pages = []*Page{NewPage("Page 1")}
	}
	d.pages = make([]*Page, len(pages))
	for i, p := range pages {
		d.pages[i] = p.Clone()
	}
	d.activeID = activeID
	if d.indexLocked(activeID) < 0 {
		d.activeID = d.pages[0].ID
	}
}

// Clear releases every background and resets to a single blank page.
func (d *Document) Clear() {
	d.Replace(nil, "")
}

// RenamePage renames a page. A blank name keeps the current one.
func (d *Document) RenamePage(id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("rename %s: %w", id, ErrPageNotFound)
	}
	if name = strings.TrimSpace(name); name != "" {
		d.pages[i].Name = name
	}
	return nil
}

// UpdateMap applies patch to a page's map settings. The zoom is clamped.
func (d *Document) UpdateMap(id string, patch func(m *Map)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("update map %s: %w", id, ErrPageNotFound)
	}
	m := d.pages[i].Map
	patch(&m)
	m.Zoom = min(max(m.Zoom, MinMapZoom), MaxMapZoom)
	if m.Type != MapSatellite {
		m.Type = MapRoadmap
	}
	d.pages[i].Map = m
	return nil
}

// RotateActivePage turns the active page a quarter turn clockwise and
// returns the new rotation.
func (d *Document) RotateActivePage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.activeLocked()
	p.Rotation = (p.Rotation + 90) % 360
	return p.Rotation
}

// InsertBlankPageAfter adds an empty page after the active one, inheriting
// its aspect ratio, and activates it.
func (d *Document) InsertBlankPageAfter() *Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	active := d.activeLocked()
	p := NewPage(fmt.Sprintf("Page %d", len(d.pages)+1))
	if active.AspectRatio > 0 {
		p.AspectRatio = active.AspectRatio
	}
	d.insertLocked(d.indexLocked(active.ID)+1, p)
	d.activeID = p.ID
	return p.Clone()
}

func (d *Document) insertLocked(at int, pages ...*Page) {
	at = min(max(at, 0), len(d.pages))
	next := make([]*Page, 0, len(d.pages)+len(pages))
	next = append(next, d.pages[:at]...)
	next = append(next, pages...)
	next = append(next, d.pages[at:]...)
	d.pages = next
}

// replaceLocked puts first's content into the page at index i, keeping its
// ID and map address, and inserts rest after it.
func (d *Document) replaceLocked(i int, first *Page, rest []*Page) {
	target := d.pages[i]
	d.resources.Release(target.Background)
	target.Name = first.Name
	target.Background = first.Background
	target.Map.Enabled = false
	target.AspectRatio = first.AspectRatio
	if !(target.AspectRatio > 0) {
		target.AspectRatio = sheet.DefaultAspectRatio
	}
	target.Rotation = first.Rotation
	if len(rest) > 0 {
		d.insertLocked(i+1, rest...)
	}
}

// AddPagesFromFiles builds pages from uploaded files: one per image, one per
// PDF page. When the active page is empty the first new page replaces it;
// otherwise the pages go after the active page and the first becomes
// active. It returns the number of pages built.
func (d *Document) AddPagesFromFiles(ctx context.Context, files []roofimage.File) int {
	if len(files) == 0 {
		return 0
	}
	offset := d.Len()
	var prepared []*Page
	for _, f := range files {
		pages := d.buildPages(ctx, f, offset)
		prepared = append(prepared, pages...)
		offset += len(pages)
	}
	if len(prepared) == 0 {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	active := d.activeLocked()
	hasContent := (active.Background != nil && active.Background.URL != "") ||
		active.Map.Enabled ||
		(d.contents != nil && d.contents.HasItemsOnPage(active.ID))

	i := d.indexLocked(active.ID)
	if !hasContent {
		d.replaceLocked(i, prepared[0], prepared[1:])
	} else {
		d.insertLocked(i+1, prepared...)
		d.activeID = prepared[0].ID
	}
	return len(prepared)
}

// SetBackground loads a file onto the active page, replacing whatever it
// showed. Extra PDF pages go after it.
func (d *Document) SetBackground(ctx context.Context, f roofimage.File) int {
	pages := d.buildPages(ctx, f, d.ActiveIndex())
	if len(pages) == 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceLocked(d.indexLocked(d.activeLocked().ID), pages[0], pages[1:])
	return len(pages)
}

// buildPages turns one upload into pages. base is the page index used for
// fallback names. Failures are logged and yield no pages.
func (d *Document) buildPages(ctx context.Context, f roofimage.File, base int) []*Page {
	name := f.BaseName()
	if f.IsPDF() {
		return d.pdfPages(ctx, f.Data, name, base, 0)
	}
	if !f.IsImage() {
		d.logger.Printf("Pages: skipping %q: %v", f.Name, roofimage.ErrUnsupported)
		return nil
	}
	if _, err := roofimage.AspectRatio(f.Data); err != nil {
		d.logger.Printf("Pages: skipping %q: %v", f.Name, err)
		return nil
	}
	if name == "" {
		name = fmt.Sprintf("Page %d", base+1)
	}
	p := NewPage(name)
	p.Background = annotation.NewDataPhoto(f.Name, f.DetectMIME(), f.Data)
	return []*Page{p}
}

// pdfPages rasterizes a PDF into pages named "{name} {n}", or just name for
// a single page.
func (d *Document) pdfPages(ctx context.Context, pdf []byte, name string, base, rotation int) []*Page {
	rendered, err := d.raster.Rasterize(ctx, pdf)
	if err != nil {
		d.logger.Printf("PDF: failed to render: %v", err)
		return nil
	}
	if len(rendered) == 0 {
		d.logger.Printf("PDF: render returned no pages")
		return nil
	}

	pages := make([]*Page, 0, len(rendered))
	for idx, r := range rendered {
		data, err := roofimage.EncodePNG(r.Image)
		if err != nil {
			d.logger.Printf("PDF: page %d: %v", idx+1, err)
			continue
		}
		var pageName string
		switch {
		case len(rendered) > 1:
			pageName = fmt.Sprintf("%s %d", name, idx+1)
		case name != "":
			pageName = name
		default:
			pageName = fmt.Sprintf("Page %d", base+idx+1)
		}
		p := NewPage(pageName)
		p.Background = annotation.NewDataPhoto(fmt.Sprintf("%s page %d", name, idx+1), "image/png", data)
		p.AspectRatio = sheet.LetterAspectRatio
		if r.Width > 0 && r.Height > 0 {
			p.AspectRatio = float64(r.Width) / float64(r.Height)
		}
		p.Rotation = rotation
		pages = append(pages, p)
	}
	return pages
}

// RasterizePending renders every page whose background is still a PDF,
// as left by older project files. A page is never rendered twice at once.
// A PDF that fails to render is dropped from its page.
func (d *Document) RasterizePending(ctx context.Context) {
	for _, p := range d.Pages() {
		if ctx.Err() != nil {
			return
		}
		bg := p.Background
		if bg == nil || bg.MIMEType != roofimage.MIMEPDF || bg.URL == "" {
			continue
		}
		if !d.claim(p.ID) {
			continue
		}
		d.rasterizePage(ctx, p)
		d.release(p.ID)
	}
}

func (d *Document) claim(id string) bool {
	d.rasterMu.Lock()
	defer d.rasterMu.Unlock()
	if d.inflight[id] {
		return false
	}
	d.inflight[id] = true
	return true
}

func (d *Document) release(id string) {
	d.rasterMu.Lock()
	delete(d.inflight, id)
	d.rasterMu.Unlock()
}

func (d *Document) rasterizePage(ctx context.Context, p *Page) {
	var pages []*Page
	data, err := d.resources.Open(p.Background)
	if err != nil {
		d.logger.Printf("PDF: page %q: %v", p.Name, err)
	} else {
		name := p.Background.Name
		if name == "" {
			name = p.Name
		}
		name = roofimage.File{Name: name}.BaseName()
		pages = d.pdfPages(ctx, data, name, d.indexOf(p.ID), p.Rotation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(p.ID)
	if i < 0 {
		return
	}
	if len(pages) == 0 {
		target := d.pages[i]
		d.resources.Release(target.Background)
		target.Background = nil
		target.Map.Enabled = false
		return
	}
	d.replaceLocked(i, pages[0], pages[1:])
}

func (d *Document) indexOf(id string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return max(0, d.indexLocked(id))
}
