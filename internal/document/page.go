// Package document holds the ordered pages of a diagram and their
// backgrounds, including PDF fan-out and deferred rasterization.
package document

import (
	"fmt"
	"net/url"
	"strings"

	"titanroof/internal/annotation"
	"titanroof/internal/sheet"
)

// MapType selects the map imagery.
type MapType string

const (
	MapRoadmap   MapType = "map"
	MapSatellite MapType = "satellite"
)

// Map zoom limits.
const (
	DefaultMapZoom = 18
	MinMapZoom     = 18
	MaxMapZoom     = 21
)

// Map is a live map background.
type Map struct {
	Enabled bool    `json:"enabled"`
	Address string  `json:"address"`
	Zoom    int     `json:"zoom"`
	Type    MapType `json:"type"`
}

// DefaultMap returns a disabled map at the default zoom.
func DefaultMap() Map {
	return Map{Zoom: DefaultMapZoom, Type: MapRoadmap}
}

// Page is one diagram sheet.
type Page struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Background  *annotation.Photo `json:"background"`
	Map         Map               `json:"map"`
	AspectRatio float64           `json:"aspectRatio"`
	Rotation    int               `json:"rotation"`
}

// NewPage returns an empty page with defaults.
func NewPage(name string) *Page {
	return &Page{
		ID:          annotation.NewID(),
		Name:        name,
		Map:         DefaultMap(),
		AspectRatio: sheet.DefaultAspectRatio,
	}
}

// Clone returns a deep copy.
func (p *Page) Clone() *Page {
	c := *p
	c.Background = p.Background.Clone()
	return &c
}

// Metrics returns the page's sheet size.
func (p *Page) Metrics() sheet.Metrics {
	return sheet.MetricsFor(p.AspectRatio, p.Rotation)
}

// Visual is the rendered source of a page.
type Visual int

const (
	VisualNone Visual = iota
	VisualMap
	VisualBackground
)

// ActiveVisual returns what a page renders. An enabled map wins over the
// background.
func ActiveVisual(p *Page) Visual {
	switch {
	case p == nil:
		return VisualNone
	case p.Map.Enabled:
		return VisualMap
	case p.Background != nil && p.Background.URL != "":
		return VisualBackground
	}
	return VisualNone
}

// HasBackground reports whether the page shows something, counting the map
// only when it has an address to show.
func (p *Page) HasBackground() bool {
	if p.Background != nil && p.Background.URL != "" {
		return true
	}
	return p.Map.Enabled && MapPreviewURL(p.Map) != ""
}

// MapPreviewURL formats the embeddable map URL for m, or "" without an
// address.
func MapPreviewURL(m Map) string {
	if m.Address == "" {
		return ""
	}
	zoom := m.Zoom
	if zoom == 0 {
		zoom = DefaultMapZoom
	}
	t, params := "m", "maptype=roadmap&tilt=0"
	if m.Type == MapSatellite {
		t, params = "k", "maptype=satellite&layer=c&tilt=0"
	}
	return fmt.Sprintf("https://maps.google.com/maps?q=%s&z=%d&t=%s&%s&output=embed",
		strings.ReplaceAll(url.QueryEscape(m.Address), "+", "%20"), zoom, t, params)
}
