package project

import (
	"encoding/json"
	"errors"
	"fmt"

	"titanroof/internal/annotation"
	"titanroof/internal/document"
	"titanroof/internal/sheet"
)

// ErrMissingRoof is returned for snapshots without a roof section. Such
// data is not a project and is not applied.
var ErrMissingRoof = errors.New("snapshot has no roof section")

// Defaults for report fields.
const (
	DefaultResidenceName = "Enter Name"
	DefaultFrontFaces    = "North"
)

// Roof describes the roof covering. DiagramBg and Map only appear in files
// written before pages existed.
type Roof struct {
	Covering        string            `json:"covering"`
	ShingleKind     string            `json:"shingleKind"`
	ShingleLength   string            `json:"shingleLength"`
	ShingleExposure string            `json:"shingleExposure"`
	MetalKind       string            `json:"metalKind"`
	MetalPanelWidth string            `json:"metalPanelWidth"`
	OtherDesc       string            `json:"otherDesc"`
	DiagramBg       *annotation.Photo `json:"diagramBg,omitempty"`
	Map             *document.Map     `json:"map,omitempty"`
}

// DefaultRoof returns the roof a new project starts with.
func DefaultRoof() Roof {
	return Roof{
		Covering:        "SHINGLE",
		ShingleKind:     "LAM",
		ShingleLength:   "36 inch width",
		ShingleExposure: "5 inch exposure",
		MetalKind:       "SS",
		MetalPanelWidth: "24 inch",
	}
}

// ExteriorPhoto is an elevation photo attached to the report.
type ExteriorPhoto struct {
	ID          string            `json:"id"`
	Orientation string            `json:"orientation"`
	Notes       string            `json:"notes"`
	Photo       *annotation.Photo `json:"photo"`
}

// NewExteriorPhoto returns an empty north-facing entry.
func NewExteriorPhoto() ExteriorPhoto {
	return ExteriorPhoto{ID: annotation.NewID(), Orientation: DefaultFrontFaces}
}

// Snapshot is the complete persisted state of a project.
type Snapshot struct {
	ResidenceName  string             `json:"residenceName"`
	FrontFaces     string             `json:"frontFaces"`
	Roof           Roof               `json:"roof"`
	Pages          []*document.Page   `json:"pages"`
	ActivePageID   string             `json:"activePageId"`
	Items          []*annotation.Item `json:"items"`
	Counts         map[string]int     `json:"counts"`
	ReportData     json.RawMessage    `json:"reportData,omitempty"`
	ExteriorPhotos []ExteriorPhoto    `json:"exteriorPhotos"`
}

// Counters returns the counts keyed by item type.
func (s *Snapshot) Counters() map[annotation.Type]int {
	out := make(map[annotation.Type]int, len(annotation.Types))
	for _, t := range annotation.Types {
		out[t] = s.Counts[string(t)]
	}
	return out
}

// Marshal encodes the snapshot. Transient photos are written as null.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// rawSnapshot is the decoding shape, tolerant of missing sections.
type rawSnapshot struct {
	ResidenceName  string            `json:"residenceName"`
	FrontFaces     string            `json:"frontFaces"`
	Roof           json.RawMessage   `json:"roof"`
	Pages          []json.RawMessage `json:"pages"`
	ActivePageID   string            `json:"activePageId"`
	Items          []map[string]any  `json:"items"`
	Counts         map[string]*int   `json:"counts"`
	ReportData     json.RawMessage   `json:"reportData"`
	ExteriorPhotos []ExteriorPhoto   `json:"exteriorPhotos"`
}

// Unmarshal decodes a snapshot of any known vintage, filling defaults and
// upgrading legacy item shapes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(raw.Roof) == 0 || string(raw.Roof) == "null" {
		return nil, ErrMissingRoof
	}

	s := &Snapshot{
		ResidenceName: raw.ResidenceName,
		FrontFaces:    raw.FrontFaces,
		Roof:          DefaultRoof(),
		ReportData:    raw.ReportData,
	}
	if s.ResidenceName == "" {
		s.ResidenceName = DefaultResidenceName
	}
	if s.FrontFaces == "" {
		s.FrontFaces = DefaultFrontFaces
	}
	if err := json.Unmarshal(raw.Roof, &s.Roof); err != nil {
		return nil, fmt.Errorf("decode roof: %w", err)
	}
	s.Roof.DiagramBg = annotation.Revive(s.Roof.DiagramBg)
	if string(s.ReportData) == "null" {
		s.ReportData = nil
	}

	pages, err := decodePages(raw.Pages, s.Roof)
	if err != nil {
		return nil, err
	}
	s.Pages = pages
	s.ActivePageID = raw.ActivePageID
	if s.ActivePageID == "" {
		s.ActivePageID = pages[0].ID
	}

	s.Items = make([]*annotation.Item, 0, len(raw.Items))
	for i, m := range raw.Items {
		it, err := decodeItem(m, s.ActivePageID)
		if errors.Is(err, annotation.ErrUnknownType) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		s.Items = append(s.Items, it)
	}

	if raw.Counts != nil {
		s.Counts = restoreCounts(raw.Counts)
	} else {
		s.Counts = countsByName(annotation.RecomputeCounters(s.Items))
	}

	s.ExteriorPhotos = make([]ExteriorPhoto, 0, len(raw.ExteriorPhotos))
	for _, e := range raw.ExteriorPhotos {
		e.Photo = annotation.Revive(e.Photo)
		s.ExteriorPhotos = append(s.ExteriorPhotos, e)
	}
	return s, nil
}

func decodePages(raws []json.RawMessage, roof Roof) ([]*document.Page, error) {
	if len(raws) == 0 {
		p := document.NewPage("Page 1")
		p.Background = annotation.Revive(roof.DiagramBg)
		if roof.Map != nil {
			p.Map = mergeMap(*roof.Map)
		}
		return []*document.Page{p}, nil
	}

	pages := make([]*document.Page, 0, len(raws))
	for i, r := range raws {
		p := &document.Page{Map: document.DefaultMap()}
		if err := json.Unmarshal(r, p); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		p.Background = annotation.Revive(p.Background)
		if !(p.AspectRatio > 0) {
			p.AspectRatio = sheet.DefaultAspectRatio
		}
		if p.ID == "" {
			p.ID = annotation.NewID()
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// mergeMap fills zero fields of a legacy map with defaults.
func mergeMap(m document.Map) document.Map {
	if m.Zoom == 0 {
		m.Zoom = document.DefaultMapZoom
	}
	if m.Type == "" {
		m.Type = document.MapRoadmap
	}
	return m
}

func decodeItem(m map[string]any, fallbackPageID string) (*annotation.Item, error) {
	upgradeItem(m, fallbackPageID)
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var it annotation.Item
	if err := json.Unmarshal(b, &it); err != nil {
		return nil, err
	}
	it.DropEmptyPhotos()
	return &it, nil
}

// restoreCounts reads persisted counters, defaulting missing ones to 1 and
// honoring the legacy "app" key.
func restoreCounts(in map[string]*int) map[string]int {
	out := make(map[string]int, len(annotation.Types))
	for _, t := range annotation.Types {
		v := in[string(t)]
		if v == nil && t == annotation.TypeAppurtenance {
			v = in["app"]
		}
		if v == nil {
			out[string(t)] = 1
			continue
		}
		out[string(t)] = *v
	}
	return out
}

func countsByName(in map[annotation.Type]int) map[string]int {
	out := make(map[string]int, len(in))
	for t, n := range in {
		out[string(t)] = n
	}
	return out
}
