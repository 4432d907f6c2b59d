package annotation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"titanroof/pkg/geometry"
)

var (
	ErrUnknownType   = errors.New("annotation: unknown type")
	ErrItemNotFound  = errors.New("annotation: item not found")
	ErrEntryNotFound = errors.New("annotation: entry not found")
	ErrNoSuchField   = errors.New("annotation: no such photo field")
	ErrWrongType     = errors.New("annotation: operation not valid for item type")
)

// Defaults for new items.
const (
	DefaultDir          = "N"
	DefaultSize         = "1/4"
	DefaultAptKind      = "EF"
	DefaultObsCode      = "DDM"
	DefaultCondition    = "HB"
	DefaultArrowType    = "triangle"
	DefaultArrowLabel   = "end"
	DefaultMaterial     = "Aluminum"
	DefaultStyle        = "Box"
	DefaultTermination  = "Into Ground"
	defaultCreasedCount = 1
)

// Placement is where a new item goes: a single point, or polygon/arrow
// vertices. With neither set the item is centered on the sheet.
type Placement struct {
	At     *geometry.Point2D
	Points []geometry.Point2D
}

// AtPoint places an item at p.
func AtPoint(p geometry.Point2D) Placement {
	return Placement{At: &p}
}

// WithPoints places an item by its vertices.
func WithPoints(points []geometry.Point2D) Placement {
	return Placement{Points: points}
}

// Options tunes creation.
type Options struct {
	ObservationKind ObservationKind
}

// NewID returns a fresh identifier for items, pages and sub-records.
func NewID() string {
	return uuid.NewString()
}

// NewItem builds an item of type t on pageID, naming it from counters. The
// anchor is the placement point, the bounding-box center of the placement
// vertices, or (0.5, 0.5).
func NewItem(t Type, pageID string, at Placement, opts Options, counters *Counters) (*Item, error) {
	payload, err := newPayload(t)
	if err != nil {
		return nil, err
	}

	it := &Item{
		ID:     NewID(),
		Type:   t,
		PageID: pageID,
		X:      0.5,
		Y:      0.5,
	}
	if at.At != nil {
		it.X, it.Y = at.At.X, at.At.Y
	}
	points := geometry.ClonePoints(at.Points)
	if len(points) > 0 {
		box, err := geometry.BoundingBox(points)
		if err != nil {
			return nil, fmt.Errorf("placement: %w", err)
		}
		c := box.Center()
		it.X, it.Y = c.X, c.Y
	}

	n := counters.Next(t)
	it.Name = fmt.Sprintf("%s-%d", t.Prefix(), n)

	switch d := payload.(type) {
	case *TestSquare:
		d.Dir = DefaultDir
		d.Points = points
		d.Bruises = []Bruise{}
		d.Conditions = []Condition{}
	case *Appurtenance:
		d.Kind = DefaultAptKind
		d.Dir = DefaultDir
		d.DamageEntries = []DamageEntry{}
	case *Downspout:
		d.Index = n
		d.Dir = DefaultDir
		d.Material = DefaultMaterial
		d.Style = DefaultStyle
		d.Termination = DefaultTermination
		d.DamageEntries = []DamageEntry{}
	case *WindMarker:
		d.Dir = DefaultDir
		d.CreasedCount = defaultCreasedCount
	case *Observation:
		d.Code = DefaultObsCode
		if len(points) > 0 {
			d.Points = points
		}
		d.Kind = opts.ObservationKind
		if d.Kind == "" {
			d.Kind = ObservationPin
		}
		d.ArrowType = DefaultArrowType
		d.ArrowLabelPosition = DefaultArrowLabel
	}
	it.Data = payload
	return it, nil
}

// DropEmptyPhotos clears photo references that have no URL, as left behind
// by decoding partial project files.
func (it *Item) DropEmptyPhotos() {
	switch d := it.Data.(type) {
	case *TestSquare:
		d.OverviewPhoto = Revive(d.OverviewPhoto)
		for i := range d.Bruises {
			d.Bruises[i].Photo = Revive(d.Bruises[i].Photo)
		}
		for i := range d.Conditions {
			d.Conditions[i].Photo = Revive(d.Conditions[i].Photo)
		}
	case *Appurtenance:
		d.DetailPhoto = Revive(d.DetailPhoto)
		d.OverviewPhoto = Revive(d.OverviewPhoto)
		reviveEntries(d.DamageEntries)
	case *Downspout:
		d.DetailPhoto = Revive(d.DetailPhoto)
		d.OverviewPhoto = Revive(d.OverviewPhoto)
		reviveEntries(d.DamageEntries)
	case *WindMarker:
		d.OverviewPhoto = Revive(d.OverviewPhoto)
		d.CreasedPhoto = Revive(d.CreasedPhoto)
		d.TornMissingPhoto = Revive(d.TornMissingPhoto)
	case *Observation:
		d.Photo = Revive(d.Photo)
	}
}

func reviveEntries(entries []DamageEntry) {
	for i := range entries {
		entries[i].Photo = Revive(entries[i].Photo)
	}
}
