// Package annotation models the markers placed on diagram pages and the
// store that owns them.
package annotation

import (
	"encoding/json"
	"fmt"

	"titanroof/pkg/geometry"
)

// Type identifies an annotation variant.
type Type string

const (
	TypeTestSquare   Type = "ts"
	TypeAppurtenance Type = "apt"
	TypeDownspout    Type = "ds"
	TypeWind         Type = "wind"
	TypeObservation  Type = "obs"
)

// Types lists every variant in toolbar order.
var Types = []Type{TypeTestSquare, TypeAppurtenance, TypeDownspout, TypeWind, TypeObservation}

// Prefix returns the name prefix used when numbering items of this type.
func (t Type) Prefix() string {
	switch t {
	case TypeTestSquare:
		return "TS"
	case TypeAppurtenance:
		return "APT"
	case TypeDownspout:
		return "DS"
	case TypeWind:
		return "WIND"
	case TypeObservation:
		return "OBS"
	}
	return ""
}

// Valid reports whether t is a known variant.
func (t Type) Valid() bool {
	return t.Prefix() != ""
}

// Label returns a human readable name.
func (t Type) Label() string {
	switch t {
	case TypeTestSquare:
		return "Test Square"
	case TypeAppurtenance:
		return "Appurtenance"
	case TypeDownspout:
		return "Downspout"
	case TypeWind:
		return "Wind"
	case TypeObservation:
		return "Observation"
	}
	return string(t)
}

// Item is a placed annotation. X and Y are the normalized anchor; polygon
// and arrow geometry lives in Data.
type Item struct {
	ID     string
	Type   Type
	Name   string
	PageID string
	X      float64
	Y      float64
	Data   Payload
}

// Position returns the normalized anchor.
func (it *Item) Position() geometry.Point2D {
	return geometry.Point2D{X: it.X, Y: it.Y}
}

// Locked reports whether pointer moves and reshapes are disabled.
func (it *Item) Locked() bool {
	return it.Data != nil && it.Data.IsLocked()
}

// Points returns the polygon or arrow vertices, or nil for point markers.
func (it *Item) Points() []geometry.Point2D {
	if it.Data == nil {
		return nil
	}
	return it.Data.Geometry()
}

// Shape classifies how an item is drawn and hit-tested.
type Shape int

const (
	ShapeMarker Shape = iota
	ShapePolygon
	ShapeArrow
)

// Shape returns the item's shape class. Test squares are always polygons;
// observations follow their kind when they carry geometry.
func (it *Item) Shape() Shape {
	switch d := it.Data.(type) {
	case *TestSquare:
		return ShapePolygon
	case *Observation:
		if d.Kind == ObservationArea && len(d.Points) > 0 {
			return ShapePolygon
		}
		if d.Kind == ObservationArrow && len(d.Points) == 2 {
			return ShapeArrow
		}
	}
	return ShapeMarker
}

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	c := *it
	if it.Data != nil {
		c.Data = it.Data.clone()
	}
	return &c
}

type itemJSON struct {
	ID     string          `json:"id"`
	Type   Type            `json:"type"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	PageID string          `json:"pageId"`
}

// MarshalJSON writes the item in project file shape.
func (it Item) MarshalJSON() ([]byte, error) {
	data := []byte("{}")
	if it.Data != nil {
		var err error
		if data, err = json.Marshal(it.Data); err != nil {
			return nil, fmt.Errorf("item %s data: %w", it.ID, err)
		}
	}
	return json.Marshal(itemJSON{
		ID:     it.ID,
		Type:   it.Type,
		Name:   it.Name,
		Data:   data,
		X:      it.X,
		Y:      it.Y,
		PageID: it.PageID,
	})
}

// UnmarshalJSON reads an item in current project file shape. Legacy shapes
// must be upgraded before decoding.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	payload, err := newPayload(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("item %s data: %w", raw.ID, err)
		}
	}
	*it = Item{
		ID:     raw.ID,
		Type:   raw.Type,
		Name:   raw.Name,
		PageID: raw.PageID,
		X:      raw.X,
		Y:      raw.Y,
		Data:   payload,
	}
	return nil
}
