package annotation

import (
	"fmt"

	"titanroof/pkg/geometry"
)

// Payload is the type-specific data of an item. Each variant is a pointer to
// one of the structs below.
type Payload interface {
	ItemType() Type
	IsLocked() bool
	SetLocked(locked bool)
	Geometry() []geometry.Point2D
	SetGeometry(points []geometry.Point2D)
	// OwnedPhotos lists every photo held by the payload, including those in
	// sub-records.
	OwnedPhotos() []*Photo
	photoRef(slot Slot) (**Photo, error)
	clone() Payload
}

// Directions available for test squares, wind markers and damage records.
var (
	Directions         = []string{"N", "S", "E", "W", "Ridge", "Hip", "Valley"}
	CardinalDirections = []string{"N", "S", "E", "W"}
	HailSizes          = []string{"1/8", "1/4", "3/8", "1/2", "3/4", "1", "1.25", "1.5", "1.75", "2", "2.5", "3+"}
)

// Appurtenance codes.
var AppurtenanceKinds = []Code{
	{"PS", "Plumbing Stack"},
	{"EF", "Exhaust Fan"},
	{"RV", "Ridge Vent"},
	{"SV", "Static Vent"},
	{"TV", "Turtle Vent"},
	{"CH", "Chimney"},
	{"SK", "Skylight"},
}

// Observation codes.
var ObservationCodes = []Code{
	{"DDM", "Deferred Maintenance"},
	{"DMB", "Material Breakdown"},
	{"DAR", "Aged Repairs"},
	{"DMR", "Mismatched Repairs"},
	{"DIF", "Improper Flashing"},
	{"DII", "Improper Installation"},
	{"ShP", "Premium Shingles"},
}

// Test square condition codes.
var TestSquareConditions = []Code{
	{"HB", "Heat Blister"},
	{"MG", "Area of Missing Granules"},
	{"MP", "Mechanical Puncture/Tear"},
}

// Downspout choices.
var (
	DownspoutMaterials    = []string{"Aluminum", "Steel", "Other / Unknown"}
	DownspoutStyles       = []string{"Box", "Round", "Other / Unknown"}
	DownspoutTerminations = []string{"Into Ground", "Splash Block", "Elbow (Daylight)", "None / Missing", "Other / Unknown"}
)

// Code is a short code with its label.
type Code struct {
	Code  string
	Label string
}

// DamageMode is the kind of hail evidence recorded on an appurtenance or
// downspout.
type DamageMode string

const (
	DamageSpatter DamageMode = "spatter"
	DamageDent    DamageMode = "dent"
	DamageBoth    DamageMode = "both"
)

// DamageEntry is one hail evidence record.
type DamageEntry struct {
	ID    string     `json:"id"`
	Mode  DamageMode `json:"mode"`
	Size  string     `json:"size"`
	Photo *Photo     `json:"photo"`
}

// Bruise is one test square hail bruise.
type Bruise struct {
	ID    string `json:"id"`
	Size  string `json:"size"`
	Photo *Photo `json:"photo"`
}

// Condition is a general test square condition.
type Condition struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Photo *Photo `json:"photo"`
}

// TestSquare is a quadrilateral sample area.
type TestSquare struct {
	Dir           string             `json:"dir"`
	Locked        bool               `json:"locked"`
	Points        []geometry.Point2D `json:"points"`
	Bruises       []Bruise           `json:"bruises"`
	Caption       string             `json:"caption"`
	OverviewPhoto *Photo             `json:"overviewPhoto"`
	Conditions    []Condition        `json:"conditions"`
}

// Appurtenance is a roof fixture marker.
type Appurtenance struct {
	Kind          string        `json:"type"`
	Dir           string        `json:"dir"`
	Locked        bool          `json:"locked"`
	Caption       string        `json:"caption"`
	DetailPhoto   *Photo        `json:"detailPhoto"`
	OverviewPhoto *Photo        `json:"overviewPhoto"`
	DamageEntries []DamageEntry `json:"damageEntries"`
}

// Downspout is a downspout marker. Index is the number drawn on the diagram.
type Downspout struct {
	Index         int           `json:"index"`
	Dir           string        `json:"dir"`
	Locked        bool          `json:"locked"`
	Material      string        `json:"material"`
	Style         string        `json:"style"`
	Termination   string        `json:"termination"`
	Caption       string        `json:"caption"`
	DetailPhoto   *Photo        `json:"detailPhoto"`
	OverviewPhoto *Photo        `json:"overviewPhoto"`
	DamageEntries []DamageEntry `json:"damageEntries"`
}

// WindMarker records wind-damaged shingles.
type WindMarker struct {
	Dir              string `json:"dir"`
	Locked           bool   `json:"locked"`
	CreasedCount     int    `json:"creasedCount"`
	TornMissingCount int    `json:"tornMissingCount"`
	Caption          string `json:"caption"`
	OverviewPhoto    *Photo `json:"overviewPhoto"`
	CreasedPhoto     *Photo `json:"creasedPhoto"`
	TornMissingPhoto *Photo `json:"tornMissingPhoto"`
}

// ObservationKind is the observation geometry.
type ObservationKind string

const (
	ObservationPin   ObservationKind = "pin"
	ObservationArea  ObservationKind = "area"
	ObservationArrow ObservationKind = "arrow"
)

// Observation is a free-form finding drawn as a pin, area or arrow.
type Observation struct {
	Code               string             `json:"code"`
	Locked             bool               `json:"locked"`
	Caption            string             `json:"caption"`
	Photo              *Photo             `json:"photo"`
	Points             []geometry.Point2D `json:"points"`
	Kind               ObservationKind    `json:"kind"`
	Label              string             `json:"label"`
	ArrowType          string             `json:"arrowType"`
	ArrowLabelPosition string             `json:"arrowLabelPosition"`
}

func newPayload(t Type) (Payload, error) {
	switch t {
	case TypeTestSquare:
		return &TestSquare{}, nil
	case TypeAppurtenance:
		return &Appurtenance{}, nil
	case TypeDownspout:
		return &Downspout{}, nil
	case TypeWind:
		return &WindMarker{}, nil
	case TypeObservation:
		return &Observation{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

// Slot addresses a photo field, optionally inside a sub-record.
type Slot struct {
	Field   PhotoField
	EntryID string
}

// PhotoField names a photo-bearing field.
type PhotoField string

const (
	FieldOverview    PhotoField = "overviewPhoto"
	FieldDetail      PhotoField = "detailPhoto"
	FieldCreased     PhotoField = "creasedPhoto"
	FieldTornMissing PhotoField = "tornMissingPhoto"
	FieldPhoto       PhotoField = "photo"
	FieldBruise      PhotoField = "bruise"
	FieldCondition   PhotoField = "condition"
	FieldDamage      PhotoField = "damageEntry"
)

func badSlot(t Type, s Slot) error {
	return fmt.Errorf("%w: %s has no %s", ErrNoSuchField, t, s.Field)
}

// TestSquare

func (d *TestSquare) ItemType() Type                        { return TypeTestSquare }
func (d *TestSquare) IsLocked() bool                        { return d.Locked }
func (d *TestSquare) SetLocked(v bool)                      { d.Locked = v }
func (d *TestSquare) Geometry() []geometry.Point2D          { return d.Points }
func (d *TestSquare) SetGeometry(points []geometry.Point2D) { d.Points = points }

func (d *TestSquare) OwnedPhotos() []*Photo {
	out := []*Photo{d.OverviewPhoto}
	for _, b := range d.Bruises {
		out = append(out, b.Photo)
	}
	for _, c := range d.Conditions {
		out = append(out, c.Photo)
	}
	return compactPhotos(out)
}

func (d *TestSquare) photoRef(s Slot) (**Photo, error) {
	switch s.Field {
	case FieldOverview:
		return &d.OverviewPhoto, nil
	case FieldBruise:
		for i := range d.Bruises {
			if d.Bruises[i].ID == s.EntryID {
				return &d.Bruises[i].Photo, nil
			}
		}
		return nil, fmt.Errorf("%w: bruise %s", ErrEntryNotFound, s.EntryID)
	case FieldCondition:
		for i := range d.Conditions {
			if d.Conditions[i].ID == s.EntryID {
				return &d.Conditions[i].Photo, nil
			}
		}
		return nil, fmt.Errorf("%w: condition %s", ErrEntryNotFound, s.EntryID)
	}
	return nil, badSlot(d.ItemType(), s)
}

func (d *TestSquare) clone() Payload {
	c := *d
	c.Points = geometry.ClonePoints(d.Points)
	c.OverviewPhoto = d.OverviewPhoto.Clone()
	if d.Bruises != nil {
		c.Bruises = make([]Bruise, len(d.Bruises))
		for i, b := range d.Bruises {
			b.Photo = b.Photo.Clone()
			c.Bruises[i] = b
		}
	}
	if d.Conditions != nil {
		c.Conditions = make([]Condition, len(d.Conditions))
		for i, cond := range d.Conditions {
			cond.Photo = cond.Photo.Clone()
			c.Conditions[i] = cond
		}
	}
	return &c
}

// Appurtenance

func (d *Appurtenance) ItemType() Type                 { return TypeAppurtenance }
func (d *Appurtenance) IsLocked() bool                 { return d.Locked }
func (d *Appurtenance) SetLocked(v bool)               { d.Locked = v }
func (d *Appurtenance) Geometry() []geometry.Point2D   { return nil }
func (d *Appurtenance) SetGeometry([]geometry.Point2D) {}
func (d *Appurtenance) OwnedPhotos() []*Photo {
	return compactPhotos(append([]*Photo{d.DetailPhoto, d.OverviewPhoto}, entryPhotos(d.DamageEntries)...))
}

func (d *Appurtenance) photoRef(s Slot) (**Photo, error) {
	switch s.Field {
	case FieldDetail:
		return &d.DetailPhoto, nil
	case FieldOverview:
		return &d.OverviewPhoto, nil
	case FieldDamage:
		return damagePhotoRef(d.DamageEntries, s.EntryID)
	}
	return nil, badSlot(d.ItemType(), s)
}

func (d *Appurtenance) clone() Payload {
	c := *d
	c.DetailPhoto = d.DetailPhoto.Clone()
	c.OverviewPhoto = d.OverviewPhoto.Clone()
	c.DamageEntries = cloneEntries(d.DamageEntries)
	return &c
}

// Downspout

func (d *Downspout) ItemType() Type                 { return TypeDownspout }
func (d *Downspout) IsLocked() bool                 { return d.Locked }
func (d *Downspout) SetLocked(v bool)               { d.Locked = v }
func (d *Downspout) Geometry() []geometry.Point2D   { return nil }
func (d *Downspout) SetGeometry([]geometry.Point2D) {}
func (d *Downspout) OwnedPhotos() []*Photo {
	return compactPhotos(append([]*Photo{d.DetailPhoto, d.OverviewPhoto}, entryPhotos(d.DamageEntries)...))
}

func (d *Downspout) photoRef(s Slot) (**Photo, error) {
	switch s.Field {
	case FieldDetail:
		return &d.DetailPhoto, nil
	case FieldOverview:
		return &d.OverviewPhoto, nil
	case FieldDamage:
		return damagePhotoRef(d.DamageEntries, s.EntryID)
	}
	return nil, badSlot(d.ItemType(), s)
}

func (d *Downspout) clone() Payload {
	c := *d
	c.DetailPhoto = d.DetailPhoto.Clone()
	c.OverviewPhoto = d.OverviewPhoto.Clone()
	c.DamageEntries = cloneEntries(d.DamageEntries)
	return &c
}

// WindMarker

func (d *WindMarker) ItemType() Type                 { return TypeWind }
func (d *WindMarker) IsLocked() bool                 { return d.Locked }
func (d *WindMarker) SetLocked(v bool)               { d.Locked = v }
func (d *WindMarker) Geometry() []geometry.Point2D   { return nil }
func (d *WindMarker) SetGeometry([]geometry.Point2D) {}
func (d *WindMarker) OwnedPhotos() []*Photo {
	return compactPhotos([]*Photo{d.OverviewPhoto, d.CreasedPhoto, d.TornMissingPhoto})
}

func (d *WindMarker) photoRef(s Slot) (**Photo, error) {
	switch s.Field {
	case FieldOverview:
		return &d.OverviewPhoto, nil
	case FieldCreased:
		return &d.CreasedPhoto, nil
	case FieldTornMissing:
		return &d.TornMissingPhoto, nil
	}
	return nil, badSlot(d.ItemType(), s)
}

func (d *WindMarker) clone() Payload {
	c := *d
	c.OverviewPhoto = d.OverviewPhoto.Clone()
	c.CreasedPhoto = d.CreasedPhoto.Clone()
	c.TornMissingPhoto = d.TornMissingPhoto.Clone()
	return &c
}

// Observation

func (d *Observation) ItemType() Type                        { return TypeObservation }
func (d *Observation) IsLocked() bool                        { return d.Locked }
func (d *Observation) SetLocked(v bool)                      { d.Locked = v }
func (d *Observation) Geometry() []geometry.Point2D          { return d.Points }
func (d *Observation) SetGeometry(points []geometry.Point2D) { d.Points = points }
func (d *Observation) OwnedPhotos() []*Photo                 { return compactPhotos([]*Photo{d.Photo}) }

func (d *Observation) photoRef(s Slot) (**Photo, error) {
	if s.Field == FieldPhoto {
		return &d.Photo, nil
	}
	return nil, badSlot(d.ItemType(), s)
}

func (d *Observation) clone() Payload {
	c := *d
	c.Points = geometry.ClonePoints(d.Points)
	c.Photo = d.Photo.Clone()
	return &c
}

func damagePhotoRef(entries []DamageEntry, id string) (**Photo, error) {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i].Photo, nil
		}
	}
	return nil, fmt.Errorf("%w: damage entry %s", ErrEntryNotFound, id)
}

func entryPhotos(entries []DamageEntry) []*Photo {
	out := make([]*Photo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Photo)
	}
	return out
}

func cloneEntries(entries []DamageEntry) []DamageEntry {
	if entries == nil {
		return nil
	}
	out := make([]DamageEntry, len(entries))
	for i, e := range entries {
		e.Photo = e.Photo.Clone()
		out[i] = e
	}
	return out
}

func compactPhotos(photos []*Photo) []*Photo {
	out := photos[:0]
	for _, p := range photos {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
