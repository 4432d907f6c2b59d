package annotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/pkg/geometry"
)

const page = "page-1"

func mustItem(t *testing.T, typ Type, at Placement, opts Options, c *Counters) *Item {
	t.Helper()
	it, err := NewItem(typ, page, at, opts, c)
	require.NoError(t, err)
	return it
}

func TestNewItemDefaults(t *testing.T) {
	c := NewCounters()

	ts := mustItem(t, TypeTestSquare, WithPoints(geometry.RectCorners(
		geometry.Point2D{X: 0.2, Y: 0.2}, geometry.Point2D{X: 0.4, Y: 0.4})), Options{}, c)
	assert.Equal(t, "TS-1", ts.Name)
	assert.InDelta(t, 0.3, ts.X, 1e-12)
	assert.InDelta(t, 0.3, ts.Y, 1e-12)
	d := ts.Data.(*TestSquare)
	assert.Equal(t, "N", d.Dir)
	assert.Len(t, d.Points, 4)
	assert.NotNil(t, d.Bruises)
	assert.Equal(t, ShapePolygon, ts.Shape())

	apt := mustItem(t, TypeAppurtenance, AtPoint(geometry.Point2D{X: 0.1, Y: 0.9}), Options{}, c)
	assert.Equal(t, "APT-1", apt.Name)
	assert.Equal(t, "EF", apt.Data.(*Appurtenance).Kind)
	assert.Equal(t, 0.1, apt.X)

	ds := mustItem(t, TypeDownspout, Placement{}, Options{}, c)
	assert.Equal(t, 0.5, ds.X)
	assert.Equal(t, 1, ds.Data.(*Downspout).Index)
	assert.Equal(t, "Into Ground", ds.Data.(*Downspout).Termination)

	wind := mustItem(t, TypeWind, Placement{}, Options{}, c)
	assert.Equal(t, 1, wind.Data.(*WindMarker).CreasedCount)

	obs := mustItem(t, TypeObservation, AtPoint(geometry.Point2D{X: 0.6, Y: 0.6}), Options{}, c)
	od := obs.Data.(*Observation)
	assert.Equal(t, ObservationPin, od.Kind)
	assert.Nil(t, od.Points)
	assert.Equal(t, "triangle", od.ArrowType)
	assert.Equal(t, ShapeMarker, obs.Shape())

	_, err := NewItem("bogus", page, Placement{}, Options{}, c)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestObservationShapes(t *testing.T) {
	c := NewCounters()
	arrow := mustItem(t, TypeObservation, WithPoints([]geometry.Point2D{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.5}}),
		Options{ObservationKind: ObservationArrow}, c)
	assert.Equal(t, ShapeArrow, arrow.Shape())
	assert.Equal(t, "OBS-1", arrow.Name)

	area := mustItem(t, TypeObservation, WithPoints(geometry.RectCorners(
		geometry.Point2D{X: 0.1, Y: 0.1}, geometry.Point2D{X: 0.2, Y: 0.2})),
		Options{ObservationKind: ObservationArea}, c)
	assert.Equal(t, ShapePolygon, area.Shape())
}

func TestNamesNeverReused(t *testing.T) {
	c := NewCounters()
	s := NewStore(nil)

	ds1 := mustItem(t, TypeDownspout, Placement{}, Options{}, c)
	s.Add(ds1)
	require.NoError(t, s.Delete(ds1.ID))

	ds2 := mustItem(t, TypeDownspout, Placement{}, Options{}, c)
	assert.Equal(t, "DS-2", ds2.Name)
	assert.Equal(t, 2, ds2.Data.(*Downspout).Index)
}

func TestRecomputeCounters(t *testing.T) {
	items := []*Item{
		{Type: TypeTestSquare, Name: "TS-4"},
		{Type: TypeTestSquare, Name: "TS-2"},
		{Type: TypeObservation, Name: "renamed"},
		{Type: TypeDownspout, Name: "DS-9"},
	}
	got := RecomputeCounters(items)
	assert.Equal(t, 5, got[TypeTestSquare])
	assert.Equal(t, 1, got[TypeObservation])
	assert.Equal(t, 10, got[TypeDownspout])
	assert.Equal(t, 1, got[TypeWind])
}

func TestNameIndex(t *testing.T) {
	assert.Equal(t, 12, NameIndex("DS-12"))
	assert.Equal(t, 3, NameIndex("TS-3a"))
	assert.Equal(t, 0, NameIndex("TS"))
	assert.Equal(t, 0, NameIndex("TS-x"))
}

func TestStoreOrderAndPages(t *testing.T) {
	c := NewCounters()
	s := NewStore(nil)

	a := mustItem(t, TypeWind, Placement{}, Options{}, c)
	b := mustItem(t, TypeWind, Placement{}, Options{}, c)
	other, err := NewItem(TypeWind, "page-2", Placement{}, Options{}, c)
	require.NoError(t, err)
	s.Add(a)
	s.Add(other)
	s.Add(b)

	onPage := s.ListByPage(page)
	require.Len(t, onPage, 2)
	assert.Equal(t, a.ID, onPage[0].ID)
	assert.Equal(t, b.ID, onPage[1].ID)
	assert.True(t, s.HasItemsOnPage("page-2"))
	assert.False(t, s.HasItemsOnPage("page-3"))

	// Returned items are copies.
	onPage[0].Name = "changed"
	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "WIND-1", got.Name)

	assert.ErrorIs(t, s.Delete("missing"), ErrItemNotFound)
}

func TestDeleteReleasesBlobs(t *testing.T) {
	res := NewResources()
	s := NewStore(res)
	c := NewCounters()

	apt := mustItem(t, TypeAppurtenance, Placement{}, Options{}, c)
	s.Add(apt)

	entry, err := s.AddDamageEntry(apt.ID, DamageDent)
	require.NoError(t, err)
	require.NoError(t, s.SetPhoto(apt.ID, Slot{Field: FieldDamage, EntryID: entry.ID}, res.Register("a.png", "image/png", []byte{1})))
	require.NoError(t, s.SetPhoto(apt.ID, Slot{Field: FieldDetail}, res.Register("b.png", "image/png", []byte{2})))
	assert.Equal(t, 2, res.Live())

	// Replacing a photo releases the old blob.
	require.NoError(t, s.SetPhoto(apt.ID, Slot{Field: FieldDetail}, NewDataPhoto("c.png", "image/png", []byte{3})))
	assert.Equal(t, 1, res.Live())

	require.NoError(t, s.Delete(apt.ID))
	assert.Equal(t, 0, res.Live())
}

func TestSetPhotoBadSlot(t *testing.T) {
	s := NewStore(nil)
	wind := mustItem(t, TypeWind, Placement{}, Options{}, NewCounters())
	s.Add(wind)

	err := s.SetPhoto(wind.ID, Slot{Field: FieldDetail}, nil)
	assert.ErrorIs(t, err, ErrNoSuchField)
	err = s.SetPhoto(wind.ID, Slot{Field: FieldCreased}, NewDataPhoto("x.png", "image/png", []byte{1}))
	assert.NoError(t, err)
}

func TestSubRecordEditing(t *testing.T) {
	s := NewStore(nil)
	c := NewCounters()
	ts := mustItem(t, TypeTestSquare, WithPoints(geometry.RectCorners(
		geometry.Point2D{X: 0.1, Y: 0.1}, geometry.Point2D{X: 0.2, Y: 0.2})), Options{}, c)
	s.Add(ts)

	b, err := s.AddBruise(ts.ID)
	require.NoError(t, err)
	assert.Equal(t, "1/4", b.Size)
	require.NoError(t, s.SetBruiseSize(ts.ID, b.ID, "3/4"))

	cond, err := s.AddCondition(ts.ID)
	require.NoError(t, err)
	require.NoError(t, s.SetConditionCode(ts.ID, cond.ID, "MG"))

	got, _ := s.Get(ts.ID)
	d := got.Data.(*TestSquare)
	assert.Equal(t, "3/4", d.Bruises[0].Size)
	assert.Equal(t, "MG", d.Conditions[0].Code)

	require.NoError(t, s.DeleteBruise(ts.ID, b.ID))
	assert.ErrorIs(t, s.DeleteBruise(ts.ID, b.ID), ErrEntryNotFound)

	_, err = s.AddDamageEntry(ts.ID, DamageBoth)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestItemJSONShape(t *testing.T) {
	c := NewCounters()
	obs := mustItem(t, TypeObservation, AtPoint(geometry.Point2D{X: 0.25, Y: 0.75}), Options{}, c)
	obs.Data.(*Observation).Photo = &Photo{Name: "tmp", URL: "blob:titanroof/x", MIMEType: "image/png"}

	raw, err := json.Marshal(obs)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "obs", generic["type"])
	assert.Equal(t, page, generic["pageId"])
	data := generic["data"].(map[string]any)
	assert.Nil(t, data["photo"], "transient photo must not persist")
	assert.Nil(t, data["points"])
	assert.Equal(t, "pin", data["kind"])

	var back Item
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, obs.Name, back.Name)
	assert.Nil(t, back.Data.(*Observation).Photo)
}

func TestPhotoJSON(t *testing.T) {
	p := NewDataPhoto("roof.png", "image/png", []byte("abc"))
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"roof.png","dataUrl":"data:image/png;base64,YWJj","type":"image/png"}`, string(raw))

	var back Photo
	require.NoError(t, json.Unmarshal([]byte(`{"url":"data:image/png;base64,YWJj"}`), &back))
	assert.Equal(t, "image", back.Name)
	data, err := back.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	assert.Nil(t, Revive(&Photo{Name: "x"}))
}

func TestDashboard(t *testing.T) {
	c := NewCounters()
	ts := mustItem(t, TypeTestSquare, WithPoints(geometry.RectCorners(
		geometry.Point2D{X: 0.1, Y: 0.1}, geometry.Point2D{X: 0.2, Y: 0.2})), Options{}, c)
	ts.Data.(*TestSquare).Bruises = []Bruise{{Size: "1/2"}, {Size: "3+"}}

	wind := mustItem(t, TypeWind, Placement{}, Options{}, c)
	wind.Data.(*WindMarker).Dir = "Ridge"
	wind.Data.(*WindMarker).TornMissingCount = 2

	ds := mustItem(t, TypeDownspout, Placement{}, Options{}, c)
	ds.Data.(*Downspout).Dir = "E"
	ds.Data.(*Downspout).DamageEntries = []DamageEntry{{Mode: DamageBoth, Size: "3/4"}, {Mode: DamageDent, Size: "1"}}

	stats := Dashboard([]*Item{ts, wind, ds})
	assert.Equal(t, 2, stats["N"].TestSquareHits)
	assert.Equal(t, 4.0, stats["N"].TestSquareMaxHail)
	assert.Equal(t, 1, stats["Ridge"].WindCreased)
	assert.Equal(t, 2, stats["Ridge"].WindTornMissing)
	assert.Equal(t, 1.0, stats["E"].DownspoutMax)

	ind := HailIndicators([]*Item{ts, wind, ds})
	assert.Equal(t, 0.75, ind["E"].Downspout.Spatter)
	assert.Equal(t, 1.0, ind["E"].Downspout.Dent)
	assert.Zero(t, ind["N"].Appurtenance.Dent)
}

func TestPayloadReportsItemType(t *testing.T) {
	c := NewCounters()
	for _, typ := range Types {
		it := mustItem(t, typ, AtPoint(geometry.Point2D{X: 0.5, Y: 0.5}), Options{}, c)
		assert.Equal(t, typ, it.Data.ItemType(), "payload of %s", typ)
	}

	// The kind code and the observation kind live beside the type method.
	apt := mustItem(t, TypeAppurtenance, Placement{}, Options{}, c)
	assert.Equal(t, TypeAppurtenance, apt.Data.ItemType())
	assert.Equal(t, "EF", apt.Data.(*Appurtenance).Kind)

	obs := mustItem(t, TypeObservation, Placement{}, Options{ObservationKind: ObservationArrow}, c)
	assert.Equal(t, TypeObservation, obs.Data.ItemType())
	assert.Equal(t, ObservationArrow, obs.Data.(*Observation).Kind)
}
