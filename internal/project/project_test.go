package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/internal/annotation"
	"titanroof/internal/document"
	"titanroof/pkg/geometry"
)

func mustItem(t *testing.T, typ annotation.Type, pageID string, at annotation.Placement, opts annotation.Options, c *annotation.Counters) *annotation.Item {
	t.Helper()
	it, err := annotation.NewItem(typ, pageID, at, opts, c)
	require.NoError(t, err)
	return it
}

// sampleSnapshot builds a model touching every item type and photo field.
func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	res := annotation.NewResources()
	c := annotation.NewCounters()
	photo := func(name string) *annotation.Photo {
		return annotation.NewDataPhoto(name, "image/png", []byte(name))
	}

	p1 := document.NewPage("Front")
	p1.Background = photo("front.png")
	p1.Rotation = 90
	p1.AspectRatio = 0.75
	p2 := document.NewPage("Aerial")
	p2.Map = document.Map{Enabled: true, Address: "1 Elm St", Zoom: 20, Type: document.MapSatellite}

	ts := mustItem(t, annotation.TypeTestSquare, p1.ID, annotation.WithPoints(geometry.RectCorners(
		geometry.Point2D{X: 0.1, Y: 0.2}, geometry.Point2D{X: 0.3, Y: 0.45})), annotation.Options{}, c)
	tsd := ts.Data.(*annotation.TestSquare)
	tsd.Bruises = append(tsd.Bruises, annotation.Bruise{ID: "b1", Size: "3/4", Photo: photo("bruise.png")})
	tsd.Conditions = append(tsd.Conditions, annotation.Condition{ID: "c1", Code: "MG"})
	tsd.OverviewPhoto = res.Register("live.png", "image/png", []byte{9})
	tsd.Locked = true

	apt := mustItem(t, annotation.TypeAppurtenance, p1.ID, annotation.AtPoint(geometry.Point2D{X: 0.7, Y: 0.1}), annotation.Options{}, c)
	aptd := apt.Data.(*annotation.Appurtenance)
	aptd.DamageEntries = append(aptd.DamageEntries, annotation.DamageEntry{ID: "d1", Mode: annotation.DamageBoth, Size: "1", Photo: photo("dent.png")})
	aptd.DetailPhoto = photo("detail.png")

	ds := mustItem(t, annotation.TypeDownspout, p2.ID, annotation.AtPoint(geometry.Point2D{X: 0.5, Y: 0.9}), annotation.Options{}, c)
	wind := mustItem(t, annotation.TypeWind, p2.ID, annotation.AtPoint(geometry.Point2D{X: 0.2, Y: 0.8}), annotation.Options{}, c)
	wind.Data.(*annotation.WindMarker).TornMissingCount = 3

	pin := mustItem(t, annotation.TypeObservation, p1.ID, annotation.AtPoint(geometry.Point2D{X: 0.33, Y: 0.66}), annotation.Options{}, c)
	pin.Data.(*annotation.Observation).Label = "soft spot"
	arrow := mustItem(t, annotation.TypeObservation, p1.ID, annotation.WithPoints([]geometry.Point2D{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.35}}),
		annotation.Options{ObservationKind: annotation.ObservationArrow}, c)

	return &Snapshot{
		ResidenceName:  "Smith Residence",
		FrontFaces:     "East",
		Roof:           DefaultRoof(),
		Pages:          []*document.Page{p1, p2},
		ActivePageID:   p2.ID,
		Items:          []*annotation.Item{ts, apt, ds, wind, pin, arrow},
		Counts:         c.Snapshot(),
		ReportData:     json.RawMessage(`{"project":{"state":"Texas","parties":[]}}`),
		ExteriorPhotos: []ExteriorPhoto{{ID: "e1", Orientation: "North", Notes: "gutter", Photo: photo("north.png")}},
	}
}

func TestRoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)

	first, err := snap.Marshal()
	require.NoError(t, err)
	back, err := Unmarshal(first)
	require.NoError(t, err)

	// Transient photos do not survive.
	snap.Items[0].Data.(*annotation.TestSquare).OverviewPhoto = nil
	assert.Equal(t, snap, back)

	second, err := back.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, string(first), string(second))
}

func TestUnmarshalMissingRoof(t *testing.T) {
	_, err := Unmarshal([]byte(`{"items":[]}`))
	assert.ErrorIs(t, err, ErrMissingRoof)
	_, err = Unmarshal([]byte(`{"roof":null}`))
	assert.ErrorIs(t, err, ErrMissingRoof)
	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

const legacySnapshot = `{
	"roof": {
		"covering": "METAL",
		"diagramBg": {"name": "old.png", "url": "data:image/png;base64,AAAA", "type": "image/png"},
		"map": {"enabled": true, "address": "5 Pine Rd"}
	},
	"items": [
		{"id": "a", "type": "app", "name": "APP-3", "x": 0.5, "y": 0.5,
		 "data": {"type": "VT", "dir": "S",
		          "spatter": {"on": true, "size": "1/2"},
		          "dent": {"on": true, "photo": {"url": "data:image/png;base64,AQ=="}}}},
		{"id": "b", "type": "wind", "name": "WIND-2", "x": 0.1, "y": 0.1,
		 "data": {"dir": "Ridge", "cond": "torn_missing", "count": 4,
		          "photo": {"name": "w.png", "dataUrl": "data:image/png;base64,Ag==", "type": "image/png"}}},
		{"id": "c", "type": "wind", "name": "WIND-5", "x": 0.2, "y": 0.2, "data": {"cond": "creased"}},
		{"id": "d", "type": "ds", "name": "DS-7", "x": 0.3, "y": 0.3, "data": {"dir": "E"}},
		{"id": "e", "type": "obs", "name": "OBS-1", "x": 0.4, "y": 0.4,
		 "data": {"code": "DAR", "points": [{"x":0.1,"y":0.1},{"x":0.2,"y":0.1},{"x":0.2,"y":0.2}]}},
		{"id": "f", "type": "obs", "name": "OBS-2", "x": 0.6, "y": 0.6, "data": {"photo": {"name": "empty"}}},
		{"id": "g", "type": "ts", "name": "TS-1", "x": 0.5, "y": 0.5, "data": {"points": []}},
		{"id": "h", "type": "chimney", "name": "CH-1", "x": 0.5, "y": 0.5, "data": {}}
	]
}`

func TestUpgradeLegacySnapshot(t *testing.T) {
	s, err := Unmarshal([]byte(legacySnapshot))
	require.NoError(t, err)

	assert.Equal(t, DefaultResidenceName, s.ResidenceName)
	assert.Equal(t, DefaultFrontFaces, s.FrontFaces)
	assert.Equal(t, "METAL", s.Roof.Covering)
	assert.Equal(t, "LAM", s.Roof.ShingleKind)

	require.Len(t, s.Pages, 1)
	page := s.Pages[0]
	assert.Equal(t, "Page 1", page.Name)
	require.NotNil(t, page.Background)
	assert.Equal(t, "old.png", page.Background.Name)
	assert.True(t, page.Map.Enabled)
	assert.Equal(t, "5 Pine Rd", page.Map.Address)
	assert.Equal(t, document.DefaultMapZoom, page.Map.Zoom)
	assert.Equal(t, page.ID, s.ActivePageID)

	// The unknown item type is dropped.
	require.Len(t, s.Items, 7)
	for _, it := range s.Items {
		assert.Equal(t, page.ID, it.PageID)
	}

	apt := s.Items[0]
	assert.Equal(t, annotation.TypeAppurtenance, apt.Type)
	assert.Equal(t, "APT-3", apt.Name)
	entries := apt.Data.(*annotation.Appurtenance).DamageEntries
	require.Len(t, entries, 2)
	assert.Equal(t, annotation.DamageSpatter, entries[0].Mode)
	assert.Equal(t, "1/2", entries[0].Size)
	assert.Nil(t, entries[0].Photo)
	assert.Equal(t, annotation.DamageDent, entries[1].Mode)
	assert.Equal(t, "1/4", entries[1].Size)
	require.NotNil(t, entries[1].Photo)
	assert.Equal(t, "image", entries[1].Photo.Name)
	assert.NotEmpty(t, entries[0].ID)

	torn := s.Items[1].Data.(*annotation.WindMarker)
	assert.Equal(t, 0, torn.CreasedCount)
	assert.Equal(t, 4, torn.TornMissingCount)
	require.NotNil(t, torn.OverviewPhoto)
	assert.Equal(t, "w.png", torn.OverviewPhoto.Name)

	creased := s.Items[2].Data.(*annotation.WindMarker)
	assert.Equal(t, 1, creased.CreasedCount)
	assert.Equal(t, 0, creased.TornMissingCount)

	assert.Equal(t, 7, s.Items[3].Data.(*annotation.Downspout).Index)

	area := s.Items[4].Data.(*annotation.Observation)
	assert.Equal(t, annotation.ObservationArea, area.Kind)
	assert.Equal(t, "triangle", area.ArrowType)
	assert.Equal(t, "end", area.ArrowLabelPosition)
	assert.Equal(t, annotation.ShapePolygon, s.Items[4].Shape())

	pin := s.Items[5].Data.(*annotation.Observation)
	assert.Equal(t, annotation.ObservationPin, pin.Kind)
	assert.Nil(t, pin.Photo, "photo without a url is dropped")

	ts := s.Items[6].Data.(*annotation.TestSquare)
	assert.NotNil(t, ts.Bruises)
	assert.NotNil(t, ts.Conditions)

	// No counts: recomputed from names.
	assert.Equal(t, 4, s.Counts["apt"])
	assert.Equal(t, 6, s.Counts["wind"])
	assert.Equal(t, 8, s.Counts["ds"])
	assert.Equal(t, 3, s.Counts["obs"])
	assert.Equal(t, 2, s.Counts["ts"])

	// A second pass through the current shape changes nothing.
	data, err := s.Marshal()
	require.NoError(t, err)
	again, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestCountsRestore(t *testing.T) {
	s, err := Unmarshal([]byte(`{"roof":{},"counts":{"ts":4,"app":9,"obs":null}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ts": 4, "apt": 9, "ds": 1, "wind": 1, "obs": 1}, s.Counts)
	assert.Equal(t, 9, s.Counters()[annotation.TypeAppurtenance])

	s, err = Unmarshal([]byte(`{"roof":{},"counts":{"apt":2,"app":9}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Counts["apt"])
}

func TestPageDefaults(t *testing.T) {
	s, err := Unmarshal([]byte(`{"roof":{},"activePageId":"p2","pages":[
		{"id":"p1","name":"One","background":{"name":"x"},"map":{"enabled":true}},
		{"id":"p2","name":"Two","aspectRatio":0.5,"rotation":270}
	]}`))
	require.NoError(t, err)
	require.Len(t, s.Pages, 2)
	assert.Nil(t, s.Pages[0].Background)
	assert.Equal(t, document.Map{Enabled: true, Zoom: 18, Type: document.MapRoadmap}, s.Pages[0].Map)
	assert.InDelta(t, 1024.0/720.0, s.Pages[0].AspectRatio, 1e-12)
	assert.Equal(t, 0.5, s.Pages[1].AspectRatio)
	assert.Equal(t, 270, s.Pages[1].Rotation)
	assert.Equal(t, "p2", s.ActivePageID)
	assert.Empty(t, s.ExteriorPhotos)
	assert.Nil(t, s.ReportData)
}

func TestEnvelope(t *testing.T) {
	snap := sampleSnapshot(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Encode(snap, now)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "TitanRoof 4.2.2 Beta", env.App)
	assert.Equal(t, "4.2.2", env.Version)
	assert.True(t, env.ExportedAt.Equal(now))

	fromEnvelope, err := Decode(data)
	require.NoError(t, err)
	bare, err := snap.Marshal()
	require.NoError(t, err)
	fromBare, err := Decode(bare)
	require.NoError(t, err)
	assert.Equal(t, fromBare, fromEnvelope)
}

func TestSaveAndLoad(t *testing.T) {
	snap := sampleSnapshot(t)
	path := filepath.Join(t.TempDir(), "nested", FileName(snap.ResidenceName))
	assert.True(t, strings.HasSuffix(path, "Smith-Residence.trp"))

	require.NoError(t, Save(path, snap))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.ResidenceName, back.ResidenceName)
	assert.Len(t, back.Items, len(snap.Items))

	_, err = Load(filepath.Join(t.TempDir(), "missing.trp"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "titanroof-project.trp", FileName("   "))
	assert.Equal(t, "12-Oak-St.trp", FileName(" 12 Oak\tSt "))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })
	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, _, err := s.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, ErrNoAutosave)

	require.NoError(t, s.Put(ctx, "k", []byte("one")))
	require.NoError(t, s.Put(ctx, "k", []byte("two")))
	v, at, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(v))
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNoAutosave)
}

func TestStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	snap := sampleSnapshot(t)

	require.NoError(t, s.SaveSnapshot(ctx, snap))
	back, _, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ActivePageID, back.ActivePageID)
	assert.Equal(t, snap.Counts, back.Counts)

	require.NoError(t, s.Clear(ctx))
	_, _, err = s.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoAutosave)
}

func TestOpenStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "autosave.db")
	s, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), StorageKey, []byte(`{}`)))
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, _, err := s.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(v))
}

func TestRoofSummary(t *testing.T) {
	r := DefaultRoof()
	assert.Equal(t, "Laminate Shingles  36 inch width  5 inch exposure", r.Summary())

	r.Covering = CoveringMetal
	assert.Equal(t, "Standing Seam  24 inch", r.Summary())
	r.MetalKind = "??"
	assert.Equal(t, "Metal  24 inch", r.Summary())

	r.Covering = CoveringOther
	assert.Equal(t, "Other", r.Summary())
	r.OtherDesc = "TPO"
	assert.Equal(t, "Other  TPO", r.Summary())
}
