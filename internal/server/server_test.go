package server_test

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/internal/annotation"
	"titanroof/internal/document"
	"titanroof/internal/project"
	"titanroof/internal/server"
	"titanroof/pkg/geometry"
)

type fixedSession struct {
	snap *project.Snapshot
}

func (f fixedSession) BuildSnapshot() *project.Snapshot { return f.snap }

func newTestServer(t *testing.T) (*server.Server, *project.Snapshot) {
	t.Helper()
	c := annotation.NewCounters()
	front := document.NewPage("Front")
	front.Background = annotation.NewDataPhoto("front.png", "image/png", []byte{1})
	back := document.NewPage("Back")

	item := func(typ annotation.Type, page string) *annotation.Item {
		it, err := annotation.NewItem(typ, page, annotation.AtPoint(geometry.Point2D{X: 0.5, Y: 0.5}), annotation.Options{}, c)
		require.NoError(t, err)
		return it
	}
	wind := item(annotation.TypeWind, front.ID)
	wind.Data.(*annotation.WindMarker).TornMissingCount = 3

	snap := &project.Snapshot{
		ResidenceName:  "Oak House",
		FrontFaces:     project.DefaultFrontFaces,
		Roof:           project.DefaultRoof(),
		Pages:          []*document.Page{front, back},
		ActivePageID:   back.ID,
		Items:          []*annotation.Item{wind, item(annotation.TypeDownspout, front.ID), item(annotation.TypeObservation, back.ID)},
		Counts:         c.Snapshot(),
		ExteriorPhotos: []project.ExteriorPhoto{},
	}
	return server.New(":0", fixedSession{snap}, log.New(io.Discard, "", 0)), snap
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "4.2.2", body["version"])
}

func TestDocument(t *testing.T) {
	s, snap := newTestServer(t)
	rec := get(t, s, "/api/document")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, project.MIMEType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Oak-House.trp")

	back, err := project.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, snap.ActivePageID, back.ActivePageID)
	assert.Len(t, back.Items, 3)
}

func TestListPages(t *testing.T) {
	s, snap := newTestServer(t)
	rec := get(t, s, "/api/pages")
	require.Equal(t, http.StatusOK, rec.Code)

	var pages []server.PageSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pages))
	require.Len(t, pages, 2)
	assert.Equal(t, server.PageSummary{
		ID: snap.Pages[0].ID, Name: "Front", AspectRatio: snap.Pages[0].AspectRatio,
		HasBackground: true, Items: 2,
	}, pages[0])
	assert.True(t, pages[1].Active)
	assert.Equal(t, 1, pages[1].Items)
}

func TestListItems(t *testing.T) {
	s, snap := newTestServer(t)
	front := snap.Pages[0].ID

	rec := get(t, s, "/api/pages/"+front+"/items")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []*annotation.Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "WIND-1", items[0].Name)
	assert.Equal(t, 3, items[0].Data.(*annotation.WindMarker).TornMissingCount)

	rec = get(t, s, "/api/pages/"+front+"/items?type=ds")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "DS-1", items[0].Name)

	rec = get(t, s, "/api/pages/"+snap.Pages[1].ID+"/items?type=ts")
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = get(t, s, "/api/pages/nope/items")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	s, snap := newTestServer(t)
	rec := get(t, s, "/api/pages/"+snap.Pages[0].ID+"/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Directions map[string]annotation.DirectionStats `json:"directions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Directions["N"].WindCreased)
	assert.Equal(t, 3, body.Directions["N"].WindTornMissing)
}

func TestReadOnly(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pages", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
