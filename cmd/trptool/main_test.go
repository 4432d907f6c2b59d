package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanroof/internal/project"
)

const legacyProject = `{
	"roof": {"covering": "METAL", "map": {"enabled": true, "address": "5 Pine Rd"}},
	"residenceName": "Smith Residence",
	"items": [
		{"id": "a", "type": "app", "name": "APP-3", "x": 0.5, "y": 0.5,
		 "data": {"type": "VT", "dir": "S", "spatter": {"on": true, "size": "1/2"}}},
		{"id": "b", "type": "wind", "name": "WIND-2", "x": 0.1, "y": 0.1,
		 "data": {"dir": "Ridge", "cond": "creased", "count": 2}}
	]
}`

func writeLegacy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old.trp")
	require.NoError(t, os.WriteFile(path, []byte(legacyProject), 0o644))
	return path
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
}

func TestInspect(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"inspect", writeLegacy(t)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Residence:   Smith Residence")
	assert.Contains(t, out, "Roof:        Standing Seam  24 inch")
	assert.Contains(t, out, "Pages (1):")
	assert.Contains(t, out, "map")
	assert.Contains(t, out, "Items (2):")
}

func TestInspectMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"inspect", filepath.Join(t.TempDir(), "nope.trp")}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "trptool:")
}

func TestUpgrade(t *testing.T) {
	in := writeLegacy(t)
	out := filepath.Join(t.TempDir(), "new.trp")

	var stdout, stderr bytes.Buffer
	code := run([]string{"upgrade", "-o", out, in}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "1 page(s), 2 item(s)")

	snap, err := project.Load(out)
	require.NoError(t, err)
	require.Len(t, snap.Pages, 1)
	assert.True(t, snap.Pages[0].Map.Enabled)
	assert.Equal(t, "APT-3", snap.Items[0].Name)

	// The upgraded file is wrapped in an export envelope.
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"exportedAt"`)
}

func TestExtractAutosave(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "autosave.db")

	snap, err := project.Unmarshal([]byte(legacyProject))
	require.NoError(t, err)
	store, err := project.OpenStore(db)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	require.NoError(t, store.Close())

	out := filepath.Join(dir, "recovered.trp")
	var stdout, stderr bytes.Buffer
	code := run([]string{"extract-autosave", "-db", db, out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Extracted autosave")

	got, err := project.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Smith Residence", got.ResidenceName)
	assert.Len(t, got.Items, 2)
}

func TestExtractAutosaveMissingDatabase(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"extract-autosave", "-db", filepath.Join(t.TempDir(), "none.db"), "out.trp"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "autosave database")
}
