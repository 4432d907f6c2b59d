// Package app provides the editing session: pages, items, counters, view and
// pointer controller wired together, plus project load/save and events.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"titanroof/internal/annotation"
	"titanroof/internal/document"
	"titanroof/internal/interact"
	"titanroof/internal/project"
	"titanroof/internal/view"
)

// State holds one editing session. The item store, document and resource
// registry carry their own locks; mu guards the report fields below.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Modified    bool
	LastSaved   *SaveMark

	// Report fields carried through the snapshot
	ResidenceName  string
	FrontFaces     string
	Roof           project.Roof
	ReportData     json.RawMessage
	ExteriorPhotos []project.ExteriorPhoto

	Resources  *annotation.Resources
	Items      *annotation.Store
	Counters   *annotation.Counters
	Document   *document.Document
	View       *view.Transform
	Controller *interact.Controller

	autosave *project.Store
	logger   *log.Logger

	// Event listeners
	listeners map[EventType][]EventListener
}

// SaveMark records the last save or load.
type SaveMark struct {
	Source string
	At     time.Time
}

// Save sources.
const (
	SourceManual   = "manual"
	SourceAuto     = "auto"
	SourceImport   = "import"
	SourceRestored = "restored"
)

// EventType identifies different session events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventProjectSaved
	EventItemsChanged
	EventPagesChanged
	EventSelectionChanged
	EventViewChanged
	EventModified
	EventCleared
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a session with one blank page. raster renders PDF
// backgrounds and autosave persists snapshots; both may be nil.
func NewState(raster document.Rasterizer, autosave *project.Store, logger *log.Logger) *State {
	if logger == nil {
		logger = log.Default()
	}
	s := &State{
		ResidenceName: project.DefaultResidenceName,
		FrontFaces:    project.DefaultFrontFaces,
		Roof:          project.DefaultRoof(),
		Resources:     annotation.NewResources(),
		Counters:      annotation.NewCounters(),
		View:          view.NewTransform(),
		autosave:      autosave,
		logger:        logger,
		listeners:     make(map[EventType][]EventListener),
	}
	s.Items = annotation.NewStore(s.Resources)
	s.Document = document.New(s.Resources, s.Items, raster, logger)
	s.Controller = interact.NewController(s.Items, s.Counters, s.Document, s.View, logger)
	s.Controller.SetCallbacks(interact.Callbacks{
		SelectionChanged: func(id string) { s.Emit(EventSelectionChanged, id) },
		ItemsChanged: func() {
			s.SetModified(true)
			s.Emit(EventItemsChanged, nil)
		},
		ViewChanged: func() { s.Emit(EventViewChanged, s.View.State()) },
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the project as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// PagesChanged records a page edit made through Document.
func (s *State) PagesChanged() {
	s.SetModified(true)
	s.Emit(EventPagesChanged, s.Document.ActivePageID())
}

// ItemEdited records an item edit made directly through Items. id is passed
// to EventItemsChanged listeners so the editor that made it can skip a
// rebuild.
func (s *State) ItemEdited(id string) {
	s.SetModified(true)
	s.Emit(EventItemsChanged, id)
}

// UpdateRoof edits the roof covering description.
func (s *State) UpdateRoof(patch func(r *project.Roof)) {
	s.mu.Lock()
	patch(&s.Roof)
	s.mu.Unlock()
	s.SetModified(true)
}

// Report returns the report fields.
func (s *State) Report() (name, frontFaces string, roof project.Roof) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ResidenceName, s.FrontFaces, s.Roof
}

// ExteriorPhotoList returns a copy of the exterior photo entries.
func (s *State) ExteriorPhotoList() []project.ExteriorPhoto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]project.ExteriorPhoto(nil), s.ExteriorPhotos...)
}

// SaveMark returns the last save or load, or nil.
func (s *State) SaveMark() *SaveMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastSaved == nil {
		return nil
	}
	m := *s.LastSaved
	return &m
}

// IsModified reports unsaved changes.
func (s *State) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Modified
}

// SetResidence updates the residence name and front direction.
func (s *State) SetResidence(name, frontFaces string) {
	s.mu.Lock()
	s.ResidenceName = name
	if frontFaces != "" {
		s.FrontFaces = frontFaces
	}
	s.mu.Unlock()
	s.SetModified(true)
}

// BuildSnapshot captures the session. It only takes read locks, so it is
// safe to call from the autosaver while the UI edits.
func (s *State) BuildSnapshot() *project.Snapshot {
	s.mu.RLock()
	snap := &project.Snapshot{
		ResidenceName:  s.ResidenceName,
		FrontFaces:     s.FrontFaces,
		Roof:           s.Roof,
		ReportData:     append(json.RawMessage(nil), s.ReportData...),
		ExteriorPhotos: append([]project.ExteriorPhoto(nil), s.ExteriorPhotos...),
	}
	s.mu.RUnlock()
	if len(snap.ReportData) == 0 {
		snap.ReportData = nil
	}
	if snap.ExteriorPhotos == nil {
		snap.ExteriorPhotos = []project.ExteriorPhoto{}
	}

	snap.Pages = s.Document.Pages()
	snap.ActivePageID = s.Document.ActivePageID()
	snap.Items = s.Items.All()
	snap.Counts = s.Counters.Snapshot()
	return snap
}

// ApplySnapshot replaces the session contents. Transient photos held by the
// previous contents are released and pages still backed by a PDF are
// rasterized before listeners hear about the new project.
func (s *State) ApplySnapshot(ctx context.Context, snap *project.Snapshot, source string) {
	s.Controller.Escape()
	s.Controller.ClearSelection()

	s.Items.Replace(snap.Items)
	s.Document.Replace(snap.Pages, snap.ActivePageID)
	s.Document.RasterizePending(ctx)
	s.Counters.Restore(snap.Counters())

	s.mu.Lock()
	s.ResidenceName = snap.ResidenceName
	s.FrontFaces = snap.FrontFaces
	s.Roof = snap.Roof
	if snap.ReportData != nil {
		s.ReportData = snap.ReportData
	}
	s.ExteriorPhotos = append([]project.ExteriorPhoto{}, snap.ExteriorPhotos...)
	s.LastSaved = &SaveMark{Source: source, At: time.Now()}
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventProjectLoaded, source)
	s.Emit(EventPagesChanged, s.Document.ActivePageID())
	s.Emit(EventItemsChanged, nil)
}

// Import applies an exported project file or bare snapshot and makes it the
// autosaved state.
func (s *State) Import(ctx context.Context, data []byte) error {
	raw, err := project.Unwrap(data)
	if err != nil {
		return err
	}
	snap, err := project.Unmarshal(raw)
	if err != nil {
		if errors.Is(err, project.ErrMissingRoof) {
			s.logger.Printf("Import: ignoring file without roof section")
		}
		return err
	}
	s.ApplySnapshot(ctx, snap, SourceImport)
	if s.autosave != nil {
		if err := s.autosave.PutRaw(ctx, raw); err != nil {
			s.logger.Printf("Import: failed to store autosave: %v", err)
		}
	}
	return nil
}

// LoadProject imports a .trp file from disk.
func (s *State) LoadProject(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.Import(ctx, data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	s.mu.Lock()
	s.ProjectPath = path
	s.mu.Unlock()
	return nil
}

// SaveProject exports the session to a .trp file.
func (s *State) SaveProject(path string) error {
	if err := project.Save(path, s.BuildSnapshot()); err != nil {
		return err
	}
	s.mu.Lock()
	s.ProjectPath = path
	s.mu.Unlock()
	s.Emit(EventProjectSaved, path)
	return nil
}

// ExportName is the suggested file name for SaveProject.
func (s *State) ExportName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return project.FileName(s.ResidenceName)
}

// Save writes the working state to the autosave store.
func (s *State) Save(ctx context.Context, source string) error {
	if s.autosave == nil {
		return nil
	}
	if err := s.autosave.SaveSnapshot(ctx, s.BuildSnapshot()); err != nil {
		return err
	}
	s.mu.Lock()
	s.LastSaved = &SaveMark{Source: source, At: time.Now()}
	if source == SourceManual {
		s.Modified = false
	}
	s.mu.Unlock()
	s.Emit(EventProjectSaved, source)
	return nil
}

// Restore loads the autosaved state, reporting whether there was one.
func (s *State) Restore(ctx context.Context) (bool, error) {
	if s.autosave == nil {
		return false, nil
	}
	snap, _, err := s.autosave.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, project.ErrNoAutosave):
		return false, nil
	case errors.Is(err, project.ErrMissingRoof):
		s.logger.Printf("Autosave: stored state has no roof section, ignoring")
		return false, nil
	case err != nil:
		return false, err
	}
	s.ApplySnapshot(ctx, snap, SourceRestored)
	return true, nil
}

// ClearDiagram removes every page and item, resets the counters and deletes
// the autosaved state. Report fields are kept.
func (s *State) ClearDiagram(ctx context.Context) error {
	s.Controller.Escape()
	s.Controller.ClearSelection()
	s.Document.Clear()
	s.Items.Clear()
	s.Counters.Reset()

	s.mu.Lock()
	s.LastSaved = nil
	s.mu.Unlock()

	var err error
	if s.autosave != nil {
		err = s.autosave.Clear(ctx)
	}
	s.Emit(EventCleared, nil)
	s.Emit(EventPagesChanged, s.Document.ActivePageID())
	s.Emit(EventItemsChanged, nil)
	return err
}

// DeleteSelected removes the selected item and releases its photos.
func (s *State) DeleteSelected() error {
	return s.Controller.DeleteSelected()
}

// ActiveItems returns the items on the active page in render order.
func (s *State) ActiveItems() []*annotation.Item {
	return s.Items.ListByPage(s.Document.ActivePageID())
}

// Dashboard returns per-direction statistics for the active page.
func (s *State) Dashboard() map[string]*annotation.DirectionStats {
	return annotation.Dashboard(s.ActiveItems())
}

// HailIndicators returns the hail indicator summary for the active page.
func (s *State) HailIndicators() map[string]*annotation.IndicatorSummary {
	return annotation.HailIndicators(s.ActiveItems())
}

// AddExteriorPhoto appends an empty exterior photo entry.
func (s *State) AddExteriorPhoto() project.ExteriorPhoto {
	e := project.NewExteriorPhoto()
	s.mu.Lock()
	s.ExteriorPhotos = append(s.ExteriorPhotos, e)
	s.mu.Unlock()
	s.SetModified(true)
	return e
}

// UpdateExteriorPhoto edits an exterior photo entry. A photo replaced by
// patch is released.
func (s *State) UpdateExteriorPhoto(id string, patch func(e *project.ExteriorPhoto)) error {
	s.mu.Lock()
	found := false
	for i := range s.ExteriorPhotos {
		e := &s.ExteriorPhotos[i]
		if e.ID != id {
			continue
		}
		old := e.Photo
		patch(e)
		if old != nil && (e.Photo == nil || e.Photo.URL != old.URL) {
			s.Resources.Release(old)
		}
		found = true
		break
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("exterior photo %s: %w", id, annotation.ErrItemNotFound)
	}
	s.SetModified(true)
	return nil
}

// RemoveExteriorPhoto deletes an exterior photo entry and releases its photo.
func (s *State) RemoveExteriorPhoto(id string) {
	s.mu.Lock()
	for i, e := range s.ExteriorPhotos {
		if e.ID == id {
			s.Resources.Release(e.Photo)
			s.ExteriorPhotos = append(s.ExteriorPhotos[:i], s.ExteriorPhotos[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.SetModified(true)
}
