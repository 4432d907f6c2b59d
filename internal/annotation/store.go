package annotation

import (
	"fmt"
	"sync"

	"titanroof/pkg/geometry"
)

// Store holds every item across all pages in render order. It is read by the
// autosaver and export server while the UI mutates it, so all access goes
// through the lock; callers receive copies.
type Store struct {
	mu sync.RWMutex

	// All items indexed by ID
	items map[string]*Item

	// Render order, later entries on top
	order []string

	resources *Resources
}

// NewStore creates an empty store. Photos of deleted items are released
// through resources, which may be nil.
func NewStore(resources *Resources) *Store {
	return &Store{
		items:     make(map[string]*Item),
		order:     make([]string, 0),
		resources: resources,
	}
}

// Add appends an item on top of the render order.
func (s *Store) Add(it *Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[it.ID]; !exists {
		s.order = append(s.order, it.ID)
	}
	s.items[it.ID] = it.Clone()
}

// Get returns a copy of the item.
func (s *Store) Get(id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// Update applies patch to the stored item under the write lock.
func (s *Store) Update(id string, patch func(it *Item) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return patch(it)
}

// UpdatePosition moves a point marker's anchor.
func (s *Store) UpdatePosition(id string, x, y float64) error {
	return s.Update(id, func(it *Item) error {
		it.X, it.Y = x, y
		return nil
	})
}

// UpdatePoints replaces an item's vertices. The anchor is left where it was
// placed.
func (s *Store) UpdatePoints(id string, points []geometry.Point2D) error {
	return s.Update(id, func(it *Item) error {
		if it.Data == nil {
			return fmt.Errorf("%w: %s has no data", ErrWrongType, id)
		}
		it.Data.SetGeometry(geometry.ClonePoints(points))
		return nil
	})
}

// SetLocked toggles pointer interaction for an item.
func (s *Store) SetLocked(id string, locked bool) error {
	return s.Update(id, func(it *Item) error {
		it.Data.SetLocked(locked)
		return nil
	})
}

// Rename sets a user-chosen name.
func (s *Store) Rename(id, name string) error {
	return s.Update(id, func(it *Item) error {
		it.Name = name
		return nil
	})
}

// Delete removes an item and releases every photo it owns.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if it.Data != nil {
		s.resources.ReleaseAll(it.Data.OwnedPhotos())
	}
	delete(s.items, id)
	s.order = removeString(s.order, id)
	return nil
}

// ListByPage returns copies of the page's items in render order.
func (s *Store) ListByPage(pageID string) []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Item
	for _, id := range s.order {
		if it := s.items[id]; it.PageID == pageID {
			out = append(out, it.Clone())
		}
	}
	return out
}

// HasItemsOnPage reports whether any item references pageID.
func (s *Store) HasItemsOnPage(pageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.PageID == pageID {
			return true
		}
	}
	return false
}

// All returns copies of every item in render order.
func (s *Store) All() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Replace swaps the whole contents, as when a project is loaded. Photos of
// the previous items are released.
func (s *Store) Replace(items []*Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseAllLocked()
	s.items = make(map[string]*Item, len(items))
	s.order = make([]string, 0, len(items))
	for _, it := range items {
		if _, dup := s.items[it.ID]; !dup {
			s.order = append(s.order, it.ID)
		}
		s.items[it.ID] = it.Clone()
	}
}

// Clear removes every item.
func (s *Store) Clear() {
	s.Replace(nil)
}

func (s *Store) releaseAllLocked() {
	for _, it := range s.items {
		if it.Data != nil {
			s.resources.ReleaseAll(it.Data.OwnedPhotos())
		}
	}
}

// removeString removes the first occurrence of s from slice.
func removeString(slice []string, s string) []string {
	for i, v := range slice {
		if v == s {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
