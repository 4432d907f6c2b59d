package annotation

import "fmt"

// SetPhoto assigns a photo to a slot, releasing whatever was there.
func (s *Store) SetPhoto(itemID string, slot Slot, photo *Photo) error {
	return s.Update(itemID, func(it *Item) error {
		ref, err := it.Data.photoRef(slot)
		if err != nil {
			return err
		}
		if *ref != nil && (photo == nil || (*ref).URL != photo.URL) {
			s.resources.Release(*ref)
		}
		*ref = photo.Clone()
		return nil
	})
}

// AddBruise appends a default bruise to a test square.
func (s *Store) AddBruise(itemID string) (Bruise, error) {
	b := Bruise{ID: NewID(), Size: DefaultSize}
	err := s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: bruises need a test square", ErrWrongType)
		}
		d.Bruises = append(d.Bruises, b)
		return nil
	})
	return b, err
}

// SetBruiseSize changes a bruise size token.
func (s *Store) SetBruiseSize(itemID, bruiseID, size string) error {
	return s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: bruises need a test square", ErrWrongType)
		}
		for i := range d.Bruises {
			if d.Bruises[i].ID == bruiseID {
				d.Bruises[i].Size = size
				return nil
			}
		}
		return fmt.Errorf("%w: bruise %s", ErrEntryNotFound, bruiseID)
	})
}

// DeleteBruise removes a bruise and releases its photo.
func (s *Store) DeleteBruise(itemID, bruiseID string) error {
	return s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: bruises need a test square", ErrWrongType)
		}
		for i, b := range d.Bruises {
			if b.ID == bruiseID {
				s.resources.Release(b.Photo)
				d.Bruises = append(d.Bruises[:i], d.Bruises[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: bruise %s", ErrEntryNotFound, bruiseID)
	})
}

// AddCondition appends a default condition to a test square.
func (s *Store) AddCondition(itemID string) (Condition, error) {
	c := Condition{ID: NewID(), Code: DefaultCondition}
	err := s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: conditions need a test square", ErrWrongType)
		}
		d.Conditions = append(d.Conditions, c)
		return nil
	})
	return c, err
}

// SetConditionCode changes a condition code.
func (s *Store) SetConditionCode(itemID, conditionID, code string) error {
	return s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: conditions need a test square", ErrWrongType)
		}
		for i := range d.Conditions {
			if d.Conditions[i].ID == conditionID {
				d.Conditions[i].Code = code
				return nil
			}
		}
		return fmt.Errorf("%w: condition %s", ErrEntryNotFound, conditionID)
	})
}

// DeleteCondition removes a condition and releases its photo.
func (s *Store) DeleteCondition(itemID, conditionID string) error {
	return s.Update(itemID, func(it *Item) error {
		d, ok := it.Data.(*TestSquare)
		if !ok {
			return fmt.Errorf("%w: conditions need a test square", ErrWrongType)
		}
		for i, c := range d.Conditions {
			if c.ID == conditionID {
				s.resources.Release(c.Photo)
				d.Conditions = append(d.Conditions[:i], d.Conditions[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: condition %s", ErrEntryNotFound, conditionID)
	})
}

// damageEntries returns a pointer to the damage entry list of an
// appurtenance or downspout.
func damageEntries(it *Item) (*[]DamageEntry, error) {
	switch d := it.Data.(type) {
	case *Appurtenance:
		return &d.DamageEntries, nil
	case *Downspout:
		return &d.DamageEntries, nil
	}
	return nil, fmt.Errorf("%w: damage entries need an appurtenance or downspout", ErrWrongType)
}

// AddDamageEntry appends an entry with the given mode and the default size.
func (s *Store) AddDamageEntry(itemID string, mode DamageMode) (DamageEntry, error) {
	if mode == "" {
		mode = DamageSpatter
	}
	e := DamageEntry{ID: NewID(), Mode: mode, Size: DefaultSize}
	err := s.Update(itemID, func(it *Item) error {
		entries, err := damageEntries(it)
		if err != nil {
			return err
		}
		*entries = append(*entries, e)
		return nil
	})
	return e, err
}

// UpdateDamageEntry patches an entry's mode and size. The photo is changed
// through SetPhoto.
func (s *Store) UpdateDamageEntry(itemID, entryID string, patch func(e *DamageEntry)) error {
	return s.Update(itemID, func(it *Item) error {
		entries, err := damageEntries(it)
		if err != nil {
			return err
		}
		for i := range *entries {
			e := &(*entries)[i]
			if e.ID == entryID {
				photo := e.Photo
				patch(e)
				e.ID = entryID
				e.Photo = photo
				return nil
			}
		}
		return fmt.Errorf("%w: damage entry %s", ErrEntryNotFound, entryID)
	})
}

// DeleteDamageEntry removes an entry and releases its photo.
func (s *Store) DeleteDamageEntry(itemID, entryID string) error {
	return s.Update(itemID, func(it *Item) error {
		entries, err := damageEntries(it)
		if err != nil {
			return err
		}
		for i, e := range *entries {
			if e.ID == entryID {
				s.resources.Release(e.Photo)
				*entries = append((*entries)[:i], (*entries)[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: damage entry %s", ErrEntryNotFound, entryID)
	})
}
