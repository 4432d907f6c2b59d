package view

import "titanroof/pkg/geometry"

// pinchBaseline is captured when the second contact lands.
type pinchBaseline struct {
	startDist  float64
	start      State
	center     geometry.Point2D
	lastCenter geometry.Point2D
}

// Pinch tracks active touch contacts and turns two-contact gestures into
// combined zoom and pan updates on a Transform.
type Pinch struct {
	contacts map[int64]geometry.Point2D
	order    []int64
	baseline *pinchBaseline
}

// NewPinch creates an empty tracker.
func NewPinch() *Pinch {
	return &Pinch{contacts: make(map[int64]geometry.Point2D)}
}

// Count returns the number of tracked contacts.
func (p *Pinch) Count() int {
	return len(p.order)
}

// Active reports whether a pinch baseline is established.
func (p *Pinch) Active() bool {
	return p.baseline != nil
}

// Down registers a contact. It returns true when this contact established a
// pinch baseline.
func (p *Pinch) Down(id int64, at geometry.Point2D, t *Transform) bool {
	if _, ok := p.contacts[id]; !ok {
		p.order = append(p.order, id)
	}
	p.contacts[id] = at
	return p.startIfTwo(t)
}

// Move updates a contact position. When a pinch is active it applies the
// gesture to t and returns true.
func (p *Pinch) Move(id int64, at geometry.Point2D, t *Transform) bool {
	if _, ok := p.contacts[id]; !ok {
		return false
	}
	p.contacts[id] = at
	if len(p.order) != 2 {
		return false
	}
	if p.baseline == nil {
		p.startIfTwo(t)
		return p.baseline != nil
	}
	p.update(t)
	return true
}

// Up removes a contact. The baseline is dropped below two contacts and
// re-established when exactly two remain.
func (p *Pinch) Up(id int64, t *Transform) {
	if _, ok := p.contacts[id]; !ok {
		return
	}
	delete(p.contacts, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	if len(p.order) < 2 {
		p.baseline = nil
	} else if len(p.order) == 2 && p.baseline == nil {
		p.startIfTwo(t)
	}
}

// Reset forgets all contacts.
func (p *Pinch) Reset() {
	p.contacts = make(map[int64]geometry.Point2D)
	p.order = nil
	p.baseline = nil
}

func (p *Pinch) pair() (geometry.Point2D, geometry.Point2D) {
	return p.contacts[p.order[0]], p.contacts[p.order[1]]
}

func (p *Pinch) startIfTwo(t *Transform) bool {
	if len(p.order) != 2 {
		return false
	}
	a, b := p.pair()
	dist := a.Distance(b)
	if dist == 0 {
		dist = 1
	}
	center := geometry.Centroid([]geometry.Point2D{a, b})
	p.baseline = &pinchBaseline{
		startDist:  dist,
		start:      t.State(),
		center:     center,
		lastCenter: center,
	}
	return true
}

func (p *Pinch) update(t *Transform) {
	a, b := p.pair()
	dist := a.Distance(b)
	if dist == 0 {
		dist = 1
	}
	center := geometry.Centroid([]geometry.Point2D{a, b})
	base := p.baseline

	target := ClampScale(base.start.Scale * dist / base.startDist)
	delta := center.Sub(base.lastCenter)
	base.lastCenter = center

	if !t.measured {
		return
	}
	next := anchoredZoom(t.viewport, base.start, target, base.center)
	next.TX += delta.X
	next.TY += delta.Y
	t.state = next
}
