// Package interact turns pointer and keyboard input into annotation edits.
// It owns the tool selection, the current selection and the drag state
// machine.
package interact

import (
	"titanroof/internal/annotation"
	"titanroof/pkg/geometry"
)

// Hit radii and thresholds in normalized sheet units.
const (
	VertexRadius   = 0.016
	MarkerRadius   = 0.032
	ArrowHitDist   = 0.02
	MinRectSide    = 0.02
	MinArrowLength = 0.02
	FallbackSquare = 0.03
)

// HitKind says what part of an item was hit.
type HitKind int

const (
	HitItem HitKind = iota
	HitVertex
	HitArrowHandle
)

func (k HitKind) String() string {
	switch k {
	case HitVertex:
		return "poly-handle"
	case HitArrowHandle:
		return "arrow-handle"
	}
	return "item"
}

// Hit is the result of a hit test.
type Hit struct {
	Kind       HitKind
	ItemID     string
	PointIndex int
}

// HitTest finds what lies under p on a page. Vertices of the selected,
// unlocked polygon or arrow win; otherwise items are tested from the top of
// the render order down. items must be the page's items in render order.
func HitTest(items []*annotation.Item, selectedID string, p geometry.Point2D) *Hit {
	if selectedID != "" {
		for _, it := range items {
			if it.ID != selectedID {
				continue
			}
			if h := vertexHit(it, p); h != nil {
				return h
			}
			break
		}
	}

	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		switch it.Shape() {
		case annotation.ShapePolygon:
			poly := it.Points()
			if len(poly) >= 3 && geometry.PointInPolygon(p, poly) {
				return &Hit{Kind: HitItem, ItemID: it.ID}
			}
		case annotation.ShapeArrow:
			pts := it.Points()
			if geometry.DistancePointToSegment(p, pts[0], pts[1]) < ArrowHitDist {
				return &Hit{Kind: HitItem, ItemID: it.ID}
			}
		default:
			if it.Position().Distance(p) < MarkerRadius {
				return &Hit{Kind: HitItem, ItemID: it.ID}
			}
		}
	}
	return nil
}

func vertexHit(it *annotation.Item, p geometry.Point2D) *Hit {
	if it.Locked() {
		return nil
	}
	kind := HitVertex
	switch it.Shape() {
	case annotation.ShapeArrow:
		kind = HitArrowHandle
	case annotation.ShapePolygon:
	default:
		return nil
	}
	for idx, v := range it.Points() {
		if v.Distance(p) < VertexRadius {
			return &Hit{Kind: kind, ItemID: it.ID, PointIndex: idx}
		}
	}
	return nil
}
