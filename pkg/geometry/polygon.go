package geometry

import "gonum.org/v1/gonum/spatial/r2"

// horizontalEdgeEpsilon replaces a zero denominator when a polygon edge is
// horizontal.
const horizontalEdgeEpsilon = 1e-9

// PointInPolygon tests if a point is inside a polygon using ray casting.
// Polygons with fewer than three vertices contain nothing. Points exactly on
// an edge may report either result.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]

		dy := pj.Y - pi.Y
		if dy == 0 {
			dy = horizontalEdgeEpsilon
		}

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/dy+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// DistancePointToSegment returns the shortest distance from p to the segment
// a-b. A degenerate segment degrades to point distance.
func DistancePointToSegment(p, a, b Point2D) float64 {
	ab := r2.Sub(b.vec(), a.vec())
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return p.Distance(a)
	}

	t := r2.Dot(r2.Sub(p.vec(), a.vec()), ab) / lenSq
	t = Clamp01(t)
	proj := r2.Add(a.vec(), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p.vec(), proj))
}

// TranslateClamped returns points shifted by (dx, dy) with each coordinate
// clamped to the unit square.
func TranslateClamped(points []Point2D, dx, dy float64) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = Point2D{X: Clamp01(p.X + dx), Y: Clamp01(p.Y + dy)}
	}
	return out
}

// RectCorners returns the four corners of the box spanned by a and b in the
// order (a.x,a.y), (b.x,a.y), (b.x,b.y), (a.x,b.y).
func RectCorners(a, b Point2D) []Point2D {
	return []Point2D{
		{X: a.X, Y: a.Y},
		{X: b.X, Y: a.Y},
		{X: b.X, Y: b.Y},
		{X: a.X, Y: b.Y},
	}
}
