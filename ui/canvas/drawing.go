package canvas

import (
	"image"
	"image/color"
	"math"
	"sort"

	"titanroof/pkg/colorutil"
	"titanroof/pkg/geometry"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// letterPatterns contains 3x5 pixel patterns for letters A-Z and the symbols
// used in item names and sizes.
var letterPatterns = map[rune][5]uint8{
	'A': {0b010, 0b101, 0b111, 0b101, 0b101},
	'B': {0b110, 0b101, 0b110, 0b101, 0b110},
	'C': {0b011, 0b100, 0b100, 0b100, 0b011},
	'D': {0b110, 0b101, 0b101, 0b101, 0b110},
	'E': {0b111, 0b100, 0b110, 0b100, 0b111},
	'F': {0b111, 0b100, 0b110, 0b100, 0b100},
	'G': {0b011, 0b100, 0b101, 0b101, 0b011},
	'H': {0b101, 0b101, 0b111, 0b101, 0b101},
	'I': {0b111, 0b010, 0b010, 0b010, 0b111},
	'J': {0b001, 0b001, 0b001, 0b101, 0b010},
	'K': {0b101, 0b101, 0b110, 0b101, 0b101},
	'L': {0b100, 0b100, 0b100, 0b100, 0b111},
	'M': {0b101, 0b111, 0b101, 0b101, 0b101},
	'N': {0b101, 0b111, 0b111, 0b101, 0b101},
	'O': {0b010, 0b101, 0b101, 0b101, 0b010},
	'P': {0b110, 0b101, 0b110, 0b100, 0b100},
	'Q': {0b010, 0b101, 0b101, 0b111, 0b011},
	'R': {0b110, 0b101, 0b110, 0b101, 0b101},
	'S': {0b011, 0b100, 0b010, 0b001, 0b110},
	'T': {0b111, 0b010, 0b010, 0b010, 0b010},
	'U': {0b101, 0b101, 0b101, 0b101, 0b111},
	'V': {0b101, 0b101, 0b101, 0b101, 0b010},
	'W': {0b101, 0b101, 0b101, 0b111, 0b101},
	'X': {0b101, 0b101, 0b010, 0b101, 0b101},
	'Y': {0b101, 0b101, 0b010, 0b010, 0b010},
	'Z': {0b111, 0b001, 0b010, 0b100, 0b111},
	'+': {0b000, 0b010, 0b111, 0b010, 0b000},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'/': {0b001, 0b001, 0b010, 0b100, 0b100},
	'.': {0b000, 0b000, 0b000, 0b000, 0b010},
	'?': {0b111, 0b001, 0b010, 0b000, 0b010},
	'"': {0b101, 0b101, 0b000, 0b000, 0b000},
	' ': {0b000, 0b000, 0b000, 0b000, 0b000},
}

// getCharPattern returns the 3x5 pixel pattern for a character.
// Returns a zero pattern for unsupported characters.
func getCharPattern(ch rune) [5]uint8 {
	if ch >= '0' && ch <= '9' {
		return digitPatterns[ch-'0']
	}
	if ch >= 'a' && ch <= 'z' {
		ch = ch - 'a' + 'A'
	}
	if pattern, ok := letterPatterns[ch]; ok {
		return pattern
	}
	return [5]uint8{}
}

// blendPixel composites col onto one pixel, ignoring points outside output.
func blendPixel(output *image.RGBA, x, y int, col color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(output.Bounds()) {
		return
	}
	output.SetRGBA(x, y, colorutil.Blend(output.RGBAAt(x, y), col))
}

// fillRect fills [x1,x2) x [y1,y2) with col.
func fillRect(output *image.RGBA, x1, y1, x2, y2 int, col color.NRGBA) {
	r := image.Rect(x1, y1, x2, y2).Intersect(output.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			output.SetRGBA(x, y, colorutil.Blend(output.RGBAAt(x, y), col))
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.NRGBA, thickness int) {
	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	col.A = 255
	for {
		for t := -thickness / 2; t <= (thickness-1)/2; t++ {
			for s := -thickness / 2; s <= (thickness-1)/2; s++ {
				blendPixel(output, x1+s, y1+t, col)
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawDashedLine draws a line with dash segments of the given length.
func drawDashedLine(output *image.RGBA, a, b geometry.Point2D, col color.NRGBA, thickness int, dash float64) {
	length := a.Distance(b)
	if length == 0 || dash <= 0 {
		return
	}
	dir := b.Sub(a).Scale(1 / length)
	for s := 0.0; s < length; s += 2 * dash {
		e := math.Min(s+dash, length)
		p, q := a.Add(dir.Scale(s)), a.Add(dir.Scale(e))
		drawLine(output, int(p.X), int(p.Y), int(q.X), int(q.Y), col, thickness)
	}
}

// fillPolygon fills a polygon using the scanline algorithm.
func fillPolygon(output *image.RGBA, points []geometry.Point2D, col color.NRGBA) {
	if len(points) < 3 {
		return
	}
	box, err := geometry.BoundingBox(points)
	if err != nil {
		return
	}
	bounds := output.Bounds()
	n := len(points)
	var xs []float64
	for y := int(box.MinY); y <= int(box.MaxY); y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		fy := float64(y) + 0.5
		xs = xs[:0]
		for i := 0; i < n; i++ {
			p1 := points[i]
			p2 := points[(i+1)%n]
			if (p1.Y <= fy && p2.Y > fy) || (p2.Y <= fy && p1.Y > fy) {
				t := (fy - p1.Y) / (p2.Y - p1.Y)
				xs = append(xs, p1.X+t*(p2.X-p1.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			fillRect(output, int(math.Round(xs[i])), y, int(math.Round(xs[i+1])), y+1, col)
		}
	}
}

// strokePolygon draws a closed outline.
func strokePolygon(output *image.RGBA, points []geometry.Point2D, col color.NRGBA, thickness int) {
	n := len(points)
	for i := 0; i < n; i++ {
		p1 := points[i]
		p2 := points[(i+1)%n]
		drawLine(output, int(p1.X), int(p1.Y), int(p2.X), int(p2.Y), col, thickness)
	}
}

// fillCircle draws a filled circle.
func fillCircle(output *image.RGBA, c geometry.Point2D, r float64, col color.NRGBA) {
	drawRing(output, c, r, r, col)
}

// drawRing draws a ring of the given width inside radius r. A width of r or
// more fills the circle.
func drawRing(output *image.RGBA, c geometry.Point2D, r, width float64, col color.NRGBA) {
	r2 := r * r
	inner := math.Max(r-width, 0)
	inner2 := inner * inner
	for y := int(c.Y - r - 1); y <= int(c.Y+r+1); y++ {
		for x := int(c.X - r - 1); x <= int(c.X+r+1); x++ {
			dx := float64(x) + 0.5 - c.X
			dy := float64(y) + 0.5 - c.Y
			d2 := dx*dx + dy*dy
			if d2 <= r2 && (inner == 0 || d2 >= inner2) {
				blendPixel(output, x, y, col)
			}
		}
	}
}

// fillRoundedRect fills a rectangle with rounded corners of radius rad.
func fillRoundedRect(output *image.RGBA, lo, hi geometry.Point2D, rad float64, col color.NRGBA) {
	rad = math.Min(rad, math.Min(hi.X-lo.X, hi.Y-lo.Y)/2)
	for y := int(lo.Y); y < int(math.Ceil(hi.Y)); y++ {
		for x := int(lo.X); x < int(math.Ceil(hi.X)); x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			cx := geometry.Clamp(px, lo.X+rad, hi.X-rad)
			cy := geometry.Clamp(py, lo.Y+rad, hi.Y-rad)
			if (px-cx)*(px-cx)+(py-cy)*(py-cy) <= rad*rad {
				blendPixel(output, x, y, col)
			}
		}
	}
}

// textSize returns the pixel size of label drawn at scale.
func textSize(label string, scale int) (w, h int) {
	n := len([]rune(label))
	if n == 0 {
		return 0, 0
	}
	return n*3*scale + (n-1)*scale, 5 * scale
}

// drawText draws label with its top-left corner at (x, y).
func drawText(output *image.RGBA, label string, x, y int, col color.NRGBA, scale int) {
	if scale < 1 {
		scale = 1
	}
	charWidth := 3 * scale
	spacing := scale
	for i, ch := range []rune(label) {
		pattern := getCharPattern(ch)
		charX := x + i*(charWidth+spacing)
		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if (pattern[row] & (1 << (2 - c))) == 0 {
					continue
				}
				px := charX + c*scale
				py := y + row*scale
				fillRect(output, px, py, px+scale, py+scale, col)
			}
		}
	}
}

// drawTextCentered draws label centered on (cx, cy).
func drawTextCentered(output *image.RGBA, label string, cx, cy int, col color.NRGBA, scale int) {
	w, h := textSize(label, scale)
	drawText(output, label, cx-w/2, cy-h/2, col, scale)
}

// fontScale picks a bitmap font scale for a projector, two font pixels per
// sheet pixel at scale 1.
func fontScale(proj Projector) int {
	s := int(math.Round(proj.Size(2)))
	return max(1, min(s, 6))
}

// DrawOverlay draws an overlay onto output in render order: polygons,
// arrows, markers, then handles and the drag preview.
func DrawOverlay(output *image.RGBA, ov *Overlay, proj Projector) {
	scale := fontScale(proj)
	for _, poly := range ov.Polygons {
		drawPolygon(output, poly, proj, scale)
	}
	for _, a := range ov.Arrows {
		drawArrow(output, a, scale)
	}
	for _, m := range ov.Markers {
		drawMarker(output, m, scale)
	}
	for _, h := range ov.Handles {
		fillCircle(output, h.Center, h.Radius, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		drawRing(output, h.Center, h.Radius, 2, h.Color)
		fillCircle(output, h.Center, math.Max(h.Radius*0.35, 1.5), h.Color)
	}
	if r := ov.Preview; r != nil {
		dash := proj.Size(6)
		corners := []geometry.Point2D{r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y}}
		fillPolygon(output, corners, colorutil.WithAlpha(r.Stroke, 0x14))
		for i := range corners {
			drawDashedLine(output, corners[i], corners[(i+1)%4], r.Stroke, 2, dash)
		}
	}
	if a := ov.PreviewArrow; a != nil {
		drawArrow(output, *a, scale)
	}
}

func drawPolygon(output *image.RGBA, poly OverlayPolygon, proj Projector, scale int) {
	fillPolygon(output, poly.Points, poly.Fill)
	strokePolygon(output, poly.Points, poly.Stroke, poly.Width)

	box, err := geometry.BoundingBox(poly.Points)
	if err != nil {
		return
	}
	pad := int(proj.Size(8))
	_, lh := textSize(poly.Label, scale)
	drawText(output, poly.Label, int(box.MinX)+pad, int(box.MinY)+pad, poly.Stroke, scale)
	if poly.SubLabel != "" {
		drawText(output, poly.SubLabel, int(box.MinX)+pad, int(box.MinY)+pad+lh+pad/2, poly.Stroke, scale)
	}
	if poly.Badge != "" {
		c := geometry.Point2D{X: box.MaxX, Y: box.MinY}
		fillCircle(output, c, proj.Size(badgeRadius), poly.Stroke)
		drawTextCentered(output, poly.Badge, int(c.X), int(c.Y), color.NRGBA{R: 255, G: 255, B: 255, A: 255}, scale)
	}
}

// arrowHead returns the triangle for a head pointing along angle at tip.
func arrowHead(tip geometry.Point2D, angle, size float64) []geometry.Point2D {
	return []geometry.Point2D{
		tip,
		{X: tip.X - size*math.Cos(angle-math.Pi/6), Y: tip.Y - size*math.Sin(angle-math.Pi/6)},
		{X: tip.X - size*math.Cos(angle+math.Pi/6), Y: tip.Y - size*math.Sin(angle+math.Pi/6)},
	}
}

func drawHead(output *image.RGBA, tip geometry.Point2D, angle float64, a OverlayArrow) {
	half := a.HeadSize / 2
	switch a.Head {
	case HeadCircle:
		fillCircle(output, tip, half, a.Stroke)
	case HeadBox:
		lo := geometry.Point2D{X: tip.X - half, Y: tip.Y - half}
		hi := geometry.Point2D{X: tip.X + half, Y: tip.Y + half}
		fillRoundedRect(output, lo, hi, 2, a.Stroke)
	default:
		fillPolygon(output, arrowHead(tip, angle, a.HeadSize), a.Stroke)
	}
}

func drawArrow(output *image.RGBA, a OverlayArrow, scale int) {
	drawLine(output, int(a.From.X), int(a.From.Y), int(a.To.X), int(a.To.Y), a.Stroke, a.Width)
	angle := math.Atan2(a.To.Y-a.From.Y, a.To.X-a.From.X)
	drawHead(output, a.To, angle, a)
	if a.Head == HeadDouble {
		drawHead(output, a.From, angle+math.Pi, a)
	}
	if a.Label != "" {
		_, h := textSize(a.Label, scale)
		drawText(output, a.Label, int(a.LabelAt.X), int(a.LabelAt.Y)-h/2, a.Stroke, scale)
	}
}

func drawMarker(output *image.RGBA, m OverlayMarker, scale int) {
	r := m.Radius
	lo := geometry.Point2D{X: m.Center.X - r, Y: m.Center.Y - r}
	hi := geometry.Point2D{X: m.Center.X + r, Y: m.Center.Y + r}
	if m.Selected {
		ring := color.NRGBA{R: 17, G: 24, B: 39, A: 255}
		grow := math.Max(r*0.2, 2)
		if m.Shape == MarkerRound {
			fillCircle(output, m.Center, r+grow, ring)
		} else {
			g := geometry.Point2D{X: grow, Y: grow}
			fillRoundedRect(output, lo.Sub(g), hi.Add(g), r*0.5, ring)
		}
	}
	if m.Shape == MarkerRound {
		fillCircle(output, m.Center, r, m.Fill)
	} else {
		fillRoundedRect(output, lo, hi, r*0.4, m.Fill)
	}

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	lineScale := scale
	if len(m.Lines) > 1 {
		lineScale = max(1, scale*2/3)
	}
	_, h := textSize("0", lineScale)
	total := len(m.Lines)*h + (len(m.Lines)-1)*lineScale
	y := int(m.Center.Y) - total/2
	for _, line := range m.Lines {
		w, _ := textSize(line, lineScale)
		drawText(output, line, int(m.Center.X)-w/2, y, white, lineScale)
		y += h + lineScale
	}
}
