package draw

import "math"

// DrawCircle draws a circle outline approximated by a regular polygon.
// center and radius are in logical coordinates.
func (c *Canvas) DrawCircle(center Point, radius float64, segments int) {
	if segments < 3 || radius <= 0 {
		return
	}
	pts := c.BorrowPoints(segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		}
	}
	c.DrawPolygon(pts, false)
}

// DrawMarker draws a filled square of the given half-size around p.
func (c *Canvas) DrawMarker(p Point, half float64) {
	pts := c.BorrowPoints(4)
	pts[0] = Point{p.X - half, p.Y - half}
	pts[1] = Point{p.X + half, p.Y - half}
	pts[2] = Point{p.X + half, p.Y + half}
	pts[3] = Point{p.X - half, p.Y + half}
	c.DrawPolygon(pts, true)
}
