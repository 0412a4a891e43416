// Package geom holds the float pixel-space primitives shared by the
// visibility, light and fog packages. All coordinates are map pixels.
package geom

import "math"

// Point is a position in pixel space.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// DistSq returns the squared distance to q (no square root, for range checks).
func (p Point) DistSq(q Point) float64 {
	dx := q.X - p.X
	dy := q.Y - p.Y
	return dx*dx + dy*dy
}

// AngleTo returns the angle of the ray from p toward q in radians, (-π, π].
func (p Point) AngleTo(q Point) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}

// Segment is a line segment between two points (a wall piece).
type Segment struct {
	A Point
	B Point
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.A.Dist(s.B)
}

// Midpoint returns the segment midpoint.
func (s Segment) Midpoint() Point {
	return Point{X: (s.A.X + s.B.X) / 2, Y: (s.A.Y + s.B.Y) / 2}
}

// BoundingRect returns the axis-aligned rectangle spanned by the segment.
func (s Segment) BoundingRect() Rect {
	return Rect{
		X: math.Min(s.A.X, s.B.X),
		Y: math.Min(s.A.Y, s.B.Y),
		W: math.Abs(s.B.X - s.A.X),
		H: math.Abs(s.B.Y - s.A.Y),
	}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Normalized flips negative spans so W and H come out non-negative.
func (r Rect) Normalized() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether p lies inside r, edges inclusive.
func (r Rect) Contains(p Point) bool {
	r = r.Normalized()
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Intersects reports whether r and o overlap, edges inclusive.
func (r Rect) Intersects(o Rect) bool {
	r = r.Normalized()
	o = o.Normalized()
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Circle is a disc in pixel space.
type Circle struct {
	Center Point
	Radius float64
}

// Contains reports whether p lies inside the circle, boundary inclusive.
func (c Circle) Contains(p Point) bool {
	return c.Center.DistSq(p) <= c.Radius*c.Radius
}

// BoundingRect returns the axis-aligned rectangle enclosing the circle.
func (c Circle) BoundingRect() Rect {
	return Rect{
		X: c.Center.X - c.Radius,
		Y: c.Center.Y - c.Radius,
		W: c.Radius * 2,
		H: c.Radius * 2,
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
