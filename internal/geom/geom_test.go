package geom

import (
	"math"
	"testing"
)

func TestPoint_Dist(t *testing.T) {
	p := Point{X: 0, Y: 0}
	q := Point{X: 3, Y: 4}
	if d := p.Dist(q); d != 5 {
		t.Fatalf("expected distance 5, got %.4f", d)
	}
	if d := p.DistSq(q); d != 25 {
		t.Fatalf("expected squared distance 25, got %.4f", d)
	}
}

func TestPoint_AngleTo(t *testing.T) {
	p := Point{}
	if a := p.AngleTo(Point{X: 10, Y: 0}); a != 0 {
		t.Fatalf("angle to east should be 0, got %.4f", a)
	}
	if a := p.AngleTo(Point{X: 0, Y: 10}); math.Abs(a-math.Pi/2) > 1e-9 {
		t.Fatalf("angle to south should be π/2, got %.4f", a)
	}
	if a := p.AngleTo(Point{X: -10, Y: 0}); math.Abs(math.Abs(a)-math.Pi) > 1e-9 {
		t.Fatalf("angle to west should be ±π, got %.4f", a)
	}
}

func TestSegment_BoundingRect_Reversed(t *testing.T) {
	s := Segment{A: Point{X: 50, Y: 80}, B: Point{X: 10, Y: 20}}
	r := s.BoundingRect()
	if r.X != 10 || r.Y != 20 || r.W != 40 || r.H != 60 {
		t.Fatalf("unexpected bounding rect %+v", r)
	}
}

func TestRect_Normalized(t *testing.T) {
	r := Rect{X: 100, Y: 100, W: -30, H: -40}.Normalized()
	if r.X != 70 || r.Y != 60 || r.W != 30 || r.H != 40 {
		t.Fatalf("unexpected normalized rect %+v", r)
	}
}

func TestRect_Contains_Edges(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 100, H: 50}
	if !r.Contains(Point{X: 0, Y: 0}) || !r.Contains(Point{X: 100, Y: 50}) {
		t.Fatal("edges should be inclusive")
	}
	if r.Contains(Point{X: 100.01, Y: 25}) {
		t.Fatal("point past the right edge should be outside")
	}
}

func TestRect_Intersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 100}
	if !a.Intersects(Rect{X: 50, Y: 50, W: 100, H: 100}) {
		t.Fatal("overlapping rects should intersect")
	}
	if !a.Intersects(Rect{X: 100, Y: 0, W: 10, H: 10}) {
		t.Fatal("edge-touching rects should intersect")
	}
	if a.Intersects(Rect{X: 101, Y: 0, W: 10, H: 10}) {
		t.Fatal("separated rects should not intersect")
	}
}

func TestCircle_Contains(t *testing.T) {
	c := Circle{Center: Point{X: 100, Y: 100}, Radius: 10}
	if !c.Contains(Point{X: 110, Y: 100}) {
		t.Fatal("boundary point should be inside")
	}
	if c.Contains(Point{X: 110.5, Y: 100}) {
		t.Fatal("point past the boundary should be outside")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5, 0, 10) != 0 || Clamp(15, 0, 10) != 10 || Clamp(7, 0, 10) != 7 {
		t.Fatal("clamp bounds wrong")
	}
}
