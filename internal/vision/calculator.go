// Package vision computes visibility polygons by angular raycasting against
// wall segments, with a spatial prefilter and a version-keyed polygon cache
// layered on top for large maps.
package vision

import (
	"math"
	"sort"

	"github.com/gridsight/engine/internal/geom"
)

// Defaults for Params fields left zero or invalid.
const (
	DefaultPullbackPx = 5.0
	DefaultEpsilonRad = 1e-4
	DefaultDedupePx   = 0.5
)

// parallelEps rejects near-zero ray/segment determinants.
const parallelEps = 1e-10

// uEps keeps endpoint hits valid under float error, so a ray aimed exactly
// at the shared corner of two walls cannot slip between them.
const uEps = 1e-9

// Params tunes the calculator. PullbackPx shifts wall hits back toward the
// origin so the polygon edge sits just inside wall artwork instead of on it;
// zero disables the pull-back, negative selects the default. EpsilonRad is
// the corner-resolution ray offset and DedupePx the vertex merge tolerance;
// both fall back to defaults when not positive.
type Params struct {
	PullbackPx float64
	EpsilonRad float64
	DedupePx   float64
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		PullbackPx: DefaultPullbackPx,
		EpsilonRad: DefaultEpsilonRad,
		DedupePx:   DefaultDedupePx,
	}
}

// Calculator computes visibility polygons. It holds only tuning values, so a
// single instance serves any number of maps.
type Calculator struct {
	pullback float64
	epsilon  float64
	dedupe   float64
}

func NewCalculator(p Params) *Calculator {
	if p.PullbackPx < 0 {
		p.PullbackPx = DefaultPullbackPx
	}
	if p.EpsilonRad <= 0 {
		p.EpsilonRad = DefaultEpsilonRad
	}
	if p.DedupePx <= 0 {
		p.DedupePx = DefaultDedupePx
	}
	return &Calculator{pullback: p.PullbackPx, epsilon: p.EpsilonRad, dedupe: p.DedupePx}
}

// Compute returns the visibility polygon from origin: the ordered vertex
// list of the region reachable by an unobstructed straight line, limited by
// maxRadius and the map extents. The polygon is implicitly closed; vertices
// are sorted by angle and deduplicated. A non-positive radius sees nothing
// and yields nil.
//
// Recomputation is the caller's job; nothing is cached here.
func (c *Calculator) Compute(origin geom.Point, blockers []geom.Segment, maxRadius, mapW, mapH float64) []geom.Point {
	if maxRadius <= 0 {
		return nil
	}

	// Candidate angles: every blocker endpoint in range, plus the corners of
	// the radius box clamped to the map so an open field still produces a
	// polygon.
	angles := make([]float64, 0, len(blockers)*2+4)
	rsq := maxRadius * maxRadius
	for _, s := range blockers {
		if s.A.DistSq(origin) <= rsq {
			angles = append(angles, origin.AngleTo(s.A))
		}
		if s.B.DistSq(origin) <= rsq {
			angles = append(angles, origin.AngleTo(s.B))
		}
	}
	minX := geom.Clamp(origin.X-maxRadius, 0, mapW)
	maxX := geom.Clamp(origin.X+maxRadius, 0, mapW)
	minY := geom.Clamp(origin.Y-maxRadius, 0, mapH)
	maxY := geom.Clamp(origin.Y+maxRadius, 0, mapH)
	corners := [4]geom.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
	for _, corner := range corners {
		if corner != origin {
			angles = append(angles, origin.AngleTo(corner))
		}
	}

	edges := [4]geom.Segment{
		{A: geom.Point{X: 0, Y: 0}, B: geom.Point{X: mapW, Y: 0}},
		{A: geom.Point{X: mapW, Y: 0}, B: geom.Point{X: mapW, Y: mapH}},
		{A: geom.Point{X: mapW, Y: mapH}, B: geom.Point{X: 0, Y: mapH}},
		{A: geom.Point{X: 0, Y: mapH}, B: geom.Point{X: 0, Y: 0}},
	}

	// Three rays per candidate so both sides of every corner resolve.
	type hit struct {
		angle float64
		p     geom.Point
	}
	hits := make([]hit, 0, len(angles)*3)
	for _, base := range angles {
		for _, a := range [3]float64{base - c.epsilon, base, base + c.epsilon} {
			hits = append(hits, hit{
				angle: normalizeAngle(a),
				p:     c.cast(origin, a, blockers, &edges, maxRadius, mapW, mapH),
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].angle < hits[j].angle })

	poly := make([]geom.Point, 0, len(hits))
	dsq := c.dedupe * c.dedupe
	for _, h := range hits {
		if n := len(poly); n > 0 && poly[n-1].DistSq(h.p) < dsq {
			continue
		}
		poly = append(poly, h.p)
	}
	// The polygon closes implicitly, so the wrap seam dedupes too.
	for len(poly) > 1 && poly[len(poly)-1].DistSq(poly[0]) < dsq {
		poly = poly[:len(poly)-1]
	}
	return poly
}

// cast follows one ray to its hit point: the nearest blocker intersection
// pulled back toward the origin, the nearest map edge as-is, or the
// radius-capped point clamped to the map when nothing solid is closer.
func (c *Calculator) cast(origin geom.Point, angle float64, blockers []geom.Segment, edges *[4]geom.Segment, maxRadius, mapW, mapH float64) geom.Point {
	dir := geom.Point{X: math.Cos(angle), Y: math.Sin(angle)}

	best := math.Inf(1)
	wall := false
	for i := range blockers {
		if t, ok := raySegment(origin, dir, blockers[i]); ok && t < best {
			best, wall = t, true
		}
	}
	for i := range edges {
		if t, ok := raySegment(origin, dir, edges[i]); ok && t < best {
			best, wall = t, false
		}
	}

	if best > maxRadius {
		return geom.Point{
			X: geom.Clamp(origin.X+dir.X*maxRadius, 0, mapW),
			Y: geom.Clamp(origin.Y+dir.Y*maxRadius, 0, mapH),
		}
	}
	if wall && c.pullback > 0 {
		best -= c.pullback
		if best < 0 {
			best = 0
		}
	}
	return geom.Point{X: origin.X + dir.X*best, Y: origin.Y + dir.Y*best}
}

// raySegment intersects the ray origin+t*dir with a segment, returning the
// ray distance t. Near-parallel pairs report no hit.
func raySegment(origin, dir geom.Point, s geom.Segment) (float64, bool) {
	sx := s.B.X - s.A.X
	sy := s.B.Y - s.A.Y
	den := dir.X*sy - dir.Y*sx
	if math.Abs(den) < parallelEps {
		return 0, false
	}
	ax := s.A.X - origin.X
	ay := s.A.Y - origin.Y
	t := (ax*sy - ay*sx) / den
	u := (ax*dir.Y - ay*dir.X) / den
	if t < 0 || u < -uEps || u > 1+uEps {
		return 0, false
	}
	return t, true
}

// normalizeAngle wraps an angle into (-pi, pi] so epsilon rays straddling
// the seam still sort into angular order.
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
