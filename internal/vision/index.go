package vision

import (
	"math"

	"github.com/gridsight/engine/internal/geom"
)

// SegmentIndex is a cell-based spatial index over wall segments, rebuilt
// whenever the blocker set changes and queried to prefilter blockers before
// raycasting. Caller does the fine-grained work; the index only narrows the
// candidate set, so over-returning is fine and under-returning is not.
// Accessed only from the owning session's goroutine; no locks.

// DefaultIndexCellPx is the cell edge used when no size is configured.
const DefaultIndexCellPx = 256.0

type indexCellKey struct {
	cx int32
	cy int32
}

type SegmentIndex struct {
	cell float64
	segs []geom.Segment
	grid map[indexCellKey][]int32

	// Populated cell bounds, so an unlimited-vision query cannot walk an
	// unbounded coordinate range.
	minCx, maxCx int32
	minCy, maxCy int32
}

// NewSegmentIndex indexes the given segments. Each segment lands in every
// cell its bounding rect touches. The segment slice is retained, not copied.
func NewSegmentIndex(cellPx float64, segs []geom.Segment) *SegmentIndex {
	if cellPx <= 0 {
		cellPx = DefaultIndexCellPx
	}
	idx := &SegmentIndex{
		cell: cellPx,
		segs: segs,
		grid: make(map[indexCellKey][]int32),
	}
	for i := range segs {
		r := segs[i].BoundingRect()
		x0 := idx.coord(r.X)
		y0 := idx.coord(r.Y)
		x1 := idx.coord(r.X + r.W)
		y1 := idx.coord(r.Y + r.H)
		if i == 0 {
			idx.minCx, idx.maxCx = x0, x1
			idx.minCy, idx.maxCy = y0, y1
		} else {
			idx.minCx = min32(idx.minCx, x0)
			idx.maxCx = max32(idx.maxCx, x1)
			idx.minCy = min32(idx.minCy, y0)
			idx.maxCy = max32(idx.maxCy, y1)
		}
		for cy := y0; cy <= y1; cy++ {
			for cx := x0; cx <= x1; cx++ {
				k := indexCellKey{cx: cx, cy: cy}
				idx.grid[k] = append(idx.grid[k], int32(i))
			}
		}
	}
	return idx
}

func (idx *SegmentIndex) coord(v float64) int32 {
	return int32(math.Floor(v / idx.cell))
}

// Len reports the number of indexed segments.
func (idx *SegmentIndex) Len() int { return len(idx.segs) }

// Query returns the segments whose cells intersect the square of half-width
// radius around origin, each at most once. Order is unspecified.
func (idx *SegmentIndex) Query(origin geom.Point, radius float64) []geom.Segment {
	if len(idx.segs) == 0 {
		return nil
	}
	x0 := clamp32(idx.coord(origin.X-radius), idx.minCx, idx.maxCx)
	x1 := clamp32(idx.coord(origin.X+radius), idx.minCx, idx.maxCx)
	y0 := clamp32(idx.coord(origin.Y-radius), idx.minCy, idx.maxCy)
	y1 := clamp32(idx.coord(origin.Y+radius), idx.minCy, idx.maxCy)

	seen := make([]bool, len(idx.segs))
	out := make([]geom.Segment, 0, 32)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			for _, i := range idx.grid[indexCellKey{cx: cx, cy: cy}] {
				if !seen[i] {
					seen[i] = true
					out = append(out, idx.segs[i])
				}
			}
		}
	}
	return out
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
