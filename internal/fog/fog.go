// Package fog tracks which parts of a map the players have already seen.
// Revealed areas are an append-only set of rects and circles; membership is
// point-in-any-area. "Ever explored" here is independent of "currently
// visible", which is the vision package's business.
package fog

import (
	"errors"

	"github.com/gridsight/engine/internal/geom"
)

// ErrAreaNotFound reports a delete against an unknown area id.
var ErrAreaNotFound = errors.New("fog: revealed area not found")

// AreaKind discriminates the shape held by an Area.
type AreaKind string

const (
	KindRect   AreaKind = "rect"
	KindCircle AreaKind = "circle"
)

// Area is one revealed region. Immutable once created; re-fogging deletes
// it rather than shrinking it.
type Area struct {
	ID     int64
	Kind   AreaKind
	Rect   geom.Rect
	Circle geom.Circle
}

func (a Area) contains(p geom.Point) bool {
	if a.Kind == KindCircle {
		return a.Circle.Contains(p)
	}
	return a.Rect.Contains(p)
}

// Tracker is one map's fog state. Disabled means no masking: every point
// reads as revealed and reveal operations are still recorded, so toggling
// fog back on keeps prior exploration. Accessed only from the owning
// session's goroutine; no locks.
type Tracker struct {
	enabled bool
	nextID  int64
	areas   []Area
}

func NewTracker(enabled bool) *Tracker {
	return &Tracker{enabled: enabled, nextID: 1}
}

// Enabled reports whether fog masking is on.
func (t *Tracker) Enabled() bool { return t.enabled }

func (t *Tracker) Enable()  { t.enabled = true }
func (t *Tracker) Disable() { t.enabled = false }

// RevealRect records a rectangular reveal and returns the stored area.
// Negative spans are normalized on the way in.
func (t *Tracker) RevealRect(r geom.Rect) Area {
	a := Area{ID: t.nextID, Kind: KindRect, Rect: r.Normalized()}
	t.nextID++
	t.areas = append(t.areas, a)
	return a
}

// RevealCircle records a circular reveal and returns the stored area.
func (t *Tracker) RevealCircle(c geom.Circle) Area {
	a := Area{ID: t.nextID, Kind: KindCircle, Circle: c}
	t.nextID++
	t.areas = append(t.areas, a)
	return a
}

// RevealAll records a single rect covering the whole map.
func (t *Tracker) RevealAll(mapW, mapH float64) Area {
	return t.RevealRect(geom.Rect{X: 0, Y: 0, W: mapW, H: mapH})
}

// DeleteArea re-fogs one prior reveal. Unknown ids leave the set untouched
// and report ErrAreaNotFound.
func (t *Tracker) DeleteArea(id int64) error {
	for i := range t.areas {
		if t.areas[i].ID == id {
			t.areas = append(t.areas[:i], t.areas[i+1:]...)
			return nil
		}
	}
	return ErrAreaNotFound
}

// ResetFog drops every revealed area.
func (t *Tracker) ResetFog() {
	t.areas = t.areas[:0]
}

// IsPointRevealed reports whether a point has been explored. With fog
// disabled everything reads as revealed. The linear scan is deliberate:
// area counts are tens per map, not thousands.
func (t *Tracker) IsPointRevealed(p geom.Point) bool {
	if !t.enabled {
		return true
	}
	for i := range t.areas {
		if t.areas[i].contains(p) {
			return true
		}
	}
	return false
}

// Count reports the number of revealed areas.
func (t *Tracker) Count() int { return len(t.areas) }

// Areas returns a copy of the revealed-area set in creation order.
func (t *Tracker) Areas() []Area {
	out := make([]Area, len(t.areas))
	copy(out, t.areas)
	return out
}

// Restore replaces the area set wholesale, as when loading persisted state.
// Future ids continue above the restored maximum.
func (t *Tracker) Restore(areas []Area) {
	t.areas = make([]Area, len(areas))
	copy(t.areas, areas)
	t.nextID = 1
	for i := range areas {
		if areas[i].ID >= t.nextID {
			t.nextID = areas[i].ID + 1
		}
	}
}
