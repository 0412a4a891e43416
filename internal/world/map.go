// Package world models one loaded map: pixel-space walls, togglable
// portals, light sources, tokens, ambient light and fog state. All state is
// mutated through explicit operations and accessed only from the owning
// session's goroutine; no locks. Hosts with multiple callers serialize
// through a single command queue.
package world

import (
	"errors"
	"sort"
	"strings"

	"github.com/gridsight/engine/internal/fog"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
)

var (
	ErrPortalNotFound = errors.New("world: portal not found")
	ErrLightNotFound  = errors.New("world: light source not found")
	ErrTokenNotFound  = errors.New("world: token not found")
)

// Resolution fixes the grid-to-pixel conversion for a map's lifetime.
// Origin is in grid units; pixel space always starts at (0,0).
type Resolution struct {
	OriginX       float64
	OriginY       float64
	PixelsPerGrid float64
	WidthGrid     float64
	HeightGrid    float64
}

func (r Resolution) WidthPx() float64  { return r.WidthGrid * r.PixelsPerGrid }
func (r Resolution) HeightPx() float64 { return r.HeightGrid * r.PixelsPerGrid }

// GridType is carried for the host's overlay drawing; engine math only ever
// uses PixelsPerGrid.
type GridType string

const (
	GridSquare GridType = "square"
	GridHex    GridType = "hex"
	GridNone   GridType = "none"
)

func ParseGridType(s string) GridType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex":
		return GridHex
	case "none":
		return GridNone
	default:
		return GridSquare
	}
}

// Portal is a door or window: a wall segment whose blocking state toggles.
// The wall geometry never changes after load; only Closed does. The id is
// the load-order index, stable for a given map file.
type Portal struct {
	ID           int64
	Wall         geom.Segment
	Rotation     float64
	Freestanding bool
	Closed       bool

	loadedClosed bool
}

// MapContext is one map's full engine state. Created by BuildMap, discarded
// on unload.
type MapContext struct {
	Name        string
	Res         Resolution
	Grid        GridType
	Image       string
	Fingerprint string
	Fog         *fog.Tracker

	walls       []geom.Segment
	portals     []Portal
	lights      []light.Light
	tokens      map[int64]*Token
	ambient     light.Level
	nextLightID int64
	version     uint64
}

// NewMapContext builds an empty context with the given resolution. Mostly a
// test seam; real maps come from BuildMap.
func NewMapContext(res Resolution) *MapContext {
	return &MapContext{
		Res:         res,
		Grid:        GridSquare,
		Fog:         fog.NewTracker(true),
		tokens:      make(map[int64]*Token),
		ambient:     light.Bright,
		nextLightID: 1,
	}
}

// StateVersion is a monotonic counter bumped by every mutation that can
// change visibility: portal state, walls, lights, ambient. Cache keys carry
// it so invalidation is implicit.
func (m *MapContext) StateVersion() uint64 { return m.version }

func (m *MapContext) bump() { m.version++ }

// ── Walls and blockers ──

// Walls returns the static wall set (shared slice; callers must not mutate).
func (m *MapContext) Walls() []geom.Segment { return m.walls }

// EffectiveBlockers returns walls plus the walls of closed portals, as a
// fresh slice. This is the blocker set visibility casts against.
func (m *MapContext) EffectiveBlockers() []geom.Segment {
	out := make([]geom.Segment, 0, len(m.walls)+len(m.portals))
	out = append(out, m.walls...)
	for i := range m.portals {
		if m.portals[i].Closed {
			out = append(out, m.portals[i].Wall)
		}
	}
	return out
}

// ── Portals ──

func (m *MapContext) findPortal(id int64) *Portal {
	for i := range m.portals {
		if m.portals[i].ID == id {
			return &m.portals[i]
		}
	}
	return nil
}

// Portal returns a snapshot of one portal.
func (m *MapContext) Portal(id int64) (Portal, bool) {
	if p := m.findPortal(id); p != nil {
		return *p, true
	}
	return Portal{}, false
}

// Portals returns a snapshot of all portals in load order.
func (m *MapContext) Portals() []Portal {
	out := make([]Portal, len(m.portals))
	copy(out, m.portals)
	return out
}

// TogglePortal flips one portal and returns its new state.
func (m *MapContext) TogglePortal(id int64) (Portal, error) {
	p := m.findPortal(id)
	if p == nil {
		return Portal{}, ErrPortalNotFound
	}
	p.Closed = !p.Closed
	m.bump()
	return *p, nil
}

// SetPortalState sets one portal's closed flag.
func (m *MapContext) SetPortalState(id int64, closed bool) error {
	p := m.findPortal(id)
	if p == nil {
		return ErrPortalNotFound
	}
	if p.Closed != closed {
		p.Closed = closed
		m.bump()
	}
	return nil
}

// OpenAllPortals opens every portal on the map.
func (m *MapContext) OpenAllPortals() {
	changed := false
	for i := range m.portals {
		if m.portals[i].Closed {
			m.portals[i].Closed = false
			changed = true
		}
	}
	if changed {
		m.bump()
	}
}

// CloseAllPortals closes every portal on the map.
func (m *MapContext) CloseAllPortals() {
	changed := false
	for i := range m.portals {
		if !m.portals[i].Closed {
			m.portals[i].Closed = true
			changed = true
		}
	}
	if changed {
		m.bump()
	}
}

// ResetPortalsToLoaded restores the closed flags captured at load time, not
// a fixed default.
func (m *MapContext) ResetPortalsToLoaded() {
	changed := false
	for i := range m.portals {
		if m.portals[i].Closed != m.portals[i].loadedClosed {
			m.portals[i].Closed = m.portals[i].loadedClosed
			changed = true
		}
	}
	if changed {
		m.bump()
	}
}

// ── Lights ──

func (m *MapContext) findLight(id int64) *light.Light {
	for i := range m.lights {
		if m.lights[i].ID == id {
			return &m.lights[i]
		}
	}
	return nil
}

// AddLight stores a light source, assigning an id when the given one is
// zero, and returns the stored value.
func (m *MapContext) AddLight(l light.Light) light.Light {
	if l.ID == 0 {
		l.ID = m.nextLightID
	}
	if l.ID >= m.nextLightID {
		m.nextLightID = l.ID + 1
	}
	m.lights = append(m.lights, l)
	m.bump()
	return l
}

// RemoveLight deletes a light source.
func (m *MapContext) RemoveLight(id int64) error {
	for i := range m.lights {
		if m.lights[i].ID == id {
			m.lights = append(m.lights[:i], m.lights[i+1:]...)
			m.bump()
			return nil
		}
	}
	return ErrLightNotFound
}

// SetLightActive switches a light source on or off.
func (m *MapContext) SetLightActive(id int64, active bool) error {
	l := m.findLight(id)
	if l == nil {
		return ErrLightNotFound
	}
	if l.Active != active {
		l.Active = active
		m.bump()
	}
	return nil
}

// Lights returns a snapshot of all light sources.
func (m *MapContext) Lights() []light.Light {
	out := make([]light.Light, len(m.lights))
	copy(out, m.lights)
	return out
}

// ReplaceLights swaps in an authoritative light set, as when the store is
// synced over a freshly built map. Ids are assigned where zero and the id
// counter moves past the highest seen.
func (m *MapContext) ReplaceLights(ls []light.Light) {
	m.lights = make([]light.Light, 0, len(ls))
	for _, l := range ls {
		if l.ID == 0 {
			l.ID = m.nextLightID
		}
		if l.ID >= m.nextLightID {
			m.nextLightID = l.ID + 1
		}
		m.lights = append(m.lights, l)
	}
	m.bump()
}

// ── Ambient ──

func (m *MapContext) Ambient() light.Level { return m.ambient }

func (m *MapContext) SetAmbient(l light.Level) {
	if m.ambient != l {
		m.ambient = l
		m.bump()
	}
}

// ── Tokens ──

// UpsertToken inserts or replaces a token by id.
func (m *MapContext) UpsertToken(t Token) {
	cp := t
	m.tokens[t.ID] = &cp
}

// RemoveToken deletes a token and any light sources attached to it.
func (m *MapContext) RemoveToken(id int64) error {
	if _, ok := m.tokens[id]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, id)
	kept := m.lights[:0]
	dropped := false
	for _, l := range m.lights {
		if l.TokenID != nil && *l.TokenID == id {
			dropped = true
			continue
		}
		kept = append(kept, l)
	}
	m.lights = kept
	if dropped {
		m.bump()
	}
	return nil
}

// MoveToken repositions a token, dragging its attached light sources along.
// The state version moves only when lights moved; a bare token move does
// not change any blocker or light geometry.
func (m *MapContext) MoveToken(id int64, p geom.Point) error {
	t, ok := m.tokens[id]
	if !ok {
		return ErrTokenNotFound
	}
	delta := geom.Point{X: p.X - t.Pos.X, Y: p.Y - t.Pos.Y}
	t.Pos = p
	moved := false
	for i := range m.lights {
		l := &m.lights[i]
		if l.TokenID != nil && *l.TokenID == id {
			l.Pos = geom.Point{X: l.Pos.X + delta.X, Y: l.Pos.Y + delta.Y}
			moved = true
		}
	}
	if moved {
		m.bump()
	}
	return nil
}

// Token returns a snapshot of one token.
func (m *MapContext) Token(id int64) (Token, bool) {
	if t, ok := m.tokens[id]; ok {
		return *t, true
	}
	return Token{}, false
}

// Tokens returns all tokens ordered by id.
func (m *MapContext) Tokens() []Token {
	out := make([]Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
