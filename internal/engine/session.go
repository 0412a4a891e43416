package engine

import (
	"github.com/gridsight/engine/internal/fog"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/scripting"
	"github.com/gridsight/engine/internal/vision"
	"github.com/gridsight/engine/internal/world"
	"go.uber.org/zap"
)

// Session is one loaded map plus the machinery that answers queries about
// it: segment index, polygon cache, script dispatch, store bookkeeping.
// Like the MapContext it wraps, a session belongs to a single goroutine.
type Session struct {
	eng *Engine
	log *zap.Logger

	Map    *world.MapContext
	Report *world.LoadReport

	cache        *vision.Cache
	index        *vision.SegmentIndex
	indexVersion uint64

	ambientARGB string
	mapID       int64           // store row id once synced, else 0
	lightRows   map[int64]int64 // session light id -> light_sources row id
	inHook      bool
}

// ── Visibility queries ──

// VisibilityFor computes the visibility polygon for a token, using its
// resolved vision radius at its current position.
func (s *Session) VisibilityFor(tokenID int64) ([]geom.Point, error) {
	t, ok := s.Map.Token(tokenID)
	if !ok {
		return nil, world.ErrTokenNotFound
	}
	return s.visibility(t.Pos, s.tokenVision(t).RadiusPx), nil
}

// VisibilityFrom computes the visibility polygon from an arbitrary origin
// with a fixed radius in feet. Workbench entry point.
func (s *Session) VisibilityFrom(origin geom.Point, radiusFt float64) []geom.Point {
	return s.visibility(origin, light.FeetToPx(radiusFt, s.Map.Res.PixelsPerGrid))
}

func (s *Session) visibility(origin geom.Point, radiusPx float64) []geom.Point {
	version := s.Map.StateVersion()
	if poly, ok := s.cache.Get(origin, version, radiusPx); ok {
		return poly
	}
	poly := s.eng.calc.Compute(origin, s.blockers(origin, radiusPx, version), radiusPx,
		s.Map.Res.WidthPx(), s.Map.Res.HeightPx())
	s.cache.Put(origin, version, radiusPx, poly)
	return poly
}

// blockers returns the effective blockers near origin, rebuilding the
// segment index when the map state has moved since it was built.
func (s *Session) blockers(origin geom.Point, radiusPx float64, version uint64) []geom.Segment {
	if s.index == nil || s.indexVersion != version {
		s.index = vision.NewSegmentIndex(s.eng.cfg.IndexCellPx, s.Map.EffectiveBlockers())
		s.indexVersion = version
	}
	return s.index.Query(origin, radiusPx)
}

// LightLevelAt resolves the light level at a point.
func (s *Session) LightLevelAt(p geom.Point) light.Level {
	return light.LevelAt(p, s.Map.Lights(), s.Map.Ambient())
}

// TokenVision resolves how far a token can currently see.
func (s *Session) TokenVision(tokenID int64) (light.Vision, error) {
	t, ok := s.Map.Token(tokenID)
	if !ok {
		return light.Vision{}, world.ErrTokenNotFound
	}
	return s.tokenVision(t), nil
}

func (s *Session) tokenVision(t world.Token) light.Vision {
	prof := t.Vision
	prof.LightRadiusFt = s.carriedLightFt(t.ID)
	return light.ResolveVision(prof, t.Pos, s.Map.Lights(), s.Map.Ambient(), s.Map.Res.PixelsPerGrid)
}

// carriedLightFt is the reach in feet of the strongest active light source
// attached to the token. Zero when the token carries no light.
func (s *Session) carriedLightFt(tokenID int64) float64 {
	best := 0.0
	for _, l := range s.Map.Lights() {
		if !l.Active || l.TokenID == nil || *l.TokenID != tokenID {
			continue
		}
		r := l.DimRadiusPx
		if l.BrightRadiusPx > r {
			r = l.BrightRadiusPx
		}
		if ft := light.PxToFeet(r, s.Map.Res.PixelsPerGrid); ft > best {
			best = ft
		}
	}
	return best
}

// ── Portals ──

// TogglePortal flips a portal and fires the portal_changed hook.
func (s *Session) TogglePortal(id int64) (world.Portal, error) {
	p, err := s.Map.TogglePortal(id)
	if err != nil {
		return world.Portal{}, err
	}
	s.firePortalChanged(p, "toggle")
	return p, nil
}

// SetPortalState sets a portal's closed flag. The portal_changed hook fires
// only when the state actually moved.
func (s *Session) SetPortalState(id int64, closed bool) error {
	before, ok := s.Map.Portal(id)
	if !ok {
		return world.ErrPortalNotFound
	}
	if err := s.Map.SetPortalState(id, closed); err != nil {
		return err
	}
	if before.Closed != closed {
		after, _ := s.Map.Portal(id)
		s.firePortalChanged(after, "set")
	}
	return nil
}

// OpenAllPortals opens every portal, firing portal_changed per portal that
// was closed.
func (s *Session) OpenAllPortals() {
	s.bulkPortals(func() { s.Map.OpenAllPortals() }, "open_all")
}

// CloseAllPortals closes every portal, firing portal_changed per portal
// that was open.
func (s *Session) CloseAllPortals() {
	s.bulkPortals(func() { s.Map.CloseAllPortals() }, "close_all")
}

// ResetPortals restores every portal to its as-loaded state, firing
// portal_changed for each one that moved.
func (s *Session) ResetPortals() {
	s.bulkPortals(func() { s.Map.ResetPortalsToLoaded() }, "reset")
}

func (s *Session) bulkPortals(apply func(), cause string) {
	before := s.Map.Portals()
	apply()
	after := s.Map.Portals()
	for i := range after {
		if before[i].Closed != after[i].Closed {
			s.firePortalChanged(after[i], cause)
		}
	}
}

func (s *Session) firePortalChanged(p world.Portal, cause string) {
	s.fire(func() []scripting.Command {
		return s.eng.scripts.PortalChanged(scripting.PortalChangedContext{
			PortalID: int(p.ID),
			Closed:   p.Closed,
			Cause:    cause,
		})
	})
}

// ── Lights and ambient ──

// AddLight stores a light source on the map.
func (s *Session) AddLight(l light.Light) light.Light {
	return s.Map.AddLight(l)
}

// RemoveLight deletes a light source.
func (s *Session) RemoveLight(id int64) error {
	return s.Map.RemoveLight(id)
}

// SetLightActive switches a light source on or off.
func (s *Session) SetLightActive(id int64, active bool) error {
	return s.Map.SetLightActive(id, active)
}

// SetAmbient sets the map-wide base light level.
func (s *Session) SetAmbient(l light.Level) {
	s.Map.SetAmbient(l)
	s.ambientARGB = ambientHex(l)
}

// ambientHex is the canonical ARGB color for a level, for the store's
// ambient_light column. Chosen so the luminance bucketing maps it back to
// the same level.
func ambientHex(l light.Level) string {
	switch l {
	case light.Darkness:
		return "ff000000"
	case light.Dim:
		return "ff808080"
	default:
		return "ffffffff"
	}
}

// ── Tokens ──

// UpsertToken inserts or replaces a token.
func (s *Session) UpsertToken(t world.Token) {
	s.Map.UpsertToken(t)
}

// RemoveToken deletes a token and its attached lights.
func (s *Session) RemoveToken(id int64) error {
	return s.Map.RemoveToken(id)
}

// MoveToken repositions a token and fires the token_moved hook with the
// vision resolved at the new position.
func (s *Session) MoveToken(id int64, p geom.Point) error {
	if err := s.Map.MoveToken(id, p); err != nil {
		return err
	}
	t, _ := s.Map.Token(id)
	s.fire(func() []scripting.Command {
		return s.eng.scripts.TokenMoved(scripting.TokenMovedContext{
			TokenID:        t.ID,
			Name:           t.Name,
			Type:           string(t.Type),
			X:              t.Pos.X,
			Y:              t.Pos.Y,
			LightLevel:     s.LightLevelAt(t.Pos).String(),
			VisionRadiusPx: s.tokenVision(t).RadiusPx,
		})
	})
	return nil
}

// ── Fog ──

// RevealRect reveals a rectangle and fires the area_revealed hook.
func (s *Session) RevealRect(r geom.Rect) fog.Area {
	a := s.Map.Fog.RevealRect(r)
	s.fireAreaRevealed(a)
	return a
}

// RevealCircle reveals a circle and fires the area_revealed hook.
func (s *Session) RevealCircle(c geom.Circle) fog.Area {
	a := s.Map.Fog.RevealCircle(c)
	s.fireAreaRevealed(a)
	return a
}

// RevealAll reveals the whole map and fires the area_revealed hook.
func (s *Session) RevealAll() fog.Area {
	a := s.Map.Fog.RevealAll(s.Map.Res.WidthPx(), s.Map.Res.HeightPx())
	s.fireAreaRevealed(a)
	return a
}

// RevealFromVision reveals a circle at a token's position with its resolved
// vision radius: the bridge from light and sight into the fog history. A
// token that can see nothing reveals nothing and the zero Area comes back.
func (s *Session) RevealFromVision(tokenID int64) (fog.Area, error) {
	t, ok := s.Map.Token(tokenID)
	if !ok {
		return fog.Area{}, world.ErrTokenNotFound
	}
	v := s.tokenVision(t)
	if v.RadiusPx <= 0 {
		return fog.Area{}, nil
	}
	return s.RevealCircle(geom.Circle{Center: t.Pos, Radius: v.RadiusPx}), nil
}

// DeleteArea removes one revealed area.
func (s *Session) DeleteArea(id int64) error {
	return s.Map.Fog.DeleteArea(id)
}

// ResetFog clears the reveal history.
func (s *Session) ResetFog() {
	s.Map.Fog.ResetFog()
}

// SetFogEnabled switches fog tracking on or off.
func (s *Session) SetFogEnabled(enabled bool) {
	if enabled {
		s.Map.Fog.Enable()
	} else {
		s.Map.Fog.Disable()
	}
}

func (s *Session) fireAreaRevealed(a fog.Area) {
	s.fire(func() []scripting.Command {
		ctx := scripting.AreaRevealedContext{
			AreaID: a.ID,
			Kind:   string(a.Kind),
		}
		if a.Kind == fog.KindCircle {
			ctx.X = a.Circle.Center.X
			ctx.Y = a.Circle.Center.Y
			ctx.Radius = a.Circle.Radius
		} else {
			ctx.X = a.Rect.X
			ctx.Y = a.Rect.Y
			ctx.Width = a.Rect.W
			ctx.Height = a.Rect.H
		}
		return s.eng.scripts.AreaRevealed(ctx)
	})
}

// ── Script dispatch ──

// ScenarioStep advances a scripted scenario by one step, executing its
// commands. Reported done when the script says so or is absent.
func (s *Session) ScenarioStep(step int) bool {
	if s.eng.scripts == nil {
		return true
	}
	res := s.eng.scripts.ScenarioStep(step)
	s.runCommands(res.Commands)
	return res.Done
}

// fire invokes one hook and executes its commands. Hooks fired by those
// commands are suppressed: a command executes at most one level deep.
func (s *Session) fire(hook func() []scripting.Command) {
	if s.eng.scripts == nil || s.inHook {
		return
	}
	s.runCommands(hook())
}

func (s *Session) runCommands(cmds []scripting.Command) {
	if len(cmds) == 0 {
		return
	}
	s.inHook = true
	defer func() { s.inHook = false }()
	for _, c := range cmds {
		s.execute(c)
	}
}

func (s *Session) execute(c scripting.Command) {
	switch c.Type {
	case "toggle_portal":
		if _, err := s.TogglePortal(int64(c.PortalID)); err != nil {
			s.log.Warn("script toggle_portal failed", zap.Int("portal_id", c.PortalID), zap.Error(err))
		}
	case "set_portal":
		if err := s.SetPortalState(int64(c.PortalID), c.Closed); err != nil {
			s.log.Warn("script set_portal failed", zap.Int("portal_id", c.PortalID), zap.Error(err))
		}
	case "open_all_portals":
		s.OpenAllPortals()
	case "close_all_portals":
		s.CloseAllPortals()
	case "reveal_rect":
		s.RevealRect(geom.Rect{X: c.X, Y: c.Y, W: c.Width, H: c.Height})
	case "reveal_circle":
		s.RevealCircle(geom.Circle{Center: geom.Point{X: c.X, Y: c.Y}, Radius: c.Radius})
	case "reveal_all":
		s.RevealAll()
	case "reset_fog":
		s.ResetFog()
	case "set_fog_enabled":
		s.SetFogEnabled(c.Enabled)
	case "set_ambient":
		s.SetAmbient(light.ParseLevel(c.Ambient))
	case "set_light_active":
		if err := s.SetLightActive(c.LightID, c.Active); err != nil {
			s.log.Warn("script set_light_active failed", zap.Int64("light_id", c.LightID), zap.Error(err))
		}
	case "log":
		s.log.Info("script message", zap.String("message", c.Message))
	default:
		s.log.Warn("unknown script command", zap.String("type", c.Type))
	}
}
