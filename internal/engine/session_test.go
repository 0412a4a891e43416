package engine

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/gridsight/engine/internal/fog"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/scripting"
	"github.com/gridsight/engine/internal/world"
)

// A sealed 4x4 room (grid 1,1 to 5,5) with one door in the south wall,
// default closed. Portal 1 sits in open space away from the room. One light
// far from the room, ambient darkness.
const vaultJSON = `{
  "format": 0.3,
  "resolution": {
    "map_origin": {"x": 0, "y": 0},
    "map_size": {"x": 20, "y": 15},
    "pixels_per_grid": 70
  },
  "line_of_sight": [
    [{"x": 1, "y": 1}, {"x": 5, "y": 1}, {"x": 5, "y": 5}, {"x": 3.5, "y": 5}],
    [{"x": 2.5, "y": 5}, {"x": 1, "y": 5}, {"x": 1, "y": 1}]
  ],
  "portals": [
    {"position": {"x": 3, "y": 5}, "bounds": [{"x": 2.5, "y": 5}, {"x": 3.5, "y": 5}], "rotation": 0},
    {"position": {"x": 9, "y": 8}, "bounds": [{"x": 8.5, "y": 8}, {"x": 9.5, "y": 8}], "closed": false}
  ],
  "lights": [
    {"position": {"x": 12, "y": 12}, "range": 4}
  ],
  "environment": {"baked_lighting": false, "ambient_light": "ff000000"}
}`

// roomCenter is grid (3,3) in pixels, inside the sealed room.
var roomCenter = geom.Point{X: 210, Y: 210}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(opts).LoadMap([]byte(vaultJSON), "vault")
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	return s
}

func newScriptedSession(t *testing.T, script string) *Session {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hooks.lua"), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	se, err := scripting.NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("script engine: %v", err)
	}
	t.Cleanup(se.Close)
	return newTestSession(t, Options{Scripts: se})
}

func ftPtr(v float64) *float64 { return &v }

func polyMaxY(poly []geom.Point) float64 {
	max := math.Inf(-1)
	for _, p := range poly {
		if p.Y > max {
			max = p.Y
		}
	}
	return max
}

func TestLoadMap_BuildsSession(t *testing.T) {
	s := newTestSession(t, Options{})

	if s.Map.Name != "vault" {
		t.Fatalf("name = %q, want vault", s.Map.Name)
	}
	if s.Report.Walls != 5 || s.Report.Portals != 2 || s.Report.Lights != 1 {
		t.Fatalf("report = %d walls %d portals %d lights, want 5/2/1",
			s.Report.Walls, s.Report.Portals, s.Report.Lights)
	}
	if len(s.Report.Skipped) != 0 {
		t.Fatalf("skipped = %+v, want none", s.Report.Skipped)
	}
	if len(s.Map.Fingerprint) != 64 {
		t.Fatalf("fingerprint = %q, want 64 hex chars", s.Map.Fingerprint)
	}
	if s.Map.Ambient() != light.Darkness {
		t.Fatalf("ambient = %v, want darkness", s.Map.Ambient())
	}
	if s.ambientARGB != "ff000000" {
		t.Fatalf("ambient color = %q, want ff000000 from the file", s.ambientARGB)
	}

	// Same bytes, same fingerprint.
	s2 := newTestSession(t, Options{})
	if s2.Map.Fingerprint != s.Map.Fingerprint {
		t.Fatal("fingerprint should be stable across loads of the same bytes")
	}
}

func TestVisibility_DoorOcclusion(t *testing.T) {
	s := newTestSession(t, Options{})

	// Door closed: the room is sealed, so no vertex escapes past the south
	// wall at y=350.
	closed := s.VisibilityFrom(roomCenter, 60)
	if len(closed) < 3 {
		t.Fatalf("closed polygon has %d vertices", len(closed))
	}
	if max := polyMaxY(closed); max > 355 {
		t.Fatalf("closed-door polygon reaches y=%v, want contained by the south wall", max)
	}

	if _, err := s.TogglePortal(0); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// Door open: rays pass through the doorway and reach well beyond it.
	open := s.VisibilityFrom(roomCenter, 60)
	if max := polyMaxY(open); max < 400 {
		t.Fatalf("open-door polygon reaches only y=%v, want past the doorway", max)
	}
}

func TestVisibility_CachedByStateVersion(t *testing.T) {
	s := newTestSession(t, Options{})

	s.VisibilityFrom(roomCenter, 30)
	if s.cache.Len() != 1 {
		t.Fatalf("cache len = %d after first query, want 1", s.cache.Len())
	}
	s.VisibilityFrom(roomCenter, 30)
	if s.cache.Len() != 1 {
		t.Fatalf("cache len = %d after repeat query, want 1 (hit)", s.cache.Len())
	}

	// A portal toggle moves the state version, so the same query recomputes
	// under a new key.
	if _, err := s.TogglePortal(0); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	s.VisibilityFrom(roomCenter, 30)
	if s.cache.Len() != 2 {
		t.Fatalf("cache len = %d after toggle, want 2", s.cache.Len())
	}
}

func TestVisibilityFor_UnknownToken(t *testing.T) {
	s := newTestSession(t, Options{})
	if _, err := s.VisibilityFor(99); !errors.Is(err, world.ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound", err)
	}
	if _, err := s.TokenVision(99); !errors.Is(err, world.ErrTokenNotFound) {
		t.Fatalf("vision err = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenVision_DarkvisionInDarkness(t *testing.T) {
	s := newTestSession(t, Options{})
	e := s.eng

	s.UpsertToken(world.Token{
		ID:     7,
		Name:   "Ranger",
		Type:   world.TokenPC,
		Pos:    roomCenter,
		Vision: e.VisionPresets().Profile("darkvision", ftPtr(60), 0),
	})

	v, err := s.TokenVision(7)
	if err != nil {
		t.Fatalf("vision: %v", err)
	}
	// 60 ft at 70 px per 5-ft square.
	if v.RadiusPx != 840 {
		t.Fatalf("radius = %v px, want 840", v.RadiusPx)
	}
	if !v.Dim {
		t.Fatal("darkvision in darkness should read as dim")
	}

	poly, err := s.VisibilityFor(7)
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if len(poly) < 3 {
		t.Fatalf("polygon has %d vertices", len(poly))
	}
}

func TestCarriedLight_FromAttachedTorch(t *testing.T) {
	s := newTestSession(t, Options{})

	tokenID := int64(3)
	s.UpsertToken(world.Token{
		ID:     tokenID,
		Name:   "Torchbearer",
		Type:   world.TokenPC,
		Pos:    roomCenter,
		Vision: s.eng.VisionPresets().Profile("normal", nil, 0),
	})
	s.AddLight(light.Light{
		TokenID:        &tokenID,
		Pos:            roomCenter,
		BrightRadiusPx: 140,
		DimRadiusPx:    280,
		CastsShadows:   true,
		Active:         true,
	})

	// Dim reach 280 px is 20 ft.
	if ft := s.carriedLightFt(tokenID); ft != 20 {
		t.Fatalf("carried light = %v ft, want 20", ft)
	}

	// Standing in its own torchlight the token is in bright light and sees
	// without limit.
	v, err := s.TokenVision(tokenID)
	if err != nil {
		t.Fatalf("vision: %v", err)
	}
	if v.Dim {
		t.Fatal("token inside its own bright radius should not be dim")
	}
	if v.RadiusPx != light.FeetToPx(light.UnlimitedFt, 70) {
		t.Fatalf("radius = %v px, want unlimited", v.RadiusPx)
	}
}

func TestMoveToken_DragsAttachedLight(t *testing.T) {
	s := newTestSession(t, Options{})

	tokenID := int64(4)
	s.UpsertToken(world.Token{ID: tokenID, Name: "Scout", Type: world.TokenPC, Pos: roomCenter})
	s.AddLight(light.Light{
		TokenID:        &tokenID,
		Pos:            roomCenter,
		BrightRadiusPx: 140,
		DimRadiusPx:    280,
		Active:         true,
	})

	if lv := s.LightLevelAt(roomCenter); lv != light.Bright {
		t.Fatalf("level at start = %v, want bright", lv)
	}

	dest := geom.Point{X: 700, Y: 490}
	if err := s.MoveToken(tokenID, dest); err != nil {
		t.Fatalf("move: %v", err)
	}
	if lv := s.LightLevelAt(dest); lv != light.Bright {
		t.Fatalf("level at destination = %v, want bright (torch came along)", lv)
	}
	if lv := s.LightLevelAt(roomCenter); lv != light.Darkness {
		t.Fatalf("level at old position = %v, want darkness", lv)
	}
}

func TestRevealFromVision(t *testing.T) {
	s := newTestSession(t, Options{})

	s.UpsertToken(world.Token{
		ID:     7,
		Pos:    roomCenter,
		Vision: s.eng.VisionPresets().Profile("darkvision", ftPtr(60), 0),
	})
	a, err := s.RevealFromVision(7)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if a.Kind != fog.KindCircle || a.Circle.Radius != 840 {
		t.Fatalf("area = %+v, want circle r=840", a)
	}
	if a.Circle.Center != roomCenter {
		t.Fatalf("area centered at %+v, want token position", a.Circle.Center)
	}
	if !s.Map.Fog.IsPointRevealed(roomCenter) {
		t.Fatal("token position should now be revealed")
	}

	// A token that sees nothing reveals nothing.
	s.UpsertToken(world.Token{
		ID:     8,
		Pos:    geom.Point{X: 500, Y: 500},
		Vision: s.eng.VisionPresets().Profile("blind", nil, 0),
	})
	before := s.Map.Fog.Count()
	a, err = s.RevealFromVision(8)
	if err != nil {
		t.Fatalf("blind reveal: %v", err)
	}
	if a.ID != 0 {
		t.Fatalf("blind token produced area %+v", a)
	}
	if s.Map.Fog.Count() != before {
		t.Fatal("blind token should not add a revealed area")
	}
}

func TestSetAmbient_CanonicalColor(t *testing.T) {
	s := newTestSession(t, Options{})

	s.SetAmbient(light.Bright)
	if s.Map.Ambient() != light.Bright || s.ambientARGB != "ffffffff" {
		t.Fatalf("bright: ambient=%v color=%q", s.Map.Ambient(), s.ambientARGB)
	}
	s.SetAmbient(light.Dim)
	if s.ambientARGB != "ff808080" {
		t.Fatalf("dim color = %q, want ff808080", s.ambientARGB)
	}
	// The stored color buckets back to the same level.
	if light.LevelFromAmbientColor(s.ambientARGB) != light.Dim {
		t.Fatal("canonical dim color should bucket back to dim")
	}
	s.SetAmbient(light.Darkness)
	if light.LevelFromAmbientColor(s.ambientARGB) != light.Darkness {
		t.Fatal("canonical darkness color should bucket back to darkness")
	}
}

func TestScriptHook_OneLevelDeep(t *testing.T) {
	// Each portal change toggles the other portal. Without suppression this
	// ping-pongs forever; with it, the chain stops after one hop.
	s := newScriptedSession(t, `
function portal_changed(ctx)
	return {{type = "toggle_portal", portal_id = 1 - ctx.portal_id}}
end
`)

	if _, err := s.TogglePortal(0); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	p0, _ := s.Map.Portal(0)
	p1, _ := s.Map.Portal(1)
	if p0.Closed {
		t.Fatal("portal 0 should be open; a second hook level would have flipped it back")
	}
	if !p1.Closed {
		t.Fatal("portal 1 should have been closed by the hook")
	}
}

func TestSetPortalState_HookOnlyOnChange(t *testing.T) {
	s := newScriptedSession(t, `
function portal_changed(ctx)
	return {{type = "toggle_portal", portal_id = 1 - ctx.portal_id}}
end
`)

	// Portal 0 already loads closed, so this is a no-op and no hook fires.
	if err := s.SetPortalState(0, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if p1, _ := s.Map.Portal(1); p1.Closed {
		t.Fatal("no-op set should not fire the hook")
	}

	if err := s.SetPortalState(0, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if p1, _ := s.Map.Portal(1); !p1.Closed {
		t.Fatal("real change should fire the hook")
	}
}

func TestMapLoadedHook_RunsCommands(t *testing.T) {
	s := newScriptedSession(t, `
function map_loaded(ctx)
	return {
		{type = "set_fog_enabled", enabled = false},
		{type = "log", message = "ready " .. ctx.name},
	}
end
`)
	if s.Map.Fog.Enabled() {
		t.Fatal("map_loaded command should have disabled fog")
	}
}

func TestTokenMovedHook_SeesLighting(t *testing.T) {
	s := newScriptedSession(t, `
function token_moved(ctx)
	if ctx.light_level == "darkness" then
		return {{type = "reveal_circle", x = ctx.x, y = ctx.y, radius = 35}}
	end
	return {}
end
`)

	s.UpsertToken(world.Token{ID: 5, Name: "Ghost", Type: world.TokenNPC, Pos: roomCenter})
	dest := geom.Point{X: 140, Y: 140}
	if err := s.MoveToken(5, dest); err != nil {
		t.Fatalf("move: %v", err)
	}

	areas := s.Map.Fog.Areas()
	if len(areas) != 1 {
		t.Fatalf("areas = %d, want the hook's reveal", len(areas))
	}
	if areas[0].Kind != fog.KindCircle || areas[0].Circle.Center != dest || areas[0].Circle.Radius != 35 {
		t.Fatalf("area = %+v, want circle r=35 at the destination", areas[0])
	}
}

func TestScenario_StepsWithSuppressedHooks(t *testing.T) {
	s := newScriptedSession(t, `
function scenario_step(step)
	if step == 1 then
		return {done = false, commands = {{type = "open_all_portals"}}}
	end
	return {done = true, commands = {{type = "reveal_all"}}}
end

function portal_changed(ctx)
	return {{type = "close_all_portals"}}
end
`)

	if done := s.ScenarioStep(1); done {
		t.Fatal("step 1 should not be done")
	}
	// The open_all ran as a scenario command, so portal_changed stayed
	// quiet; had it fired, everything would be closed again.
	for _, p := range s.Map.Portals() {
		if p.Closed {
			t.Fatalf("portal %d still closed after scenario open_all", p.ID)
		}
	}

	if done := s.ScenarioStep(2); !done {
		t.Fatal("step 2 should report done")
	}
	if s.Map.Fog.Count() != 1 {
		t.Fatalf("fog areas = %d, want the reveal_all rect", s.Map.Fog.Count())
	}
}

func TestScenarioStep_NoScripts(t *testing.T) {
	s := newTestSession(t, Options{})
	if !s.ScenarioStep(1) {
		t.Fatal("scenario without scripts is immediately done")
	}
}
