package world

import (
	"errors"
	"testing"

	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
)

func testMap() *MapContext {
	m := NewMapContext(Resolution{PixelsPerGrid: 70, WidthGrid: 20, HeightGrid: 15})
	m.walls = []geom.Segment{
		{A: geom.Point{X: 0, Y: 0}, B: geom.Point{X: 700, Y: 0}},
	}
	m.portals = []Portal{
		{ID: 0, Wall: geom.Segment{A: geom.Point{X: 100, Y: 100}, B: geom.Point{X: 170, Y: 100}}, Closed: true, loadedClosed: true},
		{ID: 1, Wall: geom.Segment{A: geom.Point{X: 300, Y: 100}, B: geom.Point{X: 370, Y: 100}}, Closed: false, loadedClosed: false},
	}
	return m
}

func TestMapContext_EffectiveBlockers(t *testing.T) {
	m := testMap()
	blockers := m.EffectiveBlockers()
	// One wall plus the closed portal; the open portal must not block.
	if len(blockers) != 2 {
		t.Fatalf("blockers = %d, want 2", len(blockers))
	}

	if _, err := m.TogglePortal(1); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := len(m.EffectiveBlockers()); got != 3 {
		t.Fatalf("blockers after closing portal 1 = %d, want 3", got)
	}
}

func TestMapContext_TogglePortal(t *testing.T) {
	m := testMap()
	v0 := m.StateVersion()

	p, err := m.TogglePortal(0)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if p.Closed {
		t.Fatal("portal 0 should now be open")
	}
	if m.StateVersion() == v0 {
		t.Fatal("toggle must bump the state version")
	}

	if _, err := m.TogglePortal(99); !errors.Is(err, ErrPortalNotFound) {
		t.Fatalf("unknown portal: err = %v, want ErrPortalNotFound", err)
	}
}

func TestMapContext_SetPortalStateNoOp(t *testing.T) {
	m := testMap()
	v0 := m.StateVersion()
	if err := m.SetPortalState(0, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.StateVersion() != v0 {
		t.Fatal("setting a portal to its current state should not bump the version")
	}
	if err := m.SetPortalState(0, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.StateVersion() == v0 {
		t.Fatal("a real state change must bump the version")
	}
}

func TestMapContext_OpenAndCloseAll(t *testing.T) {
	m := testMap()
	m.OpenAllPortals()
	for _, p := range m.Portals() {
		if p.Closed {
			t.Fatalf("portal %d still closed after OpenAllPortals", p.ID)
		}
	}
	m.CloseAllPortals()
	for _, p := range m.Portals() {
		if !p.Closed {
			t.Fatalf("portal %d still open after CloseAllPortals", p.ID)
		}
	}
}

func TestMapContext_ResetPortalsToLoaded(t *testing.T) {
	m := testMap()
	// Portal 0 loaded closed, portal 1 loaded open. Scramble, then reset.
	if _, err := m.TogglePortal(0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.TogglePortal(1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.TogglePortal(0); err != nil {
		t.Fatal(err)
	}
	m.ResetPortalsToLoaded()

	p0, _ := m.Portal(0)
	p1, _ := m.Portal(1)
	if !p0.Closed {
		t.Fatal("portal 0 should reset to its loaded closed state")
	}
	if p1.Closed {
		t.Fatal("portal 1 should reset to its loaded open state")
	}
}

func TestMapContext_LightOps(t *testing.T) {
	m := testMap()
	l := m.AddLight(light.Light{Pos: geom.Point{X: 100, Y: 100}, BrightRadiusPx: 280, DimRadiusPx: 560, Active: true})
	if l.ID == 0 {
		t.Fatal("AddLight should assign an id")
	}
	if len(m.Lights()) != 1 {
		t.Fatalf("lights = %d, want 1", len(m.Lights()))
	}

	v0 := m.StateVersion()
	if err := m.SetLightActive(l.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if m.StateVersion() == v0 {
		t.Fatal("light mutation must bump the version")
	}
	if err := m.SetLightActive(99, true); !errors.Is(err, ErrLightNotFound) {
		t.Fatalf("unknown light: err = %v, want ErrLightNotFound", err)
	}

	if err := m.RemoveLight(l.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.RemoveLight(l.ID); !errors.Is(err, ErrLightNotFound) {
		t.Fatalf("double remove: err = %v, want ErrLightNotFound", err)
	}
}

func TestMapContext_SetAmbient(t *testing.T) {
	m := testMap()
	m.SetAmbient(light.Darkness)
	if m.Ambient() != light.Darkness {
		t.Fatalf("ambient = %v, want darkness", m.Ambient())
	}
	v0 := m.StateVersion()
	m.SetAmbient(light.Darkness)
	if m.StateVersion() != v0 {
		t.Fatal("setting the same ambient should not bump the version")
	}
}

func TestMapContext_TokenMoveDragsAttachedLight(t *testing.T) {
	m := testMap()
	m.UpsertToken(Token{ID: 7, Name: "Thorin", Type: TokenPC, Size: SizeMedium, Pos: geom.Point{X: 100, Y: 100}})
	tokID := int64(7)
	m.AddLight(light.Light{TokenID: &tokID, Pos: geom.Point{X: 100, Y: 100}, BrightRadiusPx: 280, DimRadiusPx: 560, Active: true})
	m.AddLight(light.Light{Pos: geom.Point{X: 500, Y: 500}, BrightRadiusPx: 140, DimRadiusPx: 280, Active: true})

	v0 := m.StateVersion()
	if err := m.MoveToken(7, geom.Point{X: 130, Y: 140}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if m.StateVersion() == v0 {
		t.Fatal("moving a light-carrying token must bump the version")
	}

	lights := m.Lights()
	if lights[0].Pos != (geom.Point{X: 130, Y: 140}) {
		t.Fatalf("attached light at %+v, want (130,140)", lights[0].Pos)
	}
	if lights[1].Pos != (geom.Point{X: 500, Y: 500}) {
		t.Fatalf("unattached light moved to %+v", lights[1].Pos)
	}
}

func TestMapContext_BareTokenMoveKeepsVersion(t *testing.T) {
	m := testMap()
	m.UpsertToken(Token{ID: 7, Pos: geom.Point{X: 100, Y: 100}})
	v0 := m.StateVersion()
	if err := m.MoveToken(7, geom.Point{X: 200, Y: 200}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if m.StateVersion() != v0 {
		t.Fatal("a token without lights changes no blockers; version must hold")
	}
	tok, ok := m.Token(7)
	if !ok || tok.Pos != (geom.Point{X: 200, Y: 200}) {
		t.Fatalf("token = %+v ok=%v", tok, ok)
	}

	if err := m.MoveToken(99, geom.Point{}); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("unknown token: err = %v, want ErrTokenNotFound", err)
	}
}

func TestMapContext_RemoveTokenDropsItsLights(t *testing.T) {
	m := testMap()
	m.UpsertToken(Token{ID: 7, Pos: geom.Point{X: 100, Y: 100}})
	tokID := int64(7)
	m.AddLight(light.Light{TokenID: &tokID, Pos: geom.Point{X: 100, Y: 100}, DimRadiusPx: 280, Active: true})

	if err := m.RemoveToken(7); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(m.Lights()) != 0 {
		t.Fatalf("attached light survived token removal")
	}
	if err := m.RemoveToken(7); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("double remove: err = %v, want ErrTokenNotFound", err)
	}
}

func TestParseTokenTypeAndSize(t *testing.T) {
	if ParseTokenType("PC") != TokenPC || ParseTokenType("whatever") != TokenMonster {
		t.Fatal("token type parse")
	}
	if ParseTokenSize("G") != SizeGargantuan || ParseTokenSize("odd") != SizeMedium {
		t.Fatal("token size parse")
	}
	if SizeTiny.GridSquares() != 0.5 || SizeHuge.GridSquares() != 3 {
		t.Fatal("grid squares")
	}
}

func TestParseGridType(t *testing.T) {
	if ParseGridType("hex") != GridHex || ParseGridType("NONE") != GridNone || ParseGridType("") != GridSquare {
		t.Fatal("grid type parse")
	}
}
