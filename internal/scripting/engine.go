// Package scripting bridges map automation hooks into a Lua VM. Scripts
// react to engine events (map loaded, portal changed, token moved, area
// revealed) and hand back command lists the engine executes; a scenario
// entry point drives scripted walkthroughs. Single-goroutine access only,
// like the rest of the session state.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for map automation.
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	loaded int
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory root, then the optional maps and scenario subdirectories.
// Missing directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, sub := range []string{"maps", "scenario"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.loaded++
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Loaded reports how many script files the VM has executed.
func (e *Engine) Loaded() int {
	return e.loaded
}

// Has reports whether a global Lua function with the given name exists.
func (e *Engine) Has(fn string) bool {
	return e.vm.GetGlobal(fn) != lua.LNil
}

// Command is a single action returned by a Lua hook. Type is one of:
// "toggle_portal", "set_portal", "open_all_portals", "close_all_portals",
// "reveal_rect", "reveal_circle", "reveal_all", "reset_fog",
// "set_fog_enabled", "set_ambient", "set_light_active", "log".
type Command struct {
	Type     string
	PortalID int     // toggle_portal, set_portal
	Closed   bool    // set_portal
	X, Y     float64 // reveal_rect, reveal_circle
	Width    float64 // reveal_rect
	Height   float64 // reveal_rect
	Radius   float64 // reveal_circle
	Enabled  bool    // set_fog_enabled
	Ambient  string  // set_ambient: "bright", "dim", "darkness"
	LightID  int64   // set_light_active
	Active   bool    // set_light_active
	Message  string  // log
}

// MapLoadedContext holds pre-packed data for the map_loaded hook.
type MapLoadedContext struct {
	Name          string
	WidthPx       float64
	HeightPx      float64
	PixelsPerGrid float64
	Ambient       string
	WallCount     int
	PortalCount   int
	LightCount    int
	FogEnabled    bool
}

// MapLoaded calls the Lua map_loaded hook.
func (e *Engine) MapLoaded(ctx MapLoadedContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("width_px", lua.LNumber(ctx.WidthPx))
	t.RawSetString("height_px", lua.LNumber(ctx.HeightPx))
	t.RawSetString("pixels_per_grid", lua.LNumber(ctx.PixelsPerGrid))
	t.RawSetString("ambient", lua.LString(ctx.Ambient))
	t.RawSetString("wall_count", lua.LNumber(ctx.WallCount))
	t.RawSetString("portal_count", lua.LNumber(ctx.PortalCount))
	t.RawSetString("light_count", lua.LNumber(ctx.LightCount))
	t.RawSetString("fog_enabled", lBool(ctx.FogEnabled))

	return e.callHook("map_loaded", t)
}

// PortalChangedContext holds pre-packed data for the portal_changed hook.
// Cause is "toggle", "set", "open_all", "close_all" or "reset".
type PortalChangedContext struct {
	PortalID int
	Closed   bool
	Cause    string
}

// PortalChanged calls the Lua portal_changed hook.
func (e *Engine) PortalChanged(ctx PortalChangedContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("portal_id", lua.LNumber(ctx.PortalID))
	t.RawSetString("closed", lBool(ctx.Closed))
	t.RawSetString("cause", lua.LString(ctx.Cause))

	return e.callHook("portal_changed", t)
}

// TokenMovedContext holds pre-packed data for the token_moved hook.
type TokenMovedContext struct {
	TokenID        int64
	Name           string
	Type           string
	X, Y           float64
	LightLevel     string
	VisionRadiusPx float64
}

// TokenMoved calls the Lua token_moved hook.
func (e *Engine) TokenMoved(ctx TokenMovedContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("token_id", lua.LNumber(ctx.TokenID))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("type", lua.LString(ctx.Type))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("light_level", lua.LString(ctx.LightLevel))
	t.RawSetString("vision_radius_px", lua.LNumber(ctx.VisionRadiusPx))

	return e.callHook("token_moved", t)
}

// AreaRevealedContext holds pre-packed data for the area_revealed hook.
// Kind is "rect" or "circle"; Radius is set for circles only.
type AreaRevealedContext struct {
	AreaID int64
	Kind   string
	X, Y   float64
	Width  float64
	Height float64
	Radius float64
}

// AreaRevealed calls the Lua area_revealed hook.
func (e *Engine) AreaRevealed(ctx AreaRevealedContext) []Command {
	t := e.vm.NewTable()
	t.RawSetString("area_id", lua.LNumber(ctx.AreaID))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("width", lua.LNumber(ctx.Width))
	t.RawSetString("height", lua.LNumber(ctx.Height))
	t.RawSetString("radius", lua.LNumber(ctx.Radius))

	return e.callHook("area_revealed", t)
}

// ScenarioResult is returned by the Lua scenario_step function.
type ScenarioResult struct {
	Done     bool
	Commands []Command
}

// ScenarioStep calls Lua scenario_step(i). A missing function or a script
// error ends the scenario.
func (e *Engine) ScenarioStep(step int) ScenarioResult {
	fn := e.vm.GetGlobal("scenario_step")
	if fn == lua.LNil {
		return ScenarioResult{Done: true}
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(step)); err != nil {
		e.log.Error("lua scenario_step error", zap.Error(err), zap.Int("step", step))
		return ScenarioResult{Done: true}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return ScenarioResult{Done: true}
	}

	res := ScenarioResult{
		Done: rt.RawGetString("done") == lua.LTrue,
	}
	if cmdVal, ok := rt.RawGetString("commands").(*lua.LTable); ok {
		res.Commands = parseCommands(cmdVal)
	}
	return res
}

// callHook calls a named hook with a context table and parses the returned
// command list. A missing hook yields no commands; a Lua error is logged
// and yields no commands. Errors never propagate to the caller.
func (e *Engine) callHook(name string, ctx *lua.LTable) []Command {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}
	return parseCommands(rt)
}

// parseCommands converts a Lua array of command tables.
func parseCommands(rt *lua.LTable) []Command {
	var cmds []Command
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, Command{
				Type:     lStr(row, "type"),
				PortalID: lInt(row, "portal_id"),
				Closed:   row.RawGetString("closed") == lua.LTrue,
				X:        lFloat(row, "x"),
				Y:        lFloat(row, "y"),
				Width:    lFloat(row, "width"),
				Height:   lFloat(row, "height"),
				Radius:   lFloat(row, "radius"),
				Enabled:  row.RawGetString("enabled") == lua.LTrue,
				Ambient:  lStr(row, "ambient"),
				LightID:  int64(lua.LVAsNumber(row.RawGetString("light_id"))),
				Active:   row.RawGetString("active") == lua.LTrue,
				Message:  lStr(row, "message"),
			})
		}
	})
	return cmds
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lFloat reads a float field from a Lua table.
func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// lBool converts a Go bool to a Lua value.
func lBool(b bool) lua.LValue {
	if b {
		return lua.LTrue
	}
	return lua.LFalse
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
