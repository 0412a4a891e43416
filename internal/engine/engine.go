// Package engine is the session facade over the map core: it loads maps,
// owns the tuning and preset tables, routes mutations through the script
// hooks and answers visibility queries with index and cache in front of the
// raw polygon calculator.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridsight/engine/internal/config"
	"github.com/gridsight/engine/internal/data"
	"github.com/gridsight/engine/internal/persist"
	"github.com/gridsight/engine/internal/scripting"
	"github.com/gridsight/engine/internal/uvtt"
	"github.com/gridsight/engine/internal/vision"
	"github.com/gridsight/engine/internal/world"
	"go.uber.org/zap"
)

var (
	// ErrNoStore is returned by store sync operations when the engine was
	// built without a database.
	ErrNoStore = errors.New("engine: no store attached")
	// ErrMapNotInStore is returned when a sync names a map id with no row.
	ErrMapNotInStore = errors.New("engine: map record not found")
)

// Options configures an Engine. Nil fields fall back to compiled defaults;
// Scripts and Store are optional and stay nil when absent.
type Options struct {
	Log           *zap.Logger
	Config        *config.Config
	LightPresets  *data.LightPresetTable
	VisionPresets *data.VisionPresetTable
	Scripts       *scripting.Engine
	Store         *persist.Store
}

// Engine holds everything shared between sessions. It is cheap; one per
// process is the norm.
type Engine struct {
	log           *zap.Logger
	cfg           config.EngineConfig
	calc          *vision.Calculator
	lightPresets  *data.LightPresetTable
	visionPresets *data.VisionPresetTable
	scripts       *scripting.Engine
	store         *persist.Store
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	lp := opts.LightPresets
	if lp == nil {
		lp = data.DefaultLightPresetTable()
	}
	vp := opts.VisionPresets
	if vp == nil {
		vp = data.DefaultVisionPresetTable()
	}

	return &Engine{
		log: log,
		cfg: cfg.Engine,
		calc: vision.NewCalculator(vision.Params{
			PullbackPx: cfg.Engine.PullbackPx,
			EpsilonRad: cfg.Engine.EpsilonRad,
			DedupePx:   cfg.Engine.DedupePx,
		}),
		lightPresets:  lp,
		visionPresets: vp,
		scripts:       opts.Scripts,
		store:         opts.Store,
	}
}

// LightPresets exposes the light preset table (torch, lantern, ...).
func (e *Engine) LightPresets() *data.LightPresetTable { return e.lightPresets }

// VisionPresets exposes the vision preset table (darkvision, ...).
func (e *Engine) VisionPresets() *data.VisionPresetTable { return e.visionPresets }

// LoadMapFile reads and loads a map file. The session name is the file name
// without its extension.
func (e *Engine) LoadMapFile(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return e.LoadMap(raw, name)
}

// LoadMap parses raw map bytes and builds a session: geometry into a
// MapContext, a fingerprint of the exact bytes, then the map_loaded hook
// with any commands it returns.
func (e *Engine) LoadMap(raw []byte, name string) (*Session, error) {
	f, err := uvtt.Parse(raw)
	if err != nil {
		return nil, err
	}

	m, report := world.BuildMap(f, e.log.With(zap.String("map", name)))
	m.Name = name
	m.Fingerprint = uvtt.Fingerprint(raw)

	s := &Session{
		eng:         e,
		log:         e.log.With(zap.String("map", name)),
		Map:         m,
		Report:      report,
		cache:       vision.NewCache(e.cfg.CacheMaxEntries),
		ambientARGB: f.AmbientLight(),
	}

	s.fire(func() []scripting.Command {
		return e.scripts.MapLoaded(scripting.MapLoadedContext{
			Name:          m.Name,
			WidthPx:       m.Res.WidthPx(),
			HeightPx:      m.Res.HeightPx(),
			PixelsPerGrid: m.Res.PixelsPerGrid,
			Ambient:       m.Ambient().String(),
			WallCount:     len(m.Walls()),
			PortalCount:   len(m.Portals()),
			LightCount:    len(m.Lights()),
			FogEnabled:    m.Fog.Enabled(),
		})
	})

	return s, nil
}
