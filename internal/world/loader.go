package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gridsight/engine/internal/fog"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/uvtt"
)

// SkippedEntry records one geometry entry the loader dropped.
type SkippedEntry struct {
	Kind   string
	Index  int
	Reason string
}

// LoadReport is the partial-success result of a map build: what was loaded
// and what was skipped. A bad wall must never blind the whole map.
type LoadReport struct {
	Walls   int
	Portals int
	Lights  int
	Skipped []SkippedEntry
}

func (r *LoadReport) skip(kind string, index int, format string, args ...any) {
	r.Skipped = append(r.Skipped, SkippedEntry{
		Kind:   kind,
		Index:  index,
		Reason: fmt.Sprintf(format, args...),
	})
}

// BuildMap converts a parsed geometry file into a pixel-space MapContext.
// Grid-unit coordinates are shifted by the map origin, scaled by
// pixels_per_grid and clamped into the map extents. Degenerate entries are
// skipped and reported, never fatal.
func BuildMap(f *uvtt.File, log *zap.Logger) (*MapContext, *LoadReport) {
	res := Resolution{
		OriginX:       f.Resolution.MapOrigin.X,
		OriginY:       f.Resolution.MapOrigin.Y,
		PixelsPerGrid: f.Resolution.PixelsPerGrid,
		WidthGrid:     f.Resolution.MapSize.X,
		HeightGrid:    f.Resolution.MapSize.Y,
	}

	m := &MapContext{
		Res:         res,
		Grid:        GridSquare,
		Image:       f.Image,
		Fog:         fog.NewTracker(true),
		tokens:      make(map[int64]*Token),
		nextLightID: 1,
	}
	report := &LoadReport{}

	toPx := func(p uvtt.Point) geom.Point {
		return geom.Point{
			X: geom.Clamp((p.X-res.OriginX)*res.PixelsPerGrid, 0, res.WidthPx()),
			Y: geom.Clamp((p.Y-res.OriginY)*res.PixelsPerGrid, 0, res.HeightPx()),
		}
	}

	for i, polyline := range f.LineOfSight {
		if len(polyline) < 2 {
			report.skip("wall", i, "polyline has %d points, need at least 2", len(polyline))
			continue
		}
		prev := toPx(polyline[0])
		for _, p := range polyline[1:] {
			cur := toPx(p)
			// Clamping can collapse out-of-extent jitter to a point.
			if cur != prev {
				m.walls = append(m.walls, geom.Segment{A: prev, B: cur})
			}
			prev = cur
		}
	}
	report.Walls = len(m.walls)

	for i, p := range f.Portals {
		if len(p.Bounds) < 2 {
			report.skip("portal", i, "bounds has %d points, need 2", len(p.Bounds))
			continue
		}
		wall := geom.Segment{A: toPx(p.Bounds[0]), B: toPx(p.Bounds[1])}
		if wall.A == wall.B {
			report.skip("portal", i, "degenerate bounds at %v", wall.A)
			continue
		}
		m.portals = append(m.portals, Portal{
			ID:           int64(len(m.portals)),
			Wall:         wall,
			Rotation:     p.Rotation,
			Freestanding: p.Freestanding,
			Closed:       p.Closed,
			loadedClosed: p.Closed,
		})
	}
	report.Portals = len(m.portals)

	for i, l := range f.Lights {
		if l.Range <= 0 {
			report.skip("light", i, "non-positive range %v", l.Range)
			continue
		}
		// UVTT light range covers the full (dim) reach; bright is half.
		dim := l.Range * res.PixelsPerGrid
		m.lights = append(m.lights, light.Light{
			ID:             m.nextLightID,
			Pos:            toPx(l.Position),
			BrightRadiusPx: dim / 2,
			DimRadiusPx:    dim,
			Color:          l.Color,
			CastsShadows:   l.Shadows,
			Active:         true,
		})
		m.nextLightID++
	}
	report.Lights = len(m.lights)

	m.ambient = light.LevelFromAmbientColor(f.AmbientLight())

	for _, s := range report.Skipped {
		log.Warn("skipping map geometry entry",
			zap.String("kind", s.Kind),
			zap.Int("index", s.Index),
			zap.String("reason", s.Reason))
	}
	log.Info("map geometry loaded",
		zap.Int("walls", report.Walls),
		zap.Int("portals", report.Portals),
		zap.Int("lights", report.Lights),
		zap.Int("skipped", len(report.Skipped)),
		zap.String("ambient", m.ambient.String()))

	return m, report
}
