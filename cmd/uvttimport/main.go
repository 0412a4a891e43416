// uvttimport imports a UVTT map file into the store: the map record with its
// geometry fingerprint, the portal state defaults and the embedded lights.
// Plain map images (png, jpeg, webp) import as geometry-less maps on the
// default grid.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridsight/engine/internal/config"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/persist"
	"github.com/gridsight/engine/internal/uvtt"
	"github.com/gridsight/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "toml config file (default: built-in settings)")
	replace := flag.Bool("replace", false, "replace an existing map record of the same name")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uvttimport [-config conf.toml] [-replace] <map.uvtt> [name]")
		return fmt.Errorf("map file argument is required")
	}
	mapPath := args[0]
	if !uvtt.IsUVTTPath(mapPath) && !isImagePath(mapPath) {
		return fmt.Errorf("%s: not a .uvtt/.dd2vtt map or importable image", mapPath)
	}
	name := strings.TrimSuffix(filepath.Base(mapPath), filepath.Ext(mapPath))
	if len(args) > 1 {
		name = args[1]
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	raw, err := os.ReadFile(mapPath)
	if err != nil {
		return fmt.Errorf("read map %s: %w", mapPath, err)
	}
	var f *uvtt.File
	if uvtt.IsUVTTPath(mapPath) {
		if f, err = uvtt.Parse(raw); err != nil {
			return err
		}
	} else {
		f = wrapImage(raw, log)
	}
	m, report := world.BuildMap(f, log.With(zap.String("map", name)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	store := persist.NewStore(db)

	existing, err := store.Maps.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("look up map record: %w", err)
	}
	if existing != nil {
		if !*replace {
			return fmt.Errorf("map %q is already imported (id %d); use -replace to overwrite", name, existing.ID)
		}
		// Portal states, lights, areas and tokens cascade with the record.
		if _, err := store.Maps.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete old record: %w", err)
		}
	}

	filePath := mapPath
	if abs, err := filepath.Abs(mapPath); err == nil {
		filePath = abs
	}
	row := &persist.MapRow{
		Name:          name,
		FilePath:      filePath,
		WidthPx:       f.WidthPx(),
		HeightPx:      f.HeightPx(),
		GridType:      string(world.GridSquare),
		PixelsPerGrid: f.Resolution.PixelsPerGrid,
		GridOffsetX:   f.Resolution.MapOrigin.X * f.Resolution.PixelsPerGrid,
		GridOffsetY:   f.Resolution.MapOrigin.Y * f.Resolution.PixelsPerGrid,
		FogEnabled:    true,
		AmbientLight:  f.AmbientLight(),
		GeometryHash:  uvtt.Fingerprint(raw),
	}
	if err := store.Maps.Insert(ctx, row); err != nil {
		return fmt.Errorf("insert map record: %w", err)
	}

	portals := m.Portals()
	states := make([]persist.PortalStateRow, 0, len(portals))
	for _, p := range portals {
		states = append(states, persist.PortalStateRow{
			MapID:    row.ID,
			PortalID: int(p.ID),
			Closed:   p.Closed,
		})
	}
	if err := store.Portals.UpsertBatch(ctx, states); err != nil {
		return fmt.Errorf("seed portal states: %w", err)
	}

	ppg := f.Resolution.PixelsPerGrid
	for _, l := range m.Lights() {
		lr := &persist.LightSourceRow{
			MapID:          row.ID,
			LightType:      "static",
			X:              l.Pos.X,
			Y:              l.Pos.Y,
			BrightRadiusFt: light.PxToFeet(l.BrightRadiusPx, ppg),
			DimRadiusFt:    light.PxToFeet(l.DimRadiusPx, ppg),
			Color:          l.Color,
			IsActive:       l.Active,
		}
		if err := store.Lights.Insert(ctx, lr); err != nil {
			return fmt.Errorf("insert light source: %w", err)
		}
	}

	sum := f.Summary()
	fmt.Printf("Imported %q as map id %d (%dx%d px, %d px/square)\n",
		name, row.ID, sum.WidthPx, sum.HeightPx, sum.PixelsPerGrid)
	fmt.Printf("  %d wall segments, %d portal states seeded, %d lights\n",
		report.Walls, len(states), len(m.Lights()))
	if len(report.Skipped) > 0 {
		fmt.Printf("  %d malformed entries skipped\n", len(report.Skipped))
	}
	fmt.Printf("  fingerprint %s\n", row.GeometryHash[:16])
	return nil
}

// isImagePath reports whether the file looks like a bare battle-map image.
func isImagePath(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// wrapImage turns a bare map image into a geometry-less UVTT file on the
// default grid, probing the image for its pixel dimensions.
func wrapImage(raw []byte, log *zap.Logger) *uvtt.File {
	w, h := uvtt.DefaultImageWidthPx, uvtt.DefaultImageHeightPx
	if info, err := uvtt.ProbeImage(raw); err == nil {
		w, h = info.Width, info.Height
	} else {
		log.Warn("image probe failed; importing with default dimensions", zap.Error(err))
	}
	return uvtt.FromImage(base64.StdEncoding.EncodeToString(raw), w, h, 0)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("GRIDSIGHT_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
