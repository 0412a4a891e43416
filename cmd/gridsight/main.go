// gridsight is the map workbench: load a UVTT map, print its summary, query
// visibility polygons and light levels, and sync session state with the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gridsight/engine/internal/config"
	"github.com/gridsight/engine/internal/data"
	"github.com/gridsight/engine/internal/engine"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
	"github.com/gridsight/engine/internal/persist"
	"github.com/gridsight/engine/internal/scripting"
	"github.com/gridsight/engine/internal/uvtt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ────────────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printKV(label, value string) {
	dotsLen := 42 - len(label) - len(value)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m %s\n", label, strings.Repeat("·", dotsLen), value)
}

func printStat(label string, count int) {
	numStr := strconv.Itoa(count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Workbench logic ────────────────────────────────────────────────

func run() error {
	var (
		cfgPath     = flag.String("config", "", "toml config file (default: built-in settings)")
		mapPath     = flag.String("map", "", "uvtt/dd2vtt map file to load")
		summary     = flag.Bool("summary", false, "print the map summary and load report")
		origin      = flag.String("origin", "", "visibility origin \"x,y\" in map pixels")
		radiusFt    = flag.Float64("radius", 30, "visibility radius in feet (with -origin)")
		level       = flag.String("level", "", "probe the light level at \"x,y\" in map pixels")
		useDB       = flag.Bool("db", false, "sync session state from the store before queries")
		importState = flag.Bool("import-state", false, "write session state back to the store")
	)
	flag.Parse()

	if *mapPath == "" {
		flag.Usage()
		return fmt.Errorf("-map is required")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store *persist.Store
	if *useDB || *importState {
		printSection("Database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations up to date")
		store = persist.NewStore(db)
	}

	printSection("Data")
	lightTable, visionTable, err := loadPresetTables(cfg)
	if err != nil {
		return err
	}

	var scripts *scripting.Engine
	if cfg.Scripts.Dir != "" {
		scripts, err = scripting.NewEngine(cfg.Scripts.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer scripts.Close()
		printStat("lua scripts", scripts.Loaded())
	}

	eng := engine.New(engine.Options{
		Log:           log,
		Config:        cfg,
		LightPresets:  lightTable,
		VisionPresets: visionTable,
		Scripts:       scripts,
		Store:         store,
	})

	raw, err := os.ReadFile(*mapPath)
	if err != nil {
		return fmt.Errorf("read map %s: %w", *mapPath, err)
	}
	name := strings.TrimSuffix(filepath.Base(*mapPath), filepath.Ext(*mapPath))
	s, err := eng.LoadMap(raw, name)
	if err != nil {
		return err
	}

	if *useDB {
		row, err := store.Maps.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("look up map record: %w", err)
		}
		if row == nil {
			return fmt.Errorf("map %q has no store record; import it with uvttimport first", name)
		}
		if err := s.SyncFromStore(ctx, row.ID); err != nil {
			return fmt.Errorf("sync from store: %w", err)
		}
		printOK(fmt.Sprintf("state synced from store (map id %d)", row.ID))
	}

	if *summary {
		f, err := uvtt.Parse(raw)
		if err != nil {
			return err
		}
		printSummary(s, f)
	}

	if *level != "" {
		p, err := parsePoint(*level)
		if err != nil {
			return fmt.Errorf("-level: %w", err)
		}
		printSection("Light level")
		printKV(fmt.Sprintf("at %.0f,%.0f", p.X, p.Y), s.LightLevelAt(p).String())
	}

	if *origin != "" {
		p, err := parsePoint(*origin)
		if err != nil {
			return fmt.Errorf("-origin: %w", err)
		}
		poly := s.VisibilityFrom(p, *radiusFt)
		printSection("Visibility")
		printKV("origin", fmt.Sprintf("%.0f,%.0f", p.X, p.Y))
		printKV("radius", fmt.Sprintf("%.0f ft = %.0f px", *radiusFt,
			light.FeetToPx(*radiusFt, s.Map.Res.PixelsPerGrid)))
		printStat("vertices", len(poly))
		for _, v := range poly {
			fmt.Printf("%.2f,%.2f\n", v.X, v.Y)
		}
	}

	if *importState {
		row, err := store.Maps.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("look up map record: %w", err)
		}
		if row == nil {
			return fmt.Errorf("map %q has no store record; import it with uvttimport first", name)
		}
		if err := s.FlushToStore(ctx, row.ID); err != nil {
			return fmt.Errorf("flush to store: %w", err)
		}
		printOK(fmt.Sprintf("state written to store (map id %d)", row.ID))
	}

	return nil
}

func printSummary(s *engine.Session, f *uvtt.File) {
	sum := f.Summary()

	printSection("Map")
	printKV("name", s.Map.Name)
	printKV("size", fmt.Sprintf("%dx%d px (%dx%d @ %d px/square)",
		sum.WidthPx, sum.HeightPx, sum.GridCols, sum.GridRows, sum.PixelsPerGrid))
	printKV("grid", string(s.Map.Grid))
	printKV("ambient", s.Map.Ambient().String())
	if s.Map.Fog.Enabled() {
		printKV("fog", "enabled")
	} else {
		printKV("fog", "disabled")
	}
	printKV("fingerprint", s.Map.Fingerprint[:16])
	if f.Image == "" {
		printKV("image", "none")
	} else if info, err := f.ImageInfo(); err != nil {
		printKV("image", fmt.Sprintf("unreadable: %v", err))
	} else {
		printKV("image", fmt.Sprintf("%s %dx%d (%d bytes)", info.Format, info.Width, info.Height, info.Bytes))
	}

	printSection("Geometry")
	printStat("walls", s.Report.Walls)
	closed := 0
	for _, p := range s.Map.Portals() {
		if p.Closed {
			closed++
		}
	}
	printStat("portals", s.Report.Portals)
	printStat("portals closed", closed)
	printStat("lights", s.Report.Lights)
	printStat("tokens", len(s.Map.Tokens()))
	printStat("revealed areas", s.Map.Fog.Count())
	for _, sk := range s.Report.Skipped {
		printKV(fmt.Sprintf("skipped %s %d", sk.Kind, sk.Index), sk.Reason)
	}
}

// ── Setup helpers ──────────────────────────────────────────────────

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

// loadPresetTables reads the preset yaml files from the data dir, falling
// back to the compiled-in tables when a file is absent.
func loadPresetTables(cfg *config.Config) (*data.LightPresetTable, *data.VisionPresetTable, error) {
	lights := data.DefaultLightPresetTable()
	if path := filepath.Join(cfg.Data.Dir, "light_presets.yaml"); fileExists(path) {
		var err error
		if lights, err = data.LoadLightPresetTable(path); err != nil {
			return nil, nil, err
		}
	}
	visions := data.DefaultVisionPresetTable()
	if path := filepath.Join(cfg.Data.Dir, "vision_presets.yaml"); fileExists(path) {
		var err error
		if visions, err = data.LoadVisionPresetTable(path); err != nil {
			return nil, nil, err
		}
	}
	printStat("light presets", lights.Count())
	printStat("vision presets", visions.Count())
	return lights, visions, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parsePoint(sp string) (geom.Point, error) {
	parts := strings.SplitN(sp, ",", 2)
	if len(parts) != 2 {
		return geom.Point{}, fmt.Errorf("want \"x,y\", got %q", sp)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("bad x in %q", sp)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("bad y in %q", sp)
	}
	return geom.Point{X: x, Y: y}, nil
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
