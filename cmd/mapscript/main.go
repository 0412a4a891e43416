// mapscript runs a Lua scenario against a map: scenario_step is called until
// the script reports done, then the final portal, light and fog state is
// printed along with the reveal coverage of the grid.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridsight/engine/internal/config"
	"github.com/gridsight/engine/internal/engine"
	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/scripting"
	"github.com/gridsight/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath    = flag.String("config", "", "toml config file (default: built-in settings)")
		mapPath    = flag.String("map", "", "uvtt/dd2vtt map file to load")
		scriptsDir = flag.String("scripts", "", "directory of lua scripts (overrides config)")
		maxSteps   = flag.Int("max-steps", 10000, "scenario step cap")
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
	if *scriptsDir != "" {
		cfg.Scripts.Dir = *scriptsDir
	}
	if cfg.Scripts.Dir == "" {
		return fmt.Errorf("no scripts directory (-scripts flag or scripts.dir in config)")
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	scripts, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer scripts.Close()
	if !scripts.Has("scenario_step") {
		return fmt.Errorf("scripts in %s define no scenario_step function", cfg.Scripts.Dir)
	}

	eng := engine.New(engine.Options{
		Log:     log,
		Config:  cfg,
		Scripts: scripts,
	})
	s, err := eng.LoadMapFile(*mapPath)
	if err != nil {
		return err
	}

	done := false
	step := 0
	for step < *maxSteps && !done {
		step++
		done = s.ScenarioStep(step)
	}
	if !done {
		log.Warn("scenario hit the step cap without finishing", zap.Int("steps", step))
	}

	printSection("Scenario")
	printKV("map", s.Map.Name)
	printStat("steps run", step)
	if done {
		printKV("finished", "yes")
	} else {
		printKV("finished", fmt.Sprintf("no (cap %d)", *maxSteps))
	}
	printKV("ambient", s.Map.Ambient().String())

	printSection("Portals")
	for _, p := range s.Map.Portals() {
		state := "open"
		if p.Closed {
			state = "closed"
		}
		printKV(fmt.Sprintf("portal %d", p.ID), state)
	}

	printSection("Lights")
	for _, l := range s.Map.Lights() {
		state := "off"
		if l.Active {
			state = "on"
		}
		printKV(fmt.Sprintf("light %d", l.ID), state)
	}

	printSection("Fog")
	if s.Map.Fog.Enabled() {
		printKV("fog", "enabled")
	} else {
		printKV("fog", "disabled")
	}
	printStat("revealed areas", s.Map.Fog.Count())
	covered, total := revealCoverage(s.Map)
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(covered) / float64(total)
	}
	printKV("coverage", fmt.Sprintf("%d/%d squares (%.1f%%)", covered, total, pct))

	return nil
}

// revealCoverage samples the center of every grid square against the fog
// tracker.
func revealCoverage(m *world.MapContext) (covered, total int) {
	cols := int(m.Res.WidthGrid)
	rows := int(m.Res.HeightGrid)
	ppg := m.Res.PixelsPerGrid
	for gy := 0; gy < rows; gy++ {
		for gx := 0; gx < cols; gx++ {
			total++
			p := geom.Point{X: (float64(gx) + 0.5) * ppg, Y: (float64(gy) + 0.5) * ppg}
			if m.Fog.IsPointRevealed(p) {
				covered++
			}
		}
	}
	return covered, total
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
