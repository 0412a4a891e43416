package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsight.toml")
	body := `
[engine]
pullback_px = 3.0
cache_max_entries = 32

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.PullbackPx != 3.0 {
		t.Fatalf("pullback = %v, want 3.0", cfg.Engine.PullbackPx)
	}
	if cfg.Engine.CacheMaxEntries != 32 {
		t.Fatalf("cache entries = %d, want 32", cfg.Engine.CacheMaxEntries)
	}
	// Untouched fields keep their defaults.
	if cfg.Engine.EpsilonRad != 1e-4 {
		t.Fatalf("epsilon = %v, want default", cfg.Engine.EpsilonRad)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing config file should error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.PullbackPx != 5 || cfg.Engine.IndexCellPx != 256 {
		t.Fatalf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Data.Dir != "data" {
		t.Fatalf("data dir = %q, want data", cfg.Data.Dir)
	}
}
