package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLightPresetTable(t *testing.T) {
	tbl := DefaultLightPresetTable()
	if tbl.Count() != 5 {
		t.Fatalf("Count = %d, want 5", tbl.Count())
	}
	torch := tbl.Get("torch")
	if torch == nil {
		t.Fatal("torch preset missing")
	}
	if torch.BrightFt != 20 || torch.DimFt != 40 || torch.Color != "#FFAA00" {
		t.Fatalf("torch = %+v", torch)
	}
	if tbl.Get("sunrod") != nil {
		t.Fatal("unknown type should return nil")
	}
	if types := tbl.Types(); types[0] != "torch" || len(types) != 5 {
		t.Fatalf("types = %v", types)
	}
}

func TestLoadLightPresetTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light_presets.yaml")
	yml := `- type: glowstone
  name: Glowstone
  bright_ft: 10
  dim_ft: 20
  color: "#00FF88"
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadLightPresetTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Count() != 1 {
		t.Fatalf("Count = %d, want 1", tbl.Count())
	}
	if g := tbl.Get("glowstone"); g == nil || g.DimFt != 20 {
		t.Fatalf("glowstone = %+v", g)
	}

	if _, err := LoadLightPresetTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestVisionPresetTable_Profiles(t *testing.T) {
	tbl := DefaultVisionPresetTable()
	rng := 60.0

	normal := tbl.Profile("normal", nil, 0)
	if normal.BrightFt != nil || normal.DimFt != nil || normal.DarkFt != 0 {
		t.Fatalf("normal = %+v", normal)
	}

	dv := tbl.Profile("darkvision", &rng, 0)
	if dv.DarkFt != 60 || !dv.DarkIsDim || dv.IgnoresLight {
		t.Fatalf("darkvision = %+v", dv)
	}

	ds := tbl.Profile("devils_sight", &rng, 0)
	if ds.DarkFt != 60 || ds.DarkIsDim {
		t.Fatalf("devils_sight = %+v", ds)
	}

	bs := tbl.Profile("blindsight", &rng, 0)
	if !bs.IgnoresLight || bs.DarkFt != 60 {
		t.Fatalf("blindsight = %+v", bs)
	}

	blind := tbl.Profile("blind", nil, 0)
	if blind.BrightFt == nil || *blind.BrightFt != 0 || blind.DimFt == nil || blind.DarkFt != 0 {
		t.Fatalf("blind = %+v", blind)
	}

	// Unknown vision strings resolve as normal sight.
	unknown := tbl.Profile("x-ray", nil, 15)
	if unknown.BrightFt != nil || unknown.LightRadiusFt != 15 {
		t.Fatalf("unknown = %+v", unknown)
	}
}

func TestLoadVisionPresetTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision_presets.yaml")
	yml := `- type: echolocation
  dark_from_range: true
  ignores_light: true
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadVisionPresetTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := 30.0
	p := tbl.Profile("echolocation", &r, 0)
	if !p.IgnoresLight || p.DarkFt != 30 {
		t.Fatalf("echolocation = %+v", p)
	}
}
