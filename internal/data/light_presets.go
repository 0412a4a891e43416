package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LightPreset defines a standard light source in feet.
type LightPreset struct {
	Type     string  `yaml:"type"`
	Name     string  `yaml:"name"`
	BrightFt float64 `yaml:"bright_ft"`
	DimFt    float64 `yaml:"dim_ft"`
	Color    string  `yaml:"color"`
}

// LightPresetTable provides lookup of light presets by type key.
type LightPresetTable struct {
	presets map[string]*LightPreset
	order   []string
}

func newLightPresetTable(entries []LightPreset) *LightPresetTable {
	t := &LightPresetTable{
		presets: make(map[string]*LightPreset, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		if _, dup := t.presets[e.Type]; !dup {
			t.order = append(t.order, e.Type)
		}
		t.presets[e.Type] = e
	}
	return t
}

// DefaultLightPresetTable returns the built-in presets: the standard
// carried sources plus the two light spells.
func DefaultLightPresetTable() *LightPresetTable {
	return newLightPresetTable([]LightPreset{
		{Type: "torch", Name: "Torch", BrightFt: 20, DimFt: 40, Color: "#FFAA00"},
		{Type: "lantern", Name: "Lantern", BrightFt: 30, DimFt: 60, Color: "#FFD700"},
		{Type: "candle", Name: "Candle", BrightFt: 5, DimFt: 10, Color: "#FFCC66"},
		{Type: "light", Name: "Light", BrightFt: 20, DimFt: 40, Color: "#FFFFFF"},
		{Type: "daylight", Name: "Daylight", BrightFt: 60, DimFt: 120, Color: "#FFFFEE"},
	})
}

// LoadLightPresetTable loads light_presets.yaml.
func LoadLightPresetTable(path string) (*LightPresetTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read light presets: %w", err)
	}
	var entries []LightPreset
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse light presets: %w", err)
	}
	return newLightPresetTable(entries), nil
}

// Get returns the preset for the given type, or nil if none.
func (t *LightPresetTable) Get(typ string) *LightPreset {
	return t.presets[typ]
}

// Types returns the preset type keys in definition order.
func (t *LightPresetTable) Types() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Count returns the number of presets loaded.
func (t *LightPresetTable) Count() int {
	return len(t.presets)
}
