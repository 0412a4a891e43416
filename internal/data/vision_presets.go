package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gridsight/engine/internal/light"
)

// VisionPreset maps a vision type to resolver behavior. Bright and dim are
// either unlimited or nothing; dark sight comes from the token's recorded
// range when dark_from_range is set.
type VisionPreset struct {
	Type            string `yaml:"type"`
	BrightUnlimited bool   `yaml:"bright_unlimited"`
	DimUnlimited    bool   `yaml:"dim_unlimited"`
	DarkFromRange   bool   `yaml:"dark_from_range"`
	DarkIsDim       bool   `yaml:"dark_is_dim"`
	IgnoresLight    bool   `yaml:"ignores_light"`
}

// VisionPresetTable provides lookup of vision presets by type key.
type VisionPresetTable struct {
	presets map[string]*VisionPreset
}

func newVisionPresetTable(entries []VisionPreset) *VisionPresetTable {
	t := &VisionPresetTable{
		presets: make(map[string]*VisionPreset, len(entries)),
	}
	for i := range entries {
		e := &entries[i]
		t.presets[e.Type] = e
	}
	return t
}

// DefaultVisionPresetTable returns the built-in vision types.
func DefaultVisionPresetTable() *VisionPresetTable {
	return newVisionPresetTable([]VisionPreset{
		{Type: "normal", BrightUnlimited: true, DimUnlimited: true},
		{Type: "darkvision", BrightUnlimited: true, DimUnlimited: true, DarkFromRange: true, DarkIsDim: true},
		{Type: "devils_sight", BrightUnlimited: true, DimUnlimited: true, DarkFromRange: true},
		{Type: "blindsight", DarkFromRange: true, IgnoresLight: true},
		{Type: "tremorsense", DarkFromRange: true, IgnoresLight: true},
		{Type: "truesight", DarkFromRange: true, IgnoresLight: true},
		{Type: "blind"},
	})
}

// LoadVisionPresetTable loads vision_presets.yaml.
func LoadVisionPresetTable(path string) (*VisionPresetTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vision presets: %w", err)
	}
	var entries []VisionPreset
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse vision presets: %w", err)
	}
	return newVisionPresetTable(entries), nil
}

// Get returns the preset for the given type, or nil if none.
func (t *VisionPresetTable) Get(typ string) *VisionPreset {
	return t.presets[typ]
}

// Count returns the number of presets loaded.
func (t *VisionPresetTable) Count() int {
	return len(t.presets)
}

// Profile builds a token's VisionProfile from its stored vision type, range
// and carried-light radius. Unknown types resolve as normal vision.
func (t *VisionPresetTable) Profile(visionType string, rangeFt *float64, lightRadiusFt float64) light.VisionProfile {
	p := t.presets[visionType]
	if p == nil {
		p = t.presets["normal"]
	}
	if p == nil {
		p = &VisionPreset{Type: "normal", BrightUnlimited: true, DimUnlimited: true}
	}

	prof := light.VisionProfile{
		LightRadiusFt: lightRadiusFt,
		DarkIsDim:     p.DarkIsDim,
		IgnoresLight:  p.IgnoresLight,
	}
	zero := 0.0
	if !p.BrightUnlimited {
		prof.BrightFt = &zero
	}
	if !p.DimUnlimited {
		prof.DimFt = &zero
	}
	if p.DarkFromRange && rangeFt != nil {
		prof.DarkFt = *rangeFt
	}
	return prof
}
