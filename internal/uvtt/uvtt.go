// Package uvtt reads Universal VTT (.dd2vtt / .uvtt) map files: the embedded
// battle map image plus grid resolution, line-of-sight walls, portals, lights
// and ambient environment. Coordinates in the file are grid units; conversion
// to pixel space is the geometry loader's job, not this package's.
package uvtt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FormatVersion is the UVTT format version this package targets.
const FormatVersion = 0.3

// DefaultPixelsPerGrid is the grid size assumed when wrapping a plain image.
const DefaultPixelsPerGrid = 70

// Fallback battle-map dimensions for wrapped images that cannot be probed,
// a 20x15 grid at the default scale.
const (
	DefaultImageWidthPx  = 1400
	DefaultImageHeightPx = 1050
)

const defaultAmbientARGB = "ffffffff"

// Point is a position in grid units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Resolution fixes the grid-to-pixel conversion for the whole map.
type Resolution struct {
	MapOrigin     Point   `json:"map_origin"`
	MapSize       Point   `json:"map_size"`
	PixelsPerGrid float64 `json:"pixels_per_grid"`
}

// Portal is a door or window: a togglable opening in the wall set.
// Bounds should hold exactly two points; entries that do not are skipped by
// the loader rather than failing the file.
type Portal struct {
	Position     Point   `json:"position"`
	Bounds       []Point `json:"bounds"`
	Rotation     float64 `json:"rotation"`
	Closed       bool    `json:"closed"`
	Freestanding bool    `json:"freestanding"`
}

// UnmarshalJSON applies the format's defaults: portals are closed unless the
// file says otherwise.
func (p *Portal) UnmarshalJSON(data []byte) error {
	type alias Portal
	tmp := alias{Closed: true}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*p = Portal(tmp)
	return nil
}

// Light is a map-embedded light source. Range is in grid units.
type Light struct {
	Position  Point   `json:"position"`
	Range     float64 `json:"range"`
	Intensity float64 `json:"intensity"`
	Color     string  `json:"color"`
	Shadows   bool    `json:"shadows"`
}

// UnmarshalJSON applies the format's defaults: full intensity, white, casting
// shadows.
func (l *Light) UnmarshalJSON(data []byte) error {
	type alias Light
	tmp := alias{Intensity: 1.0, Color: "#ffffff", Shadows: true}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*l = Light(tmp)
	return nil
}

// Environment carries the map-wide lighting descriptor. AmbientLight is an
// 8-hex-digit ARGB string ("ffffffff" = full bright, "ff000000" = darkness).
type Environment struct {
	BakedLighting bool   `json:"baked_lighting"`
	AmbientLight  string `json:"ambient_light"`
}

// UnmarshalJSON applies the format's default of full-bright ambient light.
func (e *Environment) UnmarshalJSON(data []byte) error {
	type alias Environment
	tmp := alias{AmbientLight: defaultAmbientARGB}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*e = Environment(tmp)
	return nil
}

// File is a parsed UVTT map file.
type File struct {
	Format      float64      `json:"format"`
	Resolution  Resolution   `json:"resolution"`
	Image       string       `json:"image"`
	LineOfSight [][]Point    `json:"line_of_sight"`
	Portals     []Portal     `json:"portals"`
	Lights      []Light      `json:"lights"`
	Environment *Environment `json:"environment"`
}

// Parse decodes a UVTT file from raw JSON bytes. A missing or zero
// resolution is a hard error: without pixels_per_grid nothing downstream can
// place a single wall.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse uvtt: %w", err)
	}
	if f.Resolution.PixelsPerGrid <= 0 {
		return nil, fmt.Errorf("parse uvtt: missing or invalid resolution.pixels_per_grid")
	}
	if f.Resolution.MapSize.X <= 0 || f.Resolution.MapSize.Y <= 0 {
		return nil, fmt.Errorf("parse uvtt: missing or invalid resolution.map_size")
	}
	return &f, nil
}

// ParseFile reads and decodes a UVTT file from disk.
func ParseFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read uvtt: %w", err)
	}
	return Parse(raw)
}

// IsUVTTPath reports whether the filename carries a UVTT extension.
func IsUVTTPath(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".dd2vtt") || strings.HasSuffix(lower, ".uvtt")
}

// WidthPx returns the map width in pixels.
func (f *File) WidthPx() float64 {
	return f.Resolution.MapSize.X * f.Resolution.PixelsPerGrid
}

// HeightPx returns the map height in pixels.
func (f *File) HeightPx() float64 {
	return f.Resolution.MapSize.Y * f.Resolution.PixelsPerGrid
}

// AmbientLight returns the environment's ambient ARGB string, defaulting to
// full bright when the file has no environment block.
func (f *File) AmbientLight() string {
	if f.Environment == nil {
		return defaultAmbientARGB
	}
	return f.Environment.AmbientLight
}

// Summary describes a file's contents for listings and import logs.
type Summary struct {
	GridCols      int
	GridRows      int
	PixelsPerGrid int
	WidthPx       int
	HeightPx      int
	WallPolylines int
	PortalCount   int
	LightCount    int
}

// Summary builds the content summary.
func (f *File) Summary() Summary {
	return Summary{
		GridCols:      int(f.Resolution.MapSize.X),
		GridRows:      int(f.Resolution.MapSize.Y),
		PixelsPerGrid: int(f.Resolution.PixelsPerGrid),
		WidthPx:       int(f.WidthPx()),
		HeightPx:      int(f.HeightPx()),
		WallPolylines: len(f.LineOfSight),
		PortalCount:   len(f.Portals),
		LightCount:    len(f.Lights),
	}
}

// FromImage wraps a bare base64 image in a UVTT file with the default grid
// and no geometry, for maps imported from plain image files.
func FromImage(imageB64 string, widthPx, heightPx, gridPx int) *File {
	if gridPx <= 0 {
		gridPx = DefaultPixelsPerGrid
	}
	return &File{
		Format: FormatVersion,
		Resolution: Resolution{
			MapOrigin:     Point{},
			MapSize:       Point{X: float64(widthPx) / float64(gridPx), Y: float64(heightPx) / float64(gridPx)},
			PixelsPerGrid: float64(gridPx),
		},
		Image: imageB64,
		Environment: &Environment{
			BakedLighting: false,
			AmbientLight:  defaultAmbientARGB,
		},
	}
}
