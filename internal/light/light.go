// Package light classifies illumination and resolves token sight ranges
// under the three-level light model: darkness, dim light, bright light.
package light

import (
	"fmt"
	"strings"

	"github.com/gridsight/engine/internal/geom"
)

// Level is a point's illumination classification. Higher is brighter.
type Level int

const (
	Darkness Level = iota
	Dim
	Bright
)

func (l Level) String() string {
	switch l {
	case Darkness:
		return "darkness"
	case Dim:
		return "dim"
	default:
		return "bright"
	}
}

// ParseLevel reads a stored level string. Unknown values fall back to Bright,
// matching the store's full-bright default for maps without lighting set up.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "darkness", "dark":
		return Darkness
	case "dim":
		return Dim
	default:
		return Bright
	}
}

// ParseARGB splits an 8-hex-digit ARGB string ("ff1a2b3c", leading # allowed)
// into its channel bytes.
func ParseARGB(s string) (a, r, g, b uint8, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 8 {
		return 0, 0, 0, 0, fmt.Errorf("ambient color %q: want 8 hex digits", s)
	}
	var v [4]uint8
	for i := 0; i < 4; i++ {
		hi, ok1 := hexNibble(s[i*2])
		lo, ok2 := hexNibble(s[i*2+1])
		if !ok1 || !ok2 {
			return 0, 0, 0, 0, fmt.Errorf("ambient color %q: bad hex digit", s)
		}
		v[i] = hi<<4 | lo
	}
	return v[0], v[1], v[2], v[3], nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// LevelFromAmbientColor buckets a map's ambient ARGB color into a Level by
// perceived luminance (0.299R + 0.587G + 0.114B): above 170 bright, above 85
// dim, else darkness. Unparseable colors read as full bright, the same
// fallback the file format's defaults use.
func LevelFromAmbientColor(argb string) Level {
	_, r, g, b, err := ParseARGB(argb)
	if err != nil {
		return Bright
	}
	// Integer millis keep the bucket edges exact at 170 and 85.
	lum := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	switch {
	case lum > 170:
		return Bright
	case lum > 85:
		return Dim
	default:
		return Darkness
	}
}

// Light is a positioned light zone in pixel space. Inactive lights
// contribute nothing.
type Light struct {
	ID             int64
	TokenID        *int64
	Pos            geom.Point
	BrightRadiusPx float64
	DimRadiusPx    float64
	Color          string
	CastsShadows   bool
	Active         bool
}

// LevelAt classifies illumination at a point: bright inside any zone's bright
// radius, otherwise dim inside any dim radius, otherwise the map's ambient
// level. Zone edges count as inside, so moving closer to a light never
// lowers the level.
func LevelAt(p geom.Point, lights []Light, ambient Level) Level {
	best := ambient
	for i := range lights {
		l := &lights[i]
		if !l.Active {
			continue
		}
		d := l.Pos.DistSq(p)
		if l.BrightRadiusPx > 0 && d <= l.BrightRadiusPx*l.BrightRadiusPx {
			return Bright
		}
		if l.DimRadiusPx > 0 && d <= l.DimRadiusPx*l.DimRadiusPx && best < Dim {
			best = Dim
		}
	}
	return best
}
