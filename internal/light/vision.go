package light

import "github.com/gridsight/engine/internal/geom"

// UnlimitedFt is the sentinel range for unrestricted sight. A finite value
// keeps the polygon math bounded; the map extents clip it anyway.
const UnlimitedFt = 10000.0

// FeetToPx converts a tabletop distance to map pixels. One grid square is
// five feet.
func FeetToPx(ft, pixelsPerGrid float64) float64 {
	return ft / 5.0 * pixelsPerGrid
}

// PxToFeet is the inverse of FeetToPx.
func PxToFeet(px, pixelsPerGrid float64) float64 {
	return px / pixelsPerGrid * 5.0
}

// VisionProfile is a token's sight capability, in feet. Nil bright/dim
// ranges mean unlimited. DarkFt is how far the token sees with no light at
// all; DarkIsDim marks that sight as dim (darkvision) rather than normal
// (devil's sight). IgnoresLight bypasses light levels entirely: the token
// perceives out to DarkFt no matter the illumination (blindsight,
// tremorsense, truesight).
type VisionProfile struct {
	BrightFt      *float64
	DimFt         *float64
	DarkFt        float64
	LightRadiusFt float64
	DarkIsDim     bool
	IgnoresLight  bool
}

// Vision is a resolved sight range in pixel space. Dim flags disadvantage on
// sight-based checks; acting on it is the caller's business.
type Vision struct {
	RadiusPx float64
	Dim      bool
}

// ResolveVision computes how far a token can see. The light level is taken
// at the token's own position: a token benefits only from light it stands
// inside, not from lit areas visible in the distance.
//
// In darkness the radius is the larger of the token's dark sight and its own
// carried light, and the result is dim only when dark sight supplied it.
// Standing inside your own torchlight resolves through the lights slice like
// any other zone.
func ResolveVision(p VisionProfile, at geom.Point, lights []Light, ambient Level, pixelsPerGrid float64) Vision {
	if p.IgnoresLight {
		r := p.DarkFt
		if r <= 0 {
			r = UnlimitedFt
		}
		return Vision{RadiusPx: FeetToPx(r, pixelsPerGrid)}
	}
	switch LevelAt(at, lights, ambient) {
	case Bright:
		return Vision{RadiusPx: FeetToPx(orUnlimited(p.BrightFt), pixelsPerGrid)}
	case Dim:
		return Vision{RadiusPx: FeetToPx(orUnlimited(p.DimFt), pixelsPerGrid), Dim: true}
	default:
		r := p.DarkFt
		if p.LightRadiusFt > r {
			r = p.LightRadiusFt
		}
		dim := p.DarkIsDim && p.DarkFt > 0 && p.DarkFt > p.LightRadiusFt
		return Vision{RadiusPx: FeetToPx(r, pixelsPerGrid), Dim: dim}
	}
}

func orUnlimited(ft *float64) float64 {
	if ft == nil {
		return UnlimitedFt
	}
	return *ft
}
