package world

import (
	"strings"

	"github.com/gridsight/engine/internal/geom"
	"github.com/gridsight/engine/internal/light"
)

// TokenType tags what a token represents. The engine itself only cares
// about the vision fields; the type is carried for the host's display and
// interaction rules.
type TokenType string

const (
	TokenMonster TokenType = "monster"
	TokenPC      TokenType = "pc"
	TokenNPC     TokenType = "npc"
	TokenTrap    TokenType = "trap"
	TokenMarker  TokenType = "marker"
)

// ParseTokenType reads a stored type string, defaulting unknowns to monster.
func ParseTokenType(s string) TokenType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pc":
		return TokenPC
	case "npc":
		return TokenNPC
	case "trap":
		return TokenTrap
	case "marker":
		return TokenMarker
	default:
		return TokenMonster
	}
}

// TokenSize is the creature size category.
type TokenSize string

const (
	SizeTiny       TokenSize = "tiny"
	SizeSmall      TokenSize = "small"
	SizeMedium     TokenSize = "medium"
	SizeLarge      TokenSize = "large"
	SizeHuge       TokenSize = "huge"
	SizeGargantuan TokenSize = "gargantuan"
)

// ParseTokenSize reads a stored size string, accepting single-letter
// shorthands, defaulting unknowns to medium.
func ParseTokenSize(s string) TokenSize {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tiny", "t":
		return SizeTiny
	case "small", "s":
		return SizeSmall
	case "large", "l":
		return SizeLarge
	case "huge", "h":
		return SizeHuge
	case "gargantuan", "g":
		return SizeGargantuan
	default:
		return SizeMedium
	}
}

// GridSquares is the footprint edge in grid squares.
func (s TokenSize) GridSquares() float64 {
	switch s {
	case SizeTiny:
		return 0.5
	case SizeLarge:
		return 2
	case SizeHuge:
		return 3
	case SizeGargantuan:
		return 4
	default:
		return 1
	}
}

// Token is the engine's view of a placed entity: position, visibility flag
// and vision capability. Everything else about the creature lives with the
// host.
type Token struct {
	ID               int64
	Name             string
	Type             TokenType
	Size             TokenSize
	Pos              geom.Point
	VisibleToPlayers bool
	Color            string
	Vision           light.VisionProfile
}
