package models

import "strings"

// Surface is the court type a match was played on.
type Surface string

const (
	SurfaceUnknown Surface = ""
	SurfaceClay    Surface = "clay"
	SurfaceGrass   Surface = "grass"
	SurfaceHard    Surface = "hard"
	SurfaceCarpet  Surface = "carpet"
)

// Surfaces lists the known court types in feature order.
var Surfaces = []Surface{SurfaceClay, SurfaceGrass, SurfaceHard, SurfaceCarpet}

// ParseSurface maps a raw surface name ("Hard", " clay ") to a Surface.
// Anything unrecognised is SurfaceUnknown.
func ParseSurface(s string) Surface {
	switch v := Surface(strings.ToLower(strings.TrimSpace(s))); v {
	case SurfaceClay, SurfaceGrass, SurfaceHard, SurfaceCarpet:
		return v
	default:
		return SurfaceUnknown
	}
}

// Known reports whether s is one of the four rated court types.
func (s Surface) Known() bool {
	return s != SurfaceUnknown
}

func (s Surface) String() string {
	if s == SurfaceUnknown {
		return "unknown"
	}
	return string(s)
}
