package layer

// Coordinate bounds for the normalized canvas space.
//
// Positions are expressed as percentages of the rendering surface, not
// pixels, so a layout survives panels of different resolutions. Commits
// are capped at CommitMax rather than CoordinateMax so centre-translated
// visuals never overflow the canvas edge.
const (
	// CoordinateMin is the lower bound of the normalized coordinate space.
	CoordinateMin = 0.0

	// CoordinateMax is the upper bound of the normalized coordinate space.
	CoordinateMax = 100.0

	// CommitMax is the per-axis cap applied whenever a position is
	// committed to a store or a binding.
	CommitMax = 95.0
)

// Position is a normalized 2-D coordinate on the layer canvas.
// Both axes are percentages in [0, 100] of the container dimensions.
//
// A nil *Position is the "auto" sentinel: the entity has not been placed
// yet and renders at the canvas centre. Use Resolve to collapse the
// sentinel into a concrete value.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition returns the canvas centre, used for entities that have
// not been explicitly placed.
func DefaultPosition() Position {
	return Position{X: 50, Y: 50}
}

// Resolve collapses the auto sentinel: a nil position becomes the canvas
// centre, anything else passes through unchanged.
func Resolve(p *Position) Position {
	if p == nil {
		return DefaultPosition()
	}
	return *p
}

// Clamp returns a copy of the position with both axes bounded into
// [CoordinateMin, CommitMax]. Every commit path goes through Clamp, so
// out-of-range intermediate pixel math can never land outside the canvas.
func (p Position) Clamp() Position {
	return Position{
		X: clampAxis(p.X),
		Y: clampAxis(p.Y),
	}
}

func clampAxis(v float64) float64 {
	if v < CoordinateMin {
		return CoordinateMin
	}
	if v > CommitMax {
		return CommitMax
	}
	return v
}

// ToPixels converts the normalized position into pixel coordinates for a
// container of the given size.
func (p Position) ToPixels(width, height float64) (px, py float64) {
	return p.X / CoordinateMax * width, p.Y / CoordinateMax * height
}

// FromPixels converts pixel coordinates inside a container into a
// normalized position. The result is not clamped; callers commit through
// Clamp. Non-positive container dimensions yield the zero position.
func FromPixels(px, py, width, height float64) Position {
	if width <= 0 || height <= 0 {
		return Position{}
	}
	return Position{
		X: px / width * CoordinateMax,
		Y: py / height * CoordinateMax,
	}
}

// Preset names a quick-position shorthand on the layer canvas.
// The nine presets form a compass grid: corners, edge midpoints, and the
// centre.
type Preset string

// Preset constants.
const (
	PresetNorthWest Preset = "nw"
	PresetNorth     Preset = "n"
	PresetNorthEast Preset = "ne"
	PresetWest      Preset = "w"
	PresetCenter    Preset = "c"
	PresetEast      Preset = "e"
	PresetSouthWest Preset = "sw"
	PresetSouth     Preset = "s"
	PresetSouthEast Preset = "se"
)

// AllPresets returns all valid preset values.
func AllPresets() []Preset {
	return []Preset{
		PresetNorthWest, PresetNorth, PresetNorthEast,
		PresetWest, PresetCenter, PresetEast,
		PresetSouthWest, PresetSouth, PresetSouthEast,
	}
}

// Preset grid coordinates. Edge values sit symmetrically inside the
// commit bounds so centre-anchored items keep the same margin on every
// side.
const (
	presetNear = 5.0
	presetMid  = 50.0
	presetFar  = 95.0
)

// PresetPosition resolves a preset name into its canvas position.
// Unknown presets return false.
func PresetPosition(p Preset) (Position, bool) {
	switch p {
	case PresetNorthWest:
		return Position{X: presetNear, Y: presetNear}, true
	case PresetNorth:
		return Position{X: presetMid, Y: presetNear}, true
	case PresetNorthEast:
		return Position{X: presetFar, Y: presetNear}, true
	case PresetWest:
		return Position{X: presetNear, Y: presetMid}, true
	case PresetCenter:
		return Position{X: presetMid, Y: presetMid}, true
	case PresetEast:
		return Position{X: presetFar, Y: presetMid}, true
	case PresetSouthWest:
		return Position{X: presetNear, Y: presetFar}, true
	case PresetSouth:
		return Position{X: presetMid, Y: presetFar}, true
	case PresetSouthEast:
		return Position{X: presetFar, Y: presetFar}, true
	default:
		return Position{}, false
	}
}
