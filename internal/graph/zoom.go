package graph

// DefaultLevelCount is the number of discrete precomputation zoom levels.
const DefaultLevelCount = 5

// DefaultMaxRadius is the dedup radius of the coarsest zoom level, in
// normalized [0,1]² units.
const DefaultMaxRadius = 0.1

// ZoomLevels maps each discrete level to its deduplication radius. Radii
// halve from the maximum toward the finest level, which is always 0 (no
// filtering at full zoom-in).
type ZoomLevels []float64

// NewZoomLevels builds n levels from maxRadius. With the defaults the
// radii are [0.1, 0.05, 0.025, 0.0125, 0].
func NewZoomLevels(n int, maxRadius float64) ZoomLevels {
	if n < 2 {
		n = 2
	}
	radii := make(ZoomLevels, n)
	r := maxRadius
	for i := 0; i < n-1; i++ {
		radii[i] = r
		r /= 2
	}
	radii[n-1] = 0
	return radii
}

// Radius returns the dedup radius for a level, clamping out-of-range
// levels to the nearest end.
func (z ZoomLevels) Radius(level int) float64 {
	if level < 0 {
		level = 0
	}
	if level >= len(z) {
		level = len(z) - 1
	}
	return z[level]
}

// LevelFor maps a continuous zoom in [0,1] to a discrete snapshot level.
func (z ZoomLevels) LevelFor(zoom float64) int {
	level := int(zoom * float64(len(z)))
	if level < 0 {
		return 0
	}
	if level >= len(z) {
		return len(z) - 1
	}
	return level
}
