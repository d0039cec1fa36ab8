package spatial

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// progressEvery controls how often the filter logs progress on large inputs.
const progressEvery = 100_000

// Cell identifies one bucket of the uniform diagnostic grid laid over
// [0,1]² with cell size 2×radius.
type Cell struct {
	Col int
	Row int
}

// Result is the outcome of one deduplication run.
type Result struct {
	// Kept holds the indices of surviving points, in ascending order.
	Kept []int
	// Discarded counts removed points per grid cell, for diagnostics.
	Discarded map[Cell]int
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Deduper greedily thins a 2D point set so that no two surviving points lie
// within a given radius of each other. Points are considered in ascending
// index order, which makes the surviving set deterministic for a fixed
// input ordering.
type Deduper struct {
	logger *zap.Logger
}

// NewDeduper creates a Deduper. A nil logger disables progress logging.
func NewDeduper(logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{logger: logger}
}

// Filter selects a maximal subset of pts such that every pair of selected
// points is at least radius apart. Every discarded point lies within radius
// of some kept point. A radius of zero keeps everything.
func (d *Deduper) Filter(pts []Point, radius float64) Result {
	start := time.Now()

	if radius <= 0 {
		kept := make([]int, len(pts))
		for i := range pts {
			kept[i] = i
		}
		return Result{Kept: kept, Discarded: map[Cell]int{}, Elapsed: time.Since(start)}
	}

	// NewIndex reorders its input; give it a copy so pts keeps its
	// index-aligned order.
	indexed := make([]Point, len(pts))
	copy(indexed, pts)
	ix := NewIndex(indexed)

	visited := make([]bool, len(pts))
	taken := make([]bool, len(pts))

	kept := make([]int, 0, len(pts))
	for i := range pts {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := ix.Within(pts[i], radius)
		blocked := false
		for _, nb := range neighbors {
			if taken[nb] {
				blocked = true
				break
			}
		}
		if blocked {
			// Covered by an earlier pick; i stays discarded.
			continue
		}

		taken[i] = true
		kept = append(kept, i)
		for _, nb := range neighbors {
			visited[nb] = true
		}

		if len(pts) > progressEvery && i%progressEvery == 0 {
			d.logger.Info("dedup filter progress",
				zap.Int("scanned", i),
				zap.Int("total", len(pts)),
				zap.Int("kept", len(kept)))
		}
	}

	discarded := make(map[Cell]int)
	for i, p := range pts {
		if !taken[i] {
			discarded[cellFor(p, radius)]++
		}
	}

	return Result{Kept: kept, Discarded: discarded, Elapsed: time.Since(start)}
}

// cellFor buckets p into the diagnostic grid with cell size 2×radius.
func cellFor(p Point, radius float64) Cell {
	size := 2 * radius
	return Cell{
		Col: int(math.Floor(p.X / size)),
		Row: int(math.Floor(p.Y / size)),
	}
}
