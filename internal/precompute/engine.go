package precompute

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/internal/graph"
	"github.com/musexhq/musex/internal/metrics"
	"github.com/musexhq/musex/internal/spatial"
	"github.com/musexhq/musex/pkg/models"
)

// EntityLister loads the full entity set of one type, optionally paginated.
type EntityLister interface {
	List(ctx context.Context, t models.EntityType, offset, limit int) ([]models.Entity, error)
}

// SnapshotWriter persists one snapshot, replacing any prior content for
// its key.
type SnapshotWriter interface {
	Replace(ctx context.Context, snap models.Snapshot) error
}

// StatsSource provides the cached dimension min/max document.
type StatsSource interface {
	DimMinMax(ctx context.Context) (map[string]models.DimensionDescriptor, error)
}

// Job describes one precomputation run. Zero-valued fields select the full
// cross product of dimension pairs, entity types and zoom levels.
type Job struct {
	Types    []models.EntityType
	DimPairs [][2]string
	Levels   []int
	Offset   int
	Limit    int
}

// TupleError records one failed tuple of a run.
type TupleError struct {
	Key models.SnapshotKey
	Err error
}

// Report summarizes a run. Failed tuples never abort the remaining work;
// the operator decides whether to re-run.
type Report struct {
	Succeeded int
	Failed    []TupleError
	Elapsed   time.Duration
}

// Engine is the batch job that precomputes one snapshot per
// (dimension pair, entity type, zoom level) tuple. Tuples are independent
// units of work: a failure on one is recorded and the run continues.
type Engine struct {
	entities  EntityLister
	snapshots SnapshotWriter
	stats     StatsSource
	deduper   *spatial.Deduper
	levels    graph.ZoomLevels
	logger    *zap.Logger
}

// NewEngine creates a precomputation engine.
func NewEngine(entities EntityLister, snapshots SnapshotWriter, stats StatsSource, levels graph.ZoomLevels, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		entities:  entities,
		snapshots: snapshots,
		stats:     stats,
		deduper:   spatial.NewDeduper(logger),
		levels:    levels,
		logger:    logger,
	}
}

// Run executes the job. Entities are loaded once per type and reused
// across all dimension pairs and levels of that type.
func (e *Engine) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()

	descriptors, err := e.stats.DimMinMax(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dimension statistics: %w", err)
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("dimension statistics not computed; run the minmax task first")
	}
	normalizer := dimension.NewNormalizer(descriptors)

	types := job.Types
	if len(types) == 0 {
		types = []models.EntityType{models.EntityGenre, models.EntityArtist, models.EntityTrack}
	}
	pairs := job.DimPairs
	if len(pairs) == 0 {
		pairs = allPairs()
	}
	levels := job.Levels
	if len(levels) == 0 {
		for i := range e.levels {
			levels = append(levels, i)
		}
	}

	report := &Report{}
	for _, t := range types {
		entities, err := e.entities.List(ctx, t, job.Offset, job.Limit)
		if err != nil {
			// Every tuple of this type shares the load; report them all
			// failed and move on to the next type.
			for _, pair := range pairs {
				for _, level := range levels {
					key := models.SnapshotKey{DimX: pair[0], DimY: pair[1], Type: t, Level: level}
					report.Failed = append(report.Failed, TupleError{Key: key, Err: err})
					metrics.PrecomputeTuples.WithLabelValues("error").Inc()
				}
			}
			e.logger.Error("load entities failed", zap.String("type", string(t)), zap.Error(err))
			continue
		}
		e.logger.Info("precomputing type",
			zap.String("type", string(t)),
			zap.Int("entities", len(entities)),
			zap.Int("pairs", len(pairs)),
			zap.Int("levels", len(levels)))

		for _, pair := range pairs {
			points, err := project(entities, pair[0], pair[1], normalizer)
			if err != nil {
				for _, level := range levels {
					key := models.SnapshotKey{DimX: pair[0], DimY: pair[1], Type: t, Level: level}
					report.Failed = append(report.Failed, TupleError{Key: key, Err: err})
					metrics.PrecomputeTuples.WithLabelValues("error").Inc()
				}
				continue
			}

			for _, level := range levels {
				if err := ctx.Err(); err != nil {
					report.Elapsed = time.Since(start)
					return report, err
				}

				key := models.SnapshotKey{DimX: pair[0], DimY: pair[1], Type: t, Level: level}
				snap := e.buildSnapshot(key, entities, points, normalizer)
				if err := e.snapshots.Replace(ctx, snap); err != nil {
					report.Failed = append(report.Failed, TupleError{Key: key, Err: err})
					metrics.PrecomputeTuples.WithLabelValues("error").Inc()
					e.logger.Error("tuple failed", zap.Any("key", key), zap.Error(err))
					continue
				}
				report.Succeeded++
				metrics.PrecomputeTuples.WithLabelValues("ok").Inc()
			}
		}
	}

	report.Elapsed = time.Since(start)
	e.logger.Info("precompute run finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// buildSnapshot filters the projected points at the key's radius and
// derives the surviving nodes and links.
func (e *Engine) buildSnapshot(key models.SnapshotKey, entities []models.Entity, points []spatial.Point, normalizer *dimension.Normalizer) models.Snapshot {
	radius := e.levels.Radius(key.Level)
	res := e.deduper.Filter(points, radius)

	metrics.FilterKept.WithLabelValues(string(key.Type)).Add(float64(len(res.Kept)))
	metrics.FilterDiscarded.WithLabelValues(string(key.Type)).Add(float64(len(points) - len(res.Kept)))
	e.logger.Debug("tuple filtered",
		zap.Any("key", key),
		zap.Int("input", len(points)),
		zap.Int("kept", len(res.Kept)),
		zap.Duration("filter_elapsed", res.Elapsed))

	nodes := make([]models.GraphNode, 0, len(res.Kept))
	position := make(map[string]spatial.Point, len(res.Kept))
	for _, i := range res.Kept {
		ent := entities[i]
		p := points[i]
		position[ent.ID] = p
		nodes = append(nodes, models.GraphNode{
			ID:         ent.ID,
			Name:       ent.Name,
			X:          p.X,
			Y:          p.Y,
			Size:       ent.Popularity,
			Type:       ent.Type,
			Genres:     ent.Genres,
			SuperGenre: ent.SuperGenre,
			Color:      ent.Color,
		})
	}

	return models.Snapshot{
		Key:   key,
		Nodes: nodes,
		Links: deriveLinks(key, entities, position, normalizer),
	}
}

// project normalizes each entity's (dimx, dimy) raw values into [0,1]².
func project(entities []models.Entity, dimx, dimy string, normalizer *dimension.Normalizer) ([]spatial.Point, error) {
	points := make([]spatial.Point, len(entities))
	for i, ent := range entities {
		x, err := normalizer.Normalize(dimx, ent.Features[dimx])
		if err != nil {
			return nil, err
		}
		y, err := normalizer.Normalize(dimy, ent.Features[dimy])
		if err != nil {
			return nil, err
		}
		points[i] = spatial.Point{X: x, Y: y, Index: i}
	}
	return points, nil
}

// allPairs returns every ordered pair of distinct recognized dimensions.
func allPairs() [][2]string {
	var pairs [][2]string
	for _, x := range dimension.Names {
		for _, y := range dimension.Names {
			if x != y {
				pairs = append(pairs, [2]string{x, y})
			}
		}
	}
	return pairs
}
