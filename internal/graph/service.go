package graph

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

// SnapshotSource loads precomputed snapshots.
type SnapshotSource interface {
	Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error)
}

// ViewportQuery is one graph request: a viewport center in normalized
// [0,1]² space, a continuous zoom, the axis dimensions and an optional
// node budget. Token ties consecutive requests of one session together.
type ViewportQuery struct {
	X, Y  float64
	Zoom  float64
	DimX  string
	DimY  string
	Type  models.EntityType
	Limit int
	Token string
}

// Result is the assembled graph view.
type Result struct {
	Token string             `json:"token"`
	Level int                `json:"level"`
	Nodes []models.GraphNode `json:"nodes"`
	Links []models.GraphLink `json:"links"`
}

// Service answers viewport queries against precomputed snapshots.
type Service struct {
	snapshots SnapshotSource
	levels    ZoomLevels
	states    *StateStore
	logger    *zap.Logger
}

// NewService creates a graph query service.
func NewService(snapshots SnapshotSource, levels ZoomLevels, states *StateStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		snapshots: snapshots,
		levels:    levels,
		states:    states,
		logger:    logger,
	}
}

// States exposes the session state store so the recommender can read the
// visible set recorded here.
func (s *Service) States() *StateStore {
	return s.states
}

// Query selects the snapshot level for q.Zoom, cuts it down to the
// viewport bounding box and an optional node budget, and records the
// surviving node IDs as the session's visible set.
func (s *Service) Query(ctx context.Context, q ViewportQuery) (*Result, error) {
	if err := dimension.ValidatePair(q.DimX, q.DimY); err != nil {
		return nil, err
	}
	if _, err := models.ParseEntityType(string(q.Type)); err != nil {
		return nil, err
	}

	zoom := clamp(q.Zoom, 0, 1)
	level := s.levels.LevelFor(zoom)

	snap, err := s.snapshots.Get(ctx, models.SnapshotKey{
		DimX:  q.DimX,
		DimY:  q.DimY,
		Type:  q.Type,
		Level: level,
	})
	if err != nil {
		return nil, err
	}

	half := (1 - zoom) / 2
	minX, maxX := clamp(q.X-half, 0, 1), clamp(q.X+half, 0, 1)
	minY, maxY := clamp(q.Y-half, 0, 1), clamp(q.Y+half, 0, 1)

	var nodes []models.GraphNode
	for _, n := range snap.Nodes {
		if n.X >= minX && n.X <= maxX && n.Y >= minY && n.Y <= maxY {
			nodes = append(nodes, n)
		}
	}

	if q.Limit > 0 && len(nodes) > q.Limit {
		nodes = subsample(nodes, q.X, q.Y, q.Limit)
	}

	ids := make([]string, len(nodes))
	inView := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		inView[n.ID] = true
	}

	var links []models.GraphLink
	for _, l := range snap.Links {
		if inView[l.Source] && inView[l.Dest] {
			links = append(links, l)
		}
	}

	token := s.states.Record(q.Token, ids)
	s.logger.Debug("graph query",
		zap.String("type", string(q.Type)),
		zap.Int("level", level),
		zap.Int("nodes", len(nodes)),
		zap.Int("links", len(links)))

	return &Result{Token: token, Level: level, Nodes: nodes, Links: links}, nil
}

// subsample reduces nodes to the budget. The node nearest to the viewport
// center always survives so the focal point stays visually stable; the
// rest is a uniform random sample without replacement, which keeps sparse
// regions represented instead of favoring dense clusters.
func subsample(nodes []models.GraphNode, x, y float64, limit int) []models.GraphNode {
	focal := 0
	best := math.Inf(1)
	for i, n := range nodes {
		d := (n.X-x)*(n.X-x) + (n.Y-y)*(n.Y-y)
		if d < best {
			best = d
			focal = i
		}
	}

	rest := make([]models.GraphNode, 0, len(nodes)-1)
	for i, n := range nodes {
		if i != focal {
			rest = append(rest, n)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	out := make([]models.GraphNode, 0, limit)
	out = append(out, nodes[focal])
	out = append(out, rest[:limit-1]...)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
