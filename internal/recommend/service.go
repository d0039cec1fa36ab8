package recommend

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

// DefaultLimit is the number of recommendations returned when the client
// does not ask for a specific count.
const DefaultLimit = 6

// VectorSource fetches stored feature vectors by entity ID.
type VectorSource interface {
	FeatureVectors(ctx context.Context, t models.EntityType, ids []string) (map[string][]float32, error)
}

// VisibleSource resolves a session token to the node IDs currently on
// screen for that session.
type VisibleSource interface {
	Visible(token string) (map[string]bool, bool)
}

// SelectQuery asks for entities similar to the user's current selection.
type SelectQuery struct {
	NodeIDs []string
	DimX    string
	DimY    string
	Type    models.EntityType
	Limit   int
	Token   string
}

// Result carries the recommended node IDs and the region of interest for
// the heat overlay.
type Result struct {
	Nodes             []string                `json:"nodes"`
	RegionsOfInterest models.RegionOfInterest `json:"regions_of_interest"`
}

// Service recommends visible entities similar to a selection, by cosine
// similarity over the reduced feature subset.
type Service struct {
	vectors    VectorSource
	states     VisibleSource
	normalizer *dimension.Normalizer
	logger     *zap.Logger
}

// NewService creates a similarity recommender.
func NewService(vectors VectorSource, states VisibleSource, normalizer *dimension.Normalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		vectors:    vectors,
		states:     states,
		normalizer: normalizer,
		logger:     logger,
	}
}

type scored struct {
	id         string
	similarity float64
	vector     []float64
}

// Select restricts the candidate pool to the session's visible nodes minus
// the selection itself, ranks candidates by cosine similarity to the mean
// selection vector and returns the top ones plus a bounding region of
// interest. Candidates with equal similarity are ordered arbitrarily.
func (s *Service) Select(ctx context.Context, q SelectQuery) (*Result, error) {
	if err := dimension.ValidatePair(q.DimX, q.DimY); err != nil {
		return nil, err
	}
	if _, err := models.ParseEntityType(string(q.Type)); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	visible, ok := s.states.Visible(q.Token)
	if !ok {
		return nil, models.ErrNoViewport
	}

	selVecs, err := s.vectors.FeatureVectors(ctx, q.Type, q.NodeIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch selection vectors: %w", err)
	}
	if len(selVecs) == 0 {
		return nil, fmt.Errorf("%w: no entities match the selected nodes", models.ErrNotFound)
	}

	selected := make(map[string]bool, len(q.NodeIDs))
	for _, id := range q.NodeIDs {
		selected[id] = true
	}
	var candidateIDs []string
	for id := range visible {
		if !selected[id] {
			candidateIDs = append(candidateIDs, id)
		}
	}

	candVecs, err := s.vectors.FeatureVectors(ctx, q.Type, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate vectors: %w", err)
	}

	reduced := make([][]float64, 0, len(selVecs))
	for _, v := range selVecs {
		reduced = append(reduced, reduceVector(v))
	}
	mean := MeanVector(reduced)

	candidates := make([]scored, 0, len(candVecs))
	for id, v := range candVecs {
		full := toFloat64(v)
		candidates = append(candidates, scored{
			id:         id,
			similarity: CosineSimilarity(mean, reduceVector(v)),
			vector:     full,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	roi, err := s.regionOfInterest(candidates, q.DimX, q.DimY)
	if err != nil {
		return nil, err
	}

	nodes := make([]string, len(candidates))
	for i, c := range candidates {
		nodes[i] = c.id
	}

	s.logger.Debug("similarity select",
		zap.Int("selection", len(selVecs)),
		zap.Int("candidates", len(candVecs)),
		zap.Int("returned", len(nodes)))

	return &Result{Nodes: nodes, RegionsOfInterest: roi}, nil
}

// regionOfInterest computes the bounding rectangle of the returned set in
// normalized (dimx, dimy) space, with one weighted point per node for the
// heat overlay.
func (s *Service) regionOfInterest(candidates []scored, dimx, dimy string) (models.RegionOfInterest, error) {
	ix, iy := dimension.IndexOf(dimx), dimension.IndexOf(dimy)

	roi := models.RegionOfInterest{Interest: []models.InterestPoint{}}
	for i, c := range candidates {
		x, err := s.normalizer.Normalize(dimx, c.vector[ix])
		if err != nil {
			return roi, err
		}
		y, err := s.normalizer.Normalize(dimy, c.vector[iy])
		if err != nil {
			return roi, err
		}

		if i == 0 || x < roi.MinX {
			roi.MinX = x
		}
		if i == 0 || x > roi.MaxX {
			roi.MaxX = x
		}
		if i == 0 || y < roi.MinY {
			roi.MinY = y
		}
		if i == 0 || y > roi.MaxY {
			roi.MaxY = y
		}
		roi.Interest = append(roi.Interest, models.InterestPoint{X: x, Y: y, Value: c.similarity})
	}
	return roi, nil
}

// reduceVector projects a stored feature vector onto the similarity
// dimension subset.
func reduceVector(full []float32) []float64 {
	out := make([]float64, 0, len(dimension.SimilarityDims))
	for _, dim := range dimension.SimilarityDims {
		out = append(out, float64(full[dimension.IndexOf(dim)]))
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
