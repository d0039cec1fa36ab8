package recommend

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

// stubVectors serves a fixed vector per entity ID.
type stubVectors map[string][]float32

func (s stubVectors) FeatureVectors(_ context.Context, _ models.EntityType, ids []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for _, id := range ids {
		if v, ok := s[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// stubStates serves one visible set for one token.
type stubStates struct {
	token   string
	visible map[string]bool
}

func (s *stubStates) Visible(token string) (map[string]bool, bool) {
	if token != s.token {
		return nil, false
	}
	return s.visible, true
}

// vectorWith builds a full 13-dimension vector with every similarity
// dimension set to v and the remaining dimensions zero.
func vectorWith(v float64) []float32 {
	out := make([]float32, len(dimension.Names))
	for _, dim := range dimension.SimilarityDims {
		out[dimension.IndexOf(dim)] = float32(v)
	}
	return out
}

// vectorSim builds a vector whose similarity-subset direction deviates
// from the all-ones direction by mixing in a single-axis component.
func vectorSim(axis string, weight float64) []float32 {
	out := vectorWith(1)
	out[dimension.IndexOf(axis)] += float32(weight)
	return out
}

func unitDescriptors() map[string]models.DimensionDescriptor {
	descs := make(map[string]models.DimensionDescriptor, len(dimension.Names))
	for _, n := range dimension.Names {
		descs[n] = models.DimensionDescriptor{Name: n, Min: 0, Max: 10}
	}
	return descs
}

func newTestService(vectors stubVectors, visible []string) *Service {
	vis := make(map[string]bool, len(visible))
	for _, id := range visible {
		vis[id] = true
	}
	return NewService(
		vectors,
		&stubStates{token: "tok", visible: vis},
		dimension.NewNormalizer(unitDescriptors()),
		nil,
	)
}

func TestSelectRanksBySimilarity(t *testing.T) {
	vectors := stubVectors{
		"sel":  vectorWith(1),
		"near": vectorSim("danceability", 0.1),
		"mid":  vectorSim("danceability", 1.0),
		"far":  vectorSim("danceability", 5.0),
	}
	svc := newTestService(vectors, []string{"sel", "near", "mid", "far"})

	res, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"sel"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityTrack,
		Limit: 2,
		Token: "tok",
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(res.Nodes) != 2 {
		t.Fatalf("expected 2 recommendations, got %v", res.Nodes)
	}
	if res.Nodes[0] != "near" || res.Nodes[1] != "mid" {
		t.Errorf("ranking = %v, want [near mid]", res.Nodes)
	}
}

func TestSelectExcludesSelection(t *testing.T) {
	vectors := stubVectors{
		"sel":   vectorWith(1),
		"other": vectorWith(1),
	}
	svc := newTestService(vectors, []string{"sel", "other"})

	res, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"sel"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityTrack,
		Token: "tok",
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	for _, id := range res.Nodes {
		if id == "sel" {
			t.Error("selection must not be recommended back")
		}
	}
}

func TestSelectRestrictedToVisible(t *testing.T) {
	vectors := stubVectors{
		"sel":       vectorWith(1),
		"offscreen": vectorWith(1),
		"onscreen":  vectorWith(1),
	}
	svc := newTestService(vectors, []string{"sel", "onscreen"})

	res, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"sel"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityTrack,
		Token: "tok",
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(res.Nodes) != 1 || res.Nodes[0] != "onscreen" {
		t.Errorf("nodes = %v, want [onscreen]", res.Nodes)
	}
}

func TestSelectWithoutViewport(t *testing.T) {
	svc := newTestService(stubVectors{"Drake": vectorWith(1)}, nil)

	_, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"Drake"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityArtist,
		Token: "unseen",
	})
	if !errors.Is(err, models.ErrNoViewport) {
		t.Errorf("expected ErrNoViewport, got %v", err)
	}
}

func TestSelectUnknownNodes(t *testing.T) {
	svc := newTestService(stubVectors{}, []string{"a"})

	_, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"missing"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityTrack,
		Token: "tok",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectRegionOfInterest(t *testing.T) {
	a := vectorWith(1)
	a[dimension.IndexOf("energy")] = 2
	a[dimension.IndexOf("tempo")] = 4
	b := vectorWith(1)
	b[dimension.IndexOf("energy")] = 6
	b[dimension.IndexOf("tempo")] = 8

	vectors := stubVectors{"sel": vectorWith(1), "a": a, "b": b}
	svc := newTestService(vectors, []string{"sel", "a", "b"})

	res, err := svc.Select(context.Background(), SelectQuery{
		NodeIDs: []string{"sel"},
		DimX:    "energy", DimY: "tempo",
		Type:  models.EntityTrack,
		Token: "tok",
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	roi := res.RegionsOfInterest
	// Descriptors span [0,10], so raw 2/6 normalize to 0.2/0.6 on x and
	// raw 4/8 to 0.4/0.8 on y.
	if math.Abs(roi.MinX-0.2) > 1e-9 || math.Abs(roi.MaxX-0.6) > 1e-9 {
		t.Errorf("x range = [%v, %v]", roi.MinX, roi.MaxX)
	}
	if math.Abs(roi.MinY-0.4) > 1e-9 || math.Abs(roi.MaxY-0.8) > 1e-9 {
		t.Errorf("y range = [%v, %v]", roi.MinY, roi.MaxY)
	}
	if len(roi.Interest) != 2 {
		t.Errorf("expected 2 interest points, got %d", len(roi.Interest))
	}
	for _, p := range roi.Interest {
		if p.Value < -1 || p.Value > 1 {
			t.Errorf("similarity out of range: %v", p.Value)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float64
		want float64
	}{
		{[]float64{1, 0}, []float64{1, 0}, 1},
		{[]float64{1, 0}, []float64{0, 1}, 0},
		{[]float64{1, 0}, []float64{-1, 0}, -1},
		{[]float64{1, 2}, []float64{1, 2, 3}, 0},
		{nil, nil, 0},
		{[]float64{0, 0}, []float64{1, 1}, 0},
	}

	for _, tt := range tests {
		if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMeanVector(t *testing.T) {
	got := MeanVector([][]float64{{1, 2}, {3, 4}})
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("MeanVector = %v", got)
	}
	if MeanVector(nil) != nil {
		t.Error("empty input should yield nil")
	}
}
