package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/musexhq/musex/pkg/models"
)

// stubSnapshots serves a fixed snapshot regardless of level.
type stubSnapshots struct {
	snap *models.Snapshot
	key  models.SnapshotKey
}

func (s *stubSnapshots) Get(_ context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	s.key = key
	if s.snap == nil {
		return nil, models.ErrSnapshotMissing
	}
	return s.snap, nil
}

func gridSnapshot(n int) *models.Snapshot {
	snap := &models.Snapshot{}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			snap.Nodes = append(snap.Nodes, models.GraphNode{
				ID: fmt.Sprintf("n%d-%d", i, j),
				X:  float64(i) / float64(n-1),
				Y:  float64(j) / float64(n-1),
			})
		}
	}
	return snap
}

func newTestService(snap *models.Snapshot) (*Service, *stubSnapshots) {
	src := &stubSnapshots{snap: snap}
	svc := NewService(src, NewZoomLevels(5, 0.1), NewStateStore(time.Minute), nil)
	return svc, src
}

func TestQueryFullZoomReturnsAllInBox(t *testing.T) {
	svc, src := newTestService(gridSnapshot(5))

	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0.5, Y: 0.5, Zoom: 1.0,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if src.key.Level != 4 {
		t.Errorf("zoom 1.0 should select the finest level, got %d", src.key.Level)
	}
	// zoom 1.0 collapses the box to the center point; only the center node
	// remains.
	if len(res.Nodes) != 1 || res.Nodes[0].ID != "n2-2" {
		t.Errorf("nodes = %+v", res.Nodes)
	}
}

func TestQueryZoomedOutCoversEverything(t *testing.T) {
	svc, _ := newTestService(gridSnapshot(5))

	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0.5, Y: 0.5, Zoom: 0,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Nodes) != 25 {
		t.Errorf("zoom 0 box should cover the whole space, got %d nodes", len(res.Nodes))
	}
}

func TestQueryBoundingBox(t *testing.T) {
	svc, _ := newTestService(gridSnapshot(5))

	// zoom 0.5 -> half-width 0.25 around (0,0): only nodes with x,y <= 0.25.
	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0, Y: 0, Zoom: 0.5,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, n := range res.Nodes {
		if n.X > 0.25 || n.Y > 0.25 {
			t.Errorf("node %s at (%v,%v) outside box", n.ID, n.X, n.Y)
		}
	}
	if len(res.Nodes) != 4 {
		t.Errorf("expected the 2x2 corner, got %d nodes", len(res.Nodes))
	}
}

func TestQueryBudgetKeepsFocalNode(t *testing.T) {
	svc, _ := newTestService(gridSnapshot(5))

	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0.5, Y: 0.5, Zoom: 0,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(res.Nodes) != 5 {
		t.Fatalf("budget of 5 not honored, got %d", len(res.Nodes))
	}
	if res.Nodes[0].ID != "n2-2" {
		t.Errorf("nearest node to center must survive sampling, got %s", res.Nodes[0].ID)
	}
}

func TestQueryLinksRestrictedToVisibleNodes(t *testing.T) {
	snap := gridSnapshot(5)
	snap.Links = []models.GraphLink{
		{Source: "n0-0", Dest: "n1-1", Label: "inside"},
		{Source: "n0-0", Dest: "n4-4", Label: "outside"},
	}
	svc, _ := newTestService(snap)

	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0, Y: 0, Zoom: 0.5,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(res.Links) != 1 || res.Links[0].Label != "inside" {
		t.Errorf("links = %+v", res.Links)
	}
}

func TestQueryRecordsVisibleSet(t *testing.T) {
	svc, _ := newTestService(gridSnapshot(3))

	res, err := svc.Query(context.Background(), ViewportQuery{
		X: 0.5, Y: 0.5, Zoom: 0,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	visible, ok := svc.States().Visible(res.Token)
	if !ok {
		t.Fatal("expected visible state for returned token")
	}
	if len(visible) != len(res.Nodes) {
		t.Errorf("visible set size %d, nodes %d", len(visible), len(res.Nodes))
	}
}

func TestQueryValidation(t *testing.T) {
	svc, _ := newTestService(gridSnapshot(3))

	_, err := svc.Query(context.Background(), ViewportQuery{
		DimX: "energy", DimY: "energy", Type: models.EntityTrack,
	})
	if !errors.Is(err, models.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}

	_, err = svc.Query(context.Background(), ViewportQuery{
		DimX: "energy", DimY: "groove", Type: models.EntityTrack,
	})
	if !errors.Is(err, models.ErrUnknownDimension) {
		t.Errorf("expected ErrUnknownDimension, got %v", err)
	}

	_, err = svc.Query(context.Background(), ViewportQuery{
		DimX: "energy", DimY: "tempo", Type: models.EntityType("album"),
	})
	if !errors.Is(err, models.ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestQuerySnapshotMissing(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.Query(context.Background(), ViewportQuery{
		X: 0.5, Y: 0.5, Zoom: 0.5,
		DimX: "energy", DimY: "tempo", Type: models.EntityTrack,
	})
	if !errors.Is(err, models.ErrSnapshotMissing) {
		t.Errorf("expected ErrSnapshotMissing, got %v", err)
	}
}
