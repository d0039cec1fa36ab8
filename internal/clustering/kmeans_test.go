package clustering

import "testing"

func TestFitSeparatesObviousClusters(t *testing.T) {
	vectors := [][]float64{
		{0.1, 0.1}, {0.12, 0.09}, {0.08, 0.11},
		{0.9, 0.9}, {0.88, 0.92}, {0.91, 0.89},
	}

	km := NewKMeans(2)
	labels := km.Fit(vectors)

	if len(labels) != len(vectors) {
		t.Fatalf("labels = %d, want %d", len(labels), len(vectors))
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("low cluster split: %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("high cluster split: %v", labels[3:])
	}
	if labels[0] == labels[3] {
		t.Errorf("clusters merged: %v", labels)
	}
}

func TestFitDeterministic(t *testing.T) {
	vectors := [][]float64{
		{0.2, 0.3}, {0.25, 0.35}, {0.7, 0.8}, {0.75, 0.82}, {0.5, 0.5},
	}

	first := NewKMeans(2).Fit(vectors)
	second := NewKMeans(2).Fit(vectors)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run 1 = %v, run 2 = %v", first, second)
		}
	}
}

func TestFitClampsKToDataSize(t *testing.T) {
	vectors := [][]float64{{0.1, 0.2}, {0.8, 0.9}}

	km := NewKMeans(6)
	labels := km.Fit(vectors)

	if len(labels) != 2 {
		t.Fatalf("labels = %v", labels)
	}
	if len(km.Centroids) != 2 {
		t.Errorf("centroids = %d, want 2", len(km.Centroids))
	}
}

func TestFitEmptyInput(t *testing.T) {
	if labels := NewKMeans(3).Fit(nil); len(labels) != 0 {
		t.Errorf("labels = %v", labels)
	}
}

func TestPredictAssignsNearest(t *testing.T) {
	km := NewKMeans(2)
	km.Fit([][]float64{
		{0.1, 0.1}, {0.1, 0.12}, {0.9, 0.9}, {0.9, 0.88},
	})

	probes := [][]float64{{0.15, 0.1}, {0.85, 0.9}}
	labels := km.Predict(probes)
	if labels[0] == labels[1] {
		t.Errorf("probes on opposite corners share a cluster: %v", labels)
	}
}
