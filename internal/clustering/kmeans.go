package clustering

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeans partitions feature vectors into K clusters. It is used to group
// genres by their mean audio profile before naming supergenres.
type KMeans struct {
	K         int
	MaxIter   int
	Tolerance float64
	Centroids [][]float64
	Labels    []int
	Inertia   float64
}

// NewKMeans creates a clusterer with the usual iteration and convergence
// defaults.
func NewKMeans(k int) *KMeans {
	return &KMeans{
		K:         k,
		MaxIter:   100,
		Tolerance: 1e-4,
	}
}

// Fit clusters the vectors and returns per-vector cluster assignments.
// All vectors must share one dimensionality.
func (km *KMeans) Fit(vectors [][]float64) []int {
	n := len(vectors)
	if n == 0 || km.K <= 0 {
		return []int{}
	}

	k := km.K
	if k > n {
		k = n
	}
	dim := len(vectors[0])

	km.Centroids = plusPlusInit(vectors, k)
	km.Labels = make([]int, n)
	var prevInertia float64

	for iter := 0; iter < km.MaxIter; iter++ {
		km.Inertia = 0
		for i, v := range vectors {
			idx, dist := nearestCentroid(v, km.Centroids)
			km.Labels[i] = idx
			km.Inertia += dist
		}

		if iter > 0 && math.Abs(prevInertia-km.Inertia) < km.Tolerance {
			break
		}
		prevInertia = km.Inertia

		counts := make([]int, k)
		next := make([][]float64, k)
		for i := range next {
			next[i] = make([]float64, dim)
		}
		for i, label := range km.Labels {
			counts[label]++
			floats.Add(next[label], vectors[i])
		}
		for i := range next {
			if counts[i] > 0 {
				floats.Scale(1.0/float64(counts[i]), next[i])
			}
		}
		km.Centroids = next
	}

	return km.Labels
}

// Predict assigns vectors to the nearest fitted centroid.
func (km *KMeans) Predict(vectors [][]float64) []int {
	if len(km.Centroids) == 0 {
		return []int{}
	}
	labels := make([]int, len(vectors))
	for i, v := range vectors {
		labels[i], _ = nearestCentroid(v, km.Centroids)
	}
	return labels
}

func nearestCentroid(v []float64, centroids [][]float64) (int, float64) {
	minDist := math.MaxFloat64
	minIdx := 0
	for j, c := range centroids {
		if d := squaredDistance(v, c); d < minDist {
			minDist = d
			minIdx = j
		}
	}
	return minIdx, minDist
}

// plusPlusInit seeds centroids with k-means++: each next centroid is drawn
// with probability proportional to its squared distance from the chosen
// set. The RNG seed is derived from the data so repeated runs over the
// same corpus produce the same clustering.
func plusPlusInit(vectors [][]float64, k int) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)

	rng := rand.New(rand.NewSource(dataSeed(vectors)))
	centroids = append(centroids, copyVector(vectors[rng.Intn(n)]))

	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		total := 0.0
		for j, v := range vectors {
			minDist := math.MaxFloat64
			for _, c := range centroids {
				if d := squaredDistance(v, c); d < minDist {
					minDist = d
				}
			}
			distances[j] = minDist
			total += minDist
		}

		r := rng.Float64() * total
		cum := 0.0
		for j, d := range distances {
			cum += d
			if cum >= r {
				centroids = append(centroids, copyVector(vectors[j]))
				break
			}
		}
	}

	return centroids
}

func dataSeed(vectors [][]float64) int64 {
	if len(vectors) == 0 {
		return 42
	}
	seed := int64(len(vectors))
	if len(vectors[0]) > 0 {
		seed += int64(len(vectors[0])) * 1000
		seed += int64(vectors[0][0] * 1000000)
		if len(vectors) > 1 {
			seed += int64(vectors[len(vectors)/2][0] * 1000000)
		}
		if len(vectors) > 2 {
			seed += int64(vectors[len(vectors)-1][0] * 1000000)
		}
	}
	return seed
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func copyVector(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
