package spatial

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a 2D point in normalized feature space, tagged with the index of
// the entity it was built from.
type Point struct {
	X, Y  float64
	Index int
}

// Compare satisfies kdtree.Comparable.
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("spatial: illegal dimension")
	}
}

// Dims satisfies kdtree.Comparable.
func (p Point) Dims() int { return 2 }

// Distance returns the squared Euclidean distance to c, matching the metric
// kdtree.DistKeeper expects.
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(Point)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// points implements kdtree.Interface over a Point slice.
type points []Point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane is a helper for sorting points along a single axis.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.points[i].X < p.points[j].X
	case 1:
		return p.points[i].Y < p.points[j].Y
	default:
		panic("spatial: illegal dimension")
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// Index is a balanced 2D tree over points supporting radius queries.
type Index struct {
	tree *kdtree.Tree
}

// NewIndex builds the tree. The input slice is reordered in place.
func NewIndex(pts []Point) *Index {
	return &Index{tree: kdtree.New(points(pts), false)}
}

// Within returns the indices of all points within radius of q, including q
// itself when it is part of the indexed set.
func (ix *Index) Within(q Point, radius float64) []int {
	keep := kdtree.NewDistKeeper(radius * radius)
	ix.tree.NearestSet(keep, q)

	var out []int
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(Point).Index)
	}
	return out
}
