package boundary

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	// rtreego rejects zero-length rectangles, so points get an epsilon box.
	pointExtent = 1e-9
)

// Contains reports whether a point lies inside the boundary using ray
// casting. Points exactly on a ring edge or vertex count as inside; tests
// pin this down.
func Contains(boundary orb.MultiPolygon, pt orb.Point) bool {
	return planar.MultiPolygonContains(boundary, pt)
}

type indexedPoint struct {
	pt   orb.Point
	rect *rtreego.Rect
}

func (p *indexedPoint) Bounds() *rtreego.Rect { return p.rect }

// PointSet is an immutable R-tree index over a point dataset, built once per
// dataset and shared by every boundary query against it. The bounding-box
// search prefilters candidates before the exact containment test.
type PointSet struct {
	tree *rtreego.Rtree
	size int
}

// NewPointSet indexes the given points.
func NewPointSet(points []orb.Point) *PointSet {
	tree := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	size := 0
	for _, pt := range points {
		rect, err := rtreego.NewRect(rtreego.Point{pt[0], pt[1]}, []float64{pointExtent, pointExtent})
		if err != nil {
			continue
		}
		tree.Insert(&indexedPoint{pt: pt, rect: rect})
		size++
	}
	return &PointSet{tree: tree, size: size}
}

// Size is the number of indexed points.
func (s *PointSet) Size() int { return s.size }

// CountInside returns how many indexed points fall inside the boundary.
func (s *PointSet) CountInside(boundary orb.MultiPolygon) int {
	if s == nil || s.size == 0 || len(boundary) == 0 {
		return 0
	}
	bound := boundary.Bound()
	rect, err := rtreego.NewRect(
		rtreego.Point{bound.Min[0], bound.Min[1]},
		[]float64{
			bound.Max[0] - bound.Min[0] + pointExtent,
			bound.Max[1] - bound.Min[1] + pointExtent,
		},
	)
	if err != nil {
		return 0
	}

	count := 0
	for _, candidate := range s.tree.SearchIntersect(rect) {
		if Contains(boundary, candidate.(*indexedPoint).pt) {
			count++
		}
	}
	return count
}
