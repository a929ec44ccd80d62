package surface

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestQuadtreeSubdivideAndSimplify(t *testing.T) {
	qt := newQuadtree(0.5, r2.Point{}, 2)
	test.That(t, qt.maxDepth, test.ShouldEqual, 3)

	// cover the quadrant [0,2]x[0,2]
	qt.subdivide(r2.Point{X: 1, Y: 1}, 1)
	test.That(t, len(qt.leaves()), test.ShouldEqual, 16)

	// a full, unlocked cover collapses to one cell
	qt.simplify()
	ls := qt.leaves()
	test.That(t, len(ls), test.ShouldEqual, 1)
	test.That(t, ls[0].halfwidth, test.ShouldAlmostEqual, 1)
	test.That(t, ls[0].center, test.ShouldResemble, r2.Point{X: 1, Y: 1})
}

func TestQuadtreeLockedCellsBlockSimplify(t *testing.T) {
	qt := newQuadtree(0.5, r2.Point{}, 2)
	qt.subdivide(r2.Point{X: 1, Y: 1}, 1)
	qt.insert(r2.Point{X: 0.25, Y: 0.25})
	qt.simplify()

	// the locked finest cell survives, so its siblings cannot merge all
	// the way up
	var locked, finest int
	for _, l := range qt.leaves() {
		if l.locked {
			locked++
		}
		if l.halfwidth < 0.3 {
			finest++
		}
	}
	test.That(t, locked, test.ShouldEqual, 1)
	test.That(t, finest, test.ShouldBeGreaterThanOrEqualTo, 4)
}

func TestQuadtreeNeighborsOn(t *testing.T) {
	qt := newQuadtree(0.5, r2.Point{}, 2)
	qt.subdivide(r2.Point{X: 1, Y: 1}, 1)
	qt.insert(r2.Point{X: 0.25, Y: 0.25})
	qt.simplify()

	lockedLeaf := qt.retrieve(r2.Point{X: 0.25, Y: 0.25})
	test.That(t, lockedLeaf.locked, test.ShouldBeTrue)

	// x+ neighbor of the locked corner cell is its equal-size sibling
	right := qt.neighborsOn(lockedLeaf, 0)
	test.That(t, len(right), test.ShouldEqual, 1)
	test.That(t, right[0].center, test.ShouldResemble, r2.Point{X: 0.75, Y: 0.25})

	// nothing abuts the domain edge side
	left := qt.neighborsOn(lockedLeaf, 2)
	test.That(t, left, test.ShouldBeEmpty)
}

func TestQuadtreeEdgeInCommon(t *testing.T) {
	a := &quadnode{center: r2.Point{X: 0.5, Y: 0.5}, halfwidth: 0.5, covered: true}
	b := &quadnode{center: r2.Point{X: 1.25, Y: 0.25}, halfwidth: 0.25, covered: true}

	p1, p2, ok := edgeInCommon(a, b, 0)
	test.That(t, ok, test.ShouldBeTrue)
	// counter-clockwise on the x+ side runs upward
	test.That(t, p1, test.ShouldResemble, r2.Point{X: 1, Y: 0})
	test.That(t, p2, test.ShouldResemble, r2.Point{X: 1, Y: 0.5})

	// diagonal cells share no edge
	c := &quadnode{center: r2.Point{X: 1.25, Y: 1.25}, halfwidth: 0.25, covered: true}
	_, _, ok = edgeInCommon(a, c, 0)
	test.That(t, ok, test.ShouldBeFalse)
}
