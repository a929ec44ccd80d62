package octree

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// carveInteriorBox builds a tree with a carved interior box surrounded
// by unobserved space.
func carveInteriorBox(t *testing.T, res float64) *Tree {
	t.Helper()
	tr, err := New(r3.Vector{}, 4, res)
	test.That(t, err, test.ShouldBeNil)
	tr.Insert(boxShape{center: r3.Vector{}, hw: 1, prob: 0.95})
	tr.SimplifyRecursive()
	return tr
}

func TestTopologyNeighborsAreSymmetric(t *testing.T) {
	tr := carveInteriorBox(t, 0.5)
	topo := NewTopology(tr)

	for _, leaf := range topo.Leaves() {
		for _, f := range AllFaces {
			for _, nb := range topo.Neighbors(leaf, f) {
				test.That(t, topo.AreNeighbors(nb, leaf), test.ShouldBeTrue)
				// the neighbor sees us across the opposing face
				found := false
				for _, back := range topo.Neighbors(nb, f.Opposing()) {
					if back == leaf {
						found = true
					}
				}
				test.That(t, found, test.ShouldBeTrue)
			}
		}
	}
}

func TestTopologyNeighborGeometry(t *testing.T) {
	tr := carveInteriorBox(t, 0.5)
	topo := NewTopology(tr)

	for _, leaf := range topo.Leaves() {
		for _, f := range AllFaces {
			axis := faceAxis(f)
			sign := faceSign(f)
			pc := comp(leaf.Center, axis) + sign*leaf.Halfwidth
			for _, nb := range topo.Neighbors(leaf, f) {
				// abutting plane coincides
				npc := comp(nb.Center, axis) - sign*nb.Halfwidth
				test.That(t, npc, test.ShouldAlmostEqual, pc)
				// transverse overlap has positive area
				test.That(t, transverseOverlap(leaf, nb, axis, 1e-9), test.ShouldBeTrue)
			}
		}
	}
}

func TestTopologyInteriorClassification(t *testing.T) {
	tr := carveInteriorBox(t, 0.5)
	topo := NewTopology(tr)

	interior := tr.Retrieve(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})
	test.That(t, topo.IsInterior(interior), test.ShouldBeTrue)

	// unobserved space is exterior, as is nil
	outside := tr.Retrieve(r3.Vector{X: 3.5, Y: 3.5, Z: 3.5})
	test.That(t, topo.IsInterior(outside), test.ShouldBeFalse)
	test.That(t, topo.IsInterior(nil), test.ShouldBeFalse)
}

func TestTopologyAcrossResolutionChange(t *testing.T) {
	tr, err := New(r3.Vector{}, 2, 0.5)
	test.That(t, err, test.ShouldBeNil)
	// carve one octant finely and its neighbor coarsely so leaves of
	// different sizes abut
	tr.Insert(boxShape{center: r3.Vector{X: 0.25, Y: 0.25, Z: 0.25}, hw: 0.25, prob: 0.9})
	tr.Insert(boxShape{center: r3.Vector{X: -1, Y: 1, Z: 1}, hw: 1, prob: 0.9})
	topo := NewTopology(tr)

	small := tr.Retrieve(r3.Vector{X: 0.25, Y: 0.25, Z: 0.25})
	test.That(t, small.Halfwidth, test.ShouldBeLessThan, 1)
	nbs := topo.Neighbors(small, FaceXMinus)
	test.That(t, len(nbs), test.ShouldBeGreaterThan, 0)
	for _, nb := range nbs {
		test.That(t, topo.AreNeighbors(small, nb), test.ShouldBeTrue)
	}
}

func TestTopologyLeavesDeterministic(t *testing.T) {
	a := NewTopology(carveInteriorBox(t, 0.5))
	b := NewTopology(carveInteriorBox(t, 0.5))
	test.That(t, len(a.Leaves()), test.ShouldEqual, len(b.Leaves()))
	for i := range a.Leaves() {
		test.That(t, b.Leaves()[i].Center, test.ShouldResemble, a.Leaves()[i].Center)
		test.That(t, b.Leaves()[i].ID, test.ShouldEqual, a.Leaves()[i].ID)
	}
}
