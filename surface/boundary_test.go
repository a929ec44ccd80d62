package surface

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/voxelforge/surfcarve/octree"
)

// boxShape marks the interior of an axis-aligned box as open space.
type boxShape struct {
	center r3.Vector
	hw     r3.Vector
	prob   float64
	planar float64
}

func (s boxShape) Intersects(c r3.Vector, hw float64) bool {
	eps := 1e-9
	return math.Abs(c.X-s.center.X) < s.hw.X+hw-eps &&
		math.Abs(c.Y-s.center.Y) < s.hw.Y+hw-eps &&
		math.Abs(c.Z-s.center.Z) < s.hw.Z+hw-eps
}

func (s boxShape) ApplyToLeaf(c r3.Vector, hw float64, d *octree.Data) *octree.Data {
	eps := 1e-9
	inside := math.Abs(c.X-s.center.X)+hw <= s.hw.X+eps &&
		math.Abs(c.Y-s.center.Y)+hw <= s.hw.Y+eps &&
		math.Abs(c.Z-s.center.Z)+hw <= s.hw.Z+eps
	if !inside {
		return d
	}
	if d == nil {
		d = octree.NewData()
	}
	d.AddSample(1, s.prob, 0.1, 0.05, s.planar)
	return d
}

// slabScene carves a 2x2x1 block of finest cells spanning
// [-1,1]x[-1,1]x[0,1] into a fresh tree and prepares its topology.
func slabScene(t *testing.T) (*octree.Tree, *octree.Topology) {
	t.Helper()
	tr, err := octree.New(r3.Vector{}, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	tr.Insert(boxShape{
		center: r3.Vector{Z: 0.5},
		hw:     r3.Vector{X: 1, Y: 1, Z: 0.5},
		prob:   0.9,
		planar: 0.9,
	})
	tr.SimplifyRecursive()
	return tr, octree.NewTopology(tr)
}

func extractSlab(t *testing.T) (*octree.Tree, *Boundary) {
	t.Helper()
	tr, topo := slabScene(t)
	b, err := ExtractBoundary(tr, topo, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return tr, b
}

func TestExtractBoundarySlabFaceCounts(t *testing.T) {
	_, b := extractSlab(t)
	test.That(t, b.NumFaces(), test.ShouldEqual, 16)

	counts := map[octree.Face]int{}
	for _, k := range b.Faces() {
		f := b.Face(k)
		counts[f.Direction]++
		// the slab borders only unobserved space
		test.That(t, f.Exterior, test.ShouldBeNil)
		test.That(t, k.Exterior, test.ShouldEqual, -1)
	}
	test.That(t, counts[octree.FaceZPlus], test.ShouldEqual, 4)
	test.That(t, counts[octree.FaceZMinus], test.ShouldEqual, 4)
	test.That(t, counts[octree.FaceXPlus], test.ShouldEqual, 2)
	test.That(t, counts[octree.FaceXMinus], test.ShouldEqual, 2)
	test.That(t, counts[octree.FaceYPlus], test.ShouldEqual, 2)
	test.That(t, counts[octree.FaceYMinus], test.ShouldEqual, 2)
}

func TestExtractBoundaryAdjacencyIsSymmetric(t *testing.T) {
	_, b := extractSlab(t)
	for _, k := range b.Faces() {
		adj := b.Adjacent(k)
		test.That(t, len(adj), test.ShouldBeGreaterThan, 0)
		for _, nk := range adj {
			test.That(t, nk, test.ShouldNotResemble, k)
			back := false
			for _, bk := range b.Adjacent(nk) {
				if bk == k {
					back = true
				}
			}
			test.That(t, back, test.ShouldBeTrue)
		}
	}
}

func TestExtractBoundarySameDirectionLinks(t *testing.T) {
	_, b := extractSlab(t)
	// the four top faces must form one edge-connected component under
	// same-direction adjacency
	var tops []FaceKey
	for _, k := range b.Faces() {
		if k.Direction == octree.FaceZPlus {
			tops = append(tops, k)
		}
	}
	test.That(t, len(tops), test.ShouldEqual, 4)

	reached := map[FaceKey]bool{tops[0]: true}
	queue := []FaceKey{tops[0]}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, nk := range b.Adjacent(k) {
			if nk.Direction == octree.FaceZPlus && !reached[nk] {
				reached[nk] = true
				queue = append(queue, nk)
			}
		}
	}
	test.That(t, len(reached), test.ShouldEqual, 4)
}

func TestExtractBoundaryDeterministic(t *testing.T) {
	_, b1 := extractSlab(t)
	_, b2 := extractSlab(t)
	test.That(t, b1.Faces(), test.ShouldResemble, b2.Faces())
	for _, k := range b1.Faces() {
		test.That(t, b1.Adjacent(k), test.ShouldResemble, b2.Adjacent(k))
	}
}

func TestExtractBoundaryRequiresNumberedNodes(t *testing.T) {
	tr, err := octree.New(r3.Vector{}, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	tr.Insert(boxShape{
		center: r3.Vector{Z: 0.5},
		hw:     r3.Vector{X: 1, Y: 1, Z: 0.5},
		prob:   0.9,
		planar: 0.9,
	})
	// no SimplifyRecursive: IDs were never assigned
	topo := octree.NewTopology(tr)
	_, err = ExtractBoundary(tr, topo, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "code")
}

func TestCornerDiscretization(t *testing.T) {
	tr, _ := slabScene(t)
	c := CornerAt(tr, r3.Vector{X: 1, Y: -0.5, Z: 0})
	test.That(t, c, test.ShouldResemble, Corner{X: 2, Y: -1, Z: 0})
	p := c.Position(tr)
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, -0.5)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0)
}

func TestCornerMapCoversAllFaces(t *testing.T) {
	tr, b := extractSlab(t)
	cm := NewCornerMap(b)
	seen := map[FaceKey]int{}
	for _, c := range cm.Corners() {
		for _, k := range cm[c] {
			seen[k]++
		}
	}
	// every face contributes its four corners
	test.That(t, len(seen), test.ShouldEqual, b.NumFaces())
	for _, n := range seen {
		test.That(t, n, test.ShouldEqual, 4)
	}
	// a slab corner belongs to faces from three directions
	top := CornerAt(tr, r3.Vector{X: 1, Y: 1, Z: 1})
	dirs := map[octree.Face]bool{}
	for _, k := range cm[top] {
		dirs[k.Direction] = true
	}
	test.That(t, len(dirs), test.ShouldEqual, 3)
}
