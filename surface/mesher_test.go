package surface

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/voxelforge/surfcarve/mesh"
)

func slabMesh(t *testing.T) (*Mesher, *mesh.Mesh) {
	t.Helper()
	_, g := slabGraph(t)
	b := g.boundary
	m := NewMesher(b, g, NewCornerMap(b), golog.NewTestLogger(t))
	out, err := m.BuildMesh()
	test.That(t, err, test.ShouldBeNil)
	return m, out
}

type meshEdge struct {
	a, b int
}

func edgeCounts(m *mesh.Mesh) map[meshEdge]int {
	counts := map[meshEdge]int{}
	for i := 0; i < m.NumPolygons(); i++ {
		idx := m.Polygon(i).Indices
		for j := range idx {
			a, b := idx[j], idx[(j+1)%len(idx)]
			if a > b {
				a, b = b, a
			}
			counts[meshEdge{a, b}]++
		}
	}
	return counts
}

func TestBuildMeshSlabIsClosed(t *testing.T) {
	_, out := slabMesh(t)
	test.That(t, out.NumPolygons(), test.ShouldBeGreaterThan, 0)

	for i := 0; i < out.NumPolygons(); i++ {
		test.That(t, out.Polygon(i).IsDegenerate(), test.ShouldBeFalse)
	}

	// a closed surface has every edge in exactly two triangles
	counts := edgeCounts(out)
	for _, n := range counts {
		test.That(t, n, test.ShouldEqual, 2)
	}

	// Euler characteristic of a genus-zero closed surface
	v := out.NumVertices()
	f := out.NumPolygons()
	e := len(counts)
	test.That(t, v-e+f, test.ShouldEqual, 2)
}

func TestBuildMeshSlabGeometry(t *testing.T) {
	_, out := slabMesh(t)
	// all six sides are axis-aligned planes of the slab
	test.That(t, out.NumVertices(), test.ShouldEqual, 18)
	test.That(t, out.NumPolygons(), test.ShouldEqual, 32)

	findVertex := func(p r3.Vector) bool {
		for i := 0; i < out.NumVertices(); i++ {
			vv := out.Vertex(i)
			if math.Abs(vv.X-p.X) < 1e-9 && math.Abs(vv.Y-p.Y) < 1e-9 && math.Abs(vv.Z-p.Z) < 1e-9 {
				return true
			}
		}
		return false
	}
	// corners of the slab land exactly where three planes intersect
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			test.That(t, findVertex(r3.Vector{X: sx, Y: sy, Z: 1}), test.ShouldBeTrue)
			test.That(t, findVertex(r3.Vector{X: sx, Y: sy, Z: 0}), test.ShouldBeTrue)
		}
	}
	// every vertex lies on the slab's surface
	for i := 0; i < out.NumVertices(); i++ {
		vv := out.Vertex(i)
		onX := math.Abs(math.Abs(vv.X)-1) < 1e-9
		onY := math.Abs(math.Abs(vv.Y)-1) < 1e-9
		onZ := math.Abs(vv.Z-1) < 1e-9 || math.Abs(vv.Z) < 1e-9
		test.That(t, onX || onY || onZ, test.ShouldBeTrue)
	}
}

func hasVertexAt(m *mesh.Mesh, p r3.Vector) bool {
	for i := 0; i < m.NumVertices(); i++ {
		vv := m.Vertex(i)
		if math.Abs(vv.X-p.X) < 1e-9 && math.Abs(vv.Y-p.Y) < 1e-9 && math.Abs(vv.Z-p.Z) < 1e-9 {
			return true
		}
	}
	return false
}

func TestBuildMeshWideSlabIsClosedAcrossCellSizes(t *testing.T) {
	b, g := wideSlabGraph(t)
	test.That(t, g.Coalesce(), test.ShouldEqual, 0)
	m := NewMesher(b, g, NewCornerMap(b), golog.NewTestLogger(t))
	out, err := m.BuildMesh()
	test.That(t, err, test.ShouldBeNil)

	// the horizontal interiors simplify to coarser cells, so the grid
	// grades from the fine locked rim down to fans around the coarse
	// cell centers
	test.That(t, out.NumVertices(), test.ShouldEqual, 154)
	test.That(t, out.NumPolygons(), test.ShouldEqual, 304)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			test.That(t, hasVertexAt(out, r3.Vector{X: sx, Y: sy, Z: 1}), test.ShouldBeTrue)
			test.That(t, hasVertexAt(out, r3.Vector{X: sx, Y: sy, Z: 0}), test.ShouldBeTrue)
		}
	}

	for i := 0; i < out.NumPolygons(); i++ {
		test.That(t, out.Polygon(i).IsDegenerate(), test.ShouldBeFalse)
	}
	counts := edgeCounts(out)
	for _, n := range counts {
		test.That(t, n, test.ShouldEqual, 2)
	}
	test.That(t, out.NumVertices()-len(counts)+out.NumPolygons(), test.ShouldEqual, 2)
}

func TestSolveCornerConstrainedByThreePlanes(t *testing.T) {
	m, _ := slabMesh(t)
	tr := m.boundary.Tree()
	c := CornerAt(tr, r3.Vector{X: 1, Y: 1, Z: 1})

	var ids []int
	for _, id := range m.graph.RegionIDs() {
		r := m.graph.Region(id)
		d := r.dominantDirection().Normal()
		if d.X > 0.5 || d.Y > 0.5 || (d.Z > 0.5) {
			ids = append(ids, id)
		}
	}
	test.That(t, len(ids), test.ShouldEqual, 3)

	pos, err := m.solveCorner(c, ids)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, pos.Z, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestSolveCornerOrderIndependent(t *testing.T) {
	m, _ := slabMesh(t)
	tr := m.boundary.Tree()
	c := CornerAt(tr, r3.Vector{X: 1, Y: 1, Z: 1})
	ids := m.graph.RegionIDs()[:3]

	p1, err := m.solveCorner(c, ids)
	test.That(t, err, test.ShouldBeNil)
	rev := []int{ids[2], ids[0], ids[1]}
	p2, err := m.solveCorner(c, rev)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p1.X, test.ShouldAlmostEqual, p2.X, 1e-9)
	test.That(t, p1.Y, test.ShouldAlmostEqual, p2.Y, 1e-9)
	test.That(t, p1.Z, test.ShouldAlmostEqual, p2.Z, 1e-9)
}

func TestSolveCornerUnderconstrainedFallsBackToGrid(t *testing.T) {
	m, _ := slabMesh(t)
	tr := m.boundary.Tree()

	// pick a region whose plane is z=1 and an edge corner constrained
	// only in z; the free directions keep the grid coordinates
	var topID = -1
	for _, id := range m.graph.RegionIDs() {
		if m.graph.Region(id).dominantDirection().Normal().Z > 0.5 {
			topID = id
		}
	}
	test.That(t, topID, test.ShouldNotEqual, -1)

	c := CornerAt(tr, r3.Vector{X: 0.5, Y: -0.5, Z: 1})
	pos, err := m.solveCorner(c, []int{topID})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, pos.Y, test.ShouldAlmostEqual, -0.5, 1e-9)
	test.That(t, pos.Z, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestSolveCornerIdempotent(t *testing.T) {
	m, _ := slabMesh(t)
	tr := m.boundary.Tree()
	c := CornerAt(tr, r3.Vector{X: 1, Y: 0, Z: 1})

	var ids []int
	for _, id := range m.graph.RegionIDs() {
		d := m.graph.Region(id).dominantDirection().Normal()
		if d.X > 0.5 || d.Z > 0.5 {
			ids = append(ids, id)
		}
	}
	p1, err := m.solveCorner(c, ids)
	test.That(t, err, test.ShouldBeNil)
	p2, err := m.solveCorner(c, ids)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p1, test.ShouldResemble, p2)
	// constrained directions resolve to the planes, the free one to the
	// grid
	test.That(t, p1.X, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, p1.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, p1.Z, test.ShouldAlmostEqual, 1, 1e-9)
}
