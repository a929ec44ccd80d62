package surface

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/voxelforge/surfcarve/errcode"
	"github.com/voxelforge/surfcarve/mesh"
)

// defaultMinSingularFrac separates well-constrained vertex directions
// from ones the touching planes barely pin down, as a fraction of the
// largest singular value.
const defaultMinSingularFrac = 0.2

// Mesher turns a coalesced region graph into a triangle mesh. Corners
// where two or more regions meet become shared vertices solved from the
// stacked plane constraints; each region is then triangulated
// independently through its 2D parameterization.
type Mesher struct {
	boundary        *Boundary
	graph           *RegionGraph
	corners         CornerMap
	logger          golog.Logger
	minSingularFrac float64
}

// NewMesher returns a mesher over the given region graph. The corner
// map fixes vertex identity across regions: corners it reports under
// two or more regions become shared solved vertices.
func NewMesher(b *Boundary, g *RegionGraph, corners CornerMap, logger golog.Logger) *Mesher {
	return &Mesher{
		boundary:        b,
		graph:           g,
		corners:         corners,
		logger:          logger,
		minSingularFrac: defaultMinSingularFrac,
	}
}

// BuildMesh solves the shared vertices and triangulates every region.
func (m *Mesher) BuildMesh() (*mesh.Mesh, error) {
	out := mesh.New()
	vert3d, err := m.solveSharedVertices(out)
	if err != nil {
		return nil, errcode.Wrap(-5, err)
	}
	for _, id := range m.graph.RegionIDs() {
		newIsoStuffer(m.boundary, m.graph.Region(id), vert3d, out, m.logger).run()
	}
	m.logger.Debugw("mesh built",
		"vertices", out.NumVertices(), "triangles", out.NumPolygons(),
		"shared", len(vert3d))
	return out, nil
}

// solveSharedVertices finds every corner the corner map reports under
// at least two regions and positions it from their plane constraints.
func (m *Mesher) solveSharedVertices(out *mesh.Mesh) (map[Corner]int, error) {
	vert3d := map[Corner]int{}
	for _, c := range m.corners.Corners() {
		seen := map[int]struct{}{}
		ids := make([]int, 0, 4)
		for _, k := range m.corners[c] {
			id := m.graph.Owner(k)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			continue
		}
		sort.Ints(ids)
		pos, err := m.solveCorner(c, ids)
		if err != nil {
			return nil, err
		}
		vert3d[c] = out.AddVertex(mesh.Vertex{X: pos.X, Y: pos.Y, Z: pos.Z})
	}
	return vert3d, nil
}

// solveCorner positions one shared vertex. Each touching region
// contributes the constraint n·x = n·p0; the SVD of the stacked
// normals splits space into directions the constraints pin down and
// directions they leave free, which fall back to the grid corner.
func (m *Mesher) solveCorner(c Corner, regionIDs []int) (r3.Vector, error) {
	g := c.Position(m.boundary.Tree())
	rows := len(regionIDs)
	a := mat.NewDense(rows, 3, nil)
	rhs := make([]float64, rows)
	for i, id := range regionIDs {
		p := m.graph.Region(id).Plane()
		a.Set(i, 0, p.Normal.X)
		a.Set(i, 1, p.Normal.Y)
		a.Set(i, 2, p.Normal.Z)
		rhs[i] = p.Normal.Dot(p.Point)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return r3.Vector{}, errcode.New(-1, "vertex constraint factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	// start from the grid corner, then replace each well-constrained
	// direction with its least-squares component
	x := g
	for i := 0; i < len(s); i++ {
		if s[i] <= 0 || s[i] < m.minSingularFrac*s[0] {
			continue
		}
		vi := r3.Vector{X: v.At(0, i), Y: v.At(1, i), Z: v.At(2, i)}
		var ub float64
		for r := 0; r < rows; r++ {
			ub += u.At(r, i) * rhs[r]
		}
		x = x.Sub(vi.Mul(vi.Dot(g))).Add(vi.Mul(ub / s[i]))
	}
	return x, nil
}
