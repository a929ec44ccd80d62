package surface

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/voxelforge/surfcarve/mesh"
	"github.com/voxelforge/surfcarve/octree"
)

// regionAxes returns the in-plane axes (u, v) used to parameterize a
// region with the given dominant outward direction. The third axis
// u x v always equals the dominant direction's normal, so (u, v) is a
// right-handed frame looking at the region from outside.
func regionAxes(dom octree.Face) (u, v r3.Vector) {
	x := r3.Vector{X: 1}
	y := r3.Vector{Y: 1}
	z := r3.Vector{Z: 1}
	switch dom {
	case octree.FaceZPlus:
		return x, y
	case octree.FaceZMinus:
		return y, x
	case octree.FaceYPlus:
		return z, x
	case octree.FaceYMinus:
		return x, z
	case octree.FaceXPlus:
		return y, z
	default: // x-
		return z, y
	}
}

// qcorner keys 2D grid corners in half-resolution steps from the
// projected root center.
type qcorner struct {
	X, Y int
}

// isoStuffer triangulates one planar region. The region's faces are
// projected into 2D, rasterized onto a quadtree at the octree's finest
// resolution, and the resulting graded cells are turned into triangles
// whose vertices lift back onto the region's plane.
type isoStuffer struct {
	tree    *octree.Tree
	b       *Boundary
	region  *Region
	logger  golog.Logger
	out     *mesh.Mesh
	vert3d  map[Corner]int
	u, v    r3.Vector
	qt      *quadtree
	err     float64
	verts2d map[qcorner]int
}

func newIsoStuffer(
	b *Boundary,
	region *Region,
	vert3d map[Corner]int,
	out *mesh.Mesh,
	logger golog.Logger,
) *isoStuffer {
	tree := b.Tree()
	u, v := regionAxes(region.dominantDirection())
	root := tree.Root()
	is := &isoStuffer{
		tree:    tree,
		b:       b,
		region:  region,
		logger:  logger,
		out:     out,
		vert3d:  vert3d,
		u:       u,
		v:       v,
		err:     tree.Resolution() / 4,
		verts2d: map[qcorner]int{},
	}
	is.qt = newQuadtree(tree.Resolution(), is.mapTo(root.Center), root.Halfwidth)
	return is
}

// mapTo projects a 3D point into the region's 2D frame.
func (is *isoStuffer) mapTo(p r3.Vector) r2.Point {
	return r2.Point{X: is.u.Dot(p), Y: is.v.Dot(p)}
}

// unmap lifts a 2D point back to 3D on the region's plane, projecting
// along the plane normal.
func (is *isoStuffer) unmap(q r2.Point) r3.Vector {
	lifted := is.u.Mul(q.X).Add(is.v.Mul(q.Y))
	return is.region.plane.Project(lifted)
}

func (is *isoStuffer) cornerKey(p r2.Point) qcorner {
	step := is.tree.Resolution() / 2
	rc := is.mapTo(is.tree.Root().Center)
	return qcorner{
		X: int(math.Floor((p.X-rc.X)/step + 0.5)),
		Y: int(math.Floor((p.Y-rc.Y)/step + 0.5)),
	}
}

// run triangulates the region into the output mesh.
func (is *isoStuffer) run() {
	dom := is.region.dominantDirection()
	opp := dom.Opposing()

	footprint := 0
	for _, k := range is.region.Faces() {
		f := is.b.Face(k)
		if f.Direction == dom || f.Direction == opp {
			is.qt.subdivide(is.mapTo(f.Center()), f.Halfwidth())
			footprint++
		}
	}
	if footprint == 0 {
		is.logger.Warnw("region has no faces along its dominant direction, dropping it from the mesh",
			"seed", is.region.Seed(), "direction", dom.String(), "faces", is.region.NumFaces())
		return
	}
	for _, k := range is.region.Faces() {
		is.lockIfBoundaryFace(is.b.Face(k), dom, opp)
	}
	is.qt.simplify()
	is.computeVerts()
	for _, leaf := range is.qt.leaves() {
		is.triangulate(leaf)
	}
}

// lockIfBoundaryFace pins the grid to the finest depth along faces that
// carry a shared multi-region vertex, so the triangulation meets the
// neighboring region at matching cells. Samples run around the face
// perimeter, inset from the corners and spaced at the grid tolerance.
func (is *isoStuffer) lockIfBoundaryFace(f *NodeFace, dom, opp octree.Face) {
	shared := false
	for i := 0; i < 4; i++ {
		if _, ok := is.vert3d[FaceCornerAt(is.tree, f, i)]; ok {
			shared = true
			break
		}
	}
	if !shared {
		return
	}

	c2 := is.mapTo(f.Center())
	h := f.Halfwidth()
	inset := h - is.err
	if inset <= 0 {
		inset = h / 2
	}
	num := int(math.Ceil(2*h/is.err - 1))
	if num < 2 {
		num = 2
	}

	if f.Direction == dom || f.Direction == opp {
		// full square footprint: sample the perimeter
		for s := 0; s < num; s++ {
			off := -inset + 2*inset*float64(s)/float64(num-1)
			is.qt.insert(r2.Point{X: c2.X + off, Y: c2.Y - inset})
			is.qt.insert(r2.Point{X: c2.X + off, Y: c2.Y + inset})
			is.qt.insert(r2.Point{X: c2.X - inset, Y: c2.Y + off})
			is.qt.insert(r2.Point{X: c2.X + inset, Y: c2.Y + off})
		}
		return
	}

	// orthogonal faces project to a segment; push samples sideways into
	// an existing covered cell
	n2 := is.mapTo(f.Normal())
	t2 := r2.Point{X: -n2.Y, Y: n2.X}
	for s := 0; s < num; s++ {
		off := -inset + 2*inset*float64(s)/float64(num-1)
		p := r2.Point{X: c2.X + t2.X*off, Y: c2.Y + t2.Y*off}
		inserted := false
		for _, sign := range []float64{1, -1} {
			q := r2.Point{X: p.X + n2.X*sign*is.err, Y: p.Y + n2.Y*sign*is.err}
			if cell := is.qt.retrieve(q); cell != nil && cell.covered {
				is.qt.insert(q)
				inserted = true
				break
			}
		}
		if !inserted {
			is.logger.Debugw("boundary sample outside region footprint",
				"face", f.Key(), "sample", s)
		}
	}
}

// computeVerts ensures every covered cell corner has a mesh vertex.
// Corners shared with another region reuse the solved vertex; the rest
// are created on the region's plane.
func (is *isoStuffer) computeVerts() {
	// adopt the solved vertices of this region's face corners first
	for _, k := range is.region.Faces() {
		f := is.b.Face(k)
		for i := 0; i < 4; i++ {
			c := FaceCornerAt(is.tree, f, i)
			idx, ok := is.vert3d[c]
			if !ok {
				continue
			}
			key := is.cornerKey(is.mapTo(c.Position(is.tree)))
			is.verts2d[key] = idx
		}
	}
	for _, leaf := range is.qt.leaves() {
		for i := 0; i < 4; i++ {
			p := leaf.corner(i)
			key := is.cornerKey(p)
			if _, ok := is.verts2d[key]; ok {
				continue
			}
			pos := is.unmap(p)
			is.verts2d[key] = is.out.AddVertex(mesh.Vertex{X: pos.X, Y: pos.Y, Z: pos.Z})
		}
	}
}

// sideCorners gives, per side, the leaf corner pair ordered
// counter-clockwise around the cell.
var sideCorners = [4][2]int{
	{3, 0}, // x+
	{0, 1}, // y+
	{1, 2}, // x-
	{2, 3}, // y-
}

// triangulate emits triangles for one covered cell. Cells with no
// smaller neighbor become two triangles; cells bordering finer cells
// fan from a center vertex so the finer corners stay connected.
func (is *isoStuffer) triangulate(leaf *quadnode) {
	var nbs [4][]*quadnode
	hasSmaller := false
	for s := 0; s < 4; s++ {
		nbs[s] = is.qt.neighborsOn(leaf, s)
		for _, n := range nbs[s] {
			if n.halfwidth < leaf.halfwidth*(1-1e-9) {
				hasSmaller = true
			}
		}
	}

	if !hasSmaller {
		var idx [4]int
		for i := 0; i < 4; i++ {
			k, ok := is.verts2d[is.cornerKey(leaf.corner(i))]
			if !ok {
				is.logger.Debugw("missing cell corner vertex; skipping cell",
					"corner", i)
				return
			}
			idx[i] = k
		}
		is.emit(idx[0], idx[1], idx[2])
		is.emit(idx[0], idx[2], idx[3])
		return
	}

	centerPos := is.unmap(leaf.center)
	centerKey := is.cornerKey(leaf.center)
	center, ok := is.verts2d[centerKey]
	if !ok {
		center = is.out.AddVertex(mesh.Vertex{X: centerPos.X, Y: centerPos.Y, Z: centerPos.Z})
		is.verts2d[centerKey] = center
	}

	for s := 0; s < 4; s++ {
		if len(nbs[s]) == 0 {
			// open side: close it with the cell's own edge
			a, aok := is.verts2d[is.cornerKey(leaf.corner(sideCorners[s][0]))]
			b, bok := is.verts2d[is.cornerKey(leaf.corner(sideCorners[s][1]))]
			if !aok || !bok {
				is.logger.Debugw("missing edge vertex; skipping side", "side", s)
				continue
			}
			is.emit(center, a, b)
			continue
		}
		sortAlongSide(nbs[s], s)
		for _, nb := range nbs[s] {
			a2, b2, ok := edgeInCommon(leaf, nb, s)
			if !ok {
				is.logger.Debugw("no common edge with abutting cell; skipping", "side", s)
				continue
			}
			a, aok := is.verts2d[is.cornerKey(a2)]
			b, bok := is.verts2d[is.cornerKey(b2)]
			if !aok || !bok {
				is.logger.Debugw("missing edge vertex; skipping segment", "side", s)
				continue
			}
			is.emit(center, a, b)
		}
	}
}

// sortAlongSide orders side neighbors along the counter-clockwise
// traversal of the cell boundary.
func sortAlongSide(nbs []*quadnode, side int) {
	sort.Slice(nbs, func(i, j int) bool {
		switch side {
		case 0: // x+, walking +y
			return nbs[i].center.Y < nbs[j].center.Y
		case 1: // y+, walking -x
			return nbs[i].center.X > nbs[j].center.X
		case 2: // x-, walking -y
			return nbs[i].center.Y > nbs[j].center.Y
		default: // y-, walking +x
			return nbs[i].center.X < nbs[j].center.X
		}
	})
}

func (is *isoStuffer) emit(a, b, c int) {
	tri := mesh.NewTriangle(a, b, c)
	if tri.IsDegenerate() {
		is.logger.Debugw("degenerate triangle skipped", "indices", tri.Indices)
		return
	}
	if err := is.out.AddPolygon(tri); err != nil {
		is.logger.Warnw("triangle rejected", "error", err)
	}
}
