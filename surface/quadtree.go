package surface

import (
	"math"

	"github.com/golang/geo/r2"
)

// quadDirs gives the direction from a quadnode center to each child
// quadrant, counter-clockwise from (+,+).
var quadDirs = [4]r2.Point{
	{X: 1, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
	{X: 1, Y: -1},
}

func quadChildIndex(d r2.Point) int {
	if d.X >= 0 {
		if d.Y >= 0 {
			return 0
		}
		return 3
	}
	if d.Y >= 0 {
		return 1
	}
	return 2
}

// quadnode is one square cell of the triangulation grid. covered marks
// cells lying under a region face; locked cells hold boundary samples
// and never merge away, which keeps the grid fine along region seams.
type quadnode struct {
	center    r2.Point
	halfwidth float64
	children  [4]*quadnode
	covered   bool
	locked    bool
}

func (q *quadnode) isLeaf() bool {
	return q.children[0] == nil && q.children[1] == nil &&
		q.children[2] == nil && q.children[3] == nil
}

// corner returns the position of corner i, in quadDirs order.
func (q *quadnode) corner(i int) r2.Point {
	return r2.Point{
		X: q.center.X + quadDirs[i].X*q.halfwidth,
		Y: q.center.Y + quadDirs[i].Y*q.halfwidth,
	}
}

func (q *quadnode) child(i int) *quadnode {
	if q.children[i] == nil {
		hw := q.halfwidth / 2
		q.children[i] = &quadnode{
			center:    r2.Point{X: q.center.X + quadDirs[i].X*hw, Y: q.center.Y + quadDirs[i].Y*hw},
			halfwidth: hw,
		}
	}
	return q.children[i]
}

// quadtree is the 2D grid a region is triangulated on. The domain
// mirrors the octree root projected into the region's plane axes, and
// the max depth matches the octree resolution.
type quadtree struct {
	root     *quadnode
	maxDepth int
	res      float64
}

func newQuadtree(resolution float64, center r2.Point, halfwidth float64) *quadtree {
	d := int(math.Ceil(math.Log2(2 * halfwidth / resolution)))
	if d < 0 {
		d = 0
	}
	return &quadtree{
		root:     &quadnode{center: center, halfwidth: halfwidth},
		maxDepth: d,
		res:      (2 * halfwidth) / float64(int(1)<<uint(d)),
	}
}

// subdivide creates every finest-depth cell overlapping the square and
// marks it covered.
func (t *quadtree) subdivide(center r2.Point, hw float64) {
	eps := t.res * 1e-6
	var walk func(n *quadnode, depth int)
	walk = func(n *quadnode, depth int) {
		if math.Abs(n.center.X-center.X) >= n.halfwidth+hw-eps ||
			math.Abs(n.center.Y-center.Y) >= n.halfwidth+hw-eps {
			return
		}
		if depth == t.maxDepth {
			n.covered = true
			return
		}
		for i := 0; i < 4; i++ {
			walk(n.child(i), depth+1)
		}
	}
	walk(t.root, 0)
}

// insert descends to the finest cell containing p, creating it if
// needed, and locks it. Returns nil if p is outside the domain.
func (t *quadtree) insert(p r2.Point) *quadnode {
	if math.Abs(p.X-t.root.center.X) > t.root.halfwidth ||
		math.Abs(p.Y-t.root.center.Y) > t.root.halfwidth {
		return nil
	}
	n := t.root
	for depth := 0; depth < t.maxDepth; depth++ {
		n = n.child(quadChildIndex(r2.Point{X: p.X - n.center.X, Y: p.Y - n.center.Y}))
	}
	n.covered = true
	n.locked = true
	return n
}

// retrieve returns the deepest existing cell containing p, or nil.
func (t *quadtree) retrieve(p r2.Point) *quadnode {
	if math.Abs(p.X-t.root.center.X) > t.root.halfwidth ||
		math.Abs(p.Y-t.root.center.Y) > t.root.halfwidth {
		return nil
	}
	n := t.root
	for {
		i := quadChildIndex(r2.Point{X: p.X - n.center.X, Y: p.Y - n.center.Y})
		if n.children[i] == nil {
			return n
		}
		n = n.children[i]
	}
}

// simplify merges complete sets of unlocked covered leaves into their
// parent, bottom-up. Locked cells and partial child sets stay, so the
// grid grades from coarse interiors down to fine locked seams.
func (t *quadtree) simplify() {
	var walk func(n *quadnode) bool
	walk = func(n *quadnode) bool {
		if n.isLeaf() {
			return !n.locked
		}
		mergeable := true
		for i := 0; i < 4; i++ {
			c := n.children[i]
			if c == nil {
				mergeable = false
				continue
			}
			if !walk(c) || !c.covered {
				mergeable = false
			}
		}
		if mergeable {
			for i := 0; i < 4; i++ {
				n.children[i] = nil
			}
			n.covered = true
			return true
		}
		return false
	}
	walk(t.root)
}

// leaves returns the covered leaf cells in depth-first order.
func (t *quadtree) leaves() []*quadnode {
	var out []*quadnode
	var walk func(n *quadnode)
	walk = func(n *quadnode) {
		if n.isLeaf() {
			if n.covered {
				out = append(out, n)
			}
			return
		}
		for i := 0; i < 4; i++ {
			if n.children[i] != nil {
				walk(n.children[i])
			}
		}
	}
	walk(t.root)
	return out
}

// quadSides index the four cell edges: 0 x+, 1 y+, 2 x-, 3 y-.
var quadSideNormals = [4]r2.Point{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// neighborsOn returns the covered leaves abutting the given side of
// leaf, in depth-first order.
func (t *quadtree) neighborsOn(leaf *quadnode, side int) []*quadnode {
	eps := t.res * 1e-6
	sn := quadSideNormals[side]
	// coordinate of the shared edge along the side's axis
	edge := leaf.center.X*sn.X + leaf.center.Y*sn.Y + leaf.halfwidth

	var out []*quadnode
	var walk func(n *quadnode)
	walk = func(n *quadnode) {
		if n == leaf {
			return
		}
		nc := n.center.X*sn.X + n.center.Y*sn.Y
		if math.Abs(nc-edge) > n.halfwidth+eps {
			return
		}
		// transverse overlap with positive length
		tc := n.center.X*sn.Y + n.center.Y*sn.X
		lc := leaf.center.X*sn.Y + leaf.center.Y*sn.X
		if math.Abs(tc-lc) >= n.halfwidth+leaf.halfwidth-eps {
			return
		}
		if n.isLeaf() {
			if n.covered && math.Abs((nc-n.halfwidth)-edge) <= eps {
				out = append(out, n)
			}
			return
		}
		for i := 0; i < 4; i++ {
			if n.children[i] != nil {
				walk(n.children[i])
			}
		}
	}
	walk(t.root)
	return out
}

// edgeInCommon returns the endpoints of the segment shared by two
// abutting cells, ordered counter-clockwise around a as seen from side.
func edgeInCommon(a, b *quadnode, side int) (r2.Point, r2.Point, bool) {
	eps := 1e-6 * math.Min(a.halfwidth, b.halfwidth)
	sn := quadSideNormals[side]
	edgeX := a.center.X + sn.X*a.halfwidth
	edgeY := a.center.Y + sn.Y*a.halfwidth

	if sn.X != 0 {
		lo := math.Max(a.center.Y-a.halfwidth, b.center.Y-b.halfwidth)
		hi := math.Min(a.center.Y+a.halfwidth, b.center.Y+b.halfwidth)
		if hi-lo <= eps {
			return r2.Point{}, r2.Point{}, false
		}
		p1 := r2.Point{X: edgeX, Y: lo}
		p2 := r2.Point{X: edgeX, Y: hi}
		if sn.X > 0 {
			// x+ edge runs upward when walking counter-clockwise
			return p1, p2, true
		}
		return p2, p1, true
	}
	lo := math.Max(a.center.X-a.halfwidth, b.center.X-b.halfwidth)
	hi := math.Min(a.center.X+a.halfwidth, b.center.X+b.halfwidth)
	if hi-lo <= eps {
		return r2.Point{}, r2.Point{}, false
	}
	p1 := r2.Point{X: lo, Y: edgeY}
	p2 := r2.Point{X: hi, Y: edgeY}
	if sn.Y > 0 {
		// y+ edge runs in -x when walking counter-clockwise
		return p2, p1, true
	}
	return p1, p2, true
}
