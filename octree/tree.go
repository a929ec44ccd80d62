// Package octree implements the probabilistic occupancy index the
// carving and surfacing stages operate on. Space is an adaptively
// subdivided cube; each leaf carries weighted statistics of how likely
// that volume is open interior space.
package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Tree is the occupancy index. The root cube covers the full modeled
// domain; maxDepth fixes the finest leaf size so the resolution stays
// constant as the domain grows.
type Tree struct {
	root     *Node
	maxDepth int
}

// New creates a tree whose root cube is centered at center with the
// given halfwidth, subdivided so leaves are no coarser than resolution.
func New(center r3.Vector, halfwidth, resolution float64) (*Tree, error) {
	if halfwidth <= 0 {
		return nil, errors.Errorf("invalid tree halfwidth %f", halfwidth)
	}
	if resolution <= 0 || resolution > 2*halfwidth {
		return nil, errors.Errorf("invalid tree resolution %f", resolution)
	}
	d := int(math.Ceil(math.Log2(2 * halfwidth / resolution)))
	if d < 0 {
		d = 0
	}
	return &Tree{root: newNode(center, halfwidth), maxDepth: d}, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// MaxDepth returns the depth of the finest leaves below the root.
func (t *Tree) MaxDepth() int { return t.maxDepth }

// Resolution returns the edge length of the finest possible leaf.
func (t *Tree) Resolution() float64 {
	return (2 * t.root.Halfwidth) / float64(int(1)<<uint(t.maxDepth))
}

// NumNodes returns the total node count of the tree.
func (t *Tree) NumNodes() int { return t.root.NumNodes() }

// Retrieve returns the deepest node containing p, or nil if p is
// outside the tree's domain.
func (t *Tree) Retrieve(p r3.Vector) *Node { return t.root.Retrieve(p) }

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	return &Tree{root: t.root.Clone(), maxDepth: t.maxDepth}
}

// IncludeInDomain grows the root, doubling the domain toward p, until
// the tree's cube contains p. The resolution is preserved: each
// doubling increments maxDepth. Existing nodes keep their geometry.
func (t *Tree) IncludeInDomain(p r3.Vector) {
	// an empty tree recenters instead of growing
	if t.root.Data == nil && t.root.IsLeaf() {
		if t.root.Contains(p) < 0 {
			t.root.Center = p
		}
		return
	}
	for t.root.Contains(p) < 0 {
		// the old root becomes the child octant pointing away from p
		c := childIndex(t.root.Center.Sub(p))
		wc := t.root.Center.Sub(ChildDir(c).Mul(t.root.Halfwidth))
		wrapper := newNode(wc, 2*t.root.Halfwidth)
		wrapper.Children[c] = t.root
		t.root = wrapper
		t.maxDepth++
	}
}

// Expand materializes the node covering the axis-aligned cube at p with
// the given halfwidth, growing the domain first if needed. It returns
// the covering node and its relative depth to the tree's max depth, so
// the node can be carved as an independent subtree. Expand is not safe
// for concurrent use; callers expand all subtrees before carving them
// in parallel.
func (t *Tree) Expand(p r3.Vector, hw float64) (*Node, int, error) {
	if hw <= 0 {
		return nil, 0, errors.Errorf("invalid expansion halfwidth %f", hw)
	}
	for _, i := range []int{0, 6} {
		t.IncludeInDomain(p.Add(ChildDir(i).Mul(hw)))
	}
	// descend while a child still covers the requested cube
	d := 0
	for d < t.maxDepth && t.root.Halfwidth/float64(int(1)<<uint(d+1)) >= hw {
		d++
	}
	n := t.root.expand(p, d)
	// the requested cube can straddle a boundary at depth d; back out
	// to the deepest ancestor that fully covers it
	for n != t.root && !nodeCovers(n, p, hw) {
		d--
		n = t.root.expand(p, d)
	}
	return n, t.maxDepth - d, nil
}

func nodeCovers(n *Node, p r3.Vector, hw float64) bool {
	diff := p.Sub(n.Center)
	m := math.Max(math.Abs(diff.X), math.Max(math.Abs(diff.Y), math.Abs(diff.Z)))
	return m+hw <= n.Halfwidth
}

// Insert carves the shape into the whole tree down to the finest
// resolution. The domain must already cover the shape.
func (t *Tree) Insert(s Shape) {
	t.root.insert(s, t.maxDepth)
}

// InsertInto carves the shape into the given subtree at the given
// relative depth. Distinct subtrees may be carved concurrently.
func (t *Tree) InsertInto(n *Node, relDepth int, s Shape) {
	n.insert(s, relDepth)
}

// Find applies the shape to every observed leaf it overlaps, without
// creating nodes.
func (t *Tree) Find(s Shape) {
	t.root.find(s)
}

// SimplifyRecursive merges all child sets that agree on interior vs
// exterior, bottom-up over the full tree, then renumbers node IDs.
// Single-threaded; run after all carving has completed.
func (t *Tree) SimplifyRecursive() {
	t.root.simplifyRecursive()
	t.refreshIDs()
}

// refreshIDs assigns sequential IDs in depth-first order so that node
// identity is reproducible no matter how many workers built the tree.
func (t *Tree) refreshIDs() {
	next := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		n.ID = next
		next++
		for i := 0; i < NumChildren; i++ {
			if n.Children[i] != nil {
				walk(n.Children[i])
			}
		}
	}
	walk(t.root)
}
