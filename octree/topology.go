package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// Topology is a snapshot of the face-adjacency between the leaves of a
// tree. It is built once after carving and simplification; mutating the
// tree invalidates it.
type Topology struct {
	tree   *Tree
	leaves []*Node
	neighs map[*Node]*nodeNeighbors
	eps    float64
}

type nodeNeighbors struct {
	faces [NumFaces][]*Node
}

// NewTopology scans the tree and records, for every leaf, the leaves
// abutting each of its six faces. Leaves are visited in depth-first
// order so the structure is reproducible.
func NewTopology(tree *Tree) *Topology {
	t := &Topology{
		tree:   tree,
		neighs: map[*Node]*nodeNeighbors{},
		eps:    tree.Resolution() * 1e-6,
	}
	var gather func(n *Node)
	gather = func(n *Node) {
		if n.IsLeaf() {
			t.leaves = append(t.leaves, n)
			return
		}
		for i := 0; i < NumChildren; i++ {
			if n.Children[i] != nil {
				gather(n.Children[i])
			}
		}
	}
	gather(tree.Root())
	for _, leaf := range t.leaves {
		nn := &nodeNeighbors{}
		for _, f := range AllFaces {
			nn.faces[f] = t.collectAbutting(leaf, f)
		}
		t.neighs[leaf] = nn
	}
	return t
}

// Leaves returns all leaves in depth-first order.
func (t *Topology) Leaves() []*Node { return t.leaves }

// Neighbors returns the leaves abutting face f of the given leaf. An
// empty result means the face borders unobserved or out-of-domain
// space.
func (t *Topology) Neighbors(n *Node, f Face) []*Node {
	nn, ok := t.neighs[n]
	if !ok {
		return nil
	}
	return nn.faces[f]
}

// AreNeighbors reports whether two leaves share a face.
func (t *Topology) AreNeighbors(a, b *Node) bool {
	nn, ok := t.neighs[a]
	if !ok {
		return false
	}
	for _, f := range AllFaces {
		for _, m := range nn.faces[f] {
			if m == b {
				return true
			}
		}
	}
	return false
}

// IsInterior reports whether the leaf classifies as observed open
// space. Leaves with no payload are unobserved and count as exterior.
func (t *Topology) IsInterior(n *Node) bool {
	return n != nil && n.Data != nil && n.Data.IsInterior()
}

// collectAbutting walks the tree gathering every leaf whose cube shares
// area with face f of the given leaf.
func (t *Topology) collectAbutting(leaf *Node, f Face) []*Node {
	axis := faceAxis(f)
	sign := faceSign(f)
	// plane coordinate of the face, in the face's axis
	pc := comp(leaf.Center, axis) + sign*leaf.Halfwidth

	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == leaf {
			return
		}
		// prune subtrees that cannot touch the face plane
		nc := comp(n.Center, axis)
		if math.Abs(nc-pc) > n.Halfwidth+t.eps {
			return
		}
		if !transverseOverlap(leaf, n, axis, t.eps) {
			return
		}
		if n.IsLeaf() {
			// the abutting leaf's near face must lie on the plane
			if math.Abs((nc-sign*n.Halfwidth)-pc) <= t.eps {
				out = append(out, n)
			}
			return
		}
		for i := 0; i < NumChildren; i++ {
			if n.Children[i] != nil {
				walk(n.Children[i])
			}
		}
	}
	walk(t.tree.Root())
	return out
}

// transverseOverlap reports whether a and b overlap with positive area
// in the two axes orthogonal to the given one. Corner and edge contact
// does not count.
func transverseOverlap(a, b *Node, axis int, eps float64) bool {
	for i := 0; i < 3; i++ {
		if i == axis {
			continue
		}
		if math.Abs(comp(a.Center, i)-comp(b.Center, i)) >= a.Halfwidth+b.Halfwidth-eps {
			return false
		}
	}
	return true
}

func faceAxis(f Face) int {
	switch f {
	case FaceXMinus, FaceXPlus:
		return 0
	case FaceYMinus, FaceYPlus:
		return 1
	default:
		return 2
	}
}

func faceSign(f Face) float64 {
	switch f {
	case FaceXMinus, FaceYMinus, FaceZMinus:
		return -1
	default:
		return 1
	}
}

func comp(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
