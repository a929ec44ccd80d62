package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// Node is one cube of the occupancy index. Internal nodes hold up to
// eight children, one per octant; leaves hold a Data payload. A node
// with neither children nor data is unobserved space.
//
// IDs are assigned by the tree in a deterministic depth-first pass
// (see Tree.refreshIDs), so they are stable across runs regardless of
// how many goroutines carved the tree.
type Node struct {
	ID        int
	Center    r3.Vector
	Halfwidth float64
	Children  [NumChildren]*Node
	Data      *Data
}

func newNode(center r3.Vector, halfwidth float64) *Node {
	return &Node{ID: -1, Center: center, Halfwidth: halfwidth}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			return false
		}
	}
	return true
}

// Contains returns the index of the octant holding p, or -1 if p lies
// outside this node's cube.
func (n *Node) Contains(p r3.Vector) int {
	diff := p.Sub(n.Center)
	d := math.Max(math.Abs(diff.X), math.Max(math.Abs(diff.Y), math.Abs(diff.Z)))
	if d > n.Halfwidth {
		return -1
	}
	return childIndex(diff)
}

// Corner returns the position of cube corner i.
func (n *Node) Corner(i int) r3.Vector {
	return n.Center.Add(ChildDir(i).Mul(n.Halfwidth))
}

// FaceCenter returns the center of face f on this node's cube.
func (n *Node) FaceCenter(f Face) r3.Vector {
	return n.Center.Add(f.Normal().Mul(n.Halfwidth))
}

// initChild creates child i if absent and returns it.
func (n *Node) initChild(i int) *Node {
	if n.Children[i] == nil {
		chw := n.Halfwidth / 2
		n.Children[i] = newNode(n.Center.Add(ChildDir(i).Mul(chw)), chw)
	}
	return n.Children[i]
}

// Clone returns a deep copy of the subtree rooted at this node.
func (n *Node) Clone() *Node {
	c := newNode(n.Center, n.Halfwidth)
	c.ID = n.ID
	if n.Data != nil {
		c.Data = n.Data.Clone()
	}
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			c.Children[i] = n.Children[i].Clone()
		}
	}
	return c
}

// Retrieve returns the deepest node containing p, or nil if p is
// outside this subtree.
func (n *Node) Retrieve(p r3.Vector) *Node {
	i := n.Contains(p)
	if i < 0 {
		return nil
	}
	if n.Children[i] == nil {
		return n
	}
	return n.Children[i].Retrieve(p)
}

// simplify merges the children into this node if all eight exist, all
// carry observed data, and all agree on interior vs exterior. Returns
// whether a merge happened.
func (n *Node) simplify() bool {
	var agreed bool
	for i := 0; i < NumChildren; i++ {
		c := n.Children[i]
		if c == nil || c.Data == nil || c.Data.Count() == 0 {
			return false
		}
		t := c.Data.IsInterior()
		if i == 0 {
			agreed = t
		} else if t != agreed {
			return false
		}
	}
	if n.Data == nil {
		n.Data = NewData()
	}
	for i := 0; i < NumChildren; i++ {
		n.Data.Merge(n.Children[i].Data)
		n.Children[i] = nil
	}
	return true
}

// simplifyRecursive applies simplify bottom-up over the whole subtree.
func (n *Node) simplifyRecursive() {
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			n.Children[i].simplifyRecursive()
		}
	}
	n.simplify()
}

// insert carves the shape into this subtree down to relative depth d.
// Carving stops early at nodes that already hold data. Children are
// created only where the shape intersects them, and each touched
// ancestor attempts a simplify on the way back up.
func (n *Node) insert(s Shape, d int) {
	if d <= 0 || n.Data != nil {
		n.Data = s.ApplyToLeaf(n.Center, n.Halfwidth, n.Data)
		return
	}
	chw := n.Halfwidth / 2
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			if !s.Intersects(n.Children[i].Center, n.Children[i].Halfwidth) {
				continue
			}
		} else {
			cc := n.Center.Add(ChildDir(i).Mul(chw))
			if !s.Intersects(cc, chw) {
				continue
			}
			n.Children[i] = newNode(cc, chw)
		}
		n.Children[i].insert(s, d-1)
	}
	n.simplify()
}

// find applies the shape to every existing leaf payload in this subtree
// without creating new nodes.
func (n *Node) find(s Shape) {
	if n.Data != nil {
		n.Data = s.ApplyToLeaf(n.Center, n.Halfwidth, n.Data)
	}
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			n.Children[i].find(s)
		}
	}
}

// expand materializes the descendant path toward p down to relative
// depth d and returns the node reached.
func (n *Node) expand(p r3.Vector, d int) *Node {
	if d <= 0 {
		return n
	}
	i := childIndex(p.Sub(n.Center))
	return n.initChild(i).expand(p, d-1)
}

// NumNodes returns the size of the subtree rooted at this node.
func (n *Node) NumNodes() int {
	c := 1
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] != nil {
			c += n.Children[i].NumNodes()
		}
	}
	return c
}
