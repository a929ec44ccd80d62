package surface

import (
	"math"

	"github.com/edaniels/golog"

	"github.com/voxelforge/surfcarve/errcode"
	"github.com/voxelforge/surfcarve/octree"
)

// coplanarEps bounds the normal-axis offset allowed between faces that
// link across distinct node pairs.
const coplanarEps = 1e-9

// Boundary is the set of faces separating interior from exterior
// space, with edge-sharing adjacency between them. It is built once
// from a simplified tree and its topology.
type Boundary struct {
	tree      *octree.Tree
	faces     map[FaceKey]*NodeFace
	order     []FaceKey
	adj       map[FaceKey][]FaceKey
	nodeFaces map[*octree.Node][]FaceKey
}

// ExtractBoundary finds every face where an interior leaf meets
// exterior or unobserved space and links the faces that share an edge.
// The tree must have been simplified so node IDs are assigned.
func ExtractBoundary(tree *octree.Tree, topo *octree.Topology, logger golog.Logger) (*Boundary, error) {
	b := &Boundary{
		tree:      tree,
		faces:     map[FaceKey]*NodeFace{},
		adj:       map[FaceKey][]FaceKey{},
		nodeFaces: map[*octree.Node][]FaceKey{},
	}
	if err := b.populate(topo); err != nil {
		return nil, errcode.Wrap(-4, err)
	}
	b.order = make([]FaceKey, 0, len(b.faces))
	for k := range b.faces {
		b.order = append(b.order, k)
	}
	sortFaceKeys(b.order)
	b.link(topo)
	logger.Debugw("boundary extracted", "faces", len(b.faces))
	return b, nil
}

// populate emits a face for every side of every interior leaf that
// borders an exterior leaf or unobserved space.
func (b *Boundary) populate(topo *octree.Topology) error {
	for _, leaf := range topo.Leaves() {
		if !topo.IsInterior(leaf) {
			continue
		}
		if leaf.ID < 0 {
			return errcode.New(-1, "tree has unnumbered nodes; simplify before extracting")
		}
		for _, dir := range octree.AllFaces {
			neighbors := topo.Neighbors(leaf, dir)
			if len(neighbors) == 0 {
				b.addFace(&NodeFace{Interior: leaf, Direction: dir})
				continue
			}
			for _, nb := range neighbors {
				if topo.IsInterior(nb) {
					continue
				}
				if nb.ID < 0 {
					return errcode.New(-1, "tree has unnumbered nodes; simplify before extracting")
				}
				b.addFace(&NodeFace{Interior: leaf, Exterior: nb, Direction: dir})
			}
		}
	}
	return nil
}

func (b *Boundary) addFace(f *NodeFace) {
	k := f.Key()
	b.faces[k] = f
	b.nodeFaces[f.Interior] = append(b.nodeFaces[f.Interior], k)
	if f.Exterior != nil {
		b.nodeFaces[f.Exterior] = append(b.nodeFaces[f.Exterior], k)
	}
}

// link connects each face to the nearby faces it shares an edge with.
// Candidates are the faces of the face's own nodes and of every leaf
// abutting them, so linking stays local.
func (b *Boundary) link(topo *octree.Topology) {
	for _, k := range b.order {
		f := b.faces[k]
		seen := map[FaceKey]bool{k: true}
		for _, ok := range b.nearbyFaces(topo, f) {
			if seen[ok] {
				continue
			}
			seen[ok] = true
			if facesLinked(topo, f, b.faces[ok]) {
				b.adj[k] = append(b.adj[k], ok)
			}
		}
		sortFaceKeys(b.adj[k])
	}
}

// nearbyFaces gathers the candidate link partners of f.
func (b *Boundary) nearbyFaces(topo *octree.Topology, f *NodeFace) []FaceKey {
	var out []FaceKey
	visit := func(n *octree.Node) {
		if n == nil {
			return
		}
		out = append(out, b.nodeFaces[n]...)
		for _, dir := range octree.AllFaces {
			for _, nb := range topo.Neighbors(n, dir) {
				out = append(out, b.nodeFaces[nb]...)
			}
		}
	}
	visit(f.Interior)
	visit(f.Exterior)
	return out
}

// facesLinked decides edge adjacency between two distinct faces. The
// three rules run in cost order: shared interior, shared exterior, then
// the general case requiring both node pairs to neighbor with matching
// direction and a coplanar offset.
func facesLinked(topo *octree.Topology, f, o *NodeFace) bool {
	switch {
	case f.Interior == o.Interior:
		if f.Exterior != nil && o.Exterior != nil && topo.AreNeighbors(f.Exterior, o.Exterior) {
			return true
		}
		return f.SharesEdgeWith(o)
	case f.Exterior == o.Exterior:
		if topo.AreNeighbors(f.Interior, o.Interior) {
			return true
		}
		return f.SharesEdgeWith(o)
	default:
		if f.Direction != o.Direction {
			return false
		}
		if !topo.AreNeighbors(f.Interior, o.Interior) {
			return false
		}
		if f.Exterior == nil || o.Exterior == nil || !topo.AreNeighbors(f.Exterior, o.Exterior) {
			return false
		}
		d := f.Normal().Dot(f.Center().Sub(o.Center()))
		return math.Abs(d) <= coplanarEps
	}
}

// Tree returns the tree the boundary was extracted from.
func (b *Boundary) Tree() *octree.Tree { return b.tree }

// NumFaces returns the face count.
func (b *Boundary) NumFaces() int { return len(b.faces) }

// Faces returns all face keys in deterministic order.
func (b *Boundary) Faces() []FaceKey { return b.order }

// Face returns the face for a key, or nil.
func (b *Boundary) Face(k FaceKey) *NodeFace { return b.faces[k] }

// Adjacent returns the keys of the faces sharing an edge with k, in
// deterministic order.
func (b *Boundary) Adjacent(k FaceKey) []FaceKey { return b.adj[k] }
