package surface

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/voxelforge/surfcarve/octree"
)

// Corner is an octree grid corner discretized in half-resolution steps
// from the root center. Corners of leaves at every depth land on this
// grid, so a Corner identifies the same physical point no matter which
// nodes reference it.
type Corner struct {
	X, Y, Z int
}

// CornerAt discretizes a position onto the corner grid.
func CornerAt(tree *octree.Tree, p r3.Vector) Corner {
	step := tree.Resolution() / 2
	rc := tree.Root().Center
	return Corner{
		X: int(math.Floor((p.X-rc.X)/step + 0.5)),
		Y: int(math.Floor((p.Y-rc.Y)/step + 0.5)),
		Z: int(math.Floor((p.Z-rc.Z)/step + 0.5)),
	}
}

// FaceCornerAt returns corner i (0..3, counter-clockwise seen from the
// exterior side) of the face square.
func FaceCornerAt(tree *octree.Tree, f *NodeFace, i int) Corner {
	n, face := f.geometry()
	return CornerAt(tree, n.Corner(octree.FaceCorner(face, i)))
}

// Position returns the exact grid position of the corner.
func (c Corner) Position(tree *octree.Tree) r3.Vector {
	step := tree.Resolution() / 2
	rc := tree.Root().Center
	return r3.Vector{
		X: rc.X + float64(c.X)*step,
		Y: rc.Y + float64(c.Y)*step,
		Z: rc.Z + float64(c.Z)*step,
	}
}

// Less orders corners lexicographically.
func (c Corner) Less(o Corner) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// CornerMap indexes the faces touching each grid corner.
type CornerMap map[Corner][]FaceKey

// NewCornerMap builds the corner index over all boundary faces.
func NewCornerMap(b *Boundary) CornerMap {
	cm := CornerMap{}
	for _, k := range b.Faces() {
		f := b.Face(k)
		for i := 0; i < 4; i++ {
			c := FaceCornerAt(b.Tree(), f, i)
			cm[c] = append(cm[c], k)
		}
	}
	for c := range cm {
		sortFaceKeys(cm[c])
	}
	return cm
}

// Corners returns the map's corners in deterministic order.
func (cm CornerMap) Corners() []Corner {
	out := make([]Corner, 0, len(cm))
	for c := range cm {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
