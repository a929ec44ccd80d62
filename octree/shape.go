package octree

import "github.com/golang/geo/r3"

// Shape is a geometric region of influence carved into the tree.
// Implementations decide which cubes they touch and how a touched
// leaf's payload changes.
type Shape interface {
	// Intersects reports whether the shape overlaps the axis-aligned
	// cube at center with the given halfwidth.
	Intersects(center r3.Vector, halfwidth float64) bool

	// ApplyToLeaf folds the shape's evidence into a leaf payload. The
	// input payload may be nil for a previously unobserved leaf; the
	// returned payload replaces it.
	ApplyToLeaf(center r3.Vector, halfwidth float64, d *Data) *Data
}
