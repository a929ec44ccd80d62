package octree

import "github.com/golang/geo/r3"

// Face identifies one of the six axis-aligned faces of a node's cube.
type Face int

// Cube faces, in the canonical iteration order used throughout the
// pipeline. The order matters: boundary extraction and tests rely on
// faces being visited consistently.
const (
	FaceZMinus Face = iota
	FaceYMinus
	FaceXMinus
	FaceXPlus
	FaceYPlus
	FaceZPlus
)

// NumFaces is the number of faces per cube.
const NumFaces = 6

// AllFaces lists every cube face in canonical order.
var AllFaces = [NumFaces]Face{
	FaceZMinus, FaceYMinus, FaceXMinus, FaceXPlus, FaceYPlus, FaceZPlus,
}

// Opposing returns the face on the other side of the cube.
func (f Face) Opposing() Face {
	switch f {
	case FaceZMinus:
		return FaceZPlus
	case FaceYMinus:
		return FaceYPlus
	case FaceXMinus:
		return FaceXPlus
	case FaceXPlus:
		return FaceXMinus
	case FaceYPlus:
		return FaceYMinus
	default:
		return FaceZMinus
	}
}

// Normal returns the outward unit normal of the face.
func (f Face) Normal() r3.Vector {
	switch f {
	case FaceZMinus:
		return r3.Vector{X: 0, Y: 0, Z: -1}
	case FaceYMinus:
		return r3.Vector{X: 0, Y: -1, Z: 0}
	case FaceXMinus:
		return r3.Vector{X: -1, Y: 0, Z: 0}
	case FaceXPlus:
		return r3.Vector{X: 1, Y: 0, Z: 0}
	case FaceYPlus:
		return r3.Vector{X: 0, Y: 1, Z: 0}
	default:
		return r3.Vector{X: 0, Y: 0, Z: 1}
	}
}

func (f Face) String() string {
	switch f {
	case FaceZMinus:
		return "z-"
	case FaceYMinus:
		return "y-"
	case FaceXMinus:
		return "x-"
	case FaceXPlus:
		return "x+"
	case FaceYPlus:
		return "y+"
	default:
		return "z+"
	}
}

// NumChildren is the number of children of an internal node. The child
// index doubles as a corner index: child i occupies the octant whose
// outermost corner is corner i of the parent cube.
const NumChildren = 8

// childDirs gives the direction from a node's center to the center of
// each child octant (and, scaled by the full halfwidth, to each corner).
//
//	    z
//	    ^
//	 1 ________ 0
//	  /|       /|
//	 2 _______/ |
//	 |  |    |3 |
//	 |  5 ___|__| 4
//	 | /     | /
//	 |/______|/ ......> x
//	6         7
var childDirs = [NumChildren]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: -1},
	{X: 1, Y: -1, Z: -1},
}

// ChildDir returns the unit-cube direction from a node center to the
// center of child i.
func ChildDir(i int) r3.Vector { return childDirs[i] }

// childIndex returns the index of the octant containing the displacement
// diff from a node's center.
func childIndex(diff r3.Vector) int {
	if diff.Z >= 0 {
		if diff.X >= 0 {
			if diff.Y >= 0 {
				return 0
			}
			return 3
		}
		if diff.Y >= 0 {
			return 1
		}
		return 2
	}
	if diff.X >= 0 {
		if diff.Y >= 0 {
			return 4
		}
		return 7
	}
	if diff.Y >= 0 {
		return 5
	}
	return 6
}

// faceCorners maps each face (in canonical order) to the four cube
// corner indices of that face, counter-clockwise when viewed from
// outside the cube.
var faceCorners = [NumFaces][4]int{
	{7, 6, 5, 4}, // z-
	{3, 2, 6, 7}, // y-
	{2, 1, 5, 6}, // x-
	{0, 3, 7, 4}, // x+
	{1, 0, 4, 5}, // y+
	{0, 1, 2, 3}, // z+
}

// FaceCorner returns the cube corner index of the i'th corner (0..3) of
// face f, ordered counter-clockwise from outside.
func FaceCorner(f Face, i int) int { return faceCorners[f][i] }
