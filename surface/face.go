// Package surface turns a carved occupancy tree into a watertight
// polygonal mesh. The stages run in order: boundary extraction finds
// the faces between interior and exterior leaves, the region graph
// groups coplanar faces and coalesces them into planar patches, and
// the mesher solves shared vertices and triangulates each patch.
package surface

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/voxelforge/surfcarve/octree"
)

// NodeFace is one square of the boundary between interior and exterior
// space. Interior is always an interior leaf; Exterior is the abutting
// exterior leaf, or nil when the face borders unobserved or
// out-of-domain space. Direction is the face of the interior node's
// cube, pointing out of the interior.
type NodeFace struct {
	Interior  *octree.Node
	Exterior  *octree.Node
	Direction octree.Face
}

// FaceKey identifies a face by its node IDs, so faces key maps and sort
// deterministically across runs. Exterior is -1 for faces bordering
// unobserved space.
type FaceKey struct {
	Interior  int
	Exterior  int
	Direction octree.Face
}

// Key returns the face's deterministic identity.
func (f *NodeFace) Key() FaceKey {
	k := FaceKey{Interior: f.Interior.ID, Exterior: -1, Direction: f.Direction}
	if f.Exterior != nil {
		k.Exterior = f.Exterior.ID
	}
	return k
}

// geometry returns the node whose cube fixes the face square, and the
// face of that cube. The smaller of the two abutting nodes dictates.
func (f *NodeFace) geometry() (*octree.Node, octree.Face) {
	if f.Exterior != nil && f.Exterior.Halfwidth < f.Interior.Halfwidth {
		return f.Exterior, f.Direction.Opposing()
	}
	return f.Interior, f.Direction
}

// Center returns the center of the face square.
func (f *NodeFace) Center() r3.Vector {
	n, face := f.geometry()
	return n.FaceCenter(face)
}

// Halfwidth returns half the edge length of the face square.
func (f *NodeFace) Halfwidth() float64 {
	n, _ := f.geometry()
	return n.Halfwidth
}

// Normal returns the face's outward unit normal, pointing from interior
// to exterior.
func (f *NodeFace) Normal() r3.Vector { return f.Direction.Normal() }

// stats gathers the probability statistics on both sides of the face.
// An absent or unobserved exterior contributes the a-priori values and
// zero width.
func (f *NodeFace) stats() (muI, varI, hwI, muE, varE, hwE float64) {
	muI = f.Interior.Data.Probability()
	varI = f.Interior.Data.Uncertainty()
	hwI = f.Interior.Halfwidth
	muE, varE = 0.5, 1.0
	if f.Exterior != nil {
		hwE = f.Exterior.Halfwidth
		if f.Exterior.Data != nil {
			muE = f.Exterior.Data.Probability()
			varE = f.Exterior.Data.Uncertainty()
		}
	}
	return muI, varI, hwI, muE, varE, hwE
}

// isoFraction returns where the p=0.5 crossing falls between the two
// node centers, as a fraction of the center-to-center distance measured
// from the interior center.
func isoFraction(muI, muE float64) float64 {
	if muI == muE {
		return 0.5
	}
	s := (muI - 0.5) / (muI - muE)
	return math.Max(0, math.Min(1, s))
}

// IsoCenter returns the estimated position of the p=0.5 isosurface
// crossing under the face, interpolated along the face normal between
// the interior and exterior node statistics.
func (f *NodeFace) IsoCenter() r3.Vector {
	muI, _, hwI, muE, _, hwE := f.stats()
	s := isoFraction(muI, muE)
	return f.Interior.Center.Add(f.Normal().Mul(s * (hwI + hwE)))
}

// PosVariance returns the variance of the isosurface position along the
// face normal, in squared distance units. The crossing fraction blends
// the node uncertainties as (1-s²)·varI + s²·varE, so either endpoint's
// variance dominates as the crossing approaches its node center.
func (f *NodeFace) PosVariance() float64 {
	muI, varI, hwI, muE, varE, hwE := f.stats()
	s := isoFraction(muI, muE)
	vs := (1-s*s)*varI + s*s*varE
	d := hwI + hwE
	return d * d * vs
}

// Planarity returns the sample-count weighted mean planarity of the two
// abutting nodes, in [0,1].
func (f *NodeFace) Planarity() float64 {
	w := float64(f.Interior.Data.Count())
	p := w * f.Interior.Data.Planarity()
	if f.Exterior != nil && f.Exterior.Data != nil {
		we := float64(f.Exterior.Data.Count())
		p += we * f.Exterior.Data.Planarity()
		w += we
	}
	if w <= 0 {
		return 0
	}
	return p / w
}

// SharesEdgeWith reports whether the two face squares touch along an
// edge. Faces pointing in opposing directions never share an edge; same
// direction faces must be coplanar and abut in 2D; orthogonal faces
// must hinge along their common axis.
func (f *NodeFace) SharesEdgeWith(o *NodeFace) bool {
	if f.Direction == o.Direction.Opposing() {
		return false
	}
	if f.Direction == o.Direction {
		return sameDirAbut(f, o)
	}
	return hingeAbut(f, o)
}

// faceUV maps each face direction to the two in-plane axes used for 2D
// projections.
func faceUV(f octree.Face) (u, v int) {
	switch f {
	case octree.FaceXMinus, octree.FaceXPlus:
		return 1, 2
	case octree.FaceYMinus, octree.FaceYPlus:
		return 2, 0
	default:
		return 0, 1
	}
}

func axisComp(p r3.Vector, i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// sameDirAbut tests coplanar 2D abutment: the squares must overlap with
// positive length along one in-plane axis while their edges touch along
// the other.
func sameDirAbut(f, o *NodeFace) bool {
	fc, oc := f.Center(), o.Center()
	fh, oh := f.Halfwidth(), o.Halfwidth()
	eps := 1e-6 * math.Min(fh, oh)

	u, v := faceUV(f.Direction)
	w := 3 - u - v
	if math.Abs(axisComp(fc, w)-axisComp(oc, w)) > eps {
		return false
	}
	overlapU := intervalsOverlap(axisComp(fc, u), fh, axisComp(oc, u), oh, eps)
	overlapV := intervalsOverlap(axisComp(fc, v), fh, axisComp(oc, v), oh, eps)
	touchU := intervalsTouch(axisComp(fc, u), fh, axisComp(oc, u), oh, eps)
	touchV := intervalsTouch(axisComp(fc, v), fh, axisComp(oc, v), oh, eps)
	return (overlapU && touchV) || (overlapV && touchU)
}

// intervalsOverlap reports positive-length overlap of two centered
// intervals.
func intervalsOverlap(ac, ah, bc, bh, eps float64) bool {
	return ah+bh-math.Abs(ac-bc) > eps
}

// intervalsTouch reports whether two centered intervals share exactly
// an endpoint.
func intervalsTouch(ac, ah, bc, bh, eps float64) bool {
	return math.Abs(math.Abs(ac-bc)-(ah+bh)) <= eps
}

// hingeAbut tests whether two orthogonal faces meet along the axis
// perpendicular to both normals, like the two sides of a fold.
func hingeAbut(f, o *NodeFace) bool {
	fn, on := f.Normal(), o.Normal()
	axis := fn.Cross(on)
	fh, oh := f.Halfwidth(), o.Halfwidth()
	eps := 1e-6 * math.Min(fh, oh)

	disp := o.Center().Sub(f.Center())
	dispPerp := disp.Sub(axis.Mul(disp.Dot(axis)))
	// displacement between hinged face centers, up to the fold's sign
	manhat := fn.Mul(oh).Sub(on.Mul(fh))
	if disp.Dot(axis) >= math.Max(fh, oh) || disp.Dot(axis) <= -math.Max(fh, oh) {
		return false
	}
	return manhat.Sub(dispPerp).Norm() <= eps || manhat.Add(dispPerp).Norm() <= eps
}

// faceKeyLess orders keys by interior ID, exterior ID, then direction.
func faceKeyLess(a, b FaceKey) bool {
	if a.Interior != b.Interior {
		return a.Interior < b.Interior
	}
	if a.Exterior != b.Exterior {
		return a.Exterior < b.Exterior
	}
	return a.Direction < b.Direction
}

func sortFaceKeys(keys []FaceKey) {
	sort.Slice(keys, func(i, j int) bool { return faceKeyLess(keys[i], keys[j]) })
}
