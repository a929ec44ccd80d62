package surface

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/voxelforge/surfcarve/octree"
)

const (
	// orientEps detects a degenerate fit: collinear face centers leave
	// the plane normal ambiguous in the seed direction.
	orientEps = 1e-9
	// minOppose is the minimum opposition between a region's plane
	// normal and each face's outward normal. Faces tilted more than 60
	// degrees from the plane cannot be parameterized over it, so a
	// rim of perpendicular faces never folds into an adjacent patch no
	// matter how small the union's residual is.
	minOppose = 0.5
)

// Region is a connected set of boundary faces approximated by one
// plane. Regions start as single-direction flood fills and grow by
// coalescing with planar neighbors.
type Region struct {
	seed      FaceKey
	faces     map[FaceKey]struct{}
	order     []FaceKey
	plane     Plane
	planarity float64
}

// Seed returns the face the region grew from.
func (r *Region) Seed() FaceKey { return r.seed }

// NumFaces returns the face count.
func (r *Region) NumFaces() int { return len(r.faces) }

// Faces returns the region's face keys in deterministic order.
func (r *Region) Faces() []FaceKey { return r.order }

// Has reports whether the region contains the face.
func (r *Region) Has(k FaceKey) bool {
	_, ok := r.faces[k]
	return ok
}

// Plane returns the region's fitted plane. The normal points into the
// interior, opposite the region's faces.
func (r *Region) Plane() Plane { return r.plane }

// Planarity returns the weakest face planarity in the region.
func (r *Region) Planarity() float64 { return r.planarity }

// floodFill grows a region from seed across edge-adjacent faces of the
// seed's direction. The seed joins unconditionally; every other face
// must clear the planarity threshold. Claimed faces are recorded so
// regions partition the boundary.
func floodFill(b *Boundary, seed FaceKey, claimed map[FaceKey]int, id int, planarityThreshold float64) *Region {
	r := &Region{seed: seed, faces: map[FaceKey]struct{}{seed: {}}}
	claimed[seed] = id
	queue := []FaceKey{seed}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, nk := range b.Adjacent(k) {
			if _, taken := claimed[nk]; taken {
				continue
			}
			nf := b.Face(nk)
			if nf.Direction != seed.Direction {
				continue
			}
			if nf.Planarity() < planarityThreshold {
				continue
			}
			claimed[nk] = id
			r.faces[nk] = struct{}{}
			queue = append(queue, nk)
		}
	}
	r.refresh(b)
	return r
}

// refresh rebuilds the region's derived state: ordered keys, fitted
// plane, and planarity score.
func (r *Region) refresh(b *Boundary) {
	r.order = r.order[:0]
	for k := range r.faces {
		r.order = append(r.order, k)
	}
	sortFaceKeys(r.order)

	r.planarity = 1
	pts := make([]r3.Vector, 0, len(r.order))
	ws := make([]float64, 0, len(r.order))
	for _, k := range r.order {
		f := b.Face(k)
		if p := f.Planarity(); p < r.planarity {
			r.planarity = p
		}
		pts = append(pts, f.IsoCenter())
		ws = append(ws, 1/math.Max(f.PosVariance(), varianceFloor))
	}

	// the normal faces the interior, opposite the seed direction
	inward := r.seed.Direction.Normal().Mul(-1)
	plane, ok := fitPlane(pts, ws)
	if !ok || math.Abs(plane.Normal.Dot(inward)) < orientEps {
		// too few faces to fit, or the fit is degenerate along the seed
		// direction (collinear face centers leave the thinnest direction
		// ambiguous); fall back to the seed face geometry
		plane = Plane{Point: b.Face(r.seed).IsoCenter(), Normal: inward}
	}
	if plane.Normal.Dot(inward) < 0 {
		plane.Normal = plane.Normal.Mul(-1)
	}
	r.plane = plane
}

// orientedTowardInterior reports whether the plane's normal opposes the
// outward normal of every member face by at least minOppose. A union of
// perpendicular faces can fit a plane with near-zero residual, either
// orthogonal to all of them (the slab mid-plane) or tilted just enough
// to graze both directions; neither is planar in any meaningful sense,
// while a 45-degree staircase of mixed directions still clears the
// margin.
func (r *Region) orientedTowardInterior(b *Boundary) bool {
	for _, k := range r.order {
		if r.plane.Normal.Dot(b.Face(k).Normal()) > -minOppose {
			return false
		}
	}
	return true
}

// fitError measures how far the region's faces sit from its plane, each
// distance normalized by the face's position deviation. The default is
// the worst face; useL2 switches to the RMS.
func (r *Region) fitError(b *Boundary, useL2 bool) float64 {
	var worst, sumSq float64
	for _, k := range r.order {
		f := b.Face(k)
		d := r.plane.DistanceTo(f.IsoCenter())
		nd := math.Abs(d) / math.Sqrt(math.Max(f.PosVariance(), varianceFloor))
		if nd > worst {
			worst = nd
		}
		sumSq += nd * nd
	}
	if useL2 {
		return math.Sqrt(sumSq / float64(len(r.order)))
	}
	return worst
}

// dominantDirection returns the face direction best aligned with the
// region's plane normal. Coalesced regions can mix directions; the
// dominant one fixes the 2D parameterization for triangulation.
func (r *Region) dominantDirection() octree.Face {
	outward := r.plane.Normal.Mul(-1)
	best := octree.FaceZMinus
	bestDot := math.Inf(-1)
	for _, dir := range octree.AllFaces {
		if d := outward.Dot(dir.Normal()); d > bestDot {
			best, bestDot = dir, d
		}
	}
	return best
}

// absorb folds the other region's faces into this one and refits.
func (r *Region) absorb(b *Boundary, o *Region) {
	for k := range o.faces {
		r.faces[k] = struct{}{}
	}
	r.refresh(b)
}
