package surface

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// varianceFloor keeps inverse-variance weights finite for faces whose
// statistics report no spread.
const varianceFloor = 1e-12

// Plane is an infinite oriented plane.
type Plane struct {
	Point  r3.Vector
	Normal r3.Vector
}

// DistanceTo returns the signed distance from q to the plane along its
// normal.
func (p Plane) DistanceTo(q r3.Vector) float64 {
	return p.Normal.Dot(q.Sub(p.Point))
}

// Project drops q onto the plane along the plane normal.
func (p Plane) Project(q r3.Vector) r3.Vector {
	return q.Sub(p.Normal.Mul(p.DistanceTo(q)))
}

// fitPlane computes the weighted total-least-squares plane through the
// points: the weighted centroid plus the direction of least weighted
// spread. Returns false when the points are too few or degenerate.
func fitPlane(pts []r3.Vector, ws []float64) (Plane, bool) {
	if len(pts) < 3 {
		return Plane{}, false
	}
	var wsum float64
	var mean r3.Vector
	for i, p := range pts {
		mean = mean.Add(p.Mul(ws[i]))
		wsum += ws[i]
	}
	if wsum <= 0 {
		return Plane{}, false
	}
	mean = mean.Mul(1 / wsum)

	cov := mat.NewSymDense(3, nil)
	for i, p := range pts {
		d := p.Sub(mean)
		v := [3]float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, cov.At(r, c)+ws[i]*v[r]*v[c])
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return Plane{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// eigenvalues ascend, so column 0 is the thinnest direction
	n := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if n.Norm() == 0 {
		return Plane{}, false
	}
	return Plane{Point: mean, Normal: n.Normalize()}, true
}
