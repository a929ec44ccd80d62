package carve

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/voxelforge/surfcarve/octree"
)

// Probability states blended per sample. Space confirmed between the
// sensor and its scan point is interior; space past the scan point is
// exterior; space the ray says nothing about keeps the a-priori value.
const (
	probInterior = 1.0
	probTooFar   = 0.0
	probAPriori  = 0.5
)

// lateralCutoff bounds a ray's region of influence, in standard
// deviations of its widest endpoint distribution.
const lateralCutoff = 3.0

// RayModel is the Gaussian evidence of a single range measurement. Both
// the sensor position and the scan point carry full 3x3 covariances;
// the model assigns every point in space an interior probability and a
// confidence weight, and carves them into the tree as an octree.Shape.
type RayModel struct {
	sensorMean r3.Vector
	scanMean   r3.Vector
	sensorCov  *mat.SymDense
	scanCov    *mat.SymDense
	planarProb float64
	cornerProb float64

	// cached ray geometry
	ray       r3.Vector
	rangeDist float64

	// per-endpoint marginals along the ray
	sensorNorm         r3.Vector
	scanNorm           r3.Vector
	sensorDot          float64
	scanDot            float64
	sensorNegInvSqrt2v float64
	scanNegInvSqrt2v   float64

	// scan point 3D pdf, for surface probability
	scanPDFCoef   float64
	scanInvCovNeg *mat.Dense

	reach float64
}

// NewRayModel builds the evidence model for one measurement. The
// planar and corner probabilities are carried through to carved leaves
// unchanged.
func NewRayModel(
	sensorMean r3.Vector, sensorCov *mat.SymDense,
	scanMean r3.Vector, scanCov *mat.SymDense,
	planarProb, cornerProb float64,
) (*RayModel, error) {
	m := &RayModel{
		sensorMean: sensorMean,
		scanMean:   scanMean,
		sensorCov:  sensorCov,
		scanCov:    scanCov,
		planarProb: planarProb,
		cornerProb: cornerProb,
	}
	m.ray = scanMean.Sub(sensorMean)
	m.rangeDist = m.ray.Norm()
	if m.rangeDist <= 0 {
		return nil, errors.New("degenerate measurement: sensor and scan point coincide")
	}
	m.ray = m.ray.Mul(1 / m.rangeDist)

	// principal components of each endpoint distribution aligned with
	// the ray define the planes the marginals are measured against
	sEig, sDot, sVar, err := alignedEig(sensorCov, m.ray)
	if err != nil {
		return nil, errors.Wrap(err, "sensor covariance")
	}
	pEig, pDot, pVar, err := alignedEig(scanCov, m.ray)
	if err != nil {
		return nil, errors.Wrap(err, "scan point covariance")
	}
	m.sensorNorm, m.sensorDot = sEig, sDot
	m.scanNorm, m.scanDot = pEig.Mul(-1), -pDot

	// marginal variance of each endpoint along the ray
	m.sensorNegInvSqrt2v = -1 / math.Sqrt(2*quadForm(sensorCov, m.ray))
	m.scanNegInvSqrt2v = -1 / math.Sqrt(2*quadForm(scanCov, m.ray))

	var inv mat.Dense
	if err := inv.Inverse(symToDense(scanCov)); err != nil {
		return nil, errors.Wrap(err, "scan point covariance not invertible")
	}
	inv.Scale(-0.5, &inv)
	m.scanInvCovNeg = &inv
	det := mat.Det(symToDense(scanCov))
	if det <= 0 {
		return nil, errors.New("scan point covariance not positive definite")
	}
	m.scanPDFCoef = math.Pow(2*math.Pi, -1.5) * math.Pow(det, -0.5)

	m.reach = lateralCutoff * math.Sqrt(math.Max(sVar, pVar))
	return m, nil
}

// Intersects reports whether the cube is close enough to the ray for
// the model's evidence to matter. Points beyond the lateral cutoff are
// numerically indistinguishable from the a-priori state.
func (m *RayModel) Intersects(center r3.Vector, halfwidth float64) bool {
	// extend the segment by the reach to cover the endpoint tails
	a := m.sensorMean.Sub(m.ray.Mul(m.reach))
	b := m.scanMean.Add(m.ray.Mul(m.reach))
	d := distPointSegment(center, a, b)
	return d <= halfwidth*math.Sqrt(3)+m.reach
}

// ApplyToLeaf folds one weighted sample into the leaf payload. The
// sample's probability is the Bernoulli expectation over the three ray
// states; its weight is the lateral intersection probability.
func (m *RayModel) ApplyToLeaf(center r3.Vector, halfwidth float64, d *octree.Data) *octree.Data {
	xsize := 2 * halfwidth

	// signed distances of the leaf from each endpoint plane
	msDist := m.sensorNorm.Dot(m.sensorMean.Sub(center)) / m.sensorDot
	mpDist := m.scanNorm.Dot(m.scanMean.Sub(center)) / m.scanDot

	// P(leaf is past the sensor) and P(leaf is within scan range),
	// from the marginal CDFs along the ray
	pForward := 0.5 * (1 + math.Erf(msDist*m.sensorNegInvSqrt2v))
	pInrange := 0.5 * (1 - math.Erf(mpDist*m.scanNegInvSqrt2v))

	// fractional position along the ray, 0 at sensor, 1 at scan point
	f := -msDist / (mpDist - msDist)
	f = math.Max(0, math.Min(1, f))
	omf := 1 - f

	// the lateral distribution at this position blends the endpoint
	// distributions linearly
	blendMean := m.sensorMean.Mul(omf).Add(m.scanMean.Mul(f))
	lat := center.Sub(blendMean)
	latDist := lat.Norm()

	var varLat float64
	if latDist > 1e-12 {
		lat = lat.Mul(1 / latDist)
		varLat = omf*quadForm(m.sensorCov, lat) + f*quadForm(m.scanCov, lat)
	} else {
		// on the ray exactly; use the mean transverse variance
		tr := traceSym(m.sensorCov)*omf + traceSym(m.scanCov)*f
		along := omf*quadForm(m.sensorCov, m.ray) + f*quadForm(m.scanCov, m.ray)
		varLat = (tr - along) / 2
	}

	pLat := gaussPDF(varLat, latDist) * xsize
	pLat = math.Min(pLat, 1)
	pFl := pForward * pLat

	pTotal := pFl*pInrange*probInterior +
		pFl*(1-pInrange)*probTooFar +
		(1-pFl)*probAPriori

	if math.IsNaN(pTotal) || math.IsInf(pTotal, 0) {
		return d
	}

	if d == nil {
		d = octree.NewData()
	}
	d.AddSample(pLat, pTotal, m.surfaceProb(center, xsize), m.cornerProb, m.planarProb)
	return d
}

// surfaceProb integrates the scan point's 3D pdf over a cube of edge
// xsize, approximating the density as constant over the volume.
func (m *RayModel) surfaceProb(x r3.Vector, xsize float64) float64 {
	d := mat.NewVecDense(3, []float64{
		x.X - m.scanMean.X, x.Y - m.scanMean.Y, x.Z - m.scanMean.Z,
	})
	var tmp mat.VecDense
	tmp.MulVec(m.scanInvCovNeg, d)
	e := mat.Dot(d, &tmp)
	p := m.scanPDFCoef * math.Exp(e) * xsize * xsize * xsize
	return math.Min(p, 1)
}

// SensorMean returns the sensor position.
func (m *RayModel) SensorMean() r3.Vector { return m.sensorMean }

// ScanMean returns the scan point position.
func (m *RayModel) ScanMean() r3.Vector { return m.scanMean }

// Range returns the mean distance between sensor and scan point.
func (m *RayModel) Range() float64 { return m.rangeDist }

func gaussPDF(variance, x float64) float64 {
	tv := 2 * variance
	return math.Exp(-x*x/tv) / math.Sqrt(math.Pi*tv)
}

// alignedEig returns the eigenvector of the symmetric matrix most
// aligned with dir (sign-corrected toward it), the magnitude of their
// dot product, and the largest eigenvalue of the matrix.
func alignedEig(c *mat.SymDense, dir r3.Vector) (r3.Vector, float64, float64, error) {
	var eig mat.EigenSym
	if !eig.Factorize(c, true) {
		return r3.Vector{}, 0, 0, errors.New("eigendecomposition failed")
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vals := eig.Values(nil)

	best, bestDot := 0, 0.0
	for i := 0; i < 3; i++ {
		d := dir.X*vecs.At(0, i) + dir.Y*vecs.At(1, i) + dir.Z*vecs.At(2, i)
		if math.Abs(d) > math.Abs(bestDot) {
			best, bestDot = i, d
		}
	}
	v := r3.Vector{X: vecs.At(0, best), Y: vecs.At(1, best), Z: vecs.At(2, best)}
	if bestDot < 0 {
		v = v.Mul(-1)
	}
	maxVal := math.Max(vals[0], math.Max(vals[1], vals[2]))
	return v, math.Abs(bestDot), maxVal, nil
}

func quadForm(c *mat.SymDense, v r3.Vector) float64 {
	x := []float64{v.X, v.Y, v.Z}
	var s float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s += x[i] * c.At(i, j) * x[j]
		}
	}
	return s
}

func traceSym(c *mat.SymDense) float64 {
	return c.At(0, 0) + c.At(1, 1) + c.At(2, 2)
}

func symToDense(c *mat.SymDense) *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	d.Copy(c)
	return d
}

func distPointSegment(p, a, b r3.Vector) float64 {
	ab := b.Sub(a)
	t := p.Sub(a).Dot(ab) / ab.Dot(ab)
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}
