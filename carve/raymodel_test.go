package carve

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/voxelforge/surfcarve/octree"
)

func isoCov(variance float64) *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		variance, 0, 0,
		0, variance, 0,
		0, 0, variance,
	})
}

func testRay(t *testing.T) *RayModel {
	t.Helper()
	m, err := NewRayModel(
		r3.Vector{}, isoCov(0.01),
		r3.Vector{X: 2}, isoCov(0.01),
		0.8, 0.1,
	)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestNewRayModelValidation(t *testing.T) {
	_, err := NewRayModel(r3.Vector{X: 1}, isoCov(0.01), r3.Vector{X: 1}, isoCov(0.01), 0, 0)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewRayModel(r3.Vector{}, isoCov(0.01), r3.Vector{X: 2}, isoCov(0), 0, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRayModelMidpointIsInterior(t *testing.T) {
	m := testRay(t)
	d := m.ApplyToLeaf(r3.Vector{X: 1}, 0.05, nil)
	test.That(t, d, test.ShouldNotBeNil)
	test.That(t, d.Probability(), test.ShouldBeGreaterThan, 0.5)
	test.That(t, d.IsInterior(), test.ShouldBeTrue)
}

func TestRayModelPastScanPointIsExterior(t *testing.T) {
	m := testRay(t)
	d := m.ApplyToLeaf(r3.Vector{X: 2.05}, 0.05, nil)
	test.That(t, d, test.ShouldNotBeNil)
	test.That(t, d.Probability(), test.ShouldBeLessThan, 0.5)
	// near the scan point, the surface estimate is meaningful
	test.That(t, d.SurfaceProb(), test.ShouldBeGreaterThan, 0)
}

func TestRayModelFarLateralIsAPriori(t *testing.T) {
	m := testRay(t)
	d := m.ApplyToLeaf(r3.Vector{X: 1, Y: 2}, 0.05, nil)
	test.That(t, d, test.ShouldNotBeNil)
	// essentially no evidence: a-priori probability, negligible weight
	test.That(t, d.Probability(), test.ShouldAlmostEqual, 0.5, 1e-6)
}

func TestRayModelAccumulatesIntoExisting(t *testing.T) {
	m := testRay(t)
	d := m.ApplyToLeaf(r3.Vector{X: 1}, 0.05, nil)
	before := d.Count()
	out := m.ApplyToLeaf(r3.Vector{X: 1}, 0.05, d)
	test.That(t, out, test.ShouldEqual, d)
	test.That(t, d.Count(), test.ShouldEqual, before+1)
}

func TestRayModelCarriesPlanarAndCorner(t *testing.T) {
	m := testRay(t)
	d := m.ApplyToLeaf(r3.Vector{X: 1}, 0.05, nil)
	test.That(t, d.Planarity(), test.ShouldAlmostEqual, 0.8)
	test.That(t, d.CornerProb(), test.ShouldAlmostEqual, 0.1)
}

func TestRayModelIntersects(t *testing.T) {
	m := testRay(t)
	test.That(t, m.Intersects(r3.Vector{X: 1}, 0.1), test.ShouldBeTrue)
	test.That(t, m.Intersects(r3.Vector{X: 2.1}, 0.1), test.ShouldBeTrue)
	test.That(t, m.Intersects(r3.Vector{X: 1, Y: 5}, 0.1), test.ShouldBeFalse)
	test.That(t, m.Intersects(r3.Vector{X: -5}, 0.1), test.ShouldBeFalse)
}

func TestRayModelImplementsShape(t *testing.T) {
	var _ octree.Shape = testRay(t)
}

func TestRayModelAccessors(t *testing.T) {
	m := testRay(t)
	test.That(t, m.SensorMean(), test.ShouldResemble, r3.Vector{})
	test.That(t, m.ScanMean(), test.ShouldResemble, r3.Vector{X: 2})
	test.That(t, m.Range(), test.ShouldAlmostEqual, 2)
}
