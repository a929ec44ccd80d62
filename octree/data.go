package octree

// interiorThreshold classifies a node as interior (observed open space)
// when its mean occupancy probability strictly exceeds this value.
// Unobserved space sits exactly at the a-priori value and classifies as
// exterior.
const interiorThreshold = 0.5

// Data is the statistical payload of a leaf node. It accumulates
// weighted samples of occupancy probability along with surface, corner,
// and planarity estimates, so that payloads can be merged and split
// without losing the underlying statistics.
type Data struct {
	count       uint32
	totalWeight float64
	probSum     float64
	probSumSq   float64
	surfaceSum  float64
	cornerSum   float64
	planarSum   float64
	room        int32
}

// NewData returns an empty payload with no samples and no room label.
func NewData() *Data {
	return &Data{room: -1}
}

// NewDataSample returns a payload seeded with a single weighted sample.
func NewDataSample(w, prob, surface, corner, planar float64) *Data {
	d := NewData()
	d.AddSample(w, prob, surface, corner, planar)
	return d
}

// AddSample folds one weighted observation into the payload.
func (d *Data) AddSample(w, prob, surface, corner, planar float64) {
	d.count++
	d.totalWeight += w
	d.probSum += w * prob
	d.probSumSq += w * prob * prob
	d.surfaceSum += w * surface
	d.cornerSum += w * corner
	d.planarSum += w * planar
}

// Merge folds the other payload's statistics into this one. Merging is
// commutative: x.Merge(y) and y.Merge(x) produce the same totals.
func (d *Data) Merge(o *Data) {
	if o == nil {
		return
	}
	d.count += o.count
	d.totalWeight += o.totalWeight
	d.probSum += o.probSum
	d.probSumSq += o.probSumSq
	d.surfaceSum += o.surfaceSum
	d.cornerSum += o.cornerSum
	d.planarSum += o.planarSum
	if o.room > d.room {
		d.room = o.room
	}
}

// Clone returns a deep copy of the payload.
func (d *Data) Clone() *Data {
	c := *d
	return &c
}

// Subdivide rescales the payload for distribution across n children,
// preserving the ratios of all statistics.
func (d *Data) Subdivide(n int) {
	if n <= 1 || d.count == 0 {
		return
	}
	newCount := d.count / uint32(n)
	if newCount < 1 {
		newCount = 1
	}
	ratio := float64(newCount) / float64(d.count)
	d.count = newCount
	d.totalWeight *= ratio
	d.probSum *= ratio
	d.probSumSq *= ratio
	d.surfaceSum *= ratio
	d.cornerSum *= ratio
	d.planarSum *= ratio
}

// Count returns the number of samples folded into this payload.
func (d *Data) Count() int { return int(d.count) }

// Probability returns the mean occupancy probability, or the a-priori
// value if no weighted samples have been observed.
func (d *Data) Probability() float64 {
	if d.totalWeight <= 0 {
		return interiorThreshold
	}
	return d.probSum / d.totalWeight
}

// Uncertainty returns the sample variance of the occupancy probability.
func (d *Data) Uncertainty() float64 {
	if d.totalWeight <= 0 {
		return 1.0
	}
	mean := d.probSum / d.totalWeight
	v := d.probSumSq/d.totalWeight - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// Planarity returns the mean planarity estimate in [0,1].
func (d *Data) Planarity() float64 {
	if d.totalWeight <= 0 {
		return 0
	}
	return d.planarSum / d.totalWeight
}

// SurfaceProb returns the mean surface-crossing estimate.
func (d *Data) SurfaceProb() float64 {
	if d.totalWeight <= 0 {
		return 0
	}
	return d.surfaceSum / d.totalWeight
}

// CornerProb returns the mean corner estimate.
func (d *Data) CornerProb() float64 {
	if d.totalWeight <= 0 {
		return 0
	}
	return d.cornerSum / d.totalWeight
}

// IsInterior reports whether this payload classifies as interior
// (observed open space).
func (d *Data) IsInterior() bool {
	return d.Probability() > interiorThreshold
}

// Room returns the room label, or a negative value if unassigned.
func (d *Data) Room() int { return int(d.room) }

// SetRoom assigns a room label.
func (d *Data) SetRoom(r int) { d.room = int32(r) }
