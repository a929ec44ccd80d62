// Package carve populates the occupancy index from probabilistic range
// evidence. Scans are grouped into spatial chunks; each chunk names the
// evidence that influences its cube, and chunks are carved concurrently
// over disjoint subtrees.
package carve

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/voxelforge/surfcarve/octree"
)

// PointIndex identifies one range measurement: a sensor, a frame of
// that sensor, and a point within the frame.
type PointIndex struct {
	Sensor int
	Frame  int
	Point  int
}

// Less orders indices sensor-major, then by frame, then by point.
func (a PointIndex) Less(b PointIndex) bool {
	if a.Sensor != b.Sensor {
		return a.Sensor < b.Sensor
	}
	if a.Frame != b.Frame {
		return a.Frame < b.Frame
	}
	return a.Point < b.Point
}

// Chunk is an axis-aligned cube of space together with the indices of
// every measurement whose evidence overlaps it.
type Chunk struct {
	Center    r3.Vector
	Halfwidth float64
	Indices   []PointIndex
}

// Source resolves a measurement index to its evidence shape. Sources
// must be safe for concurrent use; the carver calls Evidence from
// multiple workers.
type Source interface {
	Evidence(idx PointIndex) (octree.Shape, error)
}

// sortDedupIndices sorts the indices into carving order and removes
// duplicates. Duplicates indicate a malformed chunk and are logged.
func sortDedupIndices(idx []PointIndex, logger golog.Logger) []PointIndex {
	sort.Slice(idx, func(i, j int) bool { return idx[i].Less(idx[j]) })
	out := idx[:0]
	for i, v := range idx {
		if i > 0 && v == idx[i-1] {
			logger.Warnw("duplicate index in chunk",
				"sensor", v.Sensor, "frame", v.Frame, "point", v.Point)
			continue
		}
		out = append(out, v)
	}
	return out
}
