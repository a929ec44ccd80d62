// Package mesh holds polygonal surface geometry and writes it out in
// common ASCII interchange formats.
package mesh

import "github.com/pkg/errors"

// Vertex is a mesh vertex with an optional color. Colored reports
// whether the RGB fields carry meaning.
type Vertex struct {
	X, Y, Z float64
	R, G, B uint8
	Colored bool
}

// Polygon is an ordered list of vertex indices.
type Polygon struct {
	Indices []int
}

// NewTriangle returns a three-vertex polygon.
func NewTriangle(a, b, c int) Polygon {
	return Polygon{Indices: []int{a, b, c}}
}

// IsDegenerate reports whether the polygon repeats a vertex or has
// fewer than three distinct vertices.
func (p Polygon) IsDegenerate() bool {
	if len(p.Indices) < 3 {
		return true
	}
	for i, a := range p.Indices {
		for _, b := range p.Indices[i+1:] {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Mesh is an indexed collection of vertices and polygons.
type Mesh struct {
	verts []Vertex
	polys []Polygon
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v Vertex) int {
	m.verts = append(m.verts, v)
	return len(m.verts) - 1
}

// AddPolygon appends a polygon. Indices must reference existing
// vertices.
func (m *Mesh) AddPolygon(p Polygon) error {
	for _, i := range p.Indices {
		if i < 0 || i >= len(m.verts) {
			return errors.Errorf("polygon references vertex %d of %d", i, len(m.verts))
		}
	}
	m.polys = append(m.polys, p)
	return nil
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return len(m.verts) }

// NumPolygons returns the polygon count.
func (m *Mesh) NumPolygons() int { return len(m.polys) }

// Vertex returns the vertex at index i.
func (m *Mesh) Vertex(i int) Vertex { return m.verts[i] }

// Polygon returns the polygon at index i.
func (m *Mesh) Polygon(i int) Polygon { return m.polys[i] }
