package surface

import (
	"bufio"
	"fmt"
	"io"

	"github.com/voxelforge/surfcarve/mesh"
)

// Debug geometry exports. Each writer dumps one stage of the pipeline
// as Wavefront OBJ so a run can be inspected in any mesh viewer.

// WriteBoundaryOBJ writes every boundary face as a colored quad. Faces
// are tinted by direction so orientation problems stand out.
func WriteBoundaryOBJ(w io.Writer, b *Boundary) error {
	bw := bufio.NewWriter(w)
	tree := b.Tree()
	var dirColors = [6][3]int{
		{255, 0, 0}, {0, 255, 0}, {0, 0, 255},
		{255, 255, 0}, {255, 0, 255}, {0, 255, 255},
	}
	vi := 1
	for _, k := range b.Faces() {
		f := b.Face(k)
		col := dirColors[int(f.Direction)]
		for i := 0; i < 4; i++ {
			p := FaceCornerAt(tree, f, i).Position(tree)
			if _, err := fmt.Fprintf(bw, "v %g %g %g %d %d %d\n",
				p.X, p.Y, p.Z, col[0], col[1], col[2]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "f %d %d %d %d\n", vi, vi+1, vi+2, vi+3); err != nil {
			return err
		}
		vi += 4
	}
	return bw.Flush()
}

// WriteAdjacencyOBJ writes a line segment between the centers of every
// pair of linked boundary faces.
func WriteAdjacencyOBJ(w io.Writer, b *Boundary) error {
	bw := bufio.NewWriter(w)
	index := map[FaceKey]int{}
	for i, k := range b.Faces() {
		c := b.Face(k).Center()
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", c.X, c.Y, c.Z); err != nil {
			return err
		}
		index[k] = i + 1
	}
	for _, k := range b.Faces() {
		for _, nk := range b.Adjacent(k) {
			if faceKeyLess(nk, k) {
				continue // each link once
			}
			if _, err := fmt.Fprintf(bw, "l %d %d\n", index[k], index[nk]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteRegionsOBJ writes every region's faces as quads, grouped and
// colored per region.
func WriteRegionsOBJ(w io.Writer, g *RegionGraph) error {
	bw := bufio.NewWriter(w)
	b := g.boundary
	tree := b.Tree()
	vi := 1
	for _, id := range g.RegionIDs() {
		if _, err := fmt.Fprintf(bw, "g region_%d\n", id); err != nil {
			return err
		}
		col := regionColor(id)
		for _, k := range g.Region(id).Faces() {
			f := b.Face(k)
			for i := 0; i < 4; i++ {
				p := FaceCornerAt(tree, f, i).Position(tree)
				if _, err := fmt.Fprintf(bw, "v %g %g %g %d %d %d\n",
					p.X, p.Y, p.Z, col[0], col[1], col[2]); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "f %d %d %d %d\n", vi, vi+1, vi+2, vi+3); err != nil {
				return err
			}
			vi += 4
		}
	}
	return bw.Flush()
}

// WriteRegionLinkageOBJ writes a line segment between the plane points
// of every pair of adjacent regions.
func WriteRegionLinkageOBJ(w io.Writer, g *RegionGraph) error {
	bw := bufio.NewWriter(w)
	index := map[int]int{}
	for i, id := range g.RegionIDs() {
		p := g.Region(id).Plane().Point
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
		index[id] = i + 1
	}
	for _, id := range g.RegionIDs() {
		for _, o := range g.AdjacentRegions(id) {
			if o < id {
				continue
			}
			if _, err := fmt.Fprintf(bw, "l %d %d\n", index[id], index[o]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteSharedVerticesOBJ writes the solved multi-region vertices as an
// OBJ point cloud.
func (m *Mesher) WriteSharedVerticesOBJ(w io.Writer) error {
	scratch := mesh.New()
	if _, err := m.solveSharedVertices(scratch); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i := 0; i < scratch.NumVertices(); i++ {
		v := scratch.Vertex(i)
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, "p %d\n", i+1); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// regionColor hashes a region ID into a stable bright color.
func regionColor(id int) [3]int {
	h := uint32(id)*2654435761 + 12345
	return [3]int{
		64 + int(h&0x7f),
		64 + int((h>>8)&0x7f),
		64 + int((h>>16)&0x7f),
	}
}
