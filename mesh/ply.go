package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WritePLY writes the mesh as ASCII PLY. Color properties are emitted
// only if every vertex is colored.
func (m *Mesh) WritePLY(w io.Writer) error {
	bw := bufio.NewWriter(w)

	colored := len(m.verts) > 0
	for _, v := range m.verts {
		if !v.Colored {
			colored = false
			break
		}
	}

	if _, err := fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(m.verts)); err != nil {
		return err
	}
	props := "property float x\nproperty float y\nproperty float z\n"
	if colored {
		props += "property uchar red\nproperty uchar green\nproperty uchar blue\n"
	}
	if _, err := io.WriteString(bw, props); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "element face %d\nproperty list uchar int vertex_index\nend_header\n", len(m.polys)); err != nil {
		return err
	}

	for _, v := range m.verts {
		var err error
		if colored {
			_, err = fmt.Fprintf(bw, "%g %g %g %d %d %d\n",
				v.X, v.Y, v.Z, v.R, v.G, v.B)
		} else {
			_, err = fmt.Fprintf(bw, "%g %g %g\n", v.X, v.Y, v.Z)
		}
		if err != nil {
			return err
		}
	}
	for _, p := range m.polys {
		if _, err := fmt.Fprintf(bw, "%d", len(p.Indices)); err != nil {
			return err
		}
		for _, i := range p.Indices {
			if _, err := fmt.Fprintf(bw, " %d", i); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(bw, "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
