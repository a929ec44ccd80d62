package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes the mesh as Wavefront OBJ. Colored vertices carry
// their RGB values as the nonstandard trailing triple many viewers
// accept.
func (m *Mesh) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.verts {
		var err error
		if v.Colored {
			_, err = fmt.Fprintf(bw, "v %g %g %g %d %d %d\n",
				v.X, v.Y, v.Z, v.R, v.G, v.B)
		} else {
			_, err = fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
		}
		if err != nil {
			return err
		}
	}
	for _, p := range m.polys {
		if _, err := io.WriteString(bw, "f"); err != nil {
			return err
		}
		for _, i := range p.Indices {
			// OBJ indices are 1-based
			if _, err := fmt.Fprintf(bw, " %d", i+1); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(bw, "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
