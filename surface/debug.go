package surface

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// DumpDebugOBJs writes the boundary, its adjacency graph, the regions,
// and the region linkage into dir as OBJ files. All four are attempted;
// independent failures are combined.
func DumpDebugOBJs(dir string, b *Boundary, g *RegionGraph) error {
	write := func(name string, fn func(w io.Writer) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return errors.Wrapf(err, "create %s", name)
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		return errors.Wrap(fn(f), name)
	}
	return multierr.Combine(
		write("boundary.obj", func(w io.Writer) error { return WriteBoundaryOBJ(w, b) }),
		write("adjacency.obj", func(w io.Writer) error { return WriteAdjacencyOBJ(w, b) }),
		write("regions.obj", func(w io.Writer) error { return WriteRegionsOBJ(w, g) }),
		write("linkage.obj", func(w io.Writer) error { return WriteRegionLinkageOBJ(w, g) }),
	)
}
