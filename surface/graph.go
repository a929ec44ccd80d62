package surface

import (
	"container/heap"
	"sort"

	"github.com/edaniels/golog"
)

// Config tunes region growth and coalescing.
type Config struct {
	// PlanarityThreshold is the minimum face planarity for a face to
	// join a region past its seed, and for a region to participate in
	// coalescing.
	PlanarityThreshold float64
	// DistanceThreshold bounds the plane-fit error of a merged region,
	// in standard deviations of the face positions.
	DistanceThreshold float64
	// UseL2Error switches the fit error from worst-face to RMS.
	UseL2Error bool
}

// DefaultConfig returns the tuning used by the reconstruction tooling.
func DefaultConfig() Config {
	return Config{PlanarityThreshold: 0.5, DistanceThreshold: 2.0}
}

// RegionGraph partitions the boundary into planar regions and tracks
// which regions touch. Every boundary face belongs to exactly one
// region at all times.
type RegionGraph struct {
	boundary *Boundary
	cfg      Config
	logger   golog.Logger
	regions  map[int]*Region
	owner    map[FaceKey]int
	adj      map[int]map[int]struct{}
}

// NewRegionGraph flood-fills the boundary into single-direction regions
// and records inter-region adjacency.
func NewRegionGraph(b *Boundary, cfg Config, logger golog.Logger) *RegionGraph {
	g := &RegionGraph{
		boundary: b,
		cfg:      cfg,
		logger:   logger,
		regions:  map[int]*Region{},
		owner:    map[FaceKey]int{},
		adj:      map[int]map[int]struct{}{},
	}
	next := 0
	for _, k := range b.Faces() {
		if _, taken := g.owner[k]; taken {
			continue
		}
		g.regions[next] = floodFill(b, k, g.owner, next, cfg.PlanarityThreshold)
		next++
	}
	g.rebuildAdjacency()
	logger.Debugw("region graph built", "faces", b.NumFaces(), "regions", len(g.regions))
	return g
}

func (g *RegionGraph) rebuildAdjacency() {
	g.adj = map[int]map[int]struct{}{}
	for id := range g.regions {
		g.adj[id] = map[int]struct{}{}
	}
	for _, k := range g.boundary.Faces() {
		a := g.owner[k]
		for _, nk := range g.boundary.Adjacent(k) {
			if b := g.owner[nk]; b != a {
				g.adj[a][b] = struct{}{}
				g.adj[b][a] = struct{}{}
			}
		}
	}
}

// NumRegions returns the region count.
func (g *RegionGraph) NumRegions() int { return len(g.regions) }

// RegionIDs returns the live region IDs in ascending order.
func (g *RegionGraph) RegionIDs() []int {
	out := make([]int, 0, len(g.regions))
	for id := range g.regions {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Region returns the region with the given ID, or nil.
func (g *RegionGraph) Region(id int) *Region { return g.regions[id] }

// Owner returns the ID of the region containing the face.
func (g *RegionGraph) Owner(k FaceKey) int { return g.owner[k] }

// AdjacentRegions returns the IDs of regions touching the given one, in
// ascending order.
func (g *RegionGraph) AdjacentRegions(id int) []int {
	out := make([]int, 0, len(g.adj[id]))
	for o := range g.adj[id] {
		out = append(out, o)
	}
	sort.Ints(out)
	return out
}

// mergeCand is a proposed merge of two adjacent regions. checksum
// snapshots the combined face count so stale candidates are detected
// lazily instead of being purged on every merge.
type mergeCand struct {
	a, b     int
	err      float64
	checksum int
}

type mergeHeap []mergeCand

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].err != h[j].err {
		return h[i].err < h[j].err
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(mergeCand)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Coalesce greedily merges adjacent regions, best fit first, until the
// cheapest remaining merge exceeds the distance threshold. Returns the
// number of merges performed.
func (g *RegionGraph) Coalesce() int {
	h := &mergeHeap{}
	for _, a := range g.RegionIDs() {
		for _, b := range g.AdjacentRegions(a) {
			if a < b {
				g.pushCand(h, a, b)
			}
		}
	}
	heap.Init(h)

	merges := 0
	for h.Len() > 0 {
		c := heap.Pop(h).(mergeCand)
		ra, rb := g.regions[c.a], g.regions[c.b]
		if ra == nil || rb == nil {
			continue
		}
		if sum := ra.NumFaces() + rb.NumFaces(); sum != c.checksum {
			// a side changed since this candidate was scored
			g.pushCand(h, c.a, c.b)
			continue
		}
		if ra.Planarity() < g.cfg.PlanarityThreshold || rb.Planarity() < g.cfg.PlanarityThreshold {
			continue
		}
		if c.err > g.cfg.DistanceThreshold {
			break
		}
		g.merge(c.a, c.b)
		merges++
		for _, o := range g.AdjacentRegions(c.a) {
			g.pushCand(h, c.a, o)
		}
	}
	g.logger.Debugw("regions coalesced", "merges", merges, "regions", len(g.regions))
	return merges
}

// pushCand scores the merge of two live regions and pushes it. Merges
// whose union plane fails to oppose every member face are never
// enqueued, so regions cannot coalesce across a convex corner even
// when the union's residual is zero.
func (g *RegionGraph) pushCand(h *mergeHeap, a, b int) {
	if a > b {
		a, b = b, a
	}
	ra, rb := g.regions[a], g.regions[b]
	if ra == nil || rb == nil {
		return
	}
	trial := &Region{seed: ra.seed, faces: map[FaceKey]struct{}{}}
	for k := range ra.faces {
		trial.faces[k] = struct{}{}
	}
	for k := range rb.faces {
		trial.faces[k] = struct{}{}
	}
	trial.refresh(g.boundary)
	if !trial.orientedTowardInterior(g.boundary) {
		return
	}
	heap.Push(h, mergeCand{
		a:        a,
		b:        b,
		err:      trial.fitError(g.boundary, g.cfg.UseL2Error),
		checksum: ra.NumFaces() + rb.NumFaces(),
	})
}

// merge folds region b into region a and re-homes ownership and
// adjacency. The lower ID survives.
func (g *RegionGraph) merge(a, b int) {
	ra, rb := g.regions[a], g.regions[b]
	for k := range rb.faces {
		g.owner[k] = a
	}
	ra.absorb(g.boundary, rb)
	delete(g.regions, b)
	for o := range g.adj[b] {
		delete(g.adj[o], b)
		if o != a {
			g.adj[o][a] = struct{}{}
			g.adj[a][o] = struct{}{}
		}
	}
	delete(g.adj, b)
	delete(g.adj[a], a)
}
