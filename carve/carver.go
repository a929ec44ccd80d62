package carve

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/voxelforge/surfcarve/errcode"
	"github.com/voxelforge/surfcarve/octree"
)

// Carver populates a tree from chunked evidence. Chunks are carved by
// a fixed pool of workers, each owning the subtree under its chunk, so
// no locking is needed and results are bit-identical regardless of the
// worker count.
type Carver struct {
	tree   *octree.Tree
	logger golog.Logger
}

// NewCarver returns a carver that writes into the given tree.
func NewCarver(tree *octree.Tree, logger golog.Logger) *Carver {
	return &Carver{tree: tree, logger: logger}
}

// chunkTask is one unit of worker-owned carving: a materialized subtree
// and the deduplicated evidence to carve into it.
type chunkTask struct {
	node     *octree.Node
	relDepth int
	indices  []PointIndex
}

// CarveAll carves every chunk's evidence into the tree.
//
// All chunk subtrees are materialized single-threaded first, so workers
// never mutate shared ancestors. Chunks that resolve to the same
// subtree, or to a subtree containing another chunk's, are folded into
// one task to preserve exclusive ownership. At most 2*threads tasks are
// in flight: threads workers each holding one plus a channel buffer of
// threads. The first error stops scheduling. After the pool drains, a
// single-threaded simplification pass merges agreeing regions.
func (c *Carver) CarveAll(ctx context.Context, chunks []Chunk, src Source, threads int) error {
	if threads < 1 {
		threads = 1
	}
	c.logger.Debugw("carving chunks", "chunks", len(chunks), "threads", threads)

	tasks := make([]*chunkTask, 0, len(chunks))
	for i, ch := range chunks {
		if len(ch.Indices) == 0 {
			continue
		}
		node, rd, err := c.tree.Expand(ch.Center, ch.Halfwidth)
		if err != nil {
			return errcode.Wrap(-1, err)
		}
		indices := sortDedupIndices(append([]PointIndex(nil), ch.Indices...), c.logger)
		task := &chunkTask{node: node, relDepth: rd, indices: indices}
		// fold together tasks whose subtrees nest, so each remaining
		// task owns its subtree exclusively
		kept := tasks[:0]
		for _, t := range tasks {
			if t.node == task.node || subtreeContains(t.node, task.node) {
				c.logger.Debugw("chunk shares a subtree, merged", "chunk", i)
				t.indices = mergeIndices(t.indices, task.indices)
				task = t
				continue
			}
			if subtreeContains(task.node, t.node) {
				c.logger.Debugw("chunk subsumes an earlier subtree", "chunk", i)
				task.indices = mergeIndices(task.indices, t.indices)
				continue
			}
			kept = append(kept, t)
		}
		tasks = append(kept, task)
	}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *chunkTask, threads)
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			for t := range queue {
				if err := c.carveTask(gctx, t, src); err != nil {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(queue)
		for _, t := range tasks {
			select {
			case queue <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return errcode.Wrap(-2, err)
	}

	c.tree.SimplifyRecursive()
	c.logger.Debugw("carving complete", "nodes", c.tree.NumNodes())
	return nil
}

func (c *Carver) carveTask(ctx context.Context, t *chunkTask, src Source) error {
	for _, idx := range t.indices {
		if err := ctx.Err(); err != nil {
			return err
		}
		shape, err := src.Evidence(idx)
		if err != nil {
			return errcode.Wrap(-3, errors.Wrapf(err, "evidence %d/%d/%d",
				idx.Sensor, idx.Frame, idx.Point))
		}
		c.tree.InsertInto(t.node, t.relDepth, shape)
	}
	return nil
}

// mergeIndices merges two sorted index slices, dropping duplicates.
// Overlap across adjacent chunks is expected, so no warning is logged.
func mergeIndices(a, b []PointIndex) []PointIndex {
	out := make([]PointIndex, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i].Less(b[j]):
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// subtreeContains reports whether b's cube lies within a's.
func subtreeContains(a, b *octree.Node) bool {
	d := b.Center.Sub(a.Center)
	m := d.X
	if -d.X > m {
		m = -d.X
	}
	for _, v := range []float64{d.Y, -d.Y, d.Z, -d.Z} {
		if v > m {
			m = v
		}
	}
	return m+b.Halfwidth <= a.Halfwidth
}
