package octree

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Binary tree format: a magic string, the max depth, then the node
// records in depth-first order. Each node stores its center, halfwidth,
// a payload-present flag followed by the payload fields, and eight
// child-present flags each followed by the child's record. All values
// are little-endian.
const (
	octMagic    = "octfile\x00"
	octMagicLen = 8
)

// WriteTo serializes the tree. It returns the number of bytes written.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	buffered := bufio.NewWriter(w)
	bw := &countingWriter{w: buffered}
	if _, err := bw.Write([]byte(octMagic)); err != nil {
		return bw.n, err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(t.maxDepth)); err != nil {
		return bw.n, err
	}
	if err := t.root.serialize(bw); err != nil {
		return bw.n, err
	}
	return bw.n, buffered.Flush()
}

// ReadFrom deserializes a tree previously written with WriteTo.
func ReadFrom(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, octMagicLen)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if string(magic) != octMagic {
		return nil, errors.New("not an octree file")
	}
	var depth int32
	if err := binary.Read(br, binary.LittleEndian, &depth); err != nil {
		return nil, errors.Wrap(err, "reading max depth")
	}
	root, err := parseNode(br)
	if err != nil {
		return nil, err
	}
	t := &Tree{root: root, maxDepth: int(depth)}
	t.refreshIDs()
	return t, nil
}

func (n *Node) serialize(w io.Writer) error {
	fields := []float64{n.Center.X, n.Center.Y, n.Center.Z, n.Halfwidth}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if n.Data != nil {
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := n.Data.serialize(w); err != nil {
			return err
		}
	} else if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	for i := 0; i < NumChildren; i++ {
		if n.Children[i] == nil {
			if _, err := w.Write([]byte{0}); err != nil {
				return err
			}
			continue
		}
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := n.Children[i].serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func parseNode(r *bufio.Reader) (*Node, error) {
	var fields [4]float64
	for i := range fields {
		if err := binary.Read(r, binary.LittleEndian, &fields[i]); err != nil {
			return nil, errors.Wrap(err, "reading node geometry")
		}
	}
	n := newNode(r3.Vector{X: fields[0], Y: fields[1], Z: fields[2]}, fields[3])
	if n.Halfwidth <= 0 || math.IsNaN(n.Halfwidth) {
		return nil, errors.Errorf("invalid node halfwidth %f", n.Halfwidth)
	}
	flag, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "reading payload flag")
	}
	if flag != 0 {
		n.Data = NewData()
		if err := n.Data.parse(r); err != nil {
			return nil, err
		}
	}
	for i := 0; i < NumChildren; i++ {
		flag, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "reading child flag")
		}
		if flag == 0 {
			continue
		}
		child, err := parseNode(r)
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	return n, nil
}

func (d *Data) serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, d.count); err != nil {
		return err
	}
	fields := []float64{
		d.totalWeight, d.probSum, d.probSumSq,
		d.surfaceSum, d.cornerSum, d.planarSum,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, d.room)
}

func (d *Data) parse(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.count); err != nil {
		return errors.Wrap(err, "reading payload")
	}
	fields := []*float64{
		&d.totalWeight, &d.probSum, &d.probSumSq,
		&d.surfaceSum, &d.cornerSum, &d.planarSum,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return errors.Wrap(err, "reading payload")
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &d.room); err != nil {
		return errors.Wrap(err, "reading payload")
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
