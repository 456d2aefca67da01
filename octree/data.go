package octree

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// nodeRecordSize is the fixed full-state record: occupancy, roughness and
// stairs log-odds written verbatim as little-endian float32, no quantization.
const nodeRecordSize = 12

// WriteData writes the node's full-state record to w.
func (n *Node) WriteData(w io.Writer) error {
	var rec [nodeRecordSize]byte
	binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(n.occupancy))
	binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(n.rough))
	binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(n.stairLogOdds))
	if _, err := w.Write(rec[:]); err != nil {
		return errors.Wrap(err, "writing node record")
	}
	return nil
}

// ReadData reads the node's full-state record from r.
func (n *Node) ReadData(r io.Reader) error {
	var rec [nodeRecordSize]byte
	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return errors.Wrap(err, "reading node record")
	}
	n.occupancy = math.Float32frombits(binary.LittleEndian.Uint32(rec[0:]))
	n.rough = math.Float32frombits(binary.LittleEndian.Uint32(rec[4:]))
	n.stairLogOdds = math.Float32frombits(binary.LittleEndian.Uint32(rec[8:]))
	return nil
}

// WriteFull writes the complete tree state: a depth-first walk emitting every
// node's full record followed by a bitmask of its populated child slots.
func (t *RoughTree) WriteFull(w io.Writer) error {
	if t.root == nil {
		return nil
	}
	return writeFullNode(w, t.root)
}

func writeFullNode(w io.Writer, n *Node) error {
	if err := n.WriteData(w); err != nil {
		return err
	}
	var mask [1]byte
	for i := uint8(0); i < 8; i++ {
		if n.childExists(i) {
			mask[0] |= 1 << i
		}
	}
	if _, err := w.Write(mask[:]); err != nil {
		return errors.Wrap(err, "writing child bitmask")
	}
	for i := uint8(0); i < 8; i++ {
		if n.childExists(i) {
			if err := writeFullNode(w, n.children[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFull reads a complete tree state written by WriteFull. The tree must be
// empty.
func (t *RoughTree) ReadFull(r io.Reader) error {
	if t.root != nil {
		return errors.New("cannot read full data into an already populated tree")
	}
	root := newNode()
	if err := readFullNode(r, root); err != nil {
		return err
	}
	t.root = root
	t.logger.Debugf("read %d nodes from full stream", t.NumNodes())
	return nil
}

func readFullNode(r io.Reader, n *Node) error {
	if err := n.ReadData(r); err != nil {
		return err
	}
	var mask [1]byte
	if _, err := io.ReadFull(r, mask[:]); err != nil {
		return errors.Wrap(err, "reading child bitmask")
	}
	for i := uint8(0); i < 8; i++ {
		if mask[0]&(1<<i) != 0 {
			if err := readFullNode(r, n.createChild(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
